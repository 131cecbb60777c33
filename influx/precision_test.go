// Copyright (c) 2022 Exograd SAS.
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that the above
// copyright notice and this permission notice appear in all copies.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
// WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY
// SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
// WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
// ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR
// IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.

package influx

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrecisionCodes(t *testing.T) {
	assert := assert.New(t)

	codes := make(map[string]Precision)

	for _, p := range Precisions {
		assert.True(p.IsValid(), p)

		code := p.Code()
		assert.NotEmpty(code)

		p2, found := codes[code]
		assert.False(found, "code %q shared by %d and %d", code, p, p2)
		codes[code] = p

		p3, err := ParsePrecision(code)
		if assert.NoError(err) {
			assert.Equal(p, p3)
		}
	}

	assert.Len(codes, 6)
	assert.Equal("ns", PrecisionNanoseconds.Code())
	assert.Equal("u", PrecisionMicroseconds.Code())
	assert.Equal("ms", PrecisionMilliseconds.Code())
	assert.Equal("s", PrecisionSeconds.Code())
	assert.Equal("m", PrecisionMinutes.Code())
	assert.Equal("h", PrecisionHours.Code())

	assert.False(Precision(0).IsValid())
	assert.Panics(func() { Precision(0).Code() })

	_, err := ParsePrecision("us")
	assert.Error(err)
}

func TestPrecisionTimestamp(t *testing.T) {
	assert := assert.New(t)

	instant := time.Date(2022, 3, 24, 10, 25, 0, 123456789, time.UTC)
	secs := instant.Unix()

	assert.Equal(instant.UnixNano(), PrecisionNanoseconds.Timestamp(instant))
	assert.Equal(secs*1e6+123456, PrecisionMicroseconds.Timestamp(instant))
	assert.Equal(secs*1e3+123, PrecisionMilliseconds.Timestamp(instant))
	assert.Equal(secs, PrecisionSeconds.Timestamp(instant))
	assert.Equal(secs/60, PrecisionMinutes.Timestamp(instant))
	assert.Equal(secs/3600, PrecisionHours.Timestamp(instant))

	before := time.Unix(-90, 0)
	assert.Equal(int64(-2), PrecisionMinutes.Timestamp(before))
	assert.Equal(int64(-1), PrecisionHours.Timestamp(before))
}

func TestPrecisionConvert(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		from, to Precision
		ts, ts2  int64
	}{
		{PrecisionMilliseconds, PrecisionSeconds, 1700000000123, 1700000000},
		{PrecisionSeconds, PrecisionMilliseconds, 1700000000, 1700000000000},
		{PrecisionSeconds, PrecisionNanoseconds, 1, 1_000_000_000},
		{PrecisionHours, PrecisionMinutes, 2, 120},
		{PrecisionMicroseconds, PrecisionMicroseconds, 42, 42},
		{PrecisionSeconds, PrecisionMinutes, -90, -2},
		{PrecisionNanoseconds, PrecisionMicroseconds, -1000, -1},
	}

	for _, test := range tests {
		assert.Equal(test.ts2, test.from.Convert(test.ts, test.to),
			"%v %d -> %v", test.from, test.ts, test.to)
	}
}

func TestPrecisionJSON(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var value struct {
		Precision Precision `json:"precision"`
	}

	require.NoError(json.Unmarshal([]byte(`{"precision":"ms"}`), &value))
	assert.Equal(PrecisionMilliseconds, value.Precision)

	data, err := json.Marshal(value)
	require.NoError(err)
	assert.JSONEq(`{"precision":"ms"}`, string(data))

	require.NoError(json.Unmarshal([]byte(`{"precision":""}`), &value))
	assert.Equal(Precision(0), value.Precision)

	assert.Error(json.Unmarshal([]byte(`{"precision":"d"}`), &value))
}
