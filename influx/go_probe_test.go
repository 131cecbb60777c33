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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoProbePoints(t *testing.T) {
	assert := assert.New(t)

	ps := Points{goProbeGoroutinePoint(10), goProbeMemPoint(10)}
	assert.NoError(ValidatePoints(ps))

	count, found := ps[0].Fields.Get("count")
	if assert.True(found) {
		assert.Equal(ValueTypeInteger, count.Type)
		assert.Greater(count.IntegerValue(), int64(0))
	}

	for _, p := range ps {
		if assert.NotNil(p.Timestamp) {
			assert.Equal(int64(10), *p.Timestamp)
		}
	}

	assert.Len(ps[1].Fields, 9)
}
