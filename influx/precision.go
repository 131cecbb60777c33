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
	"fmt"
	"time"
)

// Precision is the unit of the timestamps of a whole write batch. The zero
// value means "unset" and is replaced by the client default.
type Precision int

const (
	PrecisionNanoseconds Precision = iota + 1
	PrecisionMicroseconds
	PrecisionMilliseconds
	PrecisionSeconds
	PrecisionMinutes
	PrecisionHours
)

const DefaultPrecision = PrecisionSeconds

var Precisions = []Precision{
	PrecisionNanoseconds,
	PrecisionMicroseconds,
	PrecisionMilliseconds,
	PrecisionSeconds,
	PrecisionMinutes,
	PrecisionHours,
}

var precisionCodes = map[Precision]string{
	PrecisionNanoseconds:  "ns",
	PrecisionMicroseconds: "u",
	PrecisionMilliseconds: "ms",
	PrecisionSeconds:      "s",
	PrecisionMinutes:      "m",
	PrecisionHours:        "h",
}

var precisionUnits = map[Precision]time.Duration{
	PrecisionNanoseconds:  time.Nanosecond,
	PrecisionMicroseconds: time.Microsecond,
	PrecisionMilliseconds: time.Millisecond,
	PrecisionSeconds:      time.Second,
	PrecisionMinutes:      time.Minute,
	PrecisionHours:        time.Hour,
}

func ParsePrecision(s string) (Precision, error) {
	for p, code := range precisionCodes {
		if s == code {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unknown precision %q", s)
}

func (p Precision) IsValid() bool {
	_, found := precisionCodes[p]
	return found
}

// Code returns the value of the "precision" query parameter.
func (p Precision) Code() string {
	code, found := precisionCodes[p]
	if !found {
		panic(fmt.Sprintf("invalid precision %d", int(p)))
	}

	return code
}

func (p Precision) String() string {
	if code, found := precisionCodes[p]; found {
		return code
	}

	return fmt.Sprintf("Precision(%d)", int(p))
}

func (p Precision) Unit() time.Duration {
	return precisionUnits[p]
}

// Timestamp converts a time to an integer timestamp in this precision,
// truncating towards the beginning of time.
func (p Precision) Timestamp(t time.Time) int64 {
	switch p {
	case PrecisionNanoseconds:
		return t.UnixNano()
	case PrecisionMicroseconds:
		return t.UnixMicro()
	case PrecisionMilliseconds:
		return t.UnixMilli()
	}

	secs := t.Unix()
	unit := int64(p.Unit() / time.Second)
	if unit <= 1 {
		return secs
	}

	ts := secs / unit
	if secs < 0 && secs%unit != 0 {
		ts--
	}

	return ts
}

// Convert converts a timestamp in this precision to another precision,
// truncating towards the beginning of time when the target is coarser.
func (p Precision) Convert(ts int64, to Precision) int64 {
	from, target := p.Unit(), to.Unit()

	switch {
	case from == target:
		return ts
	case from > target:
		return ts * int64(from/target)
	}

	ratio := int64(target / from)

	ts2 := ts / ratio
	if ts < 0 && ts%ratio != 0 {
		ts2--
	}

	return ts2
}

func (p Precision) MarshalJSON() ([]byte, error) {
	if p == 0 {
		return json.Marshal("")
	}

	return json.Marshal(p.Code())
}

func (p *Precision) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s == "" {
		*p = 0
		return nil
	}

	p2, err := ParsePrecision(s)
	if err != nil {
		return err
	}

	*p = p2
	return nil
}
