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
	"fmt"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// FromWritePoint converts a point built with the official InfluxDB client.
// The timestamp is converted with the given precision; points without
// timestamp keep none.
func FromWritePoint(wp *write.Point, precision Precision) (*Point, error) {
	if !precision.IsValid() {
		return nil, fmt.Errorf("invalid precision %v", precision)
	}

	p := NewPoint(wp.Name())

	for _, tag := range wp.TagList() {
		p.AddStringTag(tag.Key, tag.Value)
	}

	for _, field := range wp.FieldList() {
		value, err := ValueOf(field.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for field %q: %w",
				field.Key, err)
		}

		p.AddField(field.Key, value)
	}

	if t := wp.Time(); !t.IsZero() {
		p.SetTimestamp(precision.Timestamp(t))
	}

	return p, nil
}

func FromWritePoints(wps []*write.Point, precision Precision) (Points, error) {
	ps := make(Points, len(wps))

	for i, wp := range wps {
		p, err := FromWritePoint(wp, precision)
		if err != nil {
			return nil, fmt.Errorf("invalid point %d: %w", i, err)
		}

		ps[i] = p
	}

	return ps, nil
}
