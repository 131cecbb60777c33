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
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	measurementEscaper = strings.NewReplacer(",", `\,`, " ", `\ `)
	keyEscaper         = strings.NewReplacer(",", `\,`, "=", `\=`, " ", `\ `)
	stringEscaper      = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
)

// Encode validates points and returns their line protocol representation,
// one line per point, without a trailing newline.
func Encode(ps Points) (string, error) {
	if err := ValidatePoints(ps); err != nil {
		return "", fmt.Errorf("invalid points: %w", err)
	}

	var buf bytes.Buffer
	EncodePoints(ps, &buf)

	return buf.String(), nil
}

// EncodePoints does not validate points; see ValidatePoints.
func EncodePoints(ps Points, buf *bytes.Buffer) {
	for i, p := range ps {
		if i > 0 {
			buf.WriteByte('\n')
		}

		EncodePoint(p, buf)
	}
}

func EncodePoint(p *Point, buf *bytes.Buffer) {
	buf.WriteString(measurementEscaper.Replace(p.Measurement))

	for _, tag := range p.Tags {
		buf.WriteByte(',')
		buf.WriteString(keyEscaper.Replace(tag.Key))
		buf.WriteByte('=')
		buf.WriteString(keyEscaper.Replace(tag.Value.String()))
	}

	buf.WriteByte(' ')

	for i, field := range p.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}

		buf.WriteString(keyEscaper.Replace(field.Key))
		buf.WriteByte('=')
		encodeFieldValue(field.Value, buf)
	}

	if p.Timestamp != nil {
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatInt(*p.Timestamp, 10))
	}
}

func encodeFieldValue(v Value, buf *bytes.Buffer) {
	switch v.Type {
	case ValueTypeInteger:
		buf.WriteString(strconv.FormatInt(v.i, 10))
		buf.WriteByte('i')

	case ValueTypeFloat:
		buf.WriteString(formatFloat(v.f))

	case ValueTypeBoolean:
		buf.WriteString(strconv.FormatBool(v.b))

	default:
		buf.WriteByte('"')
		buf.WriteString(stringEscaper.Replace(v.s))
		buf.WriteByte('"')
	}
}

// The result always has a fractional part or an exponent, never the form of
// an integer.
func formatFloat(f float64) string {
	abs := math.Abs(f)

	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}

	return s
}
