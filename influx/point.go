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
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/exograd/go-influx/check"
)

type Tag struct {
	Key   string
	Value Value
}

type Tags []Tag

type Field struct {
	Key   string
	Value Value
}

type Fields []Field

type Point struct {
	Measurement string
	Tags        Tags
	Fields      Fields
	Timestamp   *int64
}

type Points []*Point

func NewPoint(measurement string) *Point {
	return &Point{
		Measurement: measurement,
	}
}

func NewPointWithTimestamp(measurement string, timestamp int64) *Point {
	return NewPoint(measurement).SetTimestamp(timestamp)
}

// AddTag appends a tag, or replaces the value of an existing tag with the
// same key without changing its position.
func (p *Point) AddTag(key string, value Value) *Point {
	p.Tags = p.Tags.set(key, value)
	return p
}

func (p *Point) AddStringTag(key, value string) *Point {
	return p.AddTag(key, String(value))
}

// AddField appends a field, or replaces the value of an existing field with
// the same key without changing its position.
func (p *Point) AddField(key string, value Value) *Point {
	p.Fields = p.Fields.set(key, value)
	return p
}

func (p *Point) SetTimestamp(timestamp int64) *Point {
	p.Timestamp = &timestamp
	return p
}

func (p *Point) ClearTimestamp() *Point {
	p.Timestamp = nil
	return p
}

func (p *Point) HasTag(key string) bool {
	_, found := p.Tags.Get(key)
	return found
}

// Copy returns a point which does not share tag, field or timestamp storage
// with the original one.
func (p *Point) Copy() *Point {
	p2 := Point{
		Measurement: p.Measurement,
		Tags:        append(Tags(nil), p.Tags...),
		Fields:      append(Fields(nil), p.Fields...),
	}

	if p.Timestamp != nil {
		p2.SetTimestamp(*p.Timestamp)
	}

	return &p2
}

// Characters which, when preceded by a backslash, are read back as an escape
// sequence by line protocol parsers.
const (
	measurementEscapedChars = ", "
	keyEscapedChars         = ", =\""
)

func (p *Point) Check(c *check.Checker) {
	if checkName(c, "measurement", p.Measurement, measurementEscapedChars) {
		c.Check("measurement", p.Measurement[0] != '#',
			"measurement must not start with '#'")
	}

	c.WithChild("tags", func() {
		for i, tag := range p.Tags {
			c.WithChild(i, func() {
				checkName(c, "key", tag.Key, keyEscapedChars)

				if c.Check("value", tag.Value.isFinite(),
					"float must be finite") {
					checkName(c, "value", tag.Value.String(), keyEscapedChars)
				}
			})
		}
	})

	if c.CheckArrayNotEmpty("fields", p.Fields) {
		c.WithChild("fields", func() {
			for i, field := range p.Fields {
				c.WithChild(i, func() {
					checkName(c, "key", field.Key, keyEscapedChars)

					c.Check("value", field.Value.isFinite(),
						"float must be finite")

					if field.Value.Type == ValueTypeString {
						s := field.Value.s

						if c.Check("value", utf8.ValidString(s),
							"string must be valid utf-8") {
							c.Check("value", !strings.ContainsAny(s, "\r\n\f"),
								"string must not contain line breaks or form feeds")
						}
					}
				})
			}
		})
	}
}

func checkName(c *check.Checker, token, s, escapedChars string) bool {
	if !c.CheckStringNotEmpty(token, s) {
		return false
	}

	if !c.Check(token, utf8.ValidString(s), "string must be valid utf-8") {
		return false
	}

	if !c.Check(token, strings.IndexFunc(s, unicode.IsControl) == -1,
		"string must not contain control characters") {
		return false
	}

	return c.Check(token, !hasDanglingBackslash(s, escapedChars),
		"backslash must not end the string or precede any of %q",
		escapedChars)
}

// hasDanglingBackslash reports whether s contains a backslash which would
// combine with the following character once s is escaped.
func hasDanglingBackslash(s, escapedChars string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			continue
		}

		if i == len(s)-1 || strings.IndexByte(escapedChars, s[i+1]) >= 0 {
			return true
		}
	}

	return false
}

func (ps Points) Check(c *check.Checker) {
	for i, p := range ps {
		if !c.Check(strconv.Itoa(i), p != nil, "missing point") {
			continue
		}

		c.WithChild(i, func() {
			p.Check(c)
		})
	}
}

// ValidatePoints returns a check.ValidationErrors value listing every
// problem which would prevent points from being encoded correctly.
func ValidatePoints(ps Points) error {
	c := check.NewChecker()
	ps.Check(c)
	return c.Error()
}

func (ts Tags) Get(key string) (Value, bool) {
	for _, t := range ts {
		if t.Key == key {
			return t.Value, true
		}
	}

	return Value{}, false
}

func (ts Tags) set(key string, value Value) Tags {
	for i := range ts {
		if ts[i].Key == key {
			ts[i].Value = value
			return ts
		}
	}

	return append(ts, Tag{Key: key, Value: value})
}

func (fs Fields) Get(key string) (Value, bool) {
	for _, f := range fs {
		if f.Key == key {
			return f.Value, true
		}
	}

	return Value{}, false
}

func (fs Fields) set(key string, value Value) Fields {
	for i := range fs {
		if fs[i].Key == key {
			fs[i].Value = value
			return fs
		}
	}

	return append(fs, Field{Key: key, Value: value})
}
