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

package djson

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Value is any value produced by decoding json data into an empty
// interface: nil, bool, json.Number, string, []interface{} or
// map[string]interface{}.
type Value = interface{}

// Decode parses a single json value. Numbers are decoded as json.Number so
// that integers are not silently converted to floats.
func Decode(data []byte) (Value, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var v Value
	if err := decoder.Decode(&v); err != nil {
		return nil, err
	}

	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid trailing data")
	}

	return v, nil
}

func IsString(v Value) bool {
	_, ok := v.(string)
	return ok
}

func IsObject(v Value) bool {
	_, ok := v.(map[string]interface{})
	return ok
}

func AsString(v Value) string {
	return v.(string)
}

func AsObject(v Value) map[string]Value {
	return v.(map[string]interface{})
}

// ObjectString returns the first member of an object whose name is one of
// names and whose value is a non-empty string.
func ObjectString(v Value, names ...string) (string, bool) {
	if !IsObject(v) {
		return "", false
	}

	obj := AsObject(v)

	for _, name := range names {
		member, found := obj[name]
		if !found || !IsString(member) {
			continue
		}

		if s := AsString(member); s != "" {
			return s, true
		}
	}

	return "", false
}
