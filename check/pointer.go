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

package check

import (
	"encoding/json"
	"errors"
	"strings"
)

// Pointer is a RFC 6901 json pointer locating the value a validation error
// refers to.
type Pointer []string

var ErrInvalidPointerFormat = errors.New("invalid format")

var (
	tokenEncoder = strings.NewReplacer("~", "~0", "/", "~1")
	tokenDecoder = strings.NewReplacer("~1", "/", "~0", "~")
)

func (p *Pointer) Parse(s string) error {
	if s == "" {
		*p = Pointer{}
		return nil
	}

	if s[0] != '/' {
		return ErrInvalidPointerFormat
	}

	parts := strings.Split(s[1:], "/")

	tokens := make(Pointer, len(parts))
	for i, part := range parts {
		tokens[i] = tokenDecoder.Replace(part)
	}

	*p = tokens

	return nil
}

func (p Pointer) String() string {
	var sb strings.Builder

	for _, token := range p {
		sb.WriteByte('/')
		sb.WriteString(tokenEncoder.Replace(token))
	}

	return sb.String()
}

func (p Pointer) Child(token string) Pointer {
	p2 := make(Pointer, len(p), len(p)+1)
	copy(p2, p)

	return append(p2, token)
}

func (p Pointer) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Pointer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return p.Parse(s)
}
