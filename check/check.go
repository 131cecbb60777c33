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
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

type Checker struct {
	Pointer Pointer
	Errors  ValidationErrors
}

type Object interface {
	Check(*Checker)
}

type ValidationError struct {
	Pointer Pointer `json:"pointer"`
	Message string  `json:"message"`
}

type ValidationErrors []*ValidationError

func (err ValidationError) String() string {
	return fmt.Sprintf("ValidationError{%v, %q}", err.Pointer, err.Message)
}

func (err ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", err.Pointer, err.Message)
}

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}

	return strings.Join(msgs, "; ")
}

func NewChecker() *Checker {
	return &Checker{}
}

func (c *Checker) Error() error {
	if len(c.Errors) == 0 {
		return nil
	}

	return c.Errors
}

func (c *Checker) Push(token string) {
	c.Pointer = append(c.Pointer, token)
}

func (c *Checker) Pop() {
	c.Pointer = c.Pointer[:len(c.Pointer)-1]
}

func (c *Checker) WithChild(tokenOrIndex interface{}, fn func()) {
	var token string
	switch v := tokenOrIndex.(type) {
	case string:
		token = v
	case int:
		token = strconv.Itoa(v)
	default:
		panicf("invalid token %#v (%T)", v, v)
	}

	c.Push(token)
	defer c.Pop()

	fn()
}

func (c *Checker) AddError(token string, format string, args ...interface{}) {
	err := ValidationError{
		Pointer: c.Pointer.Child(token),
		Message: fmt.Sprintf(format, args...),
	}

	c.Errors = append(c.Errors, &err)
}

func (c *Checker) Check(token string, v bool, format string, args ...interface{}) bool {
	if !v {
		c.AddError(token, format, args...)
	}

	return v
}

func (c *Checker) CheckIntMin(token string, i, min int) bool {
	return c.Check(token, i >= min,
		"integer %d must be greater or equal to %d", i, min)
}

func (c *Checker) CheckIntMax(token string, i, max int) bool {
	return c.Check(token, i <= max,
		"integer %d must be lower or equal to %d", i, max)
}

func (c *Checker) CheckIntMinMax(token string, i, min, max int) bool {
	if !c.CheckIntMin(token, i, min) {
		return false
	}

	return c.CheckIntMax(token, i, max)
}

func (c *Checker) CheckStringNotEmpty(token string, s string) bool {
	return c.Check(token, s != "", "string must not be empty")
}

func (c *Checker) CheckStringNoLineBreak(token string, s string) bool {
	return c.Check(token, !strings.ContainsAny(s, "\r\n"),
		"string must not contain line breaks")
}

func (c *Checker) CheckStringURI(token string, s string) bool {
	// The url.Parse function considers that the empty string is a valid URL.
	// It is not.

	if s == "" {
		c.AddError(token, "string must be a valid uri")
		return false
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		c.AddError(token, "string must be a valid uri")
		return false
	}

	return true
}

func (c *Checker) CheckArrayNotEmpty(token string, value interface{}) bool {
	valueType := reflect.TypeOf(value)
	if valueType == nil {
		return c.Check(token, false, "array must not be empty")
	}

	var length int

	switch valueType.Kind() {
	case reflect.Slice, reflect.Array:
		length = reflect.ValueOf(value).Len()
	default:
		panicf("value %#v (%T) is not a slice or array", value, value)
	}

	return c.Check(token, length > 0, "array must not be empty")
}

func (c *Checker) CheckOptionalObject(token string, value interface{}) bool {
	if isNilObject(value) {
		return true
	}

	return c.doCheckObject(token, value)
}

func (c *Checker) CheckObject(token string, value interface{}) bool {
	if !c.Check(token, !isNilObject(value), "missing value") {
		return false
	}

	return c.doCheckObject(token, value)
}

func (c *Checker) doCheckObject(token string, value interface{}) bool {
	nbErrors := len(c.Errors)

	obj, ok := value.(Object)
	if !ok {
		panicf("value %#v (%T) does not implement Object", value, value)
	}

	c.WithChild(token, func() {
		obj.Check(c)
	})

	return len(c.Errors) == nbErrors
}

func (c *Checker) CheckObjectArray(token string, value interface{}) bool {
	valueType := reflect.TypeOf(value)
	kind := valueType.Kind()

	if kind != reflect.Array && kind != reflect.Slice {
		panicf("value %#v (%T) is not an array or slice", value, value)
	}

	ok := true

	c.WithChild(token, func() {
		values := reflect.ValueOf(value)

		for i := 0; i < values.Len(); i++ {
			child := values.Index(i).Interface()
			childOk := c.CheckObject(strconv.Itoa(i), child)
			ok = ok && childOk
		}
	})

	return ok
}

func isNilObject(value interface{}) bool {
	valueType := reflect.TypeOf(value)
	if valueType == nil {
		return true
	}

	if valueType.Kind() != reflect.Pointer {
		panicf("value %#v (%T) is not a pointer", value, value)
	}

	if valueType.Elem().Kind() != reflect.Struct {
		panicf("value %#v (%T) is not an object pointer", value, value)
	}

	return reflect.ValueOf(value).IsNil()
}

func panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}
