// Package validation binds request input into schema structs and checks it.
//
// A schema is a plain struct. Each field names its source with exactly one of
// the tags json (body), form (query string) or uri (path parameter), its rules
// with a binding tag understood by go-playground/validator, an optional msg tag
// overriding the failure message and an optional norm tag ("trim", "lower")
// applied to strings before the rules run. Numeric and boolean-like strings are
// coerced into int and bool fields. Optional fields are pointers.
//
// Bind never stops at the first problem: every coercion failure and every rule
// violation is returned together as one apperror ValidationError.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"store-ratings-api/apperror"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds the JSON body read by Bind.
const maxBodyBytes = 1 << 20

type source struct {
	name     string
	location apperror.Location
}

func sourceOf(sf reflect.StructField) (source, bool) {
	for _, cand := range []struct {
		tag string
		loc apperror.Location
	}{
		{"json", apperror.LocationBody},
		{"form", apperror.LocationQuery},
		{"uri", apperror.LocationParam},
	} {
		v, ok := sf.Tag.Lookup(cand.tag)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(v, ",")
		if name == "" || name == "-" {
			return source{}, false
		}
		return source{name: name, location: cand.loc}, true
	}
	return source{}, false
}

// Bind fills dst (a pointer to a schema struct) from the request and validates it.
// The returned error is always an *apperror.Error.
func Bind(c *gin.Context, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return apperror.Internal(fmt.Errorf("validation: Bind needs a struct pointer, got %T", dst))
	}
	elem := rv.Elem()
	typ := elem.Type()

	var body map[string]any
	if hasLocation(typ, apperror.LocationBody) {
		var err error
		body, err = readBody(c)
		if err != nil {
			return apperror.Validation(apperror.FieldError{
				Field:    "body",
				Message:  "request body must be a JSON object",
				Location: apperror.LocationBody,
			})
		}
	}

	var fields []apperror.FieldError
	failed := map[string]bool{}
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		src, ok := sourceOf(sf)
		if !ok {
			continue
		}
		raw, present := lookup(c, body, src)
		if !present {
			continue
		}
		if msg := assign(elem.Field(i), raw, sf.Tag.Get("norm")); msg != "" {
			failed[sf.Name] = true
			fields = append(fields, apperror.FieldError{
				Field:    src.name,
				Message:  fmt.Sprintf("%s %s", src.name, msg),
				Location: src.location,
			})
		}
	}

	if err := engine().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperror.Internal(err)
		}
		for _, fe := range verrs {
			if failed[fe.StructField()] {
				continue
			}
			sf, _ := typ.FieldByName(fe.StructField())
			src, _ := sourceOf(sf)
			msg := sf.Tag.Get("msg")
			if msg == "" {
				msg = describe(fe)
			}
			fields = append(fields, apperror.FieldError{
				Field:    src.name,
				Message:  msg,
				Location: src.location,
			})
		}
	}

	if len(fields) > 0 {
		return apperror.Validation(fields...)
	}
	return nil
}

func hasLocation(typ reflect.Type, loc apperror.Location) bool {
	for i := 0; i < typ.NumField(); i++ {
		if src, ok := sourceOf(typ.Field(i)); ok && src.location == loc {
			return true
		}
	}
	return false
}

func readBody(c *gin.Context) (map[string]any, error) {
	if c.Request.Body == nil {
		return map[string]any{}, nil
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("body is null")
	}
	return out, nil
}

func lookup(c *gin.Context, body map[string]any, src source) (any, bool) {
	switch src.location {
	case apperror.LocationBody:
		v, ok := body[src.name]
		if !ok || v == nil {
			return nil, false
		}
		return v, true
	case apperror.LocationQuery:
		return c.GetQuery(src.name)
	case apperror.LocationParam:
		v := c.Param(src.name)
		return v, v != ""
	}
	return nil, false
}

// assign stores raw into field, returning a message fragment when raw cannot
// be coerced to the field's type.
func assign(field reflect.Value, raw any, norm string) string {
	target := field
	if field.Kind() == reflect.Pointer {
		target = reflect.New(field.Type().Elem()).Elem()
	}

	switch target.Kind() {
	case reflect.String:
		s, ok := raw.(string)
		if !ok {
			return "must be a string"
		}
		target.SetString(normalize(s, norm))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := toInt(raw)
		if !ok {
			return "must be an integer"
		}
		if target.OverflowInt(n) {
			return "is out of range"
		}
		target.SetInt(n)
	case reflect.Bool:
		b, ok := toBool(raw)
		if !ok {
			return "must be a boolean"
		}
		target.SetBool(b)
	default:
		return "has an unsupported type"
	}

	if field.Kind() == reflect.Pointer {
		ptr := reflect.New(field.Type().Elem())
		ptr.Elem().Set(target)
		field.Set(ptr)
	}
	return ""
}

func normalize(s, norm string) string {
	for _, op := range strings.Split(norm, ",") {
		switch strings.TrimSpace(op) {
		case "trim":
			s = strings.TrimSpace(s)
		case "lower":
			s = strings.ToLower(s)
		}
	}
	return s
}

func toInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case json.Number:
		switch v.String() {
		case "1":
			return true, true
		case "0":
			return false, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true, true
		case "false", "0", "no", "off":
			return false, true
		}
	}
	return false, false
}
