package core

import (
	"bytes"
	"encoding/json"
)

// NAString is how an unavailable value is written to output artifacts.
const NAString = "NA"

// Opt holds a value that may be unavailable. The zero value is unavailable.
type Opt[T any] struct {
	value T
	ok    bool
}

// Some wraps an available value.
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, ok: true}
}

// NA returns an unavailable value of type T.
func NA[T any]() Opt[T] {
	return Opt[T]{}
}

// Get returns the value and whether it is available.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.ok
}

// OK reports whether the value is available.
func (o Opt[T]) OK() bool {
	return o.ok
}

// Or returns the value, or def when unavailable.
func (o Opt[T]) Or(def T) T {
	if !o.ok {
		return def
	}
	return o.value
}

// MarshalJSON writes "NA" for unavailable values.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return json.Marshal(NAString)
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON accepts "NA" (and null) as unavailable.
func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`"`+NAString+`"`)) {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
