package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"bigfish/internal/tree"
)

// ErrValidation marks errors caused by bad input
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func optString(s *string) tree.Value {
	if s == nil {
		return tree.Null()
	}
	return tree.String(*s)
}

func optTime(t *time.Time) tree.Value {
	if t == nil {
		return tree.Null()
	}
	return tree.Time(*t)
}

func getString(f tree.Fields, key string) *string {
	v, ok := f[key]
	if !ok || v.Kind() != tree.KindString {
		return nil
	}
	s := v.Str()
	return &s
}

func getInt(f tree.Fields, key string) (int, error) {
	v, ok := f[key]
	if !ok || v.IsNull() {
		return 0, nil
	}
	n, ok := v.Number()
	if !ok || n != math.Trunc(n) {
		return 0, fmt.Errorf("%s: expected integer, got %s", key, v.Kind())
	}
	return int(n), nil
}

func getTime(f tree.Fields, key string) (*time.Time, error) {
	v, ok := f[key]
	if !ok || v.IsNull() {
		return nil, nil
	}
	switch v.Kind() {
	case tree.KindTime:
		t := v.Time()
		return &t, nil
	case tree.KindString:
		t, err := time.Parse(time.RFC3339Nano, v.Str())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return &t, nil
	}
	return nil, fmt.Errorf("%s: expected timestamp, got %s", key, v.Kind())
}
