package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FunctionKey is the command field naming the target feature.
const FunctionKey = "function"

// Command field errors.
var (
	ErrFieldMissing = errors.New("field missing")
	ErrNotNumber    = errors.New("not a number")
	ErrNotBool      = errors.New("not a boolean")
)

// Command is a structured request from the host: a "function" naming the
// feature plus feature-specific fields. JSON objects decode into it directly.
type Command map[string]any

// NewCommand creates a command for the given function with optional fields
// given as alternating key/value pairs.
func NewCommand(function string, kv ...any) Command {
	c := Command{FunctionKey: function}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		c[key] = kv[i+1]
	}
	return c
}

// Function returns the function name, or "" if it is missing.
func (c Command) Function() string {
	s, _ := c[FunctionKey].(string)
	return s
}

// Has reports whether key is present with a non-nil value.
func (c Command) Has(key string) bool {
	v, ok := c[key]
	return ok && v != nil
}

// Text returns the string value of key.
func (c Command) Text(key string) (string, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%s: %w", key, ErrFieldMissing)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// Int returns the integer value of key. Floating point values are truncated
// toward zero and numeric strings are parsed.
func (c Command) Int(key string) (int, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%s: %w", key, ErrFieldMissing)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float32:
		return floatToInt(key, float64(n))
	case float64:
		return floatToInt(key, n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, ErrNotNumber)
		}
		return floatToInt(key, f)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, ErrNotNumber)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%s: %w", key, ErrNotNumber)
	}
}

func floatToInt(key string, f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: %w", key, ErrNotNumber)
	}
	return int(math.Trunc(f)), nil
}

// Bool returns the boolean value of key. Accepts booleans, numbers (non-zero
// is true) and the strings true/false, on/off, yes/no, 1/0.
func (c Command) Bool(key string) (bool, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return false, fmt.Errorf("%s: %w", key, ErrFieldMissing)
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "on", "yes", "1":
			return true, nil
		case "false", "off", "no", "0":
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", key, ErrNotBool)
	}
	n, err := c.Int(key)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, ErrNotBool)
	}
	return n != 0, nil
}
