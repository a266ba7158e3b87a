package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Decode parses JSON into plain Go values: map[string]any, []any, string,
// bool, nil, int64 for integral numbers and float64 otherwise.
//
// encoding/json alone would decode every number as float64, which breaks
// equality between a bag written from Go ints and the same bag read back.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return normalize(raw)
}

// DecodeObject is Decode for data that must be a JSON object.
func DecodeObject(data []byte) (map[string]any, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}
	return obj, nil
}

// Normalize converts values produced by encoding/json or yaml.v3 (float64,
// json.Number or int numbers) into the Decode representation.
func Normalize(v any) (any, error) {
	return normalize(v)
}

func normalize(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		return normalizeNumber(val)
	case float64:
		return integral(val), nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			n, err := normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			n, err := normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	default:
		return v, nil
	}
}

func normalizeNumber(n json.Number) (any, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("number out of range: %s", s)
	}
	return integral(f), nil
}

// maxExact is the largest magnitude at which every integer is representable
// as a float64.
const maxExact = 1 << 53

func integral(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) <= maxExact {
		return int64(f)
	}
	return f
}
