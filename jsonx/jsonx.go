// Package jsonx wraps sonic for the service's JSON work. Strict decoding
// rejects unknown object keys, which is how closed model-output shapes are
// enforced.
package jsonx

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

var (
	std    = sonic.ConfigStd
	strict = sonic.Config{
		DisallowUnknownFields: true,
		ValidateString:        true,
	}.Froze()
)

type RawMessage = json.RawMessage

func Marshal(v any) ([]byte, error) {
	return std.Marshal(v)
}

func MarshalToString(v any) (string, error) {
	return std.MarshalToString(v)
}

func Unmarshal(data []byte, v any) error {
	return std.Unmarshal(data, v)
}

// UnmarshalStrict decodes data into v and fails on any key v does not declare.
func UnmarshalStrict(data []byte, v any) error {
	return strict.Unmarshal(data, v)
}

// Object splits a JSON object into its raw members.
func Object(data []byte) (map[string]RawMessage, error) {
	var raw map[string]RawMessage
	if err := std.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return raw, nil
}

// IsNull reports whether a raw member is missing or the literal null.
func IsNull(raw RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// IsEmptyArray reports whether a raw member is a zero-length array.
func IsEmptyArray(raw RawMessage) bool {
	t := bytes.TrimSpace(raw)
	if len(t) < 2 || t[0] != '[' || t[len(t)-1] != ']' {
		return false
	}
	return len(bytes.TrimSpace(t[1:len(t)-1])) == 0
}

// ExtractObject returns the outermost {...} span of text, so that a model
// reply wrapped in prose or code fences can still be decoded.
func ExtractObject(text string) (string, bool) {
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			start = i
			break
		}
	}
	end := -1
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == '}' {
			end = i
			break
		}
	}
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
