package service

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Health status values
const (
	StatusOK           = "ok"
	StatusLoadingModel = "loading_model"
	DeviceUnknown      = "unknown"
)

// TextInput is the "text" field of an embed request: either a single
// string or a list of strings. It keeps the raw JSON so that validation
// happens in Normalize, after readiness is known.
type TextInput struct {
	raw json.RawMessage
}

// Text returns a single-string input.
func Text(s string) TextInput {
	b, _ := json.Marshal(s)
	return TextInput{raw: b}
}

// Texts returns a list input.
func Texts(texts ...string) TextInput {
	if texts == nil {
		texts = []string{}
	}
	b, _ := json.Marshal(texts)
	return TextInput{raw: b}
}

// UnmarshalJSON captures the raw value. It accepts any valid JSON.
func (t *TextInput) UnmarshalJSON(data []byte) error {
	t.raw = append(t.raw[:0], data...)
	return nil
}

// MarshalJSON writes the captured value back, or null when unset.
func (t TextInput) MarshalJSON() ([]byte, error) {
	if len(t.raw) == 0 {
		return []byte("null"), nil
	}
	return t.raw, nil
}

// IsSet reports whether the field was present in the request.
func (t TextInput) IsSet() bool {
	return len(t.raw) > 0
}

// IsEmpty reports whether the input is an empty string or an empty list.
func (t TextInput) IsEmpty() bool {
	switch jsonKind(t.raw) {
	case "string":
		var s string
		return json.Unmarshal(t.raw, &s) == nil && s == ""
	case "array":
		var items []json.RawMessage
		return json.Unmarshal(t.raw, &items) == nil && len(items) == 0
	}
	return false
}

// Normalize returns the input as a sequence of strings. A single string
// becomes a one-element sequence.
func (t TextInput) Normalize() ([]string, error) {
	switch jsonKind(t.raw) {
	case "string":
		var s string
		if err := json.Unmarshal(t.raw, &s); err != nil {
			return nil, invalidInput(msgInvalidType, err)
		}
		return []string{s}, nil
	case "array":
		var items []json.RawMessage
		if err := json.Unmarshal(t.raw, &items); err != nil {
			return nil, invalidInput(msgInvalidType, err)
		}
		texts := make([]string, len(items))
		for i, item := range items {
			if kind := jsonKind(item); kind != "string" {
				return nil, invalidInput(fmt.Sprintf("text[%d] must be a string, got %s", i, kind), nil)
			}
			if err := json.Unmarshal(item, &texts[i]); err != nil {
				return nil, invalidInput(fmt.Sprintf("text[%d] must be a string", i), err)
			}
		}
		return texts, nil
	default:
		return nil, invalidInput(msgInvalidType, nil)
	}
}

// jsonKind names the JSON type of raw by its first significant byte.
func jsonKind(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "missing"
	}
	switch trimmed[0] {
	case '"':
		return "string"
	case '[':
		return "array"
	case '{':
		return "object"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// EmbedRequest is the body of POST /embed
type EmbedRequest struct {
	Text    TextInput `json:"text"`
	IsQuery bool      `json:"is_query"`
}

// EmbedResponse is the successful result of an embed request
type EmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// HealthStatus is the body of GET /health
type HealthStatus struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
	Model       string `json:"model,omitempty"`
	Dimensions  int    `json:"dimensions,omitempty"`
	Error       string `json:"error,omitempty"`
}
