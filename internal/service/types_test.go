package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRequest(t *testing.T, body string) EmbedRequest {
	t.Helper()
	var req EmbedRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

func TestTextInput_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []string
		wantMsg string
	}{
		{name: "single string", body: `{"text": "foo"}`, want: []string{"foo"}},
		{name: "list", body: `{"text": ["a", "b"]}`, want: []string{"a", "b"}},
		{name: "list with empty element", body: `{"text": ["a", ""]}`, want: []string{"a", ""}},
		{name: "unicode", body: `{"text": "café 🍞"}`, want: []string{"café 🍞"}},
		{name: "number element", body: `{"text": ["a", 5]}`, wantMsg: "text[1] must be a string, got number"},
		{name: "null element", body: `{"text": [null]}`, wantMsg: "text[0] must be a string, got null"},
		{name: "nested list", body: `{"text": [["a"]]}`, wantMsg: "text[0] must be a string, got array"},
		{name: "number", body: `{"text": 5}`, wantMsg: msgInvalidType},
		{name: "object", body: `{"text": {"a": "b"}}`, wantMsg: msgInvalidType},
		{name: "boolean", body: `{"text": true}`, wantMsg: msgInvalidType},
		{name: "null", body: `{"text": null}`, wantMsg: msgInvalidType},
		{name: "missing", body: `{}`, wantMsg: msgInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := decodeRequest(t, tt.body)
			got, err := req.Text.Normalize()
			if tt.wantMsg != "" {
				require.Error(t, err)
				assert.Equal(t, KindInvalidInput, KindOf(err))
				assert.Equal(t, tt.wantMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextInput_IsEmpty(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{body: `{"text": ""}`, want: true},
		{body: `{"text": []}`, want: true},
		{body: `{"text": [ ]}`, want: true},
		{body: `{"text": " "}`, want: false},
		{body: `{"text": [""]}`, want: false},
		{body: `{"text": 0}`, want: false},
		{body: `{}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeRequest(t, tt.body).Text.IsEmpty())
		})
	}
}

func TestTextInput_Constructors(t *testing.T) {
	texts, err := Text("foo").Normalize()
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, texts)

	texts, err = Texts("a", "b").Normalize()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, texts)

	assert.True(t, Texts().IsEmpty())
	assert.True(t, Text("").IsEmpty())
	assert.False(t, TextInput{}.IsSet())
}

func TestEmbedRequest_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(EmbedRequest{Text: Texts("a", "b"), IsQuery: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text": ["a", "b"], "is_query": true}`, string(data))

	data, err = json.Marshal(EmbedRequest{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text": null, "is_query": false}`, string(data))
}

func TestEmbedRequest_IsQueryDefaultsFalse(t *testing.T) {
	assert.False(t, decodeRequest(t, `{"text": "foo"}`).IsQuery)
}

func TestHealthStatus_JSON(t *testing.T) {
	data, err := json.Marshal(HealthStatus{Status: StatusLoadingModel, Device: DeviceUnknown})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "loading_model", "model_loaded": false, "device": "unknown"}`, string(data))
}
