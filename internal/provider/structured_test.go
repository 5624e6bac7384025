package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verdict struct {
	Explanation string  `json:"explanation"`
	Confidence  float64 `json:"confidence"`
}

func TestParseObjectStrategies(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		strategy string
	}{
		{
			name:     "direct",
			text:     `{"explanation": "off by one", "confidence": 0.9}`,
			strategy: "direct",
		},
		{
			name:     "code fences",
			text:     "```json\n{\"explanation\": \"off by one\", \"confidence\": 0.9}\n```",
			strategy: "fences",
		},
		{
			name:     "mixed prose",
			text:     "Sure! Here is the answer:\n{\"explanation\": \"off by one\", \"confidence\": 0.9}\nHope that helps.",
			strategy: "extract",
		},
		{
			name:     "trailing comma",
			text:     "Result: {\"explanation\": \"off by one\", \"confidence\": 0.9,}",
			strategy: "extract",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseObject[verdict](tt.text)
			require.True(t, res.OK, "error: %s", res.Err)
			assert.Equal(t, "off by one", res.Data.Explanation)
			assert.Equal(t, tt.strategy, res.Strategy)
		})
	}
}

func TestParseObjectFailure(t *testing.T) {
	assert.False(t, ParseObject[verdict]("").OK)
	assert.False(t, ParseObject[verdict]("no json here at all").OK)
	assert.False(t, ParseObject[verdict]("{broken").OK)
}

func TestExtractBalancedObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "nested objects",
			text: `prefix {"a": {"b": 1}, "c": 2} suffix {"d": 3}`,
			want: `{"a": {"b": 1}, "c": 2}`,
		},
		{
			name: "braces inside strings ignored",
			text: `{"msg": "use { and } carefully"}`,
			want: `{"msg": "use { and } carefully"}`,
		},
		{
			name: "escaped quotes",
			text: `{"msg": "she said \"hi\""}`,
			want: `{"msg": "she said \"hi\""}`,
		},
		{
			name: "unbalanced",
			text: `{"a": 1`,
			want: "",
		},
		{
			name: "no object",
			text: "plain text",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractBalancedObject(tt.text))
		})
	}
}

func TestRecoverObjectLocalSuccessMakesNoCall(t *testing.T) {
	mock := &MockClient{}
	data, strategy, err := RecoverObject[verdict](context.Background(), mock, "m", `{"explanation": "x", "confidence": 1}`)

	require.NoError(t, err)
	assert.Equal(t, "direct", strategy)
	assert.Equal(t, "x", data.Explanation)
	assert.Zero(t, mock.CallCount(), "local parse must not call the provider")
}

func TestRecoverObjectRepairCall(t *testing.T) {
	mock := &MockClient{Content: `{"explanation": "repaired", "confidence": 0.5}`}
	data, strategy, err := RecoverObject[verdict](context.Background(), mock, "m", "not json at all")

	require.NoError(t, err)
	assert.Equal(t, "repair", strategy)
	assert.Equal(t, "repaired", data.Explanation)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRecoverObjectSentinelOnTotalFailure(t *testing.T) {
	mock := &MockClient{Content: "still not json"}
	_, strategy, err := RecoverObject[verdict](context.Background(), mock, "m", "not json")

	require.NoError(t, err)
	assert.Equal(t, SentinelNoncompliant, strategy)
}

func TestRecoverObjectRepairCallError(t *testing.T) {
	mock := &MockClient{Errs: []error{&Error{Class: ClassServer, Op: "messages.new", Err: errors.New("boom")}}}
	_, strategy, err := RecoverObject[verdict](context.Background(), mock, "m", "not json")

	require.Error(t, err)
	assert.Equal(t, SentinelNoncompliant, strategy)
}
