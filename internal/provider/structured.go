package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Structured-output recovery: callers that need a JSON object back from a
// model cannot assume the model complied. ParseObject applies local
// recovery strategies; RecoverObject adds a one-shot repair call asking a
// model to reformat its own output. When everything fails the caller gets
// SentinelNoncompliant instead of a panic or a half-parsed value, so the
// job processor can mark the job failed cleanly.

// SentinelNoncompliant is returned as content when a structured response
// could not be recovered by any strategy.
const SentinelNoncompliant = "COULD_NOT_COMPLY"

// Pre-compiled patterns. Compiling per parse is measurably slower and
// these run once per job.
var (
	codeFenceRegex     = regexp.MustCompile("(?s)`{3}(?:json)?\\s*\\n?([\\s\\S]*?)\\n?`{3}")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseResult is the outcome of a structured parse attempt.
type ParseResult[T any] struct {
	OK       bool
	Data     T
	Strategy string // which strategy succeeded: direct, fences, extract
	Err      string
}

// ParseObject attempts to parse text as a JSON value of type T.
//
// Strategy sequence:
//  1. Direct parse of the trimmed text.
//  2. Strip markdown code fences and retry.
//  3. Extract the first balanced {...} substring and retry.
func ParseObject[T any](text string) ParseResult[T] {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ParseResult[T]{Err: "empty input"}
	}

	if data, err := tryParse[T](trimmed); err == nil {
		return ParseResult[T]{OK: true, Data: data, Strategy: "direct"}
	}

	unfenced := stripCodeFences(trimmed)
	if unfenced != trimmed {
		if data, err := tryParse[T](unfenced); err == nil {
			return ParseResult[T]{OK: true, Data: data, Strategy: "fences"}
		}
	}

	if extracted := ExtractBalancedObject(unfenced); extracted != "" {
		cleaned := trailingCommaRegex.ReplaceAllString(extracted, "$1")
		if data, err := tryParse[T](cleaned); err == nil {
			return ParseResult[T]{OK: true, Data: data, Strategy: "extract"}
		}
	}

	return ParseResult[T]{Err: "all parse strategies failed"}
}

// RecoverObject runs ParseObject and, when local strategies fail, makes a
// one-shot repair call asking model to reformat the text as JSON. On total
// failure it returns a zero T, SentinelNoncompliant, and no error: the
// inability to comply is data, not a fault in the caller.
func RecoverObject[T any](ctx context.Context, client Client, model, text string) (T, string, error) {
	if res := ParseObject[T](text); res.OK {
		return res.Data, res.Strategy, nil
	}

	slog.Debug("structured parse failed locally, attempting repair call",
		"model", model, "preview", truncate(text, 120))

	repairPrompt := fmt.Sprintf(
		"Reformat the following text as a single valid JSON object. "+
			"Output only the JSON, no commentary.\n\n%s", text)
	resp, err := client.Process(ctx, Request{
		Model:    model,
		Messages: []Message{{Role: RoleUser, Content: repairPrompt}},
	})
	if err != nil {
		var zero T
		return zero, SentinelNoncompliant, fmt.Errorf("repair call failed: %w", err)
	}

	if res := ParseObject[T](resp.Content); res.OK {
		return res.Data, "repair", nil
	}

	var zero T
	return zero, SentinelNoncompliant, nil
}

func tryParse[T any](text string) (T, error) {
	var out T
	err := json.Unmarshal([]byte(text), &out)
	return out, err
}

// stripCodeFences removes markdown code fences wrapping JSON output.
func stripCodeFences(text string) string {
	if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// ExtractBalancedObject returns the first balanced {...} substring of
// text, honoring JSON string literals and escapes, or "" when none exists.
func ExtractBalancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
