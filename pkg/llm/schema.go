package llm

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SchemaError reports a plan response that failed strict validation. The
// caller may re-prompt once with the reason before giving up.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("plan failed schema validation: %s", e.Reason)
}

// ParsePlan extracts and validates a remediation plan from a raw model
// response. Free-text responses are never trusted downstream: every item must
// carry the required fields and a sandbox-relative path.
func ParsePlan(raw string) ([]FileActionItem, error) {
	payload := ExtractJSONBlock(raw)
	if payload == "" {
		return nil, &SchemaError{Reason: "response contains no JSON"}
	}

	var items []FileActionItem
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		// Also accept an object wrapper: {"plan": [...]}
		var wrapper struct {
			Plan []FileActionItem `json:"plan"`
		}
		if wrapErr := json.Unmarshal([]byte(payload), &wrapper); wrapErr != nil {
			return nil, &SchemaError{Reason: fmt.Sprintf("not a plan array or object: %v", err)}
		}
		items = wrapper.Plan
	}

	if err := ValidatePlan(items); err != nil {
		return nil, err
	}
	return items, nil
}

// ValidatePlan applies the strict FileActionItem schema to every item.
func ValidatePlan(items []FileActionItem) error {
	for i := range items {
		if err := validate.Struct(&items[i]); err != nil {
			return &SchemaError{Reason: fmt.Sprintf("item %d: %v", i, err)}
		}
		path := items[i].Path
		if filepath.IsAbs(path) {
			return &SchemaError{Reason: fmt.Sprintf("item %d: path must be relative to the target: %s", i, path)}
		}
		if strings.HasPrefix(filepath.Clean(path), "..") {
			return &SchemaError{Reason: fmt.Sprintf("item %d: path escapes the target: %s", i, path)}
		}
	}
	return nil
}

// ExtractJSONBlock returns the content of the first fenced JSON block in a
// model response, or the trimmed response itself when no fence is present.
func ExtractJSONBlock(raw string) string {
	return extractFenced(raw, "json")
}

// ExtractCodeBlock returns the content of the first fenced code block
// regardless of language tag, or the trimmed response when no fence exists.
// Used for fix responses that carry full file contents.
func ExtractCodeBlock(raw string) string {
	return extractFenced(raw, "")
}

func extractFenced(raw, lang string) string {
	trimmed := strings.TrimSpace(raw)
	start := strings.Index(trimmed, "```")
	if start == -1 {
		return trimmed
	}

	rest := trimmed[start+3:]
	newline := strings.Index(rest, "\n")
	if newline == -1 {
		return trimmed
	}
	tag := strings.TrimSpace(rest[:newline])
	if lang != "" && tag != lang && tag != "" {
		// Wrong language fence; look for the requested one further on
		if next := strings.Index(rest, "```"+lang); next != -1 {
			return extractFenced(rest[next:], lang)
		}
	}
	body := rest[newline+1:]
	end := strings.Index(body, "```")
	if end == -1 {
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(body[:end])
}
