package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/amishk599/jobdigest/internal/model"
)

// CleanJSON strips markdown code fences and any conversational text around
// the first JSON object or array in text. Models do this even when told not to.
func CleanJSON(text string) string {
	return extractJSON(text, "{[")
}

// extractJSON strips fences and returns the first span starting at one of
// openers that parses as JSON. When none parses, the span from the first
// opener is returned so the caller reports a useful parse error.
func extractJSON(text, openers string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip a language identifier on the fence line.
		if idx := strings.Index(text, "\n"); idx >= 0 {
			first := strings.TrimSpace(text[:idx])
			if len(first) < 20 && !strings.ContainsAny(first, " {[") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	fallback := ""
	for offset := 0; offset < len(text); {
		i := strings.IndexAny(text[offset:], openers)
		if i < 0 {
			break
		}
		start := offset + i
		span := jsonSpan(text, start)
		if json.Valid([]byte(span)) {
			return span
		}
		if fallback == "" {
			fallback = span
		}
		offset = start + 1
	}
	if fallback != "" {
		return fallback
	}
	return text
}

func jsonSpan(text string, start int) string {
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end < start {
		return text[start:]
	}
	return text[start : end+1]
}

// DecodeJSON cleans raw, validates it against schema (when non-nil) and
// unmarshals it into v. All failures are returned as *model.ParseError.
func DecodeJSON(raw string, schema *Schema, v any) error {
	openers := "{["
	if schema != nil && schema.Definition["type"] == "object" {
		openers = "{"
	}
	cleaned := extractJSON(raw, openers)
	if cleaned == "" {
		return &model.ParseError{Err: errors.New("empty response")}
	}

	if schema != nil {
		result, err := gojsonschema.Validate(
			gojsonschema.NewGoLoader(schema.Definition),
			gojsonschema.NewStringLoader(cleaned),
		)
		if err != nil {
			return &model.ParseError{Err: fmt.Errorf("validate %s: %w", schema.Name, err)}
		}
		if !result.Valid() {
			msgs := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				msgs = append(msgs, desc.String())
			}
			return &model.ParseError{Err: fmt.Errorf("%s: %s", schema.Name, strings.Join(msgs, "; "))}
		}
	}

	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return &model.ParseError{Err: fmt.Errorf("unmarshal: %w", err)}
	}
	return nil
}
