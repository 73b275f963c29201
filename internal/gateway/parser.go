package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"product-strategy-gateway/internal/ai"
	gwerrors "product-strategy-gateway/internal/errors"
)

// Parse failure reasons recorded in ParseDetail.Reason
const (
	ReasonEmptyPayload    = "empty_payload"
	ReasonInvalidJSON     = "invalid_json"
	ReasonMissingKeys     = "missing_keys"
	ReasonSchemaViolation = "schema_violation"
	ReasonDecodeFailed    = "decode_failed"
)

// Parse extracts the structured payload of reply, validates it against the task
// schema and decodes it into T. Any failure yields the task's ParseError and no value.
func Parse[T any](reply *ai.RawReply, schema Schema) (*T, error) {
	fail := func(reason string, missing ...string) error {
		return gwerrors.NewParseError(string(schema.Task), schema.ParseMessage, reason, missing...)
	}

	payload := SelectPayload(reply)
	if payload == "" {
		return nil, fail(ReasonEmptyPayload)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil || doc == nil {
		return nil, fail(ReasonInvalidJSON)
	}

	if missing := missingKeys(doc, schema.Required()); len(missing) > 0 {
		return nil, fail(ReasonMissingKeys, missing...)
	}

	// Nested enums, ranges and required keys; out-of-range values are rejected, not clamped
	if err := schema.Definition.VisitJSON(doc); err != nil {
		return nil, fail(fmt.Sprintf("%s: %s", ReasonSchemaViolation, err.Error()))
	}

	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &out,
	})
	if err != nil {
		return nil, fail(ReasonDecodeFailed)
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fail(fmt.Sprintf("%s: %s", ReasonDecodeFailed, err.Error()))
	}

	return &out, nil
}

// SelectPayload returns the function-call arguments when present, else the message
// content with a surrounding markdown code fence removed.
func SelectPayload(reply *ai.RawReply) string {
	if reply == nil {
		return ""
	}
	if reply.FunctionCall != nil && strings.TrimSpace(reply.FunctionCall.Arguments) != "" {
		return strings.TrimSpace(reply.FunctionCall.Arguments)
	}
	return stripCodeFence(reply.Content)
}

func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// Drop the info string, e.g. ```json
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		if info := strings.TrimSpace(s[:nl]); !strings.ContainsAny(info, "{[") {
			s = s[nl+1:]
		}
	}
	return strings.TrimSpace(s)
}

func missingKeys(doc map[string]interface{}, required []string) []string {
	var missing []string
	for _, key := range required {
		if v, ok := doc[key]; !ok || v == nil {
			missing = append(missing, key)
		}
	}
	return missing
}
