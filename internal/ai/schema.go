package ai

import (
	"encoding/json"
	"fmt"
)

// AnalysisOutput is the validated structured output of one analysis run
type AnalysisOutput struct {
	CaseSummary        string                 `json:"case_summary"`
	ExtractedFacts     map[string]interface{} `json:"extracted_facts"`
	RiskFlags          []string               `json:"risk_flags"`
	SuggestedSubject   string                 `json:"suggested_subject"`
	SuggestedReplyText string                 `json:"suggested_reply_text"`
	SuggestedReplyHTML *string                `json:"suggested_reply_html"`
	Questions          []string               `json:"questions"`
}

// ParseAnalysisOutput parses and strictly validates the raw model response.
// Every field must be present with the expected type; fact values are
// limited to string, number, boolean or null. Any violation returns an error
// so the caller can record a failed action instead of persisting bad data.
func ParseAnalysisOutput(raw string) (*AnalysisOutput, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("AI response is not a JSON object: %w", err)
	}

	out := &AnalysisOutput{}

	var err error
	if out.CaseSummary, err = requireString(fields, "case_summary"); err != nil {
		return nil, err
	}
	if out.SuggestedSubject, err = requireString(fields, "suggested_subject"); err != nil {
		return nil, err
	}
	if out.SuggestedReplyText, err = requireString(fields, "suggested_reply_text"); err != nil {
		return nil, err
	}
	if out.RiskFlags, err = requireStringSlice(fields, "risk_flags"); err != nil {
		return nil, err
	}
	if out.Questions, err = requireStringSlice(fields, "questions"); err != nil {
		return nil, err
	}
	if out.ExtractedFacts, err = requireFactMap(fields, "extracted_facts"); err != nil {
		return nil, err
	}

	htmlRaw, ok := fields["suggested_reply_html"]
	if !ok {
		return nil, missingField("suggested_reply_html")
	}
	if string(htmlRaw) != "null" {
		var html string
		if err := json.Unmarshal(htmlRaw, &html); err != nil {
			return nil, typeError("suggested_reply_html", "string or null")
		}
		out.SuggestedReplyHTML = &html
	}

	return out, nil
}

func requireString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", missingField(key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", typeError(key, "string")
	}
	return s, nil
}

func requireStringSlice(fields map[string]json.RawMessage, key string) ([]string, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, missingField(key)
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, typeError(key, "array of strings")
	}
	if values == nil {
		return nil, typeError(key, "array of strings")
	}
	return values, nil
}

func requireFactMap(fields map[string]json.RawMessage, key string) (map[string]interface{}, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, missingField(key)
	}
	var facts map[string]interface{}
	if err := json.Unmarshal(raw, &facts); err != nil {
		return nil, typeError(key, "object")
	}
	if facts == nil {
		return nil, typeError(key, "object")
	}

	for factKey, value := range facts {
		switch value.(type) {
		case string, float64, bool, nil:
		default:
			return nil, fmt.Errorf("invalid AI output: fact %q must be a string, number, boolean or null", factKey)
		}
	}
	return facts, nil
}

func missingField(key string) error {
	return fmt.Errorf("invalid AI output: missing field %q", key)
}

func typeError(key, expected string) error {
	return fmt.Errorf("invalid AI output: field %q must be %s", key, expected)
}
