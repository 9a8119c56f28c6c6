package parsers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/Chative-commerce/server/internal/agent/model"
)

var ErrNoJSON = errors.New("no json object in model output")

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the outermost {...} span of s.
func ExtractJSONObject(s string) (string, error) {
	s = stripFences(s)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}

// DecodeJSON extracts the first JSON object from model output into v.
func DecodeJSON(content string, v any) error {
	raw, err := ExtractJSONObject(content)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

// FormulatorOutput is the structured reply of the response formulator.
type FormulatorOutput struct {
	ResponseText string `json:"response_text"`
	HumanHandoff bool   `json:"human_handoff"`
	SendMenu     bool   `json:"send_menu"`
}

// ParseFormulatorOutput decodes the formulator JSON. When the output is not
// JSON, non-empty text is returned as the reply and ok is false.
func ParseFormulatorOutput(content string) (out FormulatorOutput, ok bool) {
	if err := DecodeJSON(content, &out); err == nil && strings.TrimSpace(out.ResponseText) != "" {
		out.ResponseText = strings.TrimSpace(out.ResponseText)
		return out, true
	}
	return FormulatorOutput{ResponseText: strings.TrimSpace(stripFences(content))}, false
}

// OrderExtraction is the output of the order-taking extractor.
type OrderExtraction struct {
	Items        []model.OrderItem `json:"items"`
	Address      string            `json:"address,omitempty"`
	IsFinalOrder bool              `json:"is_final_order"`
}

// ParseOrderExtraction decodes the extractor JSON.
func ParseOrderExtraction(content string) (*OrderExtraction, error) {
	var out OrderExtraction
	if err := DecodeJSON(content, &out); err != nil {
		return nil, err
	}
	items := out.Items[:0]
	for _, it := range out.Items {
		it.ProductName = strings.TrimSpace(it.ProductName)
		if it.ProductName == "" {
			continue
		}
		if it.Quantity <= 0 {
			it.Quantity = 1
		}
		items = append(items, it)
	}
	out.Items = items
	out.Address = strings.TrimSpace(out.Address)
	return &out, nil
}
