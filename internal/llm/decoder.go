package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"payslipx/internal/domain"
)

// payslipSchema is the wire format exchanged with the LLM.
const payslipSchema = `{
  "type": "object",
  "required": ["earnings", "deductions"],
  "properties": {
    "earnings":        {"type": "object", "additionalProperties": {"type": "number"}},
    "deductions":      {"type": "object", "additionalProperties": {"type": "number"}},
    "grossPay":        {"type": ["number", "null"]},
    "totalDeductions": {"type": ["number", "null"]},
    "netRemittance":   {"type": ["number", "null"]},
    "month":           {"type": ["string", "null"]},
    "year":            {"type": ["integer", "null"]}
  }
}`

// Decoder turns raw LLM content into a ParsedPayslip.
type Decoder struct {
	schema *jsonschema.Schema
}

// NewDecoder compiles the wire schema.
func NewDecoder() (*Decoder, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("payslip.json", strings.NewReader(payslipSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("payslip.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Decoder{schema: schema}, nil
}

// Decode extracts the JSON object from content and decodes it.
// Every failure wraps domain.ErrInvalidResponse.
func (d *Decoder) Decode(content string) (*domain.ParsedPayslip, error) {
	obj, err := ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal([]byte(obj), &v); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)", domain.ErrInvalidResponse, err, truncate(obj, 200))
	}
	if err := d.schema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: json does not match schema: %v", domain.ErrInvalidResponse, err)
	}

	var out domain.ParsedPayslip
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
	}
	if out.Earnings == nil {
		out.Earnings = map[string]float64{}
	}
	if out.Deductions == nil {
		out.Deductions = map[string]float64{}
	}
	out.Month = strings.ToUpper(strings.TrimSpace(out.Month))
	return &out, nil
}

// ExtractJSONObject strips code fences and surrounding prose, returning the
// substring between the first '{' and the last '}'.
func ExtractJSONObject(content string) (string, error) {
	s := stripFences(strings.TrimSpace(content))
	if s == "" {
		return "", fmt.Errorf("%w: empty content", domain.ErrInvalidResponse)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: no JSON object found", domain.ErrInvalidResponse)
	}
	obj := s[start : end+1]
	if !balanced(obj) {
		return "", fmt.Errorf("%w: unbalanced braces", domain.ErrInvalidResponse)
	}
	return obj, nil
}

func stripFences(s string) string {
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// balanced checks brace nesting outside string literals.
func balanced(s string) bool {
	depth := 0
	inString := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == '{':
			depth++
		case r == '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0 && !inString
}
