package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"spendora/internal/core"
)

var (
	str = jsonschema.Definition{Type: jsonschema.String}
	num = jsonschema.Definition{Type: jsonschema.Number}

	bankTransactionSchema = jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"date":        str,
			"description": str,
			"amount":      num,
		},
		Required: []string{"date", "description", "amount"},
	}
)

var invoiceSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"vendor":      str,
		"invoiceDate": str,
		"dueDate":     str,
		"totalAmount": num,
		"category":    str,
		"taxType": {
			Type:        jsonschema.String,
			Enum:        []string{string(core.GST), string(core.TDS)},
			Description: "omit when neither GST nor TDS is mentioned",
		},
		"taxAmount": num,
		"lineItems": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"description": str,
					"quantity":    num,
					"unitPrice":   num,
					"amount":      num,
				},
				Required: []string{"description", "amount"},
			},
		},
		"summary": str,
	},
	Required: []string{"vendor", "totalAmount", "category", "lineItems", "summary"},
}

var categorizeSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"category":      str,
		"justification": str,
	},
	Required: []string{"category", "justification"},
}

var reconciliationSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"matchedTransactions": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"bankTransaction": bankTransactionSchema,
					"ledgerItem":      bankTransactionSchema,
				},
				Required: []string{"bankTransaction", "ledgerItem"},
			},
		},
		"unmatchedTransactions": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"bankTransaction":   bankTransactionSchema,
					"suggestedCategory": str,
				},
				Required: []string{"bankTransaction"},
			},
		},
	},
	Required: []string{"matchedTransactions", "unmatchedTransactions"},
}

var reportSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"executiveSummary": str,
		"expenseBreakdown": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"category":    str,
					"totalAmount": num,
					"percentage":  num,
				},
				Required: []string{"category", "totalAmount", "percentage"},
			},
		},
		"keyInsights":     {Type: jsonschema.Array, Items: &str},
		"recommendations": {Type: jsonschema.Array, Items: &str},
	},
	Required: []string{"executiveSummary", "expenseBreakdown", "keyInsights", "recommendations"},
}

// decodeResponse parses model text as JSON, checks it against def and
// unmarshals it into out.
func decodeResponse(text string, def jsonschema.Definition, out any) error {
	text = stripCodeFence(strings.TrimSpace(text))
	if text == "" {
		return fmt.Errorf("empty response")
	}
	var generic any
	if err := json.Unmarshal([]byte(text), &generic); err != nil {
		return fmt.Errorf("not JSON: %w", err)
	}
	if err := conform(def, generic, "$"); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// stripCodeFence removes a surrounding ```json fence some models add even in JSON mode.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// conform reports the first place where v departs from def. Optional
// properties may be absent or null; required ones may be neither.
func conform(def jsonschema.Definition, v any, path string) error {
	switch def.Type {
	case jsonschema.Object:
		obj, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object", path)
		}
		for _, name := range def.Required {
			if val, present := obj[name]; !present || val == nil {
				return fmt.Errorf("%s.%s: required", path, name)
			}
		}
		for name, prop := range def.Properties {
			val, present := obj[name]
			if !present || val == nil {
				continue
			}
			if err := conform(prop, val, path+"."+name); err != nil {
				return err
			}
		}
	case jsonschema.Array:
		arr, ok := v.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array", path)
		}
		if def.Items != nil {
			for i, el := range arr {
				if err := conform(*def.Items, el, fmt.Sprintf("%s[%d]", path, i)); err != nil {
					return err
				}
			}
		}
	case jsonschema.String:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%s: expected string", path)
		}
		if len(def.Enum) > 0 && !slices.Contains(def.Enum, s) {
			return fmt.Errorf("%s: %q not in %v", path, s, def.Enum)
		}
	case jsonschema.Number:
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("%s: expected number", path)
		}
	case jsonschema.Integer:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("%s: expected integer", path)
		}
	case jsonschema.Boolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%s: expected boolean", path)
		}
	}
	return nil
}
