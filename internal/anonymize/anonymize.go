// Package anonymize scrubs identifying fields from patient exports.
// Rules use ${index} templates so repeated exports stay deterministic
// for the same ordering of records.
package anonymize

import (
	"fmt"
	"strings"
)

// Rule replaces one export field with a templated value.
// The template may contain ${index}, substituted with the record's
// 1-based position in the export.
type Rule struct {
	Field    string `json:"field"`
	Template string `json:"template"`
}

// DefaultRules covers the directly identifying patient fields
func DefaultRules() []Rule {
	return []Rule{
		{Field: "username", Template: "patient_${index}"},
		{Field: "full_name", Template: "Patient ${index}"},
		{Field: "email", Template: "patient_${index}@example.com"},
		{Field: "contact", Template: ""},
		{Field: "address", Template: ""},
	}
}

// Validate rejects rules that name no field
func Validate(rules []Rule) error {
	for i, rule := range rules {
		if strings.TrimSpace(rule.Field) == "" {
			return fmt.Errorf("rule %d: field is required", i)
		}
	}
	return nil
}

// renderTemplate substitutes ${index} in a template
func renderTemplate(template string, index int) string {
	return strings.ReplaceAll(template, "${index}", fmt.Sprintf("%d", index))
}

// Apply rewrites the matching fields of each record in place.
// Records are generic string maps so the export layer decides the shape.
func Apply(records []map[string]interface{}, rules []Rule) {
	for i, record := range records {
		for _, rule := range rules {
			if _, ok := record[rule.Field]; !ok {
				continue
			}
			record[rule.Field] = renderTemplate(rule.Template, i+1)
		}
	}
}
