package anonymize

import (
	"testing"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		records []map[string]interface{}
		rules   []Rule
		check   func(t *testing.T, records []map[string]interface{})
	}{
		{
			name:    "empty records",
			records: nil,
			rules:   DefaultRules(),
			check:   func(t *testing.T, records []map[string]interface{}) {},
		},
		{
			name: "single record single rule",
			records: []map[string]interface{}{
				{"email": "alice@clinic.test", "role": "user"},
			},
			rules: []Rule{{Field: "email", Template: "patient_${index}@example.com"}},
			check: func(t *testing.T, records []map[string]interface{}) {
				if got := records[0]["email"]; got != "patient_1@example.com" {
					t.Errorf("email = %v, want patient_1@example.com", got)
				}
				if got := records[0]["role"]; got != "user" {
					t.Errorf("untouched field role = %v, want user", got)
				}
			},
		},
		{
			name: "index is 1-based and per record",
			records: []map[string]interface{}{
				{"full_name": "Alice A"},
				{"full_name": "Bob B"},
			},
			rules: []Rule{{Field: "full_name", Template: "Patient ${index}"}},
			check: func(t *testing.T, records []map[string]interface{}) {
				if records[0]["full_name"] != "Patient 1" || records[1]["full_name"] != "Patient 2" {
					t.Errorf("got %v / %v, want Patient 1 / Patient 2", records[0]["full_name"], records[1]["full_name"])
				}
			},
		},
		{
			name: "missing field is skipped",
			records: []map[string]interface{}{
				{"email": "alice@clinic.test"},
			},
			rules: []Rule{{Field: "contact", Template: ""}},
			check: func(t *testing.T, records []map[string]interface{}) {
				if _, ok := records[0]["contact"]; ok {
					t.Error("rule for absent field must not create it")
				}
			},
		},
		{
			name: "empty template blanks the field",
			records: []map[string]interface{}{
				{"address": "1 Main St"},
			},
			rules: []Rule{{Field: "address", Template: ""}},
			check: func(t *testing.T, records []map[string]interface{}) {
				if got := records[0]["address"]; got != "" {
					t.Errorf("address = %v, want empty", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Apply(tt.records, tt.rules)
			tt.check(t, tt.records)
		})
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(DefaultRules()); err != nil {
		t.Fatalf("default rules must validate: %v", err)
	}

	if err := Validate([]Rule{{Field: "  ", Template: "x"}}); err == nil {
		t.Fatal("blank field must be rejected")
	}
}
