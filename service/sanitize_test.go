package service

import (
	"reflect"
	"testing"
)

func TestSanitizeScalars(t *testing.T) {
	settings := newTestSettings()

	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{"nil becomes sentinel", nil, settings.Missing},
		{"empty string becomes sentinel", "", settings.Missing},
		{"blank string becomes sentinel", "   \t\n ", settings.Missing},
		{"string is trimmed", "  hello  ", "hello"},
		{"cyrillic preserved", "Нет автоматизации", "Нет автоматизации"},
		{"number passes through", 42.0, 42.0},
		{"bool passes through", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := settings.Sanitize(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSanitizeLists(t *testing.T) {
	settings := newTestSettings()

	got := settings.Sanitize([]any{" a ", nil, ""})
	expected := []any{"a", settings.Missing, settings.Missing}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}

	// Empty list becomes a single-sentinel list
	got = settings.Sanitize([]any{})
	expected = []any{settings.Missing}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestSanitizeNestedMapping(t *testing.T) {
	settings := newTestSettings()

	input := map[string]any{
		"name": "  ACME ",
		"contacts": map[string]any{
			"email": nil,
			"phones": []any{
				"   ",
				"+7 900",
			},
		},
	}

	got := settings.Sanitize(input)
	expected := map[string]any{
		"name": "ACME",
		"contacts": map[string]any{
			"email": settings.Missing,
			"phones": []any{
				settings.Missing,
				"+7 900",
			},
		},
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestSanitizeIntakePreservesKeys(t *testing.T) {
	settings := newTestSettings()

	intake := settings.SanitizeIntake(map[string]any{
		"project_name": "EVIA Pilot",
		"goals":        "",
	})

	if intake["project_name"] != "EVIA Pilot" {
		t.Errorf("Expected project name preserved, got %v", intake["project_name"])
	}
	if intake["goals"] != settings.Missing {
		t.Errorf("Expected sentinel for blank goals, got %v", intake["goals"])
	}
}
