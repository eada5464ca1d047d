package common

import (
	"strings"
	"testing"
)

func TestGetStringParam(t *testing.T) {
	params := map[string]any{
		"key1": "value1",
		"key2": 123,
	}

	if val := GetStringParam(params, "key1", "default"); val != "value1" {
		t.Errorf("Expected 'value1', got '%s'", val)
	}

	// Non-string parameter falls back to default
	if val := GetStringParam(params, "key2", "default"); val != "default" {
		t.Errorf("Expected 'default', got '%s'", val)
	}

	if val := GetStringParam(params, "key3", "default"); val != "default" {
		t.Errorf("Expected 'default', got '%s'", val)
	}
}

func TestGetIntParam(t *testing.T) {
	params := map[string]any{
		"key1": 123,
		"key2": int64(456),
		"key3": float64(789),
		"key4": "not-an-int",
	}

	if val := GetIntParam(params, "key1", 0); val != 123 {
		t.Errorf("Expected 123, got %d", val)
	}
	if val := GetIntParam(params, "key2", 0); val != 456 {
		t.Errorf("Expected 456, got %d", val)
	}
	if val := GetIntParam(params, "key3", 0); val != 789 {
		t.Errorf("Expected 789, got %d", val)
	}
	if val := GetIntParam(params, "key4", 999); val != 999 {
		t.Errorf("Expected 999, got %d", val)
	}
	if val := GetIntParam(params, "key5", 999); val != 999 {
		t.Errorf("Expected 999, got %d", val)
	}
}

func TestGetFloatParam(t *testing.T) {
	params := map[string]any{
		"f": 0.25,
		"i": 2,
		"s": "0.5",
	}

	if val := GetFloatParam(params, "f", 0); val != 0.25 {
		t.Errorf("Expected 0.25, got %v", val)
	}
	if val := GetFloatParam(params, "i", 0); val != 2 {
		t.Errorf("Expected 2, got %v", val)
	}
	if val := GetFloatParam(params, "s", 0.9); val != 0.9 {
		t.Errorf("Expected default 0.9, got %v", val)
	}
}

func TestGetBoolParam(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		fallback bool
		want     bool
	}{
		{"bool true", true, false, true},
		{"bool false", false, true, false},
		{"string true", "TRUE", false, true},
		{"string false", " false ", true, false},
		{"unknown string", "yes", false, false},
		{"number", 1, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := map[string]any{"flag": tt.value}
			if got := GetBoolParam(params, "flag", tt.fallback); got != tt.want {
				t.Errorf("GetBoolParam(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestRequireParams(t *testing.T) {
	params := map[string]any{
		"url":     "http://camera.local/snapshot.jpg",
		"timeout": 5,
	}

	tests := []struct {
		name    string
		keys    []string
		wantErr string
	}{
		{name: "all present", keys: []string{"url", "timeout"}},
		{name: "nothing required"},
		{name: "one missing", keys: []string{"url", "endpoint"}, wantErr: "endpoint"},
		{name: "every missing key reported", keys: []string{"endpoint", "url", "token"}, wantErr: "endpoint, token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireParams(params, tt.keys...)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}
