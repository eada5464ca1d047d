package common

import (
	"fmt"
	"strconv"
	"strings"
)

// Inline plugin parameters arrive from YAML, which yields int and float64, or
// from JSON, which yields float64 only. The getters accept either and fall back
// to the default for missing or mistyped values.

// GetStringParam returns a string parameter
func GetStringParam(params map[string]any, key string, defaultValue string) string {
	if s, ok := params[key].(string); ok {
		return s
	}
	return defaultValue
}

// GetIntParam returns a whole number parameter, truncating floats
func GetIntParam(params map[string]any, key string, defaultValue int) int {
	if n, ok := number(params[key]); ok {
		return int(n)
	}
	return defaultValue
}

// GetFloatParam returns a numeric parameter
func GetFloatParam(params map[string]any, key string, defaultValue float64) float64 {
	if n, ok := number(params[key]); ok {
		return n
	}
	return defaultValue
}

// GetBoolParam also understands "true" and "false" written as strings
func GetBoolParam(params map[string]any, key string, defaultValue bool) bool {
	switch v := params[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return defaultValue
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// RequireParams reports every key missing from params
func RequireParams(params map[string]any, keys ...string) error {
	var missing []string
	for _, key := range keys {
		if _, ok := params[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required parameter: %s", strings.Join(missing, ", "))
	}
	return nil
}
