package masking

import "strings"

const mask = "****"

// MaskSecret hides all but the last four characters of value. A provider
// prefix such as "whsec_" stays readable.
func MaskSecret(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	var prefix string
	if i := strings.LastIndexByte(value, '_'); i >= 0 && i < len(value)-1 {
		prefix, value = value[:i+1], value[i+1:]
	}
	if len(value) <= 4 {
		return prefix + mask
	}
	return prefix + mask + value[len(value)-4:]
}

// MaskSensitive returns a copy of input with every string under a secret
// looking key masked, at any depth.
func MaskSensitive(input map[string]any) map[string]any {
	return walk(input, false)
}

func walk(input map[string]any, masked bool) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = maskAny(value, masked || isSensitiveKey(key))
	}
	return out
}

func maskAny(value any, masked bool) any {
	switch v := value.(type) {
	case string:
		if masked {
			return MaskSecret(v)
		}
		return v
	case map[string]any:
		return walk(v, masked)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = maskAny(item, masked)
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	switch key {
	case "authorization", "password", "secret", "signature", "token":
		return true
	}
	return strings.HasSuffix(key, "_secret") || strings.HasSuffix(key, "_token")
}
