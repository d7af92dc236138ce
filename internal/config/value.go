package config

// Value retrieves a typed value from the configuration.
// If the key is missing or the type cannot be converted, it returns the default value.
func Value[T any](c *Config, key string, defaultValue T) T {
	val, ok := c.values[key]
	if !ok {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case int:
		if f, ok := number(val); ok {
			return any(int(f)).(T)
		}
	case float64:
		if f, ok := number(val); ok {
			return any(f).(T)
		}
	case string:
		if s, ok := val.(string); ok {
			return any(s).(T)
		}
	case bool:
		if b, ok := val.(bool); ok {
			return any(b).(T)
		}
	default:
		// fallback: if type matches exactly
		if v, ok := deepCopy(val).(T); ok {
			return v
		}
	}
	return defaultValue
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
