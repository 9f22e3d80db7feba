package facts

import "time"

// Facts is the caller-supplied flat map of case inputs: strings, numbers,
// booleans, arrays and nulls keyed by canonical identifiers. The engine
// never mutates it.
type Facts map[string]any

// DateLayout is the canonical date format for date-valued facts.
const DateLayout = "2006-01-02"

// Bool returns the fact as a boolean. Missing or non-boolean facts are
// false.
func (f Facts) Bool(key string) bool {
	v, ok := f[key].(bool)
	return ok && v
}

// String returns the fact as a string, with ok reporting presence.
func (f Facts) String(key string) (string, bool) {
	v, ok := f[key].(string)
	return v, ok
}

// Number returns the fact coerced to float64. JSON decoding delivers all
// numbers as float64, but facts assembled in Go code may carry int values.
func (f Facts) Number(key string) (float64, bool) {
	switch v := f[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Date returns the fact parsed as a canonical date.
func (f Facts) Date(key string) (time.Time, bool) {
	s, ok := f.String(key)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
