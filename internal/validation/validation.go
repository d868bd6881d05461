package validation

import "strings"

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "unsupported_value"
}

func MaxLen(field, value string, limit int, v Violations) {
	if len(value) > limit {
		v[field] = "too_long"
	}
}
