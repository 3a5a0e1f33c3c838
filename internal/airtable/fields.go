package airtable

import (
	"fmt"
	"strings"
	"time"
)

// The backing base is operator-managed and some columns exist under more
// than one spelling. Each reader takes an ordered candidate list and the
// first present, non-empty value wins.

// FieldString returns the first non-blank string value among candidates.
func FieldString(fields map[string]any, candidates ...string) string {
	for _, key := range candidates {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		if s != "" {
			return s
		}
	}
	return ""
}

// FieldBool returns the first interpretable boolean among candidates.
// Airtable checkboxes come back as bools but older rows hold 0/1 or
// "true"/"false" strings.
func FieldBool(fields map[string]any, candidates ...string) bool {
	for _, key := range candidates {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t
		case float64:
			if t == 1 {
				return true
			}
			if t == 0 {
				return false
			}
		case string:
			switch strings.TrimSpace(t) {
			case "1", "true":
				return true
			case "0", "false":
				return false
			}
		}
	}
	return false
}

// FieldTime returns the first parseable timestamp among candidates, or nil.
// Accepts RFC3339 strings (Airtable date fields) and epoch milliseconds.
func FieldTime(fields map[string]any, candidates ...string) *time.Time {
	for _, key := range candidates {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				continue
			}
			for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
				if parsed, err := time.Parse(layout, s); err == nil {
					return &parsed
				}
			}
		case float64:
			parsed := time.UnixMilli(int64(t)).UTC()
			return &parsed
		}
	}
	return nil
}
