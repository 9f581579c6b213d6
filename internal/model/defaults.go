package model

import "time"

// Clock supplies the creation time for default timestamps.
type Clock func() time.Time

// DefaultValue produces the server-assigned value for f, or false when f
// has no default.
func DefaultValue(f Field, now Clock, ids func() string) (any, bool) {
	switch f.Default.Kind {
	case DefaultID:
		return ids(), true
	case DefaultNow, DefaultUpdatedAt:
		return now(), true
	case DefaultStatic:
		return f.Default.Value, true
	}
	return nil, false
}

// Defaults fills absent defaulted fields of payload in place and returns it.
// Every timestamp filled by one call shares the same instant.
func Defaults(e *Entity, payload map[string]any, now Clock, ids func() string) map[string]any {
	if payload == nil {
		payload = make(map[string]any)
	}
	at := now()
	fixed := func() time.Time { return at }
	for _, f := range e.Fields {
		if _, present := payload[f.Name]; present {
			continue
		}
		if v, ok := DefaultValue(f, fixed, ids); ok {
			payload[f.Name] = v
		}
	}
	return payload
}
