package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ref references a category or store. The backend sends either a bare
// identifier string or the referenced object inline; both collapse to the
// identifier when sent back.
type Ref struct {
	id       string
	name     string
	resolved bool
}

// RefID returns an identifier-only reference.
func RefID(id string) Ref {
	return Ref{id: id}
}

// Resolved returns a reference carrying the referenced object's name.
func Resolved(id, name string) Ref {
	return Ref{id: id, name: name, resolved: true}
}

// ID returns the referenced identifier.
func (r Ref) ID() string { return r.id }

// IsSet reports whether the reference points anywhere.
func (r Ref) IsSet() bool { return r.id != "" }

// Resolved reports whether the reference was received inline.
func (r Ref) Resolved() bool { return r.resolved }

// Label returns the referenced name when known, the identifier otherwise.
func (r Ref) Label() string {
	if r.name != "" {
		return r.name
	}
	return r.id
}

// LabelIn is Label with a fallback lookup table for identifier-only
// references.
func (r Ref) LabelIn(names map[string]string) string {
	if r.name != "" {
		return r.name
	}
	if name, ok := names[r.id]; ok {
		return name
	}
	return r.id
}

// UnmarshalJSON accepts a string, an object with "_id", or null.
func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*r = Ref{}
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decoding reference: %w", err)
		}
		*r = RefID(s)
		return nil
	case b[0] == '{':
		var obj struct {
			ID   string `json:"_id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return fmt.Errorf("decoding reference: %w", err)
		}
		*r = Resolved(obj.ID, obj.Name)
		return nil
	default:
		return fmt.Errorf("decoding reference: unexpected %s", b)
	}
}

// MarshalJSON always writes the bare identifier.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.id)
}
