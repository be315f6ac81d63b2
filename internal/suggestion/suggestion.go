// Package suggestion defines the outcome record produced for each broken
// path: the proposed replacement, its category and a human-readable reason.
package suggestion

import (
	"encoding/json"
	"fmt"
)

// Type categorizes a suggestion
type Type string

const (
	TypePublish  Type = "PUBLISH"
	TypeLocale   Type = "LOCALE"
	TypeSimilar  Type = "SIMILAR"
	TypeNotFound Type = "NOT_FOUND"
)

// Types lists every suggestion type in report order
var Types = []Type{TypePublish, TypeLocale, TypeSimilar, TypeNotFound}

// Valid reports whether t is one of the known types
func (t Type) Valid() bool {
	switch t {
	case TypePublish, TypeLocale, TypeSimilar, TypeNotFound:
		return true
	}
	return false
}

// Suggestion is immutable once built. NOT_FOUND suggestions never carry a
// suggested path; every other type always does. An empty reason means none.
type Suggestion struct {
	requestedPath string
	suggestedPath string
	kind          Type
	reason        string
}

// New builds a suggestion after checking the type/suggested-path invariant
func New(requestedPath, suggestedPath string, kind Type, reason string) (Suggestion, error) {
	if !kind.Valid() {
		return Suggestion{}, fmt.Errorf("unknown suggestion type %q", kind)
	}
	if kind == TypeNotFound && suggestedPath != "" {
		return Suggestion{}, fmt.Errorf("%s suggestion for %s cannot carry a suggested path", kind, requestedPath)
	}
	if kind != TypeNotFound && suggestedPath == "" {
		return Suggestion{}, fmt.Errorf("%s suggestion for %s requires a suggested path", kind, requestedPath)
	}
	return Suggestion{
		requestedPath: requestedPath,
		suggestedPath: suggestedPath,
		kind:          kind,
		reason:        reason,
	}, nil
}

// Publish suggests that path exists and only needs publishing
func Publish(path, reason string) Suggestion {
	return Suggestion{requestedPath: path, suggestedPath: path, kind: TypePublish, reason: reason}
}

// Locale suggests the same content under another locale or none
func Locale(requestedPath, suggestedPath, reason string) Suggestion {
	return Suggestion{requestedPath: requestedPath, suggestedPath: suggestedPath, kind: TypeLocale, reason: reason}
}

// Similar suggests a lexically close existing path
func Similar(requestedPath, suggestedPath, reason string) Suggestion {
	return Suggestion{requestedPath: requestedPath, suggestedPath: suggestedPath, kind: TypeSimilar, reason: reason}
}

// NotFound records that no rule could resolve requestedPath
func NotFound(requestedPath string) Suggestion {
	return Suggestion{requestedPath: requestedPath, kind: TypeNotFound}
}

func (s Suggestion) RequestedPath() string { return s.requestedPath }
func (s Suggestion) SuggestedPath() string { return s.suggestedPath }
func (s Suggestion) Type() Type            { return s.kind }
func (s Suggestion) Reason() string        { return s.reason }

// WithReason returns a copy with the reason replaced. Type and suggested
// path never change after construction.
func (s Suggestion) WithReason(reason string) Suggestion {
	s.reason = reason
	return s
}

func (s Suggestion) String() string {
	if s.suggestedPath == "" {
		return fmt.Sprintf("%s %s", s.kind, s.requestedPath)
	}
	return fmt.Sprintf("%s %s -> %s", s.kind, s.requestedPath, s.suggestedPath)
}

// Record is the plain serializable projection of a Suggestion
type Record struct {
	RequestedPath string  `json:"requestedPath" yaml:"requestedPath"`
	SuggestedPath *string `json:"suggestedPath" yaml:"suggestedPath"`
	Type          Type    `json:"type" yaml:"type"`
	Reason        *string `json:"reason" yaml:"reason"`
}

// Record projects s into its serializable form, with nil for absent values
func (s Suggestion) Record() Record {
	return Record{
		RequestedPath: s.requestedPath,
		SuggestedPath: optional(s.suggestedPath),
		Type:          s.kind,
		Reason:        optional(s.reason),
	}
}

// MarshalJSON implements json.Marshaler
func (s Suggestion) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

// MarshalYAML implements yaml.Marshaler
func (s Suggestion) MarshalYAML() (interface{}, error) {
	return s.Record(), nil
}

// FromRecord rebuilds a Suggestion, enforcing the same invariant as New
func FromRecord(r Record) (Suggestion, error) {
	var suggested, reason string
	if r.SuggestedPath != nil {
		suggested = *r.SuggestedPath
	}
	if r.Reason != nil {
		reason = *r.Reason
	}
	return New(r.RequestedPath, suggested, r.Type, reason)
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Suggestion) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	parsed, err := FromRecord(r)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
