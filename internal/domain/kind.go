// Package domain defines the persistence model for drops: short-lived notes,
// links, code snippets, and file pointers addressed by a short id. All four
// content kinds share one Drop type; a Kind selects which content fields are
// populated and which storage namespace the document lives in.
package domain

import "strings"

// Kind identifies the content type of a drop.
type Kind string

const (
	KindNote Kind = "note"
	KindLink Kind = "link"
	KindCode Kind = "code"
	KindFile Kind = "file"
)

// Descriptor describes how a Kind is stored and labelled.
//
// Fields:
//   - Collection: storage namespace (table or bucket) for the kind.
//   - Label: human-readable name used in validation messages.
//   - ReplyUsesContent: replies carry free text in Content instead of the
//     kind's primary field (only links do this).
type Descriptor struct {
	Kind             Kind
	Collection       string
	Label            string
	ReplyUsesContent bool
}

// kinds is the per-kind descriptor table, in stable iteration order.
var kinds = []Descriptor{
	{Kind: KindNote, Collection: "notes", Label: "Note"},
	{Kind: KindLink, Collection: "links", Label: "Link", ReplyUsesContent: true},
	{Kind: KindCode, Collection: "codes", Label: "Code"},
	{Kind: KindFile, Collection: "files", Label: "File"},
}

// Kinds returns every supported kind in a stable order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for _, d := range kinds {
		out = append(out, d.Kind)
	}
	return out
}

// ParseKind maps a case-insensitive name to a Kind.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range kinds {
		if string(d.Kind) == s {
			return d.Kind, true
		}
	}
	return "", false
}

// Describe returns the descriptor for k. The second value is false for an
// unknown kind.
func Describe(k Kind) (Descriptor, bool) {
	for _, d := range kinds {
		if d.Kind == k {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Collection returns the storage namespace for k, or "" when k is unknown.
func (k Kind) Collection() string {
	d, _ := Describe(k)
	return d.Collection
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	_, ok := Describe(k)
	return ok
}
