package conformance

import "strings"

// ExceptionKey identifies one documented-missing entry: the reference path,
// the upper-cased method, the comparison location and the bare field name.
type ExceptionKey struct {
	Path     string
	Method   string
	Location string
	Field    string
}

// Policy is the governance side of a conformance run: which missing fields
// are documented as intentional, and how implementation extensions must be
// marked. Mismatch findings stay informational unless the strict flags
// promote them.
type Policy struct {
	// Exceptions maps documented-missing keys to the reason they are
	// tolerated. Lookup only; reasons are kept for reviewers.
	Exceptions map[ExceptionKey]string

	// ExtensionMarker must appear verbatim in the description of every
	// extension field, parameter, or endpoint. Empty disables the
	// convention.
	ExtensionMarker string

	StrictTypes    bool
	StrictRequired bool
}

// Documented reports whether a missing field is excused by the exceptions
// table.
func (p *Policy) Documented(key ExceptionKey) bool {
	_, ok := p.Exceptions[key]
	return ok
}

// Marked reports whether a description carries the extension marker.
func (p *Policy) Marked(description string) bool {
	return strings.Contains(description, p.ExtensionMarker)
}
