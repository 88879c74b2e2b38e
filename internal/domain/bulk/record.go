package bulk

import "strings"

// Record is one parsed CSV data row, keyed by the lower-cased header names.
// LineNumber is the 1-based position in the original file, counting the
// header row, and is used only for error messages.
type Record struct {
	Fields     map[string]string
	LineNumber int
}

func (r Record) Get(name string) string {
	return strings.TrimSpace(r.Fields[name])
}

func (r Record) Username() string { return r.Get("username") }

func (r Record) Email() string { return r.Get("email") }

// IdentityKey resolves the attribute used to identify this record in the
// directory. Username wins over email when both are present.
func (r Record) IdentityKey() (attribute, value string, ok bool) {
	if v := r.Username(); v != "" {
		return "username", v, true
	}
	if v := r.Email(); v != "" {
		return "email", v, true
	}
	return "", "", false
}

// Label is the best human-readable name for the record in progress events.
func (r Record) Label() string {
	if _, v, ok := r.IdentityKey(); ok {
		return v
	}
	return "(no identity)"
}
