package region

import (
	"sort"
	"strings"
)

// InvalidCodesError lists the codes rejected by Replace.
type InvalidCodesError struct {
	Codes []string
}

func (e *InvalidCodesError) Error() string {
	return "Invalid state codes: " + strings.Join(e.Codes, ", ")
}

// Whitelist is an immutable set of approved state codes. The zero value is
// the empty whitelist, meaning nothing is approved.
type Whitelist struct {
	codes map[string]struct{}
}

// Replace builds a Whitelist from raw codes. Input is trimmed, uppercased,
// and deduplicated; blank entries are ignored. If any code is outside the enumeration the call fails
// with *InvalidCodesError and no whitelist is produced.
func Replace(raw []string) (Whitelist, error) {
	codes := make(map[string]struct{}, len(raw))
	var invalid []string
	seenInvalid := make(map[string]bool)
	for _, r := range raw {
		c := strings.ToUpper(strings.TrimSpace(r))
		if c == "" {
			continue
		}
		if !Valid(c) {
			if !seenInvalid[c] {
				seenInvalid[c] = true
				invalid = append(invalid, c)
			}
			continue
		}
		codes[c] = struct{}{}
	}
	if len(invalid) > 0 {
		return Whitelist{}, &InvalidCodesError{Codes: invalid}
	}
	return Whitelist{codes: codes}, nil
}

// MustReplace is Replace for known-good literals. It panics on invalid input.
func MustReplace(raw ...string) Whitelist {
	w, err := Replace(raw)
	if err != nil {
		panic(err)
	}
	return w
}

// Clear returns the empty whitelist.
func Clear() Whitelist {
	return Whitelist{}
}

// Contains reports whether code is approved.
func (w Whitelist) Contains(code string) bool {
	_, ok := w.codes[code]
	return ok
}

// AnySelected reports whether at least one state is approved.
func (w Whitelist) AnySelected() bool {
	return len(w.codes) > 0
}

// Len returns the number of approved states.
func (w Whitelist) Len() int {
	return len(w.codes)
}

// Codes returns the approved codes sorted. Never nil.
func (w Whitelist) Codes() []string {
	out := make([]string, 0, len(w.codes))
	for c := range w.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
