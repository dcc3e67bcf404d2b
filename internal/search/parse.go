// Package search implements whitelist-scoped location search over the
// address index: a staged typeahead lookup and a batch multi-term lookup.
package search

import (
	"regexp"
	"strings"
)

var (
	postalRe = regexp.MustCompile(`\b\d{5}\b`)
	countyRe = regexp.MustCompile(`(?i)\bcounty\b`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Term is one parsed comma-separated search fragment.
type Term struct {
	Raw        string
	PostalCode string
	County     string
	City       string
}

// Empty reports whether the term carries nothing to match on.
func (t Term) Empty() bool {
	return t.PostalCode == "" && t.County == "" && t.City == ""
}

// ParseTerm extracts at most one postal code and one county hint from s;
// whatever text remains is the city name. Short fragments such as "in"
// or "ga" are city prefixes like any other text.
func ParseTerm(s string) Term {
	t := Term{Raw: strings.TrimSpace(s)}
	rest := t.Raw

	if loc := postalRe.FindStringIndex(rest); loc != nil {
		t.PostalCode = rest[loc[0]:loc[1]]
		rest = rest[:loc[0]] + " " + rest[loc[1]:]
	}
	rest = collapse(rest)

	if countyRe.MatchString(rest) {
		t.County = collapse(countyRe.ReplaceAllString(rest, " "))
		return t
	}
	t.City = rest
	return t
}

// ParseQuery splits s on commas and parses each non-blank fragment.
func ParseQuery(s string) []Term {
	var terms []Term
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		terms = append(terms, ParseTerm(part))
	}
	return terms
}

// combined is the conjunction of several terms for the typeahead path.
type combined struct {
	PostalCode string
	County     string
	City       string
	// ExtraCities are further city fragments every result must also contain.
	ExtraCities []string
}

func combine(terms []Term) combined {
	var c combined
	for _, t := range terms {
		if c.PostalCode == "" {
			c.PostalCode = t.PostalCode
		}
		if c.County == "" {
			c.County = t.County
		}
		if t.City == "" {
			continue
		}
		if c.City == "" {
			c.City = t.City
		} else {
			c.ExtraCities = append(c.ExtraCities, t.City)
		}
	}
	return c
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
