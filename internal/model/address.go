// Package model defines the address, validation, and geo-target types shared
// across the search, validation, and reconciliation packages.
package model

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

var postalCodeRe = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// AddressMapping is one row of the offline address index. Rows are loaded
// by the import process and never mutated at request time.
type AddressMapping struct {
	PostalCode string `json:"postal_code" yaml:"postal_code"`
	City       string `json:"city" yaml:"city"`
	County     string `json:"county" yaml:"county"`
	Region     string `json:"region" yaml:"region"`
	Country    string `json:"country" yaml:"country"`
	CriteriaID string `json:"criteria_id,omitempty" yaml:"criteria_id,omitempty"`
}

// HasCriteriaID reports whether the row carries an external criteria id.
func (m AddressMapping) HasCriteriaID() bool {
	return strings.TrimSpace(m.CriteriaID) != ""
}

// Key returns the (postal code, city, county, country) uniqueness tuple.
func (m AddressMapping) Key() string {
	return strings.Join([]string{
		m.PostalCode,
		strings.ToLower(m.City),
		strings.ToLower(m.County),
		strings.ToUpper(m.Country),
	}, "|")
}

// AddressRecord is the caller-supplied input to coverage validation.
type AddressRecord struct {
	PostalCode string `json:"zip_code,omitempty"`
	City       string `json:"city,omitempty"`
	County     string `json:"county,omitempty"`
}

// Complete reports whether at least one component is non-blank.
func (r AddressRecord) Complete() bool {
	return strings.TrimSpace(r.PostalCode) != "" ||
		strings.TrimSpace(r.City) != "" ||
		strings.TrimSpace(r.County) != ""
}

// WellFormed checks the record's encoding and, when present, the postal
// code shape (NNNNN or NNNNN-NNNN).
func (r AddressRecord) WellFormed() error {
	for _, v := range []string{r.PostalCode, r.City, r.County} {
		if !utf8.ValidString(v) {
			return eris.New("address record contains invalid UTF-8")
		}
	}
	zip := strings.TrimSpace(r.PostalCode)
	if zip != "" && !postalCodeRe.MatchString(zip) {
		return eris.Errorf("malformed postal code %q", zip)
	}
	return nil
}

// LocationCandidate is a display-ready search result.
type LocationCandidate struct {
	City       string `json:"city"`
	Region     string `json:"state"`
	PostalCode string `json:"zip_code"`
	County     string `json:"county"`
	Country    string `json:"country"`
	CriteriaID string `json:"criteria_id,omitempty"`
	Display    string `json:"display"`
}

// DedupKey is the (city, region, postal code) identity used for deduplication.
func (c LocationCandidate) DedupKey() string {
	return strings.ToLower(c.City) + "|" + c.Region + "|" + c.PostalCode
}

// CandidateFromMapping builds a candidate with its display string.
func CandidateFromMapping(m AddressMapping) LocationCandidate {
	display := fmt.Sprintf("%s, %s", m.City, m.Region)
	if m.PostalCode != "" {
		display += " " + m.PostalCode
	}
	return LocationCandidate{
		City:       m.City,
		Region:     m.Region,
		PostalCode: m.PostalCode,
		County:     m.County,
		Country:    m.Country,
		CriteriaID: m.CriteriaID,
		Display:    display,
	}
}
