// Package region holds the fixed US state enumeration and the Whitelist of
// approved states that gates search, validation, and targeting.
package region

import "sort"

var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
	"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
	"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming",
}

var sortedCodes = func() []string {
	codes := make([]string, 0, len(stateNames))
	for c := range stateNames {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}()

// Codes returns the 50 valid state codes in alphabetical order.
func Codes() []string {
	out := make([]string, len(sortedCodes))
	copy(out, sortedCodes)
	return out
}

// Valid reports whether code is one of the 50 state codes. Case-sensitive.
func Valid(code string) bool {
	_, ok := stateNames[code]
	return ok
}

// Name returns the state name for code, or "" when unknown.
func Name(code string) string {
	return stateNames[code]
}
