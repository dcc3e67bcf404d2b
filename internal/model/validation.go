package model

// Classification is the coverage disposition of a validated address.
type Classification string

const (
	ClassInCoverage        Classification = "in_coverage"
	ClassOutOfCoverage     Classification = "out_of_coverage"
	ClassUnableToDetermine Classification = "unable_to_determine"
	ClassInvalidRecord     Classification = "invalid_record"
)

// ValidationResult is the outcome of classifying one AddressRecord.
type ValidationResult struct {
	Record         AddressRecord  `json:"address"`
	Region         *string        `json:"state"`
	InCoverage     bool           `json:"in_coverage"`
	Classification Classification `json:"classification"`
	Error          string         `json:"error,omitempty"`
}
