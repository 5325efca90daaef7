package domain

// ValidationResult accumulates business-rule violations for one request.
// Errors make the result invalid; warnings never do. The zero value is a
// valid, empty result.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// AddError records a business-rule violation
func (r *ValidationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddWarning records an advisory finding that does not affect validity
func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Valid reports whether no errors have been recorded
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Merge appends another result's errors and warnings onto this one
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}
