package validator

import (
	"regexp"
)

// CommandRX matches Django management command names, which are module names
// under the app's management/commands directory.
var (
	CommandRX = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// Validator contains a map of validation errors.
type Validator struct {
	FieldErrors map[string]string
}

func New() *Validator {
	return &Validator{
		FieldErrors: make(map[string]string),
	}
}

// Valid returns true if the FieldErrors map doesn't contain any entries.
func (v *Validator) Valid() bool {
	return len(v.FieldErrors) == 0
}

// AddError adds an error message to the map (so long as no entry already exists for the given key).
func (v *Validator) AddError(key, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}

	if _, exists := v.FieldErrors[key]; !exists {
		v.FieldErrors[key] = message
	}
}

// Check adds an error message to the map only if a validation check is not 'ok'.
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}
