package directory

import "github.com/surgeonmatch/gateway/internal/util"

// newFieldError builds a single-field validation error.
func newFieldError(field, message string) *util.ValidationError {
	verr := util.NewValidationError("invalid request")
	verr.AddField(field, message)
	return verr
}
