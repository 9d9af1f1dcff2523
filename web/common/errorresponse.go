package common

type ErrorResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		Message: message,
	}
}

// NewValidationErrorResponse describes a rejected request body or query, field by field
// when the validator produced field errors.
func NewValidationErrorResponse(err error) *ErrorResponse {
	return &ErrorResponse{
		Message: FormatBindingError(err),
		Errors:  FieldErrors(err),
	}
}

// NewFieldErrorResponse reports a single invalid field.
func NewFieldErrorResponse(field, message string) *ErrorResponse {
	return &ErrorResponse{
		Message: message,
		Errors:  map[string][]string{field: {message}},
	}
}
