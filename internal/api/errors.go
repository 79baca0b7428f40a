package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/maktabaapp/maktaba-server/internal/errors"
	"github.com/maktabaapp/maktaba-server/internal/service"
	"github.com/maktabaapp/maktaba-server/internal/store"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// BulkFailureDetails describes a failed bulk write in error responses.
type BulkFailureDetails struct {
	Stage         string `json:"stage" doc:"Step that failed: update or history"`
	RolledBack    int    `json:"rolled_back" doc:"Books put back to their previous value"`
	RollbackError string `json:"rollback_error,omitempty" doc:"Set when the rollback itself failed"`
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			if apiErr := mapError(err); apiErr != nil {
				return apiErr
			}
		}

		return &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
			Details: errorDetails(errs),
		}
	}
}

// mapError converts errors raised below the HTTP layer. It returns nil for
// errors it does not recognize.
func mapError(err error) *APIError {
	// A bulk failure may wrap store errors carrying their own status; the
	// failure itself always means the server could not complete the write.
	var bulkErr *service.BulkFailure
	if errors.As(err, &bulkErr) {
		details := BulkFailureDetails{Stage: bulkErr.Stage, RolledBack: bulkErr.RolledBack}
		if bulkErr.RollbackErr != nil {
			details.RollbackError = bulkErr.RollbackErr.Error()
		}
		return &APIError{
			status:  http.StatusInternalServerError,
			Code:    string(domainerrors.CodeInternal),
			Message: bulkErr.Error(),
			Details: details,
		}
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return &APIError{
			status:  domainErr.HTTPStatus(),
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return &APIError{
			status:  storeErr.HTTPCode(),
			Code:    statusToCode(storeErr.HTTPCode()),
			Message: storeErr.Message,
		}
	}

	return nil
}

// errorDetails keeps huma's own validation details (which field failed and
// why) so malformed bodies stay debuggable.
func errorDetails(errs []error) any {
	var details []*huma.ErrorDetail
	for _, err := range errs {
		var d *huma.ErrorDetail
		if errors.As(err, &d) {
			details = append(details, d)
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	default:
		return string(domainerrors.CodeInternal)
	}
}
