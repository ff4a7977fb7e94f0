package response

import "csrhub/pkg/apperror"

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Kind       string      `json:"kind,omitempty"` // error discriminator, see apperror.Kind
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// InternalErrorMessage replaces the text of INTERNAL errors in responses
const InternalErrorMessage = "internal server error"

// FromError builds an error response and its HTTP status from a service error.
// The cause of an INTERNAL error is never sent to the client.
func FromError(err error) (int, Response) {
	kind := apperror.KindOf(err)
	statusCode := apperror.HTTPStatus(kind)
	msg := err.Error()
	if kind == apperror.KindInternal {
		msg = InternalErrorMessage
	}
	return statusCode, Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      msg,
		Kind:       string(kind),
	}
}
