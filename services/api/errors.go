package api

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// APIError is the error body of every HTTP and gRPC failure
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

var (
	ErrInvalidStrategy = APIError{Code: "INVALID_STRATEGY", Message: "Unknown strategy"}
	ErrInvalidParams   = APIError{Code: "INVALID_PARAMS", Message: "Invalid parameters provided"}
	ErrDataNotFound    = APIError{Code: "DATA_NOT_FOUND", Message: "Required data not available"}
	ErrJobNotFound     = APIError{Code: "JOB_NOT_FOUND", Message: "No such backtest job"}
	ErrExecutionFailed = APIError{Code: "EXECUTION_FAILED", Message: "Backtest execution failed"}
	ErrTimeout         = APIError{Code: "TIMEOUT", Message: "Operation timed out"}
)

func (e *APIError) Error() string {
	if e.Details == "" {
		return e.Code + ": " + e.Message
	}
	return e.Code + ": " + e.Message + ": " + e.Details
}

func (e APIError) WithDetails(details string) *APIError {
	e.Details = details
	return &e
}

func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrInvalidStrategy.Code, ErrInvalidParams.Code:
		return http.StatusBadRequest
	case ErrDataNotFound.Code, ErrJobNotFound.Code:
		return http.StatusNotFound
	case ErrTimeout.Code:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (e *APIError) GRPCCode() codes.Code {
	switch e.Code {
	case ErrInvalidStrategy.Code, ErrInvalidParams.Code:
		return codes.InvalidArgument
	case ErrDataNotFound.Code, ErrJobNotFound.Code:
		return codes.NotFound
	case ErrTimeout.Code:
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}
