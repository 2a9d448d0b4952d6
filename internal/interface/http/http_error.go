package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/health-journal/internal/domain/journal"
	apperrors "github.com/yanqian/health-journal/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

var statusByCode = map[string]int{
	journal.CodeInvalidInput:          http.StatusBadRequest,
	journal.CodeEmptyUpdate:           http.StatusBadRequest,
	journal.CodeAmbiguousReference:    http.StatusConflict,
	journal.CodeVersionConflict:       http.StatusConflict,
	journal.CodeUnderspecifiedUpdate:  http.StatusUnprocessableEntity,
	journal.CodeUnparseableUpdate:     http.StatusUnprocessableEntity,
	journal.CodeNotFound:              http.StatusNotFound,
	journal.CodeInterpretationTimeout: http.StatusGatewayTimeout,
	journal.CodeLLMError:              http.StatusBadGateway,
	journal.CodeTranscriptionError:    http.StatusBadGateway,
}

// fromDomainError maps a coded application error onto a response. Client
// errors echo the full message; server errors only the summary.
func fromDomainError(err error) *HTTPError {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return NewHTTPError(http.StatusInternalServerError, "internal_error", "something went wrong", err)
	}
	status, ok := statusByCode[appErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	message := appErr.Message
	if status < http.StatusInternalServerError {
		message = appErr.Error()
	}
	return &HTTPError{Status: status, Code: appErr.Code, Message: message, Details: appErr.Details, Err: err}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return fromDomainError(err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
