package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/surgeonmatch/gateway/internal/util"
)

// Error codes returned in the error envelope.
const (
	CodeUnauthorized        = "unauthorized"
	CodeRateLimitExceeded   = "rate_limit_exceeded"
	CodeValidationError     = "validation_error"
	CodeNotFound            = "not_found"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeInternalError       = "internal_error"
)

// ErrorBody is the envelope wrapping every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable error code and context.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Window     int               `json:"window,omitempty"`
}

// abortWithError terminates the request with an error envelope.
func abortWithError(c *gin.Context, status int, detail ErrorDetail) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: detail})
}

// AbortUnauthorized writes a 401. Unknown and revoked keys are
// indistinguishable in the response.
func AbortUnauthorized(c *gin.Context) {
	abortWithError(c, http.StatusUnauthorized, ErrorDetail{
		Code:    CodeUnauthorized,
		Message: "missing or invalid API key",
	})
}

// AbortRateLimited writes a 429 with retry metadata and a Retry-After
// header.
func AbortRateLimited(c *gin.Context, limit, windowSeconds, retryAfterSeconds int) {
	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	abortWithError(c, http.StatusTooManyRequests, ErrorDetail{
		Code:       CodeRateLimitExceeded,
		Message:    "rate limit exceeded",
		RetryAfter: retryAfterSeconds,
		Limit:      limit,
		Window:     windowSeconds,
	})
}

// writeDomainError maps a domain error to its HTTP response.
func writeDomainError(c *gin.Context, err error) {
	var verr *util.ValidationError
	if errors.As(err, &verr) {
		abortWithError(c, http.StatusBadRequest, ErrorDetail{
			Code:    CodeValidationError,
			Message: verr.Message,
			Fields:  verr.Fields,
		})
		return
	}

	if errors.Is(err, util.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, ErrorDetail{
			Code:    CodeNotFound,
			Message: err.Error(),
		})
		return
	}

	if errors.Is(err, util.ErrUpstreamUnavail) || errors.Is(err, util.ErrTimeout) {
		abortWithError(c, http.StatusBadGateway, ErrorDetail{
			Code:    CodeUpstreamUnavailable,
			Message: "scheduling service unavailable",
		})
		return
	}

	abortWithError(c, http.StatusInternalServerError, ErrorDetail{
		Code:    CodeInternalError,
		Message: "an unexpected error occurred",
	})
}
