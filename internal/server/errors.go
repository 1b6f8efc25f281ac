package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	dutyjobdomain "github.com/navlun/landedcost/internal/dutyjob/domain"
	insurancedomain "github.com/navlun/landedcost/internal/insurance/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, dutyjobdomain.ErrDuplicateJobID),
		errors.Is(err, insurancedomain.ErrOverlappingRange):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, dutyjobdomain.ErrInvalidJobID),
		errors.Is(err, dutyjobdomain.ErrInvalidCountry),
		errors.Is(err, dutyjobdomain.ErrInvalidValue),
		errors.Is(err, dutyjobdomain.ErrInvalidProvider),
		errors.Is(err, dutyjobdomain.ErrEmptyPackage),
		errors.Is(err, insurancedomain.ErrInvalidBracket),
		errors.Is(err, insurancedomain.ErrInvalidCost):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, dutyjobdomain.ErrJobNotFound),
		errors.Is(err, insurancedomain.ErrRangeNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
