package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	branchdomain "github.com/smallbiznis/tillway/internal/branch/domain"
	customerdomain "github.com/smallbiznis/tillway/internal/customer/domain"
	productdomain "github.com/smallbiznis/tillway/internal/product/domain"
	saledomain "github.com/smallbiznis/tillway/internal/sale/domain"
	"github.com/smallbiznis/tillway/internal/sale/pricing"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrBranchRequired     = errors.New("branch_required")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
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

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var lineErr *pricing.LineError
	if errors.As(err, &lineErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   fmt.Sprintf("items[%d]", lineErr.Index),
					Code:    "invalid_line_item",
					Message: lineErr.Reason,
				},
			},
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrBranchRequired):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "branch required",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
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

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isSaleValidationError(err),
		isProductValidationError(err),
		isCustomerValidationError(err),
		isBranchValidationError(err):
		return true
	default:
		return false
	}
}

func isSaleValidationError(err error) bool {
	switch {
	case errors.Is(err, saledomain.ErrInvalidBranch),
		errors.Is(err, saledomain.ErrInvalidInvoiceType),
		errors.Is(err, saledomain.ErrInvalidPaymentMethod),
		errors.Is(err, saledomain.ErrInvalidCashier),
		errors.Is(err, saledomain.ErrInvalidCustomer),
		errors.Is(err, saledomain.ErrInvalidProduct),
		errors.Is(err, saledomain.ErrInvalidQuantity),
		errors.Is(err, saledomain.ErrNoLineItems),
		errors.Is(err, saledomain.ErrTooManyLineItems),
		errors.Is(err, saledomain.ErrInsufficientPayment),
		errors.Is(err, saledomain.ErrInvalidReason),
		errors.Is(err, saledomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isProductValidationError(err error) bool {
	switch {
	case errors.Is(err, productdomain.ErrInvalidBranch),
		errors.Is(err, productdomain.ErrInvalidSKU),
		errors.Is(err, productdomain.ErrInvalidName),
		errors.Is(err, productdomain.ErrInvalidPrice),
		errors.Is(err, productdomain.ErrInvalidQuantity),
		errors.Is(err, productdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isCustomerValidationError(err error) bool {
	switch {
	case errors.Is(err, customerdomain.ErrInvalidBranch),
		errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isBranchValidationError(err error) bool {
	switch {
	case errors.Is(err, branchdomain.ErrInvalidCode),
		errors.Is(err, branchdomain.ErrInvalidName),
		errors.Is(err, branchdomain.ErrInvalidTaxRate),
		errors.Is(err, branchdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, saledomain.ErrAlreadyVoided),
		errors.Is(err, productdomain.ErrDuplicateSKU),
		errors.Is(err, branchdomain.ErrDuplicateCode):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, saledomain.ErrAlreadyVoided):
		return "sale already voided"
	case errors.Is(err, productdomain.ErrDuplicateSKU):
		return "sku already exists"
	case errors.Is(err, branchdomain.ErrDuplicateCode):
		return "branch code already exists"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, saledomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, branchdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "no_line_items":
		return "at least one line item is required"
	case "too_many_line_items":
		return "too many line items"
	case "insufficient_payment":
		return "amount paid is less than the sale total"
	default:
		return "invalid value"
	}
}
