package server

import (
	"errors"
	"net/http"
	"strings"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	authdomain "github.com/aquivis/aquivis/internal/auth/domain"
	companydomain "github.com/aquivis/aquivis/internal/company/domain"
	invitationdomain "github.com/aquivis/aquivis/internal/invitation/domain"
	propertydomain "github.com/aquivis/aquivis/internal/property/domain"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	visitdomain "github.com/aquivis/aquivis/internal/visit/domain"
	"github.com/gin-gonic/gin"
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
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInternal        = errors.New("internal_error")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("too_many_requests")
)

const (
	errorTypeValidation   = "validation_error"
	errorTypeUnauthorized = "unauthorized"
	errorTypeForbidden    = "forbidden"
	errorTypeNotFound     = "not_found"
	errorTypeConflict     = "conflict"
	errorTypeRateLimited  = "rate_limited"
	errorTypeInternal     = "internal_error"
)

var (
	validationErrs = []error{
		ErrInvalidRequest,
		teamdomain.ErrInvalidRole,
		teamdomain.ErrInvalidMember,
		teamdomain.ErrInvalidName,
		teamdomain.ErrSelfRemoval,
		invitationdomain.ErrInvalidEmail,
		invitationdomain.ErrInvalidInvitationID,
		invitationdomain.ErrInvalidInvitation,
		invitationdomain.ErrExpired,
		companydomain.ErrInvalidName,
		companydomain.ErrInvalidTimezone,
		companydomain.ErrInvalidPhone,
		companydomain.ErrInvalidWebsite,
		companydomain.ErrInvalidTaxID,
		companydomain.ErrInvalidAddress,
		authdomain.ErrInvalidEmail,
		authdomain.ErrWeakPassword,
		auditdomain.ErrInvalidCategory,
		auditdomain.ErrInvalidLimit,
		auditdomain.ErrInvalidPageToken,
		propertydomain.ErrInvalidPropertyID,
		propertydomain.ErrInvalidName,
		propertydomain.ErrInvalidAddress,
		propertydomain.ErrInvalidTimezone,
		propertydomain.ErrInvalidUnitName,
		propertydomain.ErrInvalidUnitType,
		propertydomain.ErrInvalidWaterType,
		propertydomain.ErrInvalidVolume,
		visitdomain.ErrInvalidVisitID,
		visitdomain.ErrInvalidUnitID,
		visitdomain.ErrInvalidTechnicianID,
		visitdomain.ErrInvalidServiceDate,
		visitdomain.ErrInvalidStatus,
		visitdomain.ErrInvalidNotes,
		visitdomain.ErrEmptyWaterTest,
		visitdomain.ErrInvalidReading,
		visitdomain.ErrInvalidChemicalType,
		visitdomain.ErrInvalidQuantity,
		visitdomain.ErrInvalidMeasure,
		visitdomain.ErrInvalidCost,
		visitdomain.ErrInvalidTaskType,
	}

	unauthorizedErrs = []error{
		ErrUnauthorized,
		authdomain.ErrInvalidCredentials,
		authdomain.ErrInvalidSession,
		authdomain.ErrSessionExpired,
		authdomain.ErrSessionRevoked,
	}

	forbiddenErrs = []error{
		ErrForbidden,
		teamdomain.ErrForbidden,
		teamdomain.ErrCrossTenant,
		invitationdomain.ErrEmailMismatch,
	}

	notFoundErrs = []error{
		ErrNotFound,
		teamdomain.ErrNoCompany,
		teamdomain.ErrMemberNotFound,
		teamdomain.ErrProfileNotFound,
		invitationdomain.ErrInvitationNotFound,
		propertydomain.ErrPropertyNotFound,
		propertydomain.ErrUnitNotFound,
		visitdomain.ErrVisitNotFound,
		gorm.ErrRecordNotFound,
	}

	conflictErrs = []error{
		teamdomain.ErrSoleOwner,
		invitationdomain.ErrAlreadyInvited,
		invitationdomain.ErrInviteInProgress,
		invitationdomain.ErrEmailRegistered,
		invitationdomain.ErrAlreadyAccepted,
		invitationdomain.ErrAlreadyInCompany,
		companydomain.ErrAlreadyOnboarded,
		visitdomain.ErrVisitCancelled,
		authdomain.ErrUserExists,
	}

	rateLimitedErrs = []error{
		ErrTooManyRequests,
		invitationdomain.ErrRateLimited,
	}
)

// validationFields names the request field for codes that do not follow the
// invalid_<field> convention.
var validationFields = map[string]string{
	teamdomain.ErrSelfRemoval.Error():               "id",
	teamdomain.ErrInvalidMember.Error():             "id",
	invitationdomain.ErrInvalidInvitation.Error():   "token",
	invitationdomain.ErrExpired.Error():             "token",
	invitationdomain.ErrInvalidInvitationID.Error(): "id",
	companydomain.ErrInvalidName.Error():            "company_name",
	authdomain.ErrWeakPassword.Error():              "password",
	auditdomain.ErrInvalidPageToken.Error():         "page_token",
	propertydomain.ErrInvalidName.Error():           "name",
	propertydomain.ErrInvalidAddress.Error():        "address",
	propertydomain.ErrInvalidTimezone.Error():       "timezone",
	visitdomain.ErrInvalidVisitID.Error():           "id",
	visitdomain.ErrEmptyWaterTest.Error():           "readings",
	visitdomain.ErrInvalidReading.Error():           "readings",
}

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
			Type:    errorTypeInternal,
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    errorTypeValidation,
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if sentinel, ok := matchAny(err, validationErrs); ok {
		code := sentinel.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    errorTypeValidation,
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

	if _, ok := matchAny(err, unauthorizedErrs); ok {
		return http.StatusUnauthorized, errorPayload{
			Type:    errorTypeUnauthorized,
			Message: "unauthorized",
		}
	}
	if sentinel, ok := matchAny(err, forbiddenErrs); ok {
		return http.StatusForbidden, errorPayload{
			Type:    errorTypeForbidden,
			Message: publicMessage(sentinel, "forbidden"),
		}
	}
	if sentinel, ok := matchAny(err, notFoundErrs); ok {
		return http.StatusNotFound, errorPayload{
			Type:    errorTypeNotFound,
			Message: publicMessage(sentinel, "not found"),
		}
	}
	if sentinel, ok := matchAny(err, conflictErrs); ok {
		return http.StatusConflict, errorPayload{
			Type:    errorTypeConflict,
			Message: sentinel.Error(),
		}
	}
	if sentinel, ok := matchAny(err, rateLimitedErrs); ok {
		return http.StatusTooManyRequests, errorPayload{
			Type:    errorTypeRateLimited,
			Message: sentinel.Error(),
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    errorTypeInternal,
		Message: "internal server error",
	}
}

// classifyErrorForLog feeds the request logger the same type and code the
// client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Message
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func matchAny(err error, candidates []error) (error, bool) {
	for _, candidate := range candidates {
		if errors.Is(err, candidate) {
			return candidate, true
		}
	}
	return nil, false
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// publicMessage keeps the generic wording for the server's own sentinels and
// exposes domain codes as they are.
func publicMessage(sentinel error, generic string) string {
	switch sentinel {
	case ErrForbidden, ErrNotFound, gorm.ErrRecordNotFound:
		return generic
	default:
		return sentinel.Error()
	}
}

func validationErrorField(code string) string {
	if field, ok := validationFields[code]; ok {
		return field
	}
	if strings.HasPrefix(code, "invalid_") && code != "invalid_request" {
		return strings.TrimPrefix(code, "invalid_")
	}
	return "request"
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case authdomain.ErrWeakPassword.Error():
		return "password is too weak"
	case teamdomain.ErrSelfRemoval.Error():
		return "you cannot remove yourself"
	case invitationdomain.ErrExpired.Error():
		return "invitation expired"
	case invitationdomain.ErrInvalidInvitation.Error():
		return "invalid invitation"
	default:
		return "invalid value"
	}
}
