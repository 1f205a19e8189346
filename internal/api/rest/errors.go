package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-boxoffice/internal/api/shared/errors"
	"github.com/feral-file/ff-boxoffice/internal/domain"
	"github.com/feral-file/ff-boxoffice/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondNotFound responds with a not found error
func respondNotFound(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusNotFound, apierrors.NewNotFoundError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, apierrors.NewValidationError(message))
}

// respondInternalError responds with an internal server error and logs it
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.Error(err, fields...)
	c.JSON(http.StatusInternalServerError, apierrors.NewInternalError(message))
}

// respondDomainError maps a domain sentinel to its HTTP status and error
// envelope. Unknown errors become 500.
func respondDomainError(c *gin.Context, err error) {
	switch {
	// Validation failures of the request itself.
	case errors.Is(err, domain.ErrInvalidIdentifier),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPaymentAddress),
		errors.Is(err, domain.ErrInvalidSignerAddress),
		errors.Is(err, domain.ErrWrongAmount),
		errors.Is(err, domain.ErrSignatureRequired),
		errors.Is(err, domain.ErrSignatureNotRequired):
		c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(err.Error()))

	case errors.Is(err, domain.ErrBoxNotFound):
		c.JSON(http.StatusNotFound, apierrors.NewNotFoundError(err.Error()))

	// Requests that conflict with the box or sale state.
	case errors.Is(err, domain.ErrBoxAlreadyExists),
		errors.Is(err, domain.ErrAlreadyInState),
		errors.Is(err, domain.ErrBoxDisabled),
		errors.Is(err, domain.ErrSoldOut),
		errors.Is(err, domain.ErrBoxIsFree),
		errors.Is(err, domain.ErrBoxNotFree),
		errors.Is(err, domain.ErrWrongPaymentKind),
		errors.Is(err, domain.ErrNonceAlreadyUsed):
		c.JSON(http.StatusConflict, apierrors.NewConflictError(err.Error()))

	case errors.Is(err, domain.ErrInvalidSignature):
		c.JSON(http.StatusForbidden, apierrors.NewForbiddenError(err.Error()))

	case errors.Is(err, domain.ErrSalePaused):
		c.JSON(http.StatusServiceUnavailable, apierrors.NewServiceUnavailableError(err.Error()))

	case errors.Is(err, domain.ErrPaymentForwardingFailed),
		errors.Is(err, domain.ErrPaymentTransferFailed):
		logger.Error(err)
		c.JSON(http.StatusBadGateway, apierrors.NewSettlementFailedError(err.Error()))

	default:
		respondInternalError(c, err, "Internal server error")
	}
}
