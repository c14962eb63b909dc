package handler

import (
	stdErrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/errors"
	"github.com/meetscribe/capture-agent/internal/domain/entities"
	usecaseErrors "github.com/meetscribe/capture-agent/internal/usecase/errors"
)

// Response shapes
type success struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type errs struct {
	Code    errors.ErrorCode  `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Info    string            `json:"info,omitempty"`
}

// getRequestID tries to read X-Request-ID from the request
func getRequestID(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().Header.Get("X-Request-ID")
}

// HandleSuccess writes a standardized success response
func HandleSuccess(logger *zap.Logger, c echo.Context, data interface{}) error {
	if logger != nil {
		logger.Info("http.response.success",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
		)
	}
	return c.JSON(http.StatusOK, success{Message: "success", Data: data})
}

// HandleError maps domain errors onto the wire taxonomy and logs them
func HandleError(logger *zap.Logger, c echo.Context, err error) error {
	appErr := toAppError(err)

	if logger != nil {
		logger.Error("http.response.error",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
			zap.String("app_code", string(appErr.Code)),
			zap.Error(err),
		)
	}

	info := ""
	if appErr.Raw != nil {
		info = appErr.Raw.Error()
	}
	return c.JSON(appErr.HTTPCode, errs{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
		Info:    info,
	})
}

// toAppError translates usecase sentinels into user-facing errors. Anything
// unrecognized is internal.
func toAppError(err error) errors.AppError {
	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stdErrors.Is(err, usecaseErrors.ErrSessionActive),
		stdErrors.Is(err, usecaseErrors.ErrSessionFinalized):
		return errors.ErrSessionConflict(err.Error())
	case stdErrors.Is(err, usecaseErrors.ErrNoActiveSession),
		stdErrors.Is(err, entities.ErrSessionNotFound):
		return errors.ErrNotFound("session")
	case stdErrors.Is(err, entities.ErrMeetingNotFound):
		return errors.ErrNotFound("meeting")
	case stdErrors.Is(err, usecaseErrors.ErrPermissionDenied):
		return errors.ErrMicrophoneDenied(err)
	case stdErrors.Is(err, usecaseErrors.ErrQuotaExceeded):
		return errors.ErrQuotaExceeded(err)
	case usecaseErrors.IsValidationFailure(err):
		return errors.ErrValidationFailed(err)
	case stdErrors.Is(err, usecaseErrors.ErrNetworkDegraded):
		return errors.ErrNetworkDegraded(err)
	case stdErrors.Is(err, usecaseErrors.ErrIngestionFatal):
		return errors.ErrIngestionFailed(err)
	default:
		return errors.ErrInternal(err)
	}
}
