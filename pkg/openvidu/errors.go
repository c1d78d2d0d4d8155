package openvidu

import (
	"net/http"

	apperrors "github.com/LingByte/LingVidu/pkg/errors"
)

// Error kinds returned by the client. Compare with errors.Is; the concrete
// error is an *apperrors.AppError carrying the HTTP status and, for server
// errors, the raw response body.
var (
	ErrSessionNotFound           = apperrors.NewAppError(apperrors.ErrCodeSessionNotFound, "session does not exist")
	ErrSessionAlreadyExists      = apperrors.NewAppError(apperrors.ErrCodeSessionAlreadyExists, "session already exists")
	ErrConnectionNotFound        = apperrors.NewAppError(apperrors.ErrCodeConnectionNotFound, "connection does not exist")
	ErrStreamNotFound            = apperrors.NewAppError(apperrors.ErrCodeStreamNotFound, "stream does not exist")
	ErrStreamOperationNotAllowed = apperrors.NewAppError(apperrors.ErrCodeStreamOperationNotAllowed, "stream cannot be unpublished directly; disconnect its IPCAM connection instead")
	ErrInvalidArgument           = apperrors.NewAppError(apperrors.ErrCodeInvalidArgument, "invalid argument")
	ErrServerError               = apperrors.NewAppError(apperrors.ErrCodeServerError, "server error")
	ErrUnexpectedResponse        = apperrors.NewAppError(apperrors.ErrCodeUnexpectedResponse, "unexpected response")
	ErrUnknownConnectionType     = apperrors.NewAppError(apperrors.ErrCodeUnknownConnectionType, "unknown connection type")
)

// statusMap binds response statuses to error kinds for one endpoint
type statusMap map[int]*apperrors.AppError

// checkStatus turns a non-2xx response into an error kind. Unmapped 5xx
// responses become ErrServerError with the raw body attached.
func checkStatus(res *response, kinds statusMap) error {
	if res.status >= http.StatusOK && res.status < http.StatusMultipleChoices {
		return nil
	}
	if kind, ok := kinds[res.status]; ok {
		return kind.WithStatus(res.status)
	}
	if res.status >= http.StatusInternalServerError {
		return ErrServerError.WithStatus(res.status).WithDetails("body", string(res.body))
	}
	return ErrUnexpectedResponse.WithStatus(res.status).WithDetails("body", string(res.body))
}

func invalidArgumentf(format string, args ...interface{}) error {
	err := apperrors.NewAppErrorf(apperrors.ErrCodeInvalidArgument, format, args...)
	err.HTTPStatus = 0
	return err
}
