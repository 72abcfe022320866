// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/playsafe/internal/app/lifecycle"
	"github.com/dalemusser/playsafe/internal/app/system/authz"
	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// ErrorLogger writes JSON error responses and logs the cause with request
// context. Every handler shares one.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if _, _, uid, ok := authz.UserCtx(r); ok {
		fields = append(fields, zap.String("user_id", uid.Hex()))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

// LogBadRequest logs at debug and responds 400 with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Debug(msg, e.fields(r, err)...)
	httpjson.Error(w, http.StatusBadRequest, userMsg)
}

// LogServerError logs at error and responds 500 with userMsg.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Error(msg, e.fields(r, err)...)
	httpjson.Error(w, http.StatusInternalServerError, userMsg)
}

// Lifecycle maps a lifecycle service error to its status and message.
// Only unexpected failures are logged as errors.
func (e *ErrorLogger) Lifecycle(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := lifecycle.HTTPStatus(err)
	fields := append(e.fields(r, err), zap.String("op", op), zap.Int("status", status))
	if status >= http.StatusInternalServerError {
		e.log.Error("issue operation failed", fields...)
	} else {
		e.log.Debug("issue operation refused", fields...)
	}
	httpjson.Error(w, status, lifecycle.Message(err))
}

// NotFound responds 404 with msg.
func NotFound(w http.ResponseWriter, msg string) {
	httpjson.Error(w, http.StatusNotFound, msg)
}

// Unauthorized responds 401 with msg.
func Unauthorized(w http.ResponseWriter, msg string) {
	httpjson.Error(w, http.StatusUnauthorized, msg)
}
