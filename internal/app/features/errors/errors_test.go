package errors_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	"github.com/dalemusser/playsafe/internal/app/lifecycle"
	"github.com/dalemusser/playsafe/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLifecycle_MapsStatusAndLogsOnlyFailures(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	el := uierrors.NewErrorLogger(zap.New(core))

	tests := []struct {
		err    error
		status int
		msg    string
		logged bool
	}{
		{lifecycle.ErrInvalidTransition, http.StatusConflict, lifecycle.ErrInvalidTransition.Error(), false},
		{&lifecycle.ValidationError{Msg: "Title is required."}, http.StatusUnprocessableEntity, "Title is required.", false},
		{errors.New("connection reset"), http.StatusInternalServerError, "something went wrong, please try again", true},
	}
	for _, tt := range tests {
		before := logs.Len()
		rec := testutil.NewRecorder()
		req := testutil.WithUser(httptest.NewRequest("POST", "/api/x", nil), testutil.AdminUser())
		el.Lifecycle(rec, req, "assign", tt.err)

		rec.AssertStatus(t, tt.status)
		var body struct {
			Error string `json:"error"`
		}
		rec.DecodeJSON(t, &body)
		if body.Error != tt.msg {
			t.Errorf("message: got %q, want %q", body.Error, tt.msg)
		}
		if got := logs.Len() > before; got != tt.logged {
			t.Errorf("%v logged: got %v, want %v", tt.err, got, tt.logged)
		}
	}
}

func TestLogBadRequest(t *testing.T) {
	el := uierrors.NewErrorLogger(nil)
	rec := testutil.NewRecorder()
	el.LogBadRequest(rec, httptest.NewRequest("POST", "/login", nil), "decode", errors.New("eof"), "Invalid request body.")

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Invalid request body.")
}
