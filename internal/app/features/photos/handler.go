// internal/app/features/photos/handler.go
package photos

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"github.com/dalemusser/playsafe/internal/app/system/photos"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// DefaultTTL is how long a presigned upload URL stays valid.
const DefaultTTL = 10 * time.Minute

type presigner interface {
	Presign(ctx context.Context, kind photos.Kind, contentType string, ttl time.Duration) (photos.PresignedUpload, error)
}

type Handler struct {
	Presigner presigner // nil when photos are stored inline
	TTL       time.Duration
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

// NewHandler enables presigning only for bucket storage.
func NewHandler(store photos.Store, ttl time.Duration, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	h := &Handler{TTL: ttl, ErrLog: errLog, Log: logger}
	if h.TTL <= 0 {
		h.TTL = DefaultTTL
	}
	if s3, ok := store.(*photos.S3); ok && s3 != nil {
		h.Presigner = s3
	}
	return h
}

type presignInput struct {
	Kind        string `json:"kind"`
	ContentType string `json:"content_type"`
}

// HandlePresign handles POST /api/photos/presign.
func (h *Handler) HandlePresign(w http.ResponseWriter, r *http.Request) {
	if h.Presigner == nil {
		httpjson.Error(w, http.StatusNotImplemented, "Direct photo upload is not enabled.")
		return
	}
	var in presignInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode presign body", err, err.Error())
		return
	}

	kind := photos.Kind(strings.ToLower(strings.TrimSpace(in.Kind)))
	switch kind {
	case "":
		kind = photos.KindReport
	case photos.KindReport, photos.KindCompletion:
	default:
		httpjson.Error(w, http.StatusUnprocessableEntity, "Kind must be report or completion.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	up, err := h.Presigner.Presign(ctx, kind, strings.ToLower(strings.TrimSpace(in.ContentType)), h.TTL)
	var verr *photos.ValidationError
	switch {
	case errors.As(err, &verr):
		httpjson.Error(w, http.StatusUnprocessableEntity, verr.Msg)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "presign photo upload", err, "Could not prepare the upload.")
		return
	}
	h.Log.Debug("photo upload presigned", zap.String("key", up.Key))
	httpjson.OK(w, up)
}
