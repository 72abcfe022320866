package photos_test

import (
	"net/http"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	photofeature "github.com/dalemusser/playsafe/internal/app/features/photos"
	"github.com/dalemusser/playsafe/internal/app/system/photos"
	"github.com/dalemusser/playsafe/internal/testutil"
	"go.uber.org/zap"
)

func newHandler(store photos.Store) *photofeature.Handler {
	logger := zap.NewNop()
	return photofeature.NewHandler(store, 0, uierrors.NewErrorLogger(logger), logger)
}

func presign(t *testing.T, h *photofeature.Handler, body map[string]string) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/photos/presign", body)
	req = testutil.WithUser(req, testutil.CitizenUser())
	rec := testutil.NewRecorder()
	h.HandlePresign(rec, req)
	return rec
}

func TestHandlePresign_Inline(t *testing.T) {
	rec := presign(t, newHandler(photos.Inline{}), map[string]string{"content_type": "image/jpeg"})
	rec.AssertStatus(t, http.StatusNotImplemented)

	rec = presign(t, newHandler(nil), map[string]string{"content_type": "image/jpeg"})
	rec.AssertStatus(t, http.StatusNotImplemented)
}

func TestHandlePresign_S3(t *testing.T) {
	store := photos.NewS3(photos.S3Config{
		Region:    "us-east-1",
		Bucket:    "playsafe-test",
		Endpoint:  "http://localhost:9000",
		AccessKey: "test",
		SecretKey: "test-secret",
		PublicURL: "https://cdn.example.com/",
		Prefix:    "photos/",
	}, zap.NewNop())
	h := newHandler(store)

	t.Run("ok", func(t *testing.T) {
		rec := presign(t, h, map[string]string{"kind": "completion", "content_type": "image/png"})
		rec.AssertStatus(t, http.StatusOK)

		var body photos.PresignedUpload
		rec.DecodeJSON(t, &body)
		if !strings.HasPrefix(body.Key, "photos/completion/") || !strings.HasSuffix(body.Key, ".png") {
			t.Errorf("key: got %q", body.Key)
		}
		if body.PublicURL != "https://cdn.example.com/"+body.Key {
			t.Errorf("public_url: got %q", body.PublicURL)
		}
		if !strings.Contains(body.UploadURL, "X-Amz-Signature") {
			t.Errorf("upload_url not signed: %q", body.UploadURL)
		}
	})

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"unsupported type", map[string]string{"content_type": "application/pdf"}, http.StatusUnprocessableEntity},
		{"unknown kind", map[string]string{"kind": "avatar", "content_type": "image/png"}, http.StatusUnprocessableEntity},
		{"default kind", map[string]string{"content_type": "IMAGE/JPEG"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			presign(t, h, tt.body).AssertStatus(t, tt.want)
		})
	}
}
