package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/playsafe/internal/app/store/sessions"
	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client   *mongo.Client
	Sessions *sessions.Store
	Log      *zap.Logger
}

// NewHandler constructs a health Handler with the Mongo client and logger.
// sessStore may be nil.
func NewHandler(client *mongo.Client, sessStore *sessions.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Client:   client,
		Sessions: sessStore,
		Log:      logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status         string `json:"status"`
	Database       string `json:"database"`
	Message        string `json:"message,omitempty"`
	ActiveSessions *int64 `json:"active_sessions,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "active_sessions":3 }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		httpjson.Write(w, http.StatusServiceUnavailable, healthResponse{
			Status:   "error",
			Database: "disconnected",
			Message:  "Database unavailable",
		})
		return
	}

	resp := healthResponse{Status: "ok", Database: "connected"}

	// informational only
	if h.Sessions != nil {
		if n, err := h.Sessions.CountActive(ctx); err == nil {
			resp.ActiveSessions = &n
		} else {
			h.Log.Warn("health-check: count sessions failed", zap.Error(err))
		}
	}

	httpjson.OK(w, resp)
}
