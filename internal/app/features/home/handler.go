package home

import (
	"net/http"

	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"github.com/dalemusser/playsafe/internal/app/system/viewdata"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler holds dependencies needed to serve the home page.
type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:  db,
		Log: logger,
	}
}

type rootVM struct {
	viewdata.BaseVM
	Categories []string          `json:"categories"`
	Severities []string          `json:"severities"`
	Links      map[string]string `json:"links"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	vm := viewdata.NewBaseVM(r, h.DB, "Welcome", "/")
	links := map[string]string{
		"issues":      "/issues",
		"playgrounds": "/playgrounds",
		"health":      "/health",
	}
	if vm.IsLoggedIn {
		links["home"] = vm.Home
		links["logout"] = "/logout"
	} else {
		links["login"] = "/login"
		links["register"] = "/register"
	}

	httpjson.OK(w, rootVM{
		BaseVM:     vm,
		Categories: models.Categories,
		Severities: []string{models.SeverityLow, models.SeverityMedium, models.SeverityHigh},
		Links:      links,
	})
}
