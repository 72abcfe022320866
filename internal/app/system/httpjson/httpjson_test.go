package httpjson_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
)

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	httpjson.Error(rec, http.StatusConflict, "issue is no longer pending")

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusConflict)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var body httpjson.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "issue is no longer pending" {
		t.Errorf("error: got %q", body.Error)
	}
}

func TestDecode(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}
	tests := []struct {
		name    string
		body    string
		ct      string
		wantErr bool
	}{
		{"ok", `{"title":"Broken swing"}`, "application/json", false},
		{"no content type", `{"title":"x"}`, "", false},
		{"unknown field", `{"title":"x","extra":1}`, "application/json", true},
		{"empty", ``, "application/json", true},
		{"two objects", `{"title":"a"}{"title":"b"}`, "application/json", true},
		{"form content", `title=x`, "application/x-www-form-urlencoded", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			if tt.ct != "" {
				r.Header.Set("Content-Type", tt.ct)
			}
			var p payload
			err := httpjson.Decode(httptest.NewRecorder(), r, &p)
			if (err != nil) != tt.wantErr {
				t.Errorf("Decode: err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
