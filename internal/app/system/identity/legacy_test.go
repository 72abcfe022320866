package identity_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/dalemusser/playsafe/internal/app/system/identity"
	"github.com/dalemusser/playsafe/internal/domain/models"
)

type fakeSource struct {
	docs  map[string]map[string]any // "coll/uid" -> doc
	fail  string                     // collection that errors
	calls atomic.Int32
}

func (f *fakeSource) Lookup(_ context.Context, coll, uid string) (map[string]any, bool, error) {
	f.calls.Add(1)
	if coll == f.fail {
		return nil, false, errors.New("unavailable")
	}
	d, ok := f.docs[coll+"/"+uid]
	return d, ok, nil
}

func TestResolveLegacy_Precedence(t *testing.T) {
	both := map[string]map[string]any{
		"administrators/u1": {"email": "a@x.com", "firstName": "Ann"},
		"citizens/u1":       {"email": "c@x.com", "firstName": "Cyril"},
		"maintenance/u2":    {"email": "m@x.com"},
		"users/u2":          {"email": "m2@x.com", "role": "admin"},
		"users/u3":          {"email": "g@x.com", "role": "Maintenance", "lastName": " Rao "},
		"users/u4":          {"email": "z@x.com", "role": "janitor"},
	}

	tests := []struct {
		uid      string
		wantRole string
		wantColl string
		wantErr  error
	}{
		{"u1", models.RoleCitizen, identity.CollCitizens, nil},
		{"u2", models.RoleMaintenance, identity.CollMaintenance, nil},
		{"u3", models.RoleMaintenance, identity.CollUsers, nil},
		{"u4", "", "", identity.ErrUnknownRole},
		{"u5", "", "", identity.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.uid, func(t *testing.T) {
			src := &fakeSource{docs: both}
			got, err := identity.ResolveLegacy(context.Background(), src, tt.uid)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err: got %v, want %v", err, tt.wantErr)
			}
			if got.Role != tt.wantRole || got.Collection != tt.wantColl {
				t.Errorf("got (%q, %q), want (%q, %q)", got.Role, got.Collection, tt.wantRole, tt.wantColl)
			}
			if n := src.calls.Load(); n != 4 {
				t.Errorf("lookups: got %d, want 4", n)
			}
		})
	}
}

func TestResolveLegacy_Fields(t *testing.T) {
	src := &fakeSource{docs: map[string]map[string]any{
		"users/u3": {"email": " g@x.com ", "role": "Maintenance", "firstName": "Guna", "lastName": " Rao "},
	}}
	got, err := identity.ResolveLegacy(context.Background(), src, "u3")
	if err != nil {
		t.Fatalf("ResolveLegacy: %v", err)
	}
	if got.Email != "g@x.com" || got.FirstName != "Guna" || got.LastName != "Rao" || got.UID != "u3" {
		t.Errorf("got %+v", got)
	}
}

func TestResolveLegacy_LookupErrorFails(t *testing.T) {
	src := &fakeSource{
		docs: map[string]map[string]any{"citizens/u1": {"email": "c@x.com"}},
		fail: identity.CollMaintenance,
	}
	if _, err := identity.ResolveLegacy(context.Background(), src, "u1"); err == nil {
		t.Fatal("expected an error when one collection is unavailable")
	}
}
