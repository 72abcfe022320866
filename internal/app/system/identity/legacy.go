// Package identity resolves legacy principals. The old system kept one
// collection per role and found a user's role by probing all of them; the
// current system stores the role on a single user document. ResolveLegacy
// keeps the old probe for data migration only.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/playsafe/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

// Legacy collection names in probe precedence order.
const (
	CollCitizens       = "citizens"
	CollAdministrators = "administrators"
	CollMaintenance    = "maintenance"
	CollUsers          = "users"
)

// ErrNotFound means no legacy collection holds the uid.
var ErrNotFound = errors.New("identity: no legacy user document")

// ErrUnknownRole means only the generic users document exists and its
// role field is not one we know.
var ErrUnknownRole = errors.New("identity: legacy user has an unknown role")

// Source reads one legacy document by collection and uid. ok is false when
// the document does not exist.
type Source interface {
	Lookup(ctx context.Context, collection, uid string) (doc map[string]any, ok bool, err error)
}

// LegacyUser is a legacy principal with its implied role.
type LegacyUser struct {
	UID        string
	Collection string
	Role       string
	Email      string
	FirstName  string
	LastName   string
	Doc        map[string]any
}

var probes = []struct {
	coll string
	role string // empty: read the role from the document
}{
	{CollCitizens, models.RoleCitizen},
	{CollAdministrators, models.RoleAdmin},
	{CollMaintenance, models.RoleMaintenance},
	{CollUsers, ""},
}

// ResolveLegacy looks uid up in every legacy collection concurrently and
// returns the first hit by fixed precedence: citizen, admin, maintenance,
// then the generic users document with its own role field. Any lookup
// error fails the whole resolution.
func ResolveLegacy(ctx context.Context, src Source, uid string) (LegacyUser, error) {
	docs := make([]map[string]any, len(probes))
	found := make([]bool, len(probes))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		g.Go(func() error {
			doc, ok, err := src.Lookup(gctx, p.coll, uid)
			if err != nil {
				return fmt.Errorf("lookup %s/%s: %w", p.coll, uid, err)
			}
			docs[i], found[i] = doc, ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return LegacyUser{}, err
	}

	for i, p := range probes {
		if !found[i] {
			continue
		}
		role := p.role
		if role == "" {
			role = strings.ToLower(strings.TrimSpace(str(docs[i], "role")))
			if !models.IsValidRole(role) {
				return LegacyUser{}, ErrUnknownRole
			}
		}
		return LegacyUser{
			UID:        uid,
			Collection: p.coll,
			Role:       role,
			Email:      strings.TrimSpace(str(docs[i], "email")),
			FirstName:  strings.TrimSpace(str(docs[i], "firstName")),
			LastName:   strings.TrimSpace(str(docs[i], "lastName")),
			Doc:        docs[i],
		}, nil
	}
	return LegacyUser{}, ErrNotFound
}

func str(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}
