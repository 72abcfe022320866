// Package lifecycle owns every issue state transition.
//
// A transition is a compare-and-swap on the issue's current status (plus
// flag preconditions), so a stale request fails with ErrInvalidTransition
// instead of overwriting someone else's change. Transitions that also touch
// the assignment ledger run both writes in one MongoDB transaction; on a
// standalone server they fall back to ordered writes with a compensating
// write that puts the issue back if the ledger write fails.
//
// After a transition commits, the service records an audit event, writes
// in-app notifications, publishes a bus event and recounts the playground's
// open issues. Those follow-ups are best effort and only logged on failure.
package lifecycle

import (
	"context"
	"net/http"
	"time"

	assignmentstore "github.com/dalemusser/playsafe/internal/app/store/assignments"
	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	notificationstore "github.com/dalemusser/playsafe/internal/app/store/notifications"
	playgroundstore "github.com/dalemusser/playsafe/internal/app/store/playgrounds"
	userstore "github.com/dalemusser/playsafe/internal/app/store/users"
	"github.com/dalemusser/playsafe/internal/app/system/auditlog"
	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/dalemusser/playsafe/internal/app/system/events"
	"github.com/dalemusser/playsafe/internal/app/system/photos"
	"github.com/dalemusser/playsafe/internal/app/system/ratelimit"
	"github.com/dalemusser/playsafe/internal/app/system/reportcode"
	"github.com/dalemusser/playsafe/internal/app/system/txn"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Errors returned by the service. Handlers map them with HTTPStatus.
var (
	ErrInvalidTransition = errors.New("issue is not in a state that allows this action")
	ErrNotFound          = errors.New("issue not found")
	ErrUnknownStaff      = errors.New("staff member not found or not active")
	ErrValidation        = errors.New("invalid input")
	ErrForbidden         = errors.New("you are not allowed to change this issue")
	ErrRateLimited       = errors.New("too many reports, please try again later")
)

// ValidationError carries a user-facing message and matches ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// HTTPStatus maps a service error to a response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnknownStaff), errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Message returns the text to show the user for err. Infrastructure
// errors get a generic message.
func Message(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Msg
	}
	for _, known := range []error{ErrInvalidTransition, ErrNotFound, ErrUnknownStaff, ErrValidation, ErrForbidden, ErrRateLimited} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "something went wrong, please try again"
}

// Actor is the signed-in user performing a transition.
type Actor struct {
	ID    primitive.ObjectID
	Email string
	Name  string
	Role  string
}

// ActorFrom converts a session user. It fails with ErrForbidden when the
// user is missing or carries a malformed id.
func ActorFrom(u *auth.SessionUser) (Actor, error) {
	if u == nil {
		return Actor{}, ErrForbidden
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return Actor{}, ErrForbidden
	}
	return Actor{ID: id, Email: u.Email, Name: u.Name, Role: u.Role}, nil
}

// Deps wires the service.
type Deps struct {
	Client    *mongo.Client
	DB        *mongo.Database
	Photos    photos.Store      // nil keeps photos inline
	Limiter   ratelimit.Checker // nil disables report rate limiting
	Publisher events.Publisher  // nil discards events
	Audit     *auditlog.Logger  // nil disables auditing
	Logger    *zap.Logger
}

// Service runs issue transitions.
type Service struct {
	client        *mongo.Client
	issues        *issuestore.Store
	assignments   *assignmentstore.Store
	users         *userstore.Store
	playgrounds   *playgroundstore.Store
	notifications *notificationstore.Store

	photos    photos.Store
	codes     *reportcode.Generator
	limiter   ratelimit.Checker
	publisher events.Publisher
	audit     *auditlog.Logger
	log       *zap.Logger
	now       func() time.Time
}

// New builds a Service.
func New(d Deps) *Service {
	s := &Service{
		client:        d.Client,
		issues:        issuestore.New(d.DB),
		assignments:   assignmentstore.New(d.DB),
		users:         userstore.New(d.DB),
		playgrounds:   playgroundstore.New(d.DB),
		notifications: notificationstore.New(d.DB),
		photos:        d.Photos,
		codes:         reportcode.New(),
		limiter:       d.Limiter,
		publisher:     d.Publisher,
		audit:         d.Audit,
		log:           d.Logger,
		now:           time.Now,
	}
	if s.photos == nil {
		s.photos = photos.Inline{}
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Get loads one issue.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (models.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if errors.Is(err, issuestore.ErrNotFound) {
		return models.Issue{}, ErrNotFound
	}
	return issue, errors.Wrap(err, "load issue")
}

// mapStoreErr turns store sentinels into service errors and wraps the rest.
func mapStoreErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, issuestore.ErrStale), errors.Is(err, assignmentstore.ErrActiveExists):
		return ErrInvalidTransition
	case errors.Is(err, issuestore.ErrNotFound):
		return ErrNotFound
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	for _, known := range []error{ErrInvalidTransition, ErrNotFound, ErrUnknownStaff, ErrForbidden} {
		if errors.Is(err, known) {
			return err
		}
	}
	return errors.Wrap(err, op)
}

// undoLog collects compensating writes for the non-transactional path.
type undoLog []func(context.Context) error

func (u *undoLog) push(f func(context.Context) error) { *u = append(*u, f) }

// ledgerStep is the assignment-ledger half of a two-document transition.
// Each successful write pushes its reverse onto undo.
type ledgerStep func(ctx context.Context, next models.Issue, undo *undoLog) error

// transition applies a guarded issue update and an optional ledger step
// atomically and returns the updated issue.
func (s *Service) transition(ctx context.Context, op string, id primitive.ObjectID, guard issuestore.Guard, set bson.M, unset []string, ledger ledgerStep) (models.Issue, error) {
	_, next, err := s.transitionFrom(ctx, op, id, guard, set, unset, ledger)
	return next, err
}

// transitionFrom is transition that also returns the issue as the guarded
// update found it, for callers that record the state they moved from.
func (s *Service) transitionFrom(ctx context.Context, op string, id primitive.ObjectID, guard issuestore.Guard, set bson.M, unset []string, ledger ledgerStep) (prev, next models.Issue, err error) {
	if ledger == nil {
		prev, err = s.issues.CompareAndSetBefore(ctx, id, guard, set, unset...)
		if err != nil {
			return models.Issue{}, models.Issue{}, mapStoreErr(err, op)
		}
		next, err = s.issues.GetByID(ctx, id)
		return prev, next, mapStoreErr(err, op)
	}

	err = txn.Run(ctx, s.client, func(sc mongo.SessionContext) error {
		before, err := s.issues.CompareAndSetBefore(sc, id, guard, set, unset...)
		if err != nil {
			return err
		}
		updated, err := s.issues.GetByID(sc, id)
		if err != nil {
			return err
		}
		if err := ledger(sc, updated, &undoLog{}); err != nil {
			return err
		}
		prev, next = before, updated
		return nil
	})
	if err == nil {
		return prev, next, nil
	}
	if !txn.IsNotSupported(err) {
		return models.Issue{}, models.Issue{}, mapStoreErr(err, op)
	}

	s.log.Debug("transactions unavailable, using ordered writes", zap.String("op", op))
	return s.orderedTransition(ctx, op, id, guard, set, unset, ledger)
}

func (s *Service) orderedTransition(ctx context.Context, op string, id primitive.ObjectID, guard issuestore.Guard, set bson.M, unset []string, ledger ledgerStep) (models.Issue, models.Issue, error) {
	prev, err := s.issues.CompareAndSetBefore(ctx, id, guard, set, unset...)
	if err != nil {
		return models.Issue{}, models.Issue{}, mapStoreErr(err, op)
	}
	next, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return models.Issue{}, models.Issue{}, mapStoreErr(err, op)
	}

	var undo undoLog
	if lerr := ledger(ctx, next, &undo); lerr != nil {
		for i := len(undo) - 1; i >= 0; i-- {
			if uerr := undo[i](ctx); uerr != nil {
				s.log.Error("compensating ledger write failed",
					zap.String("op", op), zap.String("issue_id", id.Hex()), zap.Error(uerr))
			}
		}
		if rerr := s.issues.Restore(ctx, prev, next.Status); rerr != nil {
			s.log.Error("compensating issue write failed",
				zap.String("op", op), zap.String("issue_id", id.Hex()), zap.Error(rerr))
		}
		return models.Issue{}, models.Issue{}, mapStoreErr(lerr, op)
	}
	return prev, next, nil
}
