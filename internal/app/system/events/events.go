// Package events publishes issue lifecycle events for downstream
// consumers (mailers, analytics, city work-order systems).
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Routing keys.
const (
	IssueReported   = "issue.reported"
	IssueAssigned   = "issue.assigned"
	IssueReassigned = "issue.reassigned"
	IssueStarted    = "issue.started"
	IssueCompleted  = "issue.completed"
	IssueApproved   = "issue.approved"
	IssueRejected   = "issue.rejected"
	IssueResolved   = "issue.resolved" // direct admin resolve
)

// Event is the JSON body of every published message.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	IssueID    string    `json:"issue_id"`
	ReportCode string    `json:"report_code"`
	Status     string    `json:"status"`
	Severity   string    `json:"severity"`
	AssignedTo string    `json:"assigned_to,omitempty"`
	Actor      string    `json:"actor"`
	At         time.Time `json:"at"`
}

// ForIssue builds an event describing issue after a transition.
func ForIssue(typ string, issue models.Issue, actor string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		IssueID:    issue.ID.Hex(),
		ReportCode: issue.ReportCode,
		Status:     issue.Status,
		Severity:   issue.Severity,
		AssignedTo: issue.AssignedTo,
		Actor:      actor,
		At:         time.Now().UTC(),
	}
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Rabbit publishes events as persistent JSON messages to a topic exchange,
// using the event type as routing key.
type Rabbit struct {
	mu       sync.Mutex // amqp channels are not safe for concurrent publish
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *zap.Logger
}

// NewRabbit dials url and declares a durable topic exchange.
func NewRabbit(url, exchange string, logger *zap.Logger) (*Rabbit, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info("event publisher connected", zap.String("exchange", exchange))
	return &Rabbit{conn: conn, ch: ch, exchange: exchange, log: logger}, nil
}

func (p *Rabbit) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.At,
		Body:         body,
	})
}

func (p *Rabbit) Close() error {
	if err := p.ch.Close(); err != nil {
		p.log.Warn("close amqp channel", zap.Error(err))
	}
	return p.conn.Close()
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what was published.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the routing keys published, in order.
func (r *Recorder) Types() []string {
	evs := r.Events()
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}
