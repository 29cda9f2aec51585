package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

// Lifecycle event names. Each one is the final token of the subject it is
// published on.
const (
	EventTurnStarted            = "turn_started"
	EventNodeCompleted          = "node_completed"
	EventClarificationRequested = "clarification_requested"
	EventTurnCompleted          = "turn_completed"
	EventTurnFailed             = "turn_failed"
)

const subjectPrefix = "workflow"

// Subject returns the NATS subject for one thread event, for example
// workflow.thread_4fa2.turn_completed.
func Subject(threadID, event string) string {
	return subjectPrefix + "." + subjectToken(threadID) + "." + event
}

// ThreadSubjects returns the wildcard subject matching every event published
// for one thread.
func ThreadSubjects(threadID string) string {
	return subjectPrefix + "." + subjectToken(threadID) + ".*"
}

// EventFromSubject extracts the event name from a subject built by Subject.
// Returns "" for subjects of an unexpected shape.
func EventFromSubject(subject string) string {
	i := strings.LastIndex(subject, ".")
	if i < 0 || i == len(subject)-1 {
		return ""
	}
	return subject[i+1:]
}

// subjectToken flattens a thread ID into a single subject token. Thread IDs
// may contain dots, which NATS treats as token separators.
func subjectToken(threadID string) string {
	return strings.ReplaceAll(threadID, ".", "_")
}

// Event is the JSON payload carried by every published message. Fields not
// relevant to an event type are omitted; a missing iteration reads as 0 and
// a missing resumed flag reads as false.
type Event struct {
	Event     string              `json:"event"`
	ThreadID  string              `json:"thread_id"`
	Timestamp time.Time           `json:"timestamp"`
	Resumed   bool                `json:"resumed,omitempty"`
	Node      string              `json:"node,omitempty"`
	Iteration int                 `json:"iteration,omitempty"`
	FromNode  string              `json:"from_node,omitempty"`
	Questions []protocol.Question `json:"questions,omitempty"`
	Reason    string              `json:"reason,omitempty"`
}

// Publisher publishes lifecycle events for workflow threads. It satisfies
// the workflow engine's Events interface. A nil *Publisher and a Publisher
// over a nil connection both publish nothing.
type Publisher struct {
	nc      *nats.Conn
	logger  *Logger
	metrics *Metrics
	now     func() time.Time
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithLogger sets the logger.
func WithLogger(l *Logger) PublisherOption {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) PublisherOption {
	return func(p *Publisher) {
		if m != nil {
			p.metrics = m
		}
	}
}

// NewPublisher creates a Publisher over nc. A nil nc is allowed and yields a
// disabled publisher.
func NewPublisher(nc *nats.Conn, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		nc:     nc,
		logger: NewLogger(nil),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials NATS with the retry posture the daemon uses everywhere.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// Enabled reports whether events will actually be published.
func (p *Publisher) Enabled() bool {
	return p != nil && p.nc != nil
}

// TurnStarted publishes a turn_started event. Resumed distinguishes a fresh
// turn from one re-entering after clarification.
func (p *Publisher) TurnStarted(ctx context.Context, threadID string, resumed bool) {
	p.publish(ctx, Event{Event: EventTurnStarted, ThreadID: threadID, Resumed: resumed})
}

// NodeCompleted publishes a node_completed event after each node handler.
func (p *Publisher) NodeCompleted(ctx context.Context, threadID, node string, iteration int) {
	p.publish(ctx, Event{Event: EventNodeCompleted, ThreadID: threadID, Node: node, Iteration: iteration})
}

// ClarificationRequested publishes the questions a paused thread waits on.
func (p *Publisher) ClarificationRequested(ctx context.Context, threadID, fromNode string, questions []protocol.Question) {
	p.publish(ctx, Event{Event: EventClarificationRequested, ThreadID: threadID, FromNode: fromNode, Questions: questions})
}

// TurnCompleted publishes a turn_completed event.
func (p *Publisher) TurnCompleted(ctx context.Context, threadID string) {
	p.publish(ctx, Event{Event: EventTurnCompleted, ThreadID: threadID})
}

// TurnFailed publishes a turn_failed event with the failure reason.
func (p *Publisher) TurnFailed(ctx context.Context, threadID, reason string) {
	p.publish(ctx, Event{Event: EventTurnFailed, ThreadID: threadID, Reason: reason})
}

// publish is best effort: failures are logged and counted, never returned.
func (p *Publisher) publish(ctx context.Context, ev Event) {
	if !p.Enabled() {
		return
	}
	ev.Timestamp = p.now().UTC()

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.PublishFailed(ctx, ev.ThreadID, ev.Event, err)
		p.metrics.RecordPublish(ctx, ev.Event, err)
		return
	}

	if err := p.nc.Publish(Subject(ev.ThreadID, ev.Event), data); err != nil {
		p.logger.PublishFailed(ctx, ev.ThreadID, ev.Event, err)
		p.metrics.RecordPublish(ctx, ev.Event, err)
		return
	}

	p.logger.Published(ctx, ev.ThreadID, ev.Event)
	p.metrics.RecordPublish(ctx, ev.Event, nil)
}
