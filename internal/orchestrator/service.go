package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fyrsmithlabs/agentd/internal/checkpoint"
	"github.com/fyrsmithlabs/agentd/internal/condense"
	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

// Events receives workflow lifecycle notifications. Implementations must be
// safe for concurrent use and must not block; the service calls them inline.
type Events interface {
	TurnStarted(ctx context.Context, threadID string, resumed bool)
	NodeCompleted(ctx context.Context, threadID, node string, iteration int)
	ClarificationRequested(ctx context.Context, threadID, fromNode string, questions []protocol.Question)
	TurnCompleted(ctx context.Context, threadID string)
	TurnFailed(ctx context.Context, threadID, reason string)
}

type nopEvents struct{}

func (nopEvents) TurnStarted(context.Context, string, bool) {}

func (nopEvents) NodeCompleted(context.Context, string, string, int) {}

func (nopEvents) ClarificationRequested(context.Context, string, string, []protocol.Question) {}

func (nopEvents) TurnCompleted(context.Context, string) {}

func (nopEvents) TurnFailed(context.Context, string, string) {}

// session is the per-thread working set: the condensation manager carrying
// cross-turn context and the mutex that serializes turns on the thread.
type session struct {
	mu      sync.Mutex
	manager *condense.Manager
}

// Service runs workflow turns and owns thread lifecycle: session context,
// clarification pauses, checkpointing, and resume.
type Service struct {
	engine      *engine
	cfg         *Config
	store       checkpoint.Store
	events      Events
	condenseCfg *condense.Config
	scrubber    condense.SecretScrubber
	logger      *Logger
	metrics     *Metrics

	mu       sync.Mutex
	sessions map[string]*session
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithConfig sets the workflow config. Defaults to DefaultConfig.
func WithConfig(cfg *Config) ServiceOption {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithCheckpointStore sets the store used to persist paused threads.
// Defaults to an in-memory store, which does not survive restarts.
func WithCheckpointStore(store checkpoint.Store) ServiceOption {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEvents sets the lifecycle event sink. Defaults to a no-op sink.
func WithEvents(ev Events) ServiceOption {
	return func(s *Service) {
		if ev != nil {
			s.events = ev
		}
	}
}

// WithCondenseConfig sets the per-session context condensation config.
func WithCondenseConfig(cfg *condense.Config) ServiceOption {
	return func(s *Service) {
		s.condenseCfg = cfg
	}
}

// WithScrubber sets the secret scrubber applied to session context.
func WithScrubber(sc condense.SecretScrubber) ServiceOption {
	return func(s *Service) {
		s.scrubber = sc
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets custom metrics.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewService creates a workflow service around the three agent
// collaborators.
func NewService(planner PlannerAgent, executor ExecutorAgent, reviewer ReviewerAgent, opts ...ServiceOption) (*Service, error) {
	if planner == nil || executor == nil || reviewer == nil {
		return nil, errors.New("planner, executor, and reviewer collaborators are required")
	}

	metrics, _ := NewMetrics(nil)
	s := &Service{
		cfg:      DefaultConfig(),
		store:    checkpoint.NewMemoryStore(),
		events:   nopEvents{},
		logger:   NewLogger(nil),
		metrics:  metrics,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if s.condenseCfg != nil {
		if err := s.condenseCfg.Validate(); err != nil {
			return nil, err
		}
	}

	s.engine = &engine{
		planner:  planner,
		executor: executor,
		reviewer: reviewer,
		cfg:      s.cfg,
		logger:   s.logger,
		metrics:  s.metrics,
	}
	return s, nil
}

// Config returns the service's workflow config.
func (s *Service) Config() *Config {
	return s.cfg
}

// Run executes one turn for the thread. An empty threadID starts a fresh
// thread with a generated ID. A thread that is paused awaiting clarification
// rejects new turns with ErrThreadPaused; Resume is the only way forward.
func (s *Service) Run(ctx context.Context, threadID, input string, meta map[string]any) (*TurnResult, error) {
	ctx, span := StartSpan(ctx, "orchestrator.run", attribute.String("thread_id", threadID))
	defer span.End()

	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}
	if threadID == "" {
		threadID = newThreadID()
	} else if !checkpoint.ValidThreadID(threadID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidThreadID, threadID)
	}

	sess, err := s.session(threadID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if _, err := s.store.Load(ctx, threadID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrThreadPaused, threadID)
	} else if !errors.Is(err, checkpoint.ErrNotFound) {
		return nil, fmt.Errorf("checking for pending clarification: %w", err)
	}

	state := NewWorkflowState(threadID, input, meta)
	s.events.TurnStarted(ctx, threadID, false)
	s.logger.TurnStarted(ctx, threadID, false)

	return s.finishTurn(ctx, sess, state, NodePlanner, "run", time.Now())
}

// Resume continues a paused thread with the user's answers. The turn
// re-enters the graph at the node that requested clarification. Missing or
// never-paused threads fail with ErrThreadNotPaused.
func (s *Service) Resume(ctx context.Context, threadID string, answers map[string]string) (*TurnResult, error) {
	ctx, span := StartSpan(ctx, "orchestrator.resume", attribute.String("thread_id", threadID))
	defer span.End()

	if threadID == "" || !checkpoint.ValidThreadID(threadID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidThreadID, threadID)
	}

	sess, err := s.session(threadID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	cp, err := s.store.Load(ctx, threadID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrThreadNotPaused, threadID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}

	var state WorkflowState
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return nil, fmt.Errorf("%w: corrupt workflow state for thread %s: %v", checkpoint.ErrInvalidCheckpoint, threadID, err)
	}
	entry := Node(cp.PausedNode)
	if !entry.resumable() {
		return nil, fmt.Errorf("%w: checkpoint for thread %s names unresumable node %q", checkpoint.ErrInvalidCheckpoint, threadID, cp.PausedNode)
	}

	mergeAnswers(&state, cp.Questions, answers)
	state.Status = StatusRunning
	state.NeedsClarification = false
	state.ClarificationFrom = ""
	state.ClarificationQuestions = nil
	state.ClarificationPrompt = ""

	if len(answers) > 0 && sess.manager != nil {
		if _, err := sess.manager.AddFragment(ctx, condense.AddFragmentRequest{
			Content:    answersFragment(state.Answers),
			Kind:       condense.KindDecision,
			Importance: 0.7,
			Source:     "user",
		}); err != nil {
			s.logger.FragmentSkipped(ctx, threadID, err)
		}
	}

	s.events.TurnStarted(ctx, threadID, true)
	s.logger.TurnStarted(ctx, threadID, true)

	return s.finishTurn(ctx, sess, &state, entry, "resume", time.Now())
}

// finishTurn drives the engine and translates the resulting state into a
// TurnResult. A paused turn is durably checkpointed before the result is
// returned; a completed turn clears any checkpoint left from earlier pauses.
func (s *Service) finishTurn(ctx context.Context, sess *session, state *WorkflowState, entry Node, mode string, start time.Time) (*TurnResult, error) {
	if err := s.engine.runTurn(ctx, state, sess.manager, entry, s.progressFunc(ctx)); err != nil {
		s.events.TurnFailed(ctx, state.ThreadID, err.Error())
		s.logger.TurnFailed(ctx, state.ThreadID, err)
		s.metrics.RecordTurn(ctx, mode, "failed", time.Since(start))
		RecordError(ctx, err)
		SetSpanStatus(ctx, codes.Error, "turn failed")
		return nil, err
	}

	switch state.Status {
	case StatusPaused:
		raw, err := json.Marshal(state)
		if err != nil {
			return nil, s.failTurn(ctx, state.ThreadID, mode, start, fmt.Errorf("encoding workflow state: %w", err))
		}
		cp := &checkpoint.Checkpoint{
			ThreadID:   state.ThreadID,
			PausedNode: state.ClarificationFrom,
			State:      raw,
			Questions:  state.ClarificationQuestions,
			Metadata:   map[string]string{"iteration_count": fmt.Sprintf("%d", state.IterationCount)},
		}
		if err := s.store.Save(ctx, cp); err != nil {
			return nil, s.failTurn(ctx, state.ThreadID, mode, start, fmt.Errorf("persisting clarification checkpoint: %w", err))
		}
		s.events.ClarificationRequested(ctx, state.ThreadID, state.ClarificationFrom, state.ClarificationQuestions)
		s.logger.TurnPaused(ctx, state.ThreadID, state.ClarificationFrom, len(state.ClarificationQuestions))
		s.metrics.RecordTurn(ctx, mode, "paused", time.Since(start))
		s.metrics.RecordClarification(ctx, state.ClarificationFrom)
		return &TurnResult{
			Status:    TurnAwaitingClarification,
			ThreadID:  state.ThreadID,
			FromNode:  state.ClarificationFrom,
			Questions: state.ClarificationQuestions,
			Message:   state.ClarificationPrompt,
		}, nil

	case StatusComplete:
		if err := s.store.Delete(ctx, state.ThreadID); err != nil && !errors.Is(err, checkpoint.ErrNotFound) {
			s.logger.CheckpointClearFailed(ctx, state.ThreadID, err)
		}
		s.events.TurnCompleted(ctx, state.ThreadID)
		s.logger.TurnCompleted(ctx, state.ThreadID, state.IterationCount, len(state.FinalResponse))
		s.metrics.RecordTurn(ctx, mode, "complete", time.Since(start))
		s.metrics.RecordIterations(ctx, state.IterationCount)
		return &TurnResult{
			Status:   TurnComplete,
			ThreadID: state.ThreadID,
			Output:   state.FinalResponse,
		}, nil

	default:
		return nil, s.failTurn(ctx, state.ThreadID, mode, start, fmt.Errorf("turn ended in unexpected status %q", state.Status))
	}
}

func (s *Service) failTurn(ctx context.Context, threadID, mode string, start time.Time, err error) error {
	s.events.TurnFailed(ctx, threadID, err.Error())
	s.logger.TurnFailed(ctx, threadID, err)
	s.metrics.RecordTurn(ctx, mode, "failed", time.Since(start))
	RecordError(ctx, err)
	SetSpanStatus(ctx, codes.Error, "turn failed")
	return err
}

func (s *Service) progressFunc(ctx context.Context) ProgressFunc {
	return func(p NodeProgress) {
		s.events.NodeCompleted(ctx, p.ThreadID, string(p.Node), p.Iteration)
	}
}

// SessionContext condenses the thread's session context under the given
// strategy. The thread must have run at least one turn in this process.
func (s *Service) SessionContext(ctx context.Context, threadID string, strategy condense.Strategy) (*condense.Summary, error) {
	sess, ok := s.lookup(threadID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownThread, threadID)
	}
	return sess.manager.Condensed(ctx, strategy)
}

// SessionStats reports layer occupancy for the thread's session context.
func (s *Service) SessionStats(ctx context.Context, threadID string) (condense.Stats, error) {
	sess, ok := s.lookup(threadID)
	if !ok {
		return condense.Stats{}, fmt.Errorf("%w: %s", ErrUnknownThread, threadID)
	}
	return sess.manager.Stats(), nil
}

// Checkpoints exposes the underlying checkpoint store for administrative
// surfaces.
func (s *Service) Checkpoints() checkpoint.Store {
	return s.store
}

// ActiveSessions reports how many threads hold a live session context in
// this process.
func (s *Service) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Service) lookup(threadID string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[threadID]
	return sess, ok
}

// session returns the thread's session, creating it on first use.
func (s *Service) session(threadID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[threadID]; ok {
		return sess, nil
	}

	opts := []condense.ManagerOption{}
	if s.scrubber != nil {
		opts = append(opts, condense.WithScrubber(s.scrubber))
	}
	mgr, err := condense.NewManager(s.condenseCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating session context manager: %w", err)
	}

	sess := &session{manager: mgr}
	s.sessions[threadID] = sess
	return sess, nil
}

// mergeAnswers folds user answers into the state, keying each answer by the
// question it answers so later prompts read naturally. Unmatched answer IDs
// are kept as-is.
func mergeAnswers(state *WorkflowState, questions []protocol.Question, answers map[string]string) {
	if len(answers) == 0 {
		return
	}
	if state.Answers == nil {
		state.Answers = make(map[string]string, len(answers))
	}
	byID := make(map[string]string, len(questions))
	for _, q := range questions {
		byID[q.ID] = q.Question
	}
	for id, ans := range answers {
		key := id
		if text, ok := byID[id]; ok && text != "" {
			key = text
		}
		state.Answers[key] = ans
	}
}

// answersFragment renders merged answers for the session context trail.
func answersFragment(answers map[string]string) string {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("User clarified:")
	for _, k := range keys {
		fmt.Fprintf(&b, " %s: %s.", k, answers[k])
	}
	return b.String()
}

func newThreadID() string {
	return "thread_" + uuid.New().String()[:8]
}
