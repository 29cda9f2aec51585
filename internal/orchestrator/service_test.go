package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/agentd/internal/agents"
	"github.com/fyrsmithlabs/agentd/internal/checkpoint"
	"github.com/fyrsmithlabs/agentd/internal/condense"
	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

// MockPlanner mocks the planner collaborator.
type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) Plan(ctx context.Context, in agents.PlanInput) *protocol.Message {
	args := m.Called(ctx, in)
	return args.Get(0).(*protocol.Message)
}

// MockExecutor mocks the executor collaborator.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, in agents.ExecuteInput) *protocol.Message {
	args := m.Called(ctx, in)
	return args.Get(0).(*protocol.Message)
}

// MockReviewer mocks the reviewer collaborator.
type MockReviewer struct {
	mock.Mock
}

func (m *MockReviewer) Review(ctx context.Context, in agents.ReviewInput) *protocol.Message {
	args := m.Called(ctx, in)
	return args.Get(0).(*protocol.Message)
}

// recordingEvents captures lifecycle events in order.
type recordingEvents struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEvents) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recordingEvents) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingEvents) TurnStarted(_ context.Context, _ string, resumed bool) {
	if resumed {
		r.record("turn_started:resumed")
		return
	}
	r.record("turn_started")
}

func (r *recordingEvents) NodeCompleted(_ context.Context, _ string, node string, _ int) {
	r.record("node_completed:" + node)
}

func (r *recordingEvents) ClarificationRequested(_ context.Context, _ string, fromNode string, _ []protocol.Question) {
	r.record("clarification_requested:" + fromNode)
}

func (r *recordingEvents) TurnCompleted(_ context.Context, _ string) {
	r.record("turn_completed")
}

func (r *recordingEvents) TurnFailed(_ context.Context, _ string, _ string) {
	r.record("turn_failed")
}

func planMsg(desc string, steps ...string) *protocol.Message {
	if len(steps) == 0 {
		steps = []string{"do the work"}
	}
	return protocol.NewExecutionComplete(agents.RolePlanner, &agents.TaskPlan{
		Description: desc,
		Steps:       steps,
		Mode:        agents.ModeImplement,
	}, nil)
}

func outputMsg(text string) *protocol.Message {
	return protocol.NewExecutionComplete(agents.RoleExecutor, text, nil)
}

func reviewMsg(score float64, iterate bool, feedback string, suggestions ...string) *protocol.Message {
	return protocol.NewExecutionComplete(agents.RoleReviewer, &agents.ReviewResult{
		QualityScore:   score,
		NeedsIteration: iterate,
		Feedback:       feedback,
		Suggestions:    suggestions,
	}, nil)
}

func questionMsg(fromNode string, questions ...string) *protocol.Message {
	qs := make([]protocol.Question, 0, len(questions))
	for _, q := range questions {
		qs = append(qs, protocol.Question{Question: q})
	}
	return protocol.NewClarificationNeeded(fromNode, qs, nil)
}

func newTestService(t *testing.T, planner PlannerAgent, executor ExecutorAgent, reviewer ReviewerAgent, opts ...ServiceOption) *Service {
	t.Helper()
	opts = append(opts, WithLogger(NewLogger(zaptest.NewLogger(t))))
	svc, err := NewService(planner, executor, reviewer, opts...)
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	t.Run("requires all collaborators", func(t *testing.T) {
		_, err := NewService(nil, &MockExecutor{}, &MockReviewer{})
		assert.Error(t, err)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		_, err := NewService(&MockPlanner{}, &MockExecutor{}, &MockReviewer{},
			WithConfig(&Config{MaxIterations: 0, QualityThreshold: 0.6}))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects invalid condense config", func(t *testing.T) {
		_, err := NewService(&MockPlanner{}, &MockExecutor{}, &MockReviewer{},
			WithCondenseConfig(&condense.Config{TokenBudget: -1}))
		assert.Error(t, err)
	})
}

// A well-behaved turn visits each collaborator exactly once and completes.
func TestService_Run_SimpleTurn(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.Anything).Return(planMsg("write a unit test for Add")).Once()
	executor.On("Execute", mock.Anything, mock.Anything).Return(outputMsg("func TestAdd(t *testing.T) { ... }")).Once()
	reviewer.On("Review", mock.Anything, mock.Anything).Return(reviewMsg(0.9, false, "solid coverage")).Once()

	svc := newTestService(t, planner, executor, reviewer)
	res, err := svc.Run(context.Background(), "", "write a unit test for Add", nil)

	require.NoError(t, err)
	assert.Equal(t, TurnComplete, res.Status)
	assert.NotEmpty(t, res.ThreadID, "a thread ID should be generated")
	assert.Contains(t, res.Output, "func TestAdd")
	assert.Contains(t, res.Output, "Quality score: 0.90")

	planner.AssertNumberOfCalls(t, "Plan", 1)
	executor.AssertNumberOfCalls(t, "Execute", 1)
	reviewer.AssertNumberOfCalls(t, "Review", 1)
}

// A planner clarification pauses the turn before the executor or reviewer
// ever run, and the checkpoint is durable before the result returns.
func TestService_Run_PlannerClarification(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.Anything).Return(questionMsg(agents.RolePlanner, "Which HTTP framework?")).Once()

	svc := newTestService(t, planner, executor, reviewer)
	res, err := svc.Run(context.Background(), "thread_clarify", "add an endpoint", nil)

	require.NoError(t, err)
	assert.Equal(t, TurnAwaitingClarification, res.Status)
	assert.Equal(t, "thread_clarify", res.ThreadID)
	assert.Equal(t, agents.RolePlanner, res.FromNode)
	require.Len(t, res.Questions, 1)
	assert.Equal(t, "q1", res.Questions[0].ID)
	assert.Contains(t, res.Message, "1. Which HTTP framework?")
	assert.Contains(t, res.Message, "resume the thread")

	planner.AssertNumberOfCalls(t, "Plan", 1)
	executor.AssertNumberOfCalls(t, "Execute", 0)
	reviewer.AssertNumberOfCalls(t, "Review", 0)

	cp, err := svc.Checkpoints().Load(context.Background(), "thread_clarify")
	require.NoError(t, err, "checkpoint should be persisted before the paused result returns")
	assert.Equal(t, "planner", cp.PausedNode)
	require.Len(t, cp.Questions, 1)
	assert.Equal(t, "Which HTTP framework?", cp.Questions[0].Question)
}

// Resume re-enters at the planner with the answers folded into its context,
// then the turn runs to completion and the checkpoint is cleared.
func TestService_Resume_CompletesThread(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.Anything).Return(questionMsg(agents.RolePlanner, "Which HTTP framework?")).Once()
	planner.On("Plan", mock.Anything, mock.MatchedBy(func(in agents.PlanInput) bool {
		return strings.Contains(in.Context, "Which HTTP framework?: echo")
	})).Return(planMsg("add an echo endpoint")).Once()
	executor.On("Execute", mock.Anything, mock.Anything).Return(outputMsg("e.GET(\"/health\", handler)")).Once()
	reviewer.On("Review", mock.Anything, mock.Anything).Return(reviewMsg(0.8, false, "")).Once()

	svc := newTestService(t, planner, executor, reviewer)
	ctx := context.Background()

	res, err := svc.Run(ctx, "thread_resume", "add an endpoint", nil)
	require.NoError(t, err)
	require.Equal(t, TurnAwaitingClarification, res.Status)

	res, err = svc.Resume(ctx, "thread_resume", map[string]string{"q1": "echo"})
	require.NoError(t, err)
	assert.Equal(t, TurnComplete, res.Status)
	assert.Contains(t, res.Output, "e.GET")

	planner.AssertNumberOfCalls(t, "Plan", 2)
	executor.AssertNumberOfCalls(t, "Execute", 1)
	reviewer.AssertNumberOfCalls(t, "Review", 1)

	_, err = svc.Checkpoints().Load(ctx, "thread_resume")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound, "completed threads should leave no checkpoint")
}

// An executor clarification resumes at the executor; the planner is not
// consulted again and the restored plan is reused.
func TestService_Resume_ReentersAtRequestingNode(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.Anything).Return(planMsg("rewrite the parser")).Once()
	executor.On("Execute", mock.Anything, mock.Anything).Return(questionMsg(agents.RoleExecutor, "Overwrite the legacy parser?")).Once()
	executor.On("Execute", mock.Anything, mock.MatchedBy(func(in agents.ExecuteInput) bool {
		return in.Plan != nil && in.Plan.Description == "rewrite the parser" &&
			strings.Contains(in.Context, "Overwrite the legacy parser?: yes")
	})).Return(outputMsg("parser rewritten")).Once()
	reviewer.On("Review", mock.Anything, mock.Anything).Return(reviewMsg(0.9, false, "")).Once()

	svc := newTestService(t, planner, executor, reviewer)
	ctx := context.Background()

	res, err := svc.Run(ctx, "thread_exec", "rewrite the parser", nil)
	require.NoError(t, err)
	require.Equal(t, TurnAwaitingClarification, res.Status)
	assert.Equal(t, agents.RoleExecutor, res.FromNode)

	res, err = svc.Resume(ctx, "thread_exec", map[string]string{"q1": "yes"})
	require.NoError(t, err)
	assert.Equal(t, TurnComplete, res.Status)

	planner.AssertNumberOfCalls(t, "Plan", 1)
	executor.AssertNumberOfCalls(t, "Execute", 2)
	reviewer.AssertNumberOfCalls(t, "Review", 1)
}

// A low score with needs_iteration runs the executor again with the review
// feedback; the second, passing review ends the turn.
func TestService_Run_ReviewIteration(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.Anything).Return(planMsg("fix the bug")).Once()
	executor.On("Execute", mock.Anything, mock.MatchedBy(func(in agents.ExecuteInput) bool {
		return in.Iteration == 0 && in.Feedback == ""
	})).Return(outputMsg("first attempt")).Once()
	executor.On("Execute", mock.Anything, mock.MatchedBy(func(in agents.ExecuteInput) bool {
		return in.Iteration == 1 && in.Feedback == "missing error handling"
	})).Return(outputMsg("second attempt with error handling")).Once()
	reviewer.On("Review", mock.Anything, mock.Anything).Return(reviewMsg(0.5, true, "missing error handling")).Once()
	reviewer.On("Review", mock.Anything, mock.Anything).Return(reviewMsg(0.9, false, "")).Once()

	svc := newTestService(t, planner, executor, reviewer)
	res, err := svc.Run(context.Background(), "", "fix the bug", nil)

	require.NoError(t, err)
	assert.Equal(t, TurnComplete, res.Status)
	assert.Contains(t, res.Output, "second attempt with error handling")
	assert.Contains(t, res.Output, "after 2 review iterations")

	planner.AssertNumberOfCalls(t, "Plan", 1)
	executor.AssertNumberOfCalls(t, "Execute", 2)
	reviewer.AssertNumberOfCalls(t, "Review", 2)
}

// The iteration cap ends the loop even when every review demands another
// pass.
func TestService_Run_IterationCap(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.Anything).Return(planMsg("impossible task")).Once()
	executor.On("Execute", mock.Anything, mock.Anything).Return(outputMsg("an attempt")).Times(3)
	reviewer.On("Review", mock.Anything, mock.Anything).Return(reviewMsg(0.2, true, "still wrong")).Times(3)

	svc := newTestService(t, planner, executor, reviewer)
	res, err := svc.Run(context.Background(), "", "do the impossible", nil)

	require.NoError(t, err)
	assert.Equal(t, TurnComplete, res.Status)
	assert.Contains(t, res.Output, "Quality score: 0.20")

	executor.AssertNumberOfCalls(t, "Execute", 3)
	reviewer.AssertNumberOfCalls(t, "Review", 3)
}

// Executor failures become output the reviewer sees and the formatter
// surfaces; the turn still completes.
func TestService_Run_ExecutorFailureSurfaced(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.Anything).Return(planMsg("deploy the service")).Once()
	executor.On("Execute", mock.Anything, mock.Anything).
		Return(protocol.NewError(agents.RoleExecutor, "execution failed: provider down", nil)).Once()
	reviewer.On("Review", mock.Anything, mock.MatchedBy(func(in agents.ReviewInput) bool {
		return strings.Contains(in.Output, "provider down")
	})).Return(reviewMsg(0.3, false, "output is an error")).Once()

	svc := newTestService(t, planner, executor, reviewer)
	res, err := svc.Run(context.Background(), "", "deploy the service", nil)

	require.NoError(t, err, "collaborator failures must not fail the turn")
	assert.Equal(t, TurnComplete, res.Status)
	assert.Contains(t, res.Output, "Error: execution failed: provider down")

	reviewer.AssertNumberOfCalls(t, "Review", 1)
}

// A planner failure flows through the rest of the graph and is listed in
// the final response.
func TestService_Run_PlannerFailureSurfaced(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.Anything).
		Return(protocol.NewError(agents.RolePlanner, "planning failed: provider down", nil)).Once()
	executor.On("Execute", mock.Anything, mock.MatchedBy(func(in agents.ExecuteInput) bool {
		return in.Plan == nil
	})).Return(protocol.NewError(agents.RoleExecutor, "no task plan to execute", nil)).Once()
	reviewer.On("Review", mock.Anything, mock.Anything).Return(reviewMsg(0.1, false, "nothing to review")).Once()

	svc := newTestService(t, planner, executor, reviewer)
	res, err := svc.Run(context.Background(), "", "do something", nil)

	require.NoError(t, err)
	assert.Equal(t, TurnComplete, res.Status)
	assert.Contains(t, res.Output, "planner: planning failed: provider down")
	assert.Contains(t, res.Output, "Error: no task plan to execute")
}

// A paused thread rejects new turns until it is resumed.
func TestService_Run_RejectsPausedThread(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.Anything).Return(questionMsg(agents.RolePlanner, "Which one?")).Once()

	svc := newTestService(t, planner, executor, reviewer)
	ctx := context.Background()

	_, err := svc.Run(ctx, "thread_busy", "first request", nil)
	require.NoError(t, err)

	_, err = svc.Run(ctx, "thread_busy", "second request", nil)
	assert.ErrorIs(t, err, ErrThreadPaused)
	planner.AssertNumberOfCalls(t, "Plan", 1) // the rejected turn must not reach the planner
}

func TestService_Resume_UnknownThread(t *testing.T) {
	svc := newTestService(t, &MockPlanner{}, &MockExecutor{}, &MockReviewer{})

	_, err := svc.Resume(context.Background(), "thread_ghost", map[string]string{"q1": "answer"})
	assert.ErrorIs(t, err, ErrThreadNotPaused)
}

func TestService_Run_InputValidation(t *testing.T) {
	svc := newTestService(t, &MockPlanner{}, &MockExecutor{}, &MockReviewer{})
	ctx := context.Background()

	_, err := svc.Run(ctx, "", "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = svc.Run(ctx, "../etc/passwd", "input", nil)
	assert.ErrorIs(t, err, ErrInvalidThreadID)

	_, err = svc.Resume(ctx, "", map[string]string{"q1": "a"})
	assert.ErrorIs(t, err, ErrInvalidThreadID)
}

// A paused thread survives a process restart when backed by a file store: a
// fresh service over the same directory can resume it.
func TestService_Resume_AcrossRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store1, err := checkpoint.NewFileStore(dir)
	require.NoError(t, err)

	planner1 := &MockPlanner{}
	planner1.On("Plan", mock.Anything, mock.Anything).Return(questionMsg(agents.RolePlanner, "Which database?")).Once()
	svc1 := newTestService(t, planner1, &MockExecutor{}, &MockReviewer{}, WithCheckpointStore(store1))

	res, err := svc1.Run(ctx, "thread_restart", "add persistence", nil)
	require.NoError(t, err)
	require.Equal(t, TurnAwaitingClarification, res.Status)
	require.NoError(t, store1.Close())

	// New process: new store over the same directory, new collaborators.
	store2, err := checkpoint.NewFileStore(dir)
	require.NoError(t, err)

	planner2 := &MockPlanner{}
	executor2 := &MockExecutor{}
	reviewer2 := &MockReviewer{}
	planner2.On("Plan", mock.Anything, mock.MatchedBy(func(in agents.PlanInput) bool {
		return strings.Contains(in.Context, "Which database?: sqlite") && in.UserInput == "add persistence"
	})).Return(planMsg("add sqlite persistence")).Once()
	executor2.On("Execute", mock.Anything, mock.Anything).Return(outputMsg("wired up sqlite")).Once()
	reviewer2.On("Review", mock.Anything, mock.Anything).Return(reviewMsg(0.85, false, "")).Once()

	svc2 := newTestService(t, planner2, executor2, reviewer2, WithCheckpointStore(store2))

	res, err = svc2.Resume(ctx, "thread_restart", map[string]string{"q1": "sqlite"})
	require.NoError(t, err)
	assert.Equal(t, TurnComplete, res.Status)
	assert.Contains(t, res.Output, "wired up sqlite")
}

// Distinct threads run concurrently without interference.
func TestService_Run_ConcurrentThreads(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.Anything).Return(planMsg("shared task"))
	executor.On("Execute", mock.Anything, mock.Anything).Return(outputMsg("done"))
	reviewer.On("Review", mock.Anything, mock.Anything).Return(reviewMsg(0.9, false, ""))

	svc := newTestService(t, planner, executor, reviewer)
	ctx := context.Background()

	const threads = 4
	var wg sync.WaitGroup
	errs := make([]error, threads)
	results := make([]*TurnResult, threads)

	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Run(ctx, fmt.Sprintf("thread_c%d", i), "shared task", nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < threads; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, TurnComplete, results[i].Status)
		assert.Equal(t, fmt.Sprintf("thread_c%d", i), results[i].ThreadID)
	}
}

func TestService_Run_ContextCancelled(t *testing.T) {
	planner := &MockPlanner{}
	svc := newTestService(t, planner, &MockExecutor{}, &MockReviewer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, "thread_cancel", "never runs", nil)
	assert.ErrorIs(t, err, context.Canceled)
	planner.AssertNumberOfCalls(t, "Plan", 0)
}

// Caller-supplied metadata is rendered into collaborator prompts.
func TestService_Run_MetadataInPrompt(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.MatchedBy(func(in agents.PlanInput) bool {
		return strings.Contains(in.Context, "repo: agentd")
	})).Return(planMsg("task")).Once()
	executor.On("Execute", mock.Anything, mock.Anything).Return(outputMsg("done")).Once()
	reviewer.On("Review", mock.Anything, mock.Anything).Return(reviewMsg(0.9, false, "")).Once()

	svc := newTestService(t, planner, executor, reviewer)
	_, err := svc.Run(context.Background(), "", "task", map[string]any{"repo": "agentd"})

	require.NoError(t, err)
	planner.AssertExpectations(t)
}

// Each node records fragments into the thread's session context.
func TestService_SessionContext(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.Anything).Return(planMsg("build the cache")).Once()
	executor.On("Execute", mock.Anything, mock.Anything).Return(outputMsg("cache built with LRU eviction")).Once()
	reviewer.On("Review", mock.Anything, mock.Anything).Return(reviewMsg(0.9, false, "")).Once()

	svc := newTestService(t, planner, executor, reviewer)
	ctx := context.Background()

	_, err := svc.Run(ctx, "thread_ctx", "build the cache", nil)
	require.NoError(t, err)

	stats, err := svc.SessionStats(ctx, "thread_ctx")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.SessionItems, "plan, action, result, and review fragments")

	summary, err := svc.SessionContext(ctx, "thread_ctx", condense.StrategyBalanced)
	require.NoError(t, err)
	assert.Contains(t, summary.Render(), "Plan (implement): build the cache")

	_, err = svc.SessionContext(ctx, "thread_nope", condense.StrategyBalanced)
	assert.ErrorIs(t, err, ErrUnknownThread)

	_, err = svc.SessionContext(ctx, "thread_ctx", condense.Strategy("bogus"))
	assert.ErrorIs(t, err, condense.ErrUnknownStrategy)
}

func TestService_ActiveSessions(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.Anything).Return(planMsg("task"))
	executor.On("Execute", mock.Anything, mock.Anything).Return(outputMsg("done"))
	reviewer.On("Review", mock.Anything, mock.Anything).Return(reviewMsg(0.9, false, ""))

	svc := newTestService(t, planner, executor, reviewer)
	ctx := context.Background()

	assert.Equal(t, 0, svc.ActiveSessions())

	_, err := svc.Run(ctx, "thread_a", "task", nil)
	require.NoError(t, err)
	_, err = svc.Run(ctx, "thread_b", "task", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, svc.ActiveSessions())

	// A repeat turn on an existing thread reuses its session.
	_, err = svc.Run(ctx, "thread_a", "task", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.ActiveSessions())
}

func TestService_EventsEmitted(t *testing.T) {
	planner := &MockPlanner{}
	executor := &MockExecutor{}
	reviewer := &MockReviewer{}

	planner.On("Plan", mock.Anything, mock.Anything).Return(planMsg("task")).Once()
	executor.On("Execute", mock.Anything, mock.Anything).Return(outputMsg("done")).Once()
	reviewer.On("Review", mock.Anything, mock.Anything).Return(reviewMsg(0.9, false, "")).Once()

	rec := &recordingEvents{}
	svc := newTestService(t, planner, executor, reviewer, WithEvents(rec))

	_, err := svc.Run(context.Background(), "thread_ev", "task", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"turn_started",
		"node_completed:planner",
		"node_completed:executor",
		"node_completed:reviewer",
		"node_completed:formatter",
		"turn_completed",
	}, rec.all())
}

func TestService_EventsOnClarification(t *testing.T) {
	planner := &MockPlanner{}
	planner.On("Plan", mock.Anything, mock.Anything).Return(questionMsg(agents.RolePlanner, "Which?")).Once()

	rec := &recordingEvents{}
	svc := newTestService(t, planner, &MockExecutor{}, &MockReviewer{}, WithEvents(rec))

	_, err := svc.Run(context.Background(), "thread_evc", "task", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"turn_started",
		"node_completed:planner",
		"node_completed:clarification",
		"clarification_requested:planner",
	}, rec.all())
}

func TestMergeAnswers(t *testing.T) {
	state := &WorkflowState{}
	questions := []protocol.Question{
		{ID: "q1", Question: "Which module?"},
		{ID: "q2", Question: "Keep the old tests?"},
	}

	mergeAnswers(state, questions, map[string]string{"q1": "condense", "q9": "stray answer"})

	assert.Equal(t, "condense", state.Answers["Which module?"], "answers should be keyed by question text")
	assert.Equal(t, "stray answer", state.Answers["q9"], "unmatched IDs pass through")
	assert.NotContains(t, state.Answers, "Keep the old tests?", "unanswered questions stay absent")
}
