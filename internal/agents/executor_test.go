package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/agentd/internal/llm"
	"github.com/fyrsmithlabs/agentd/internal/protocol"
)

func testPlan() *TaskPlan {
	return &TaskPlan{
		Description: "add a retry helper",
		Steps:       []string{"write helper", "use it in the client"},
		Mode:        ModeImplement,
	}
}

func TestExecutor_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("text output becomes execution_complete", func(t *testing.T) {
		gen := &llm.StaticGenerator{Response: "func retry() { ... }\n"}
		executor := NewExecutor(gen)

		msg := executor.Execute(ctx, ExecuteInput{Plan: testPlan()})
		require.Equal(t, protocol.TypeExecutionComplete, msg.Type)
		assert.Equal(t, RoleExecutor, msg.FromNode)
		assert.Equal(t, "func retry() { ... }", msg.Output)
		assert.Equal(t, 1, gen.Calls)
	})

	t.Run("questions become clarification_needed", func(t *testing.T) {
		gen := &llm.StaticGenerator{
			Response: `{"questions": ["Should the helper cap attempts?"]}`,
		}
		executor := NewExecutor(gen)

		msg := executor.Execute(ctx, ExecuteInput{Plan: testPlan()})
		require.Equal(t, protocol.TypeClarificationNeeded, msg.Type)
		assert.Equal(t, RoleExecutor, msg.FromNode)
	})

	t.Run("generator failure becomes error message", func(t *testing.T) {
		gen := &llm.StaticGenerator{Err: errors.New("timeout")}
		executor := NewExecutor(gen)

		msg := executor.Execute(ctx, ExecuteInput{Plan: testPlan()})
		require.Equal(t, protocol.TypeError, msg.Type)
		assert.Contains(t, msg.Err, "timeout")
	})

	t.Run("nil plan becomes error message", func(t *testing.T) {
		gen := &llm.StaticGenerator{Response: "anything"}
		executor := NewExecutor(gen)

		msg := executor.Execute(ctx, ExecuteInput{})
		require.Equal(t, protocol.TypeError, msg.Type)
		assert.Equal(t, 0, gen.Calls, "no generation call without a plan")
	})

	t.Run("whitespace output becomes error message", func(t *testing.T) {
		gen := &llm.StaticGenerator{Response: "   \n  "}
		executor := NewExecutor(gen)

		msg := executor.Execute(ctx, ExecuteInput{Plan: testPlan()})
		require.Equal(t, protocol.TypeError, msg.Type)
	})

	t.Run("plan and feedback reach the prompt", func(t *testing.T) {
		gen := &llm.StaticGenerator{Response: "done"}
		executor := NewExecutor(gen)

		executor.Execute(ctx, ExecuteInput{
			Plan:      testPlan(),
			Context:   "## Recent activity\n- wrote the helper skeleton",
			Feedback:  "handle context cancellation",
			Iteration: 1,
		})
		assert.Contains(t, gen.LastRequest.Prompt, "add a retry helper")
		assert.Contains(t, gen.LastRequest.Prompt, "1. write helper")
		assert.Contains(t, gen.LastRequest.Prompt, "wrote the helper skeleton")
		assert.Contains(t, gen.LastRequest.Prompt, "handle context cancellation")
	})
}
