// Package condense implements progressive context condensation for AI agent
// conversations.
//
// Long-running agent workflows produce far more conversational history than
// fits in a single LLM context window. This package keeps that history in a
// four-layer store and produces token-budgeted condensed views on demand, so
// every prompt the workflow builds stays inside its context budget.
//
// # Core Concepts
//
// Fragment: An immutable unit of condensable history (a decision, an action,
// a result, a learning, a dependency, or free-form metadata). Each fragment
// carries an importance score in [0,1] and a token estimate derived from its
// content length.
//
// Layer: A bounded bucket of fragments. Four layers exist, immediate through
// long_term, forming a coarse recency/importance hierarchy. A fragment's kind
// and importance select its layer at insertion time. Each layer enforces its
// own retention policy immediately after every insertion: fragments past the
// layer's maximum age are dropped first, then the least important (oldest
// first on ties) are evicted until the layer is back under its item cap.
//
// Session trail: Independently of per-layer eviction, every accepted fragment
// is appended to a flat session list that is never pruned. It records true
// insertion order for the lifetime of the manager and serves audit and
// debugging.
//
// Condensation: Condensed assembles a Summary from the layers under a hard
// token budget using one of four strategies (recent, important, balanced,
// comprehensive). The summary never exceeds the budget; when nothing fits the
// summary is empty rather than an error. A zero or negative budget is a
// programming error and is rejected with ErrInvalidBudget.
//
// # Usage
//
//	cfg := condense.DefaultConfig()
//	mgr, err := condense.NewManager(cfg)
//	if err != nil {
//	    return err
//	}
//
//	id, err := mgr.AddFragment(ctx, condense.AddFragmentRequest{
//	    Content: "use the existing repository layer for persistence",
//	    Kind:    condense.KindDecision,
//	    Source:  "planner",
//	})
//
//	summary, err := mgr.Condensed(ctx, condense.StrategyBalanced)
//	prompt := summary.Render()
//
// All operations are safe for concurrent use.
package condense
