package orchestrator

// Routing decisions inspect only the WorkflowState, never the raw
// collaborator messages. Each agent node has exactly one routing function,
// and a pending clarification always wins.

// routeFromPlanner decides the node after a planner visit.
func routeFromPlanner(s *WorkflowState) Node {
	if s.NeedsClarification {
		return NodeClarification
	}
	return NodeExecutor
}

// routeFromExecutor decides the node after an executor visit. Executor
// failures are recorded into the state as output, so they flow to the
// reviewer like any other result.
func routeFromExecutor(s *WorkflowState) Node {
	if s.NeedsClarification {
		return NodeClarification
	}
	return NodeReviewer
}

// routeFromReviewer decides the node after a reviewer visit. Another
// iteration runs only when the review asks for one, scores below the
// quality threshold, and the iteration cap has not been reached. The cap
// check uses the already-incremented count, so a turn performs at most
// cfg.MaxIterations executor visits.
func routeFromReviewer(s *WorkflowState, cfg *Config) Node {
	if s.NeedsClarification {
		return NodeClarification
	}
	r := s.ReviewResult
	if r != nil && r.NeedsIteration && r.QualityScore < cfg.QualityThreshold && s.IterationCount < cfg.MaxIterations {
		return NodeExecutor
	}
	return NodeFormatter
}

// routeAfter dispatches to the per-node routing function. The terminal
// nodes never route anywhere; the engine stops before asking.
func routeAfter(node Node, s *WorkflowState, cfg *Config) Node {
	switch node {
	case NodePlanner:
		return routeFromPlanner(s)
	case NodeExecutor:
		return routeFromExecutor(s)
	case NodeReviewer:
		return routeFromReviewer(s, cfg)
	default:
		return NodeFormatter
	}
}
