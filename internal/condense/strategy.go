package condense

import (
	"sort"
)

// Strategy selects how fragments are chosen into a condensed summary.
type Strategy string

const (
	// StrategyRecent favors the newest fragments across all layers.
	StrategyRecent Strategy = "recent"
	// StrategyImportant favors the highest-importance fragments across all layers.
	StrategyImportant Strategy = "important"
	// StrategyBalanced splits the budget evenly across the four layers and
	// fills each share by importance.
	StrategyBalanced Strategy = "balanced"
	// StrategyComprehensive fills in layer-declaration order, insertion order
	// within each layer, ignoring importance.
	StrategyComprehensive Strategy = "comprehensive"
)

// AllStrategies returns every valid strategy.
func AllStrategies() []Strategy {
	return []Strategy{StrategyRecent, StrategyImportant, StrategyBalanced, StrategyComprehensive}
}

// Valid reports whether s is a recognized strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyRecent, StrategyImportant, StrategyBalanced, StrategyComprehensive:
		return true
	}
	return false
}

// layeredFragment pairs a fragment with its source layer for selection and
// summary bucketing.
type layeredFragment struct {
	frag  *Fragment
	layer LayerName
}

// selectFragments picks fragments under the token budget according to the
// strategy. The input must be in layer-declaration order with insertion
// order preserved within each layer; it is never reordered in place.
func selectFragments(strategy Strategy, all []layeredFragment, budget int) []layeredFragment {
	switch strategy {
	case StrategyRecent:
		return selectRecent(all, budget)
	case StrategyImportant:
		return selectImportant(all, budget)
	case StrategyBalanced:
		return selectBalanced(all, budget)
	case StrategyComprehensive:
		return greedy(all, budget)
	}
	return nil
}

func selectRecent(all []layeredFragment, budget int) []layeredFragment {
	frags := make([]layeredFragment, len(all))
	copy(frags, all)
	sort.SliceStable(frags, func(i, j int) bool {
		return frags[i].frag.CreatedAt.After(frags[j].frag.CreatedAt)
	})
	return greedy(frags, budget)
}

func selectImportant(all []layeredFragment, budget int) []layeredFragment {
	frags := make([]layeredFragment, len(all))
	copy(frags, all)
	sortByImportance(frags)
	return greedy(frags, budget)
}

// selectBalanced gives each layer an equal share of the budget and fills
// each share by importance. Unused share from one layer is not redistributed
// to the others.
func selectBalanced(all []layeredFragment, budget int) []layeredFragment {
	share := budget / len(LayerOrder())
	var out []layeredFragment
	for _, name := range LayerOrder() {
		var group []layeredFragment
		for _, lf := range all {
			if lf.layer == name {
				group = append(group, lf)
			}
		}
		sortByImportance(group)
		out = append(out, greedy(group, share)...)
	}
	return out
}

// sortByImportance orders by importance descending, newest first on ties.
func sortByImportance(frags []layeredFragment) {
	sort.SliceStable(frags, func(i, j int) bool {
		a, b := frags[i].frag, frags[j].frag
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// greedy takes fragments in order while they fit the remaining budget,
// stopping at the first fragment that does not fit. If even the first
// candidate exceeds the budget the result is empty.
func greedy(frags []layeredFragment, budget int) []layeredFragment {
	var out []layeredFragment
	remaining := budget
	for _, lf := range frags {
		if lf.frag.TokenEstimate > remaining {
			break
		}
		out = append(out, lf)
		remaining -= lf.frag.TokenEstimate
	}
	return out
}

// buildSummary buckets selected fragments by source layer. The immediate
// layer folds into the short-term bucket.
func buildSummary(strategy Strategy, selected []layeredFragment, budget int) *Summary {
	s := &Summary{
		Strategy:             strategy,
		TokenBudgetRemaining: budget,
	}
	for _, lf := range selected {
		s.TokenBudgetRemaining -= lf.frag.TokenEstimate
		switch lf.layer {
		case LayerMediumTerm:
			s.MediumTermMemory = append(s.MediumTermMemory, lf.frag.Content)
		case LayerLongTerm:
			s.LongTermMemory = append(s.LongTermMemory, lf.frag.Content)
		default:
			s.ShortTermMemory = append(s.ShortTermMemory, lf.frag.Content)
		}
	}
	return s
}
