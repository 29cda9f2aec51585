package condense

import (
	"testing"
	"time"
)

func TestStrategyValid(t *testing.T) {
	for _, s := range AllStrategies() {
		if !s.Valid() {
			t.Errorf("Strategy(%q).Valid() = false, want true", s)
		}
	}
	for _, s := range []Strategy{"", "newest", "Recent"} {
		if s.Valid() {
			t.Errorf("Strategy(%q).Valid() = true, want false", s)
		}
	}
}

func lf(id string, layer LayerName, importance float64, tokens int, createdAt time.Time) layeredFragment {
	return layeredFragment{
		frag: &Fragment{
			ID:            id,
			Kind:          KindMetadata,
			Content:       id,
			CreatedAt:     createdAt,
			Importance:    importance,
			TokenEstimate: tokens,
			Source:        "test",
		},
		layer: layer,
	}
}

func selectedIDs(frags []layeredFragment) []string {
	ids := make([]string, 0, len(frags))
	for _, f := range frags {
		ids = append(ids, f.frag.ID)
	}
	return ids
}

func assertIDs(t *testing.T, got []layeredFragment, want ...string) {
	t.Helper()
	ids := selectedIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("selected = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("selected = %v, want %v", ids, want)
		}
	}
}

func TestSelectRecent(t *testing.T) {
	base := time.Now()
	all := []layeredFragment{
		lf("oldest", LayerImmediate, 0.9, 10, base.Add(-3*time.Minute)),
		lf("middle", LayerShortTerm, 0.1, 10, base.Add(-2*time.Minute)),
		lf("newest", LayerLongTerm, 0.5, 10, base.Add(-1*time.Minute)),
	}

	got := selectFragments(StrategyRecent, all, 20)
	assertIDs(t, got, "newest", "middle")
}

func TestSelectImportant(t *testing.T) {
	base := time.Now()
	all := []layeredFragment{
		lf("low", LayerImmediate, 0.2, 10, base.Add(-3*time.Minute)),
		lf("high", LayerShortTerm, 0.9, 10, base.Add(-2*time.Minute)),
		lf("mid", LayerLongTerm, 0.5, 10, base.Add(-1*time.Minute)),
	}

	got := selectFragments(StrategyImportant, all, 20)
	assertIDs(t, got, "high", "mid")
}

func TestSelectComprehensiveLayerOrder(t *testing.T) {
	base := time.Now()
	all := []layeredFragment{
		lf("imm", LayerImmediate, 0.1, 10, base.Add(-1*time.Minute)),
		lf("short", LayerShortTerm, 0.9, 10, base.Add(-4*time.Minute)),
		lf("med", LayerMediumTerm, 0.5, 10, base.Add(-2*time.Minute)),
		lf("long", LayerLongTerm, 0.7, 10, base.Add(-3*time.Minute)),
	}

	got := selectFragments(StrategyComprehensive, all, 30)
	assertIDs(t, got, "imm", "short", "med")
}

func TestSelectBalancedPerLayerShare(t *testing.T) {
	base := time.Now()
	// Budget 40 gives each layer a share of 10: one fragment per layer, the
	// most important one.
	all := []layeredFragment{
		lf("imm-low", LayerImmediate, 0.1, 10, base),
		lf("imm-high", LayerImmediate, 0.9, 10, base),
		lf("short", LayerShortTerm, 0.5, 10, base),
		lf("med-a", LayerMediumTerm, 0.4, 10, base),
		lf("med-b", LayerMediumTerm, 0.6, 10, base),
		lf("long", LayerLongTerm, 0.5, 10, base),
	}

	got := selectFragments(StrategyBalanced, all, 40)
	assertIDs(t, got, "imm-high", "short", "med-b", "long")
}

func TestSelectBalancedShareNotRedistributed(t *testing.T) {
	base := time.Now()
	// Only the immediate layer has fragments; it gets budget/4, not the
	// whole budget.
	all := []layeredFragment{
		lf("a", LayerImmediate, 0.9, 10, base),
		lf("b", LayerImmediate, 0.8, 10, base),
		lf("c", LayerImmediate, 0.7, 10, base),
	}

	got := selectFragments(StrategyBalanced, all, 80)
	assertIDs(t, got, "a", "b")
}

func TestGreedyStopsAtFirstMisfit(t *testing.T) {
	base := time.Now()
	all := []layeredFragment{
		lf("big", LayerImmediate, 0.9, 100, base),
		lf("small", LayerImmediate, 0.1, 5, base.Add(-time.Minute)),
	}

	// The first candidate exceeds the budget, so nothing is selected even
	// though a later fragment would fit.
	got := greedy(all, 50)
	if len(got) != 0 {
		t.Errorf("greedy selected %v, want none", selectedIDs(got))
	}
}

func TestStrategiesNeverExceedBudget(t *testing.T) {
	base := time.Now()
	var all []layeredFragment
	layers := LayerOrder()
	for i := 0; i < 40; i++ {
		all = append(all, lf(
			string(rune('a'+i%26)),
			layers[i%len(layers)],
			float64(i%10)/10,
			5+i%17,
			base.Add(-time.Duration(i)*time.Minute),
		))
	}

	for _, strategy := range AllStrategies() {
		for _, budget := range []int{1, 10, 50, 200, 10000} {
			got := selectFragments(strategy, all, budget)
			total := 0
			for _, f := range got {
				total += f.frag.TokenEstimate
			}
			if total > budget {
				t.Errorf("strategy %q budget %d: selected %d tokens", strategy, budget, total)
			}
		}
	}
}

func TestBuildSummaryBuckets(t *testing.T) {
	base := time.Now()
	selected := []layeredFragment{
		lf("imm", LayerImmediate, 0.1, 5, base),
		lf("short", LayerShortTerm, 0.5, 5, base),
		lf("med", LayerMediumTerm, 0.5, 5, base),
		lf("long", LayerLongTerm, 0.5, 5, base),
	}

	s := buildSummary(StrategyComprehensive, selected, 100)
	if len(s.ShortTermMemory) != 2 {
		t.Errorf("ShortTermMemory = %v, want immediate folded into short term", s.ShortTermMemory)
	}
	if len(s.MediumTermMemory) != 1 || len(s.LongTermMemory) != 1 {
		t.Errorf("buckets = %v / %v, want one each", s.MediumTermMemory, s.LongTermMemory)
	}
	if s.TokenBudgetRemaining != 80 {
		t.Errorf("TokenBudgetRemaining = %d, want 80", s.TokenBudgetRemaining)
	}
	if s.Strategy != StrategyComprehensive {
		t.Errorf("Strategy = %q, want %q", s.Strategy, StrategyComprehensive)
	}
}
