package condense

import (
	"time"
)

// layer is one bounded bucket of fragments in insertion order. Methods are
// not safe for concurrent use; the manager serializes access.
type layer struct {
	name  LayerName
	cfg   LayerConfig
	items []*Fragment
}

func newLayer(name LayerName, cfg LayerConfig) *layer {
	return &layer{name: name, cfg: cfg}
}

// add appends a fragment without applying retention.
func (l *layer) add(f *Fragment) {
	l.items = append(l.items, f)
}

// retain enforces the layer's retention policy: fragments past the layer's
// age bound are removed first, then the least important (oldest first on
// ties) are evicted until the layer is back under its item cap. Returns the
// number removed by age and by capacity.
func (l *layer) retain(now time.Time) (byAge, byCapacity int) {
	if l.cfg.MaxAge > 0 {
		byAge = l.sweep(l.cfg.MaxAge, now)
	}
	for l.cfg.MaxItems > 0 && len(l.items) > l.cfg.MaxItems {
		l.evictLowest()
		byCapacity++
	}
	return byAge, byCapacity
}

// sweep removes fragments older than maxAge and returns how many were
// removed. A maxAge of zero or less removes everything.
func (l *layer) sweep(maxAge time.Duration, now time.Time) int {
	if maxAge <= 0 {
		removed := len(l.items)
		l.items = nil
		return removed
	}
	kept := make([]*Fragment, 0, len(l.items))
	for _, f := range l.items {
		if f.Age(now) > maxAge {
			continue
		}
		kept = append(kept, f)
	}
	removed := len(l.items) - len(kept)
	l.items = kept
	return removed
}

// evictLowest removes the fragment with the lowest (importance, created_at)
// pair, preserving insertion order of the remainder.
func (l *layer) evictLowest() *Fragment {
	if len(l.items) == 0 {
		return nil
	}
	lowest := 0
	for i := 1; i < len(l.items); i++ {
		f, low := l.items[i], l.items[lowest]
		if f.Importance < low.Importance ||
			(f.Importance == low.Importance && f.CreatedAt.Before(low.CreatedAt)) {
			lowest = i
		}
	}
	evicted := l.items[lowest]
	l.items = append(l.items[:lowest], l.items[lowest+1:]...)
	return evicted
}

// stats reports the layer's current item and token counts.
func (l *layer) stats() LayerStats {
	s := LayerStats{Items: len(l.items)}
	for _, f := range l.items {
		s.Tokens += f.TokenEstimate
	}
	return s
}
