package labels

import (
	"fmt"
	"sort"
)

// Kind names a recommended action on one or two labels.
type Kind string

const (
	KindMerge   Kind = "MERGE"
	KindFix     Kind = "FIX"
	KindReview  Kind = "REVIEW"
	KindCleanup Kind = "CLEANUP"
	KindSplit   Kind = "SPLIT"
)

// Recommendation is one ranked action. A label may appear in several
// recommendations; each rule fires independently.
type Recommendation struct {
	Kind   Kind     `json:"kind"`
	Labels []string `json:"labels"`
	// Impact estimates how much mailbox the action touches, derived from
	// affected message count and the magnitude of the driving metric.
	Impact    float64 `json:"impact"`
	Rationale string  `json:"rationale"`
}

// Config holds the recommendation thresholds, all overridable per run.
type Config struct {
	// CoherenceFloor marks a label too broad when its coherence falls
	// below it.
	CoherenceFloor int
	// EngagementFloor (percentage points, usually negative) marks a label
	// whose read rate lags the inbox badly enough to re-triage.
	EngagementFloor float64
	// MinSize is the smallest label worth a REVIEW/FIX recommendation.
	MinSize int
	// LargeSize upgrades a low-coherence REVIEW to SPLIT.
	LargeSize int
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		CoherenceFloor:  40,
		EngagementFloor: -10,
		MinSize:         20,
		LargeSize:       50,
	}
}

// Recommend merges label metrics and overlap pairs into a single ranked
// action list, sorted by impact descending with a stable label-name tie
// break. Identical inputs always produce the identical list.
func Recommend(metrics []Metrics, overlaps []OverlapPair, cfg Config) []Recommendation {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	var recs []Recommendation

	for _, p := range overlaps {
		recs = append(recs, Recommendation{
			Kind:   KindMerge,
			Labels: []string{p.Source, p.Target},
			Impact: float64(p.Shared) * p.Ratio,
			Rationale: fmt.Sprintf(
				"%s and %s share %d messages (%.0f%% overlap); fold %s into %s",
				p.Source, p.Target, p.Shared, p.Ratio*100, p.Source, p.Target,
			),
		})
	}

	for _, m := range metrics {
		if m.Abandoned {
			recs = append(recs, Recommendation{
				Kind:      KindCleanup,
				Labels:    []string{m.Label},
				Impact:    1,
				Rationale: fmt.Sprintf("%s matched no messages in the window; remove it", m.Label),
			})
			continue
		}
		if m.Coherence < cfg.CoherenceFloor && m.Count >= cfg.MinSize {
			kind := KindReview
			verb := "review"
			if m.Count >= cfg.LargeSize {
				kind = KindSplit
				verb = "split"
			}
			recs = append(recs, Recommendation{
				Kind:   kind,
				Labels: []string{m.Label},
				Impact: float64(m.Count) * float64(cfg.CoherenceFloor-m.Coherence) / 100,
				Rationale: fmt.Sprintf(
					"%s spreads %d messages across %d senders (coherence %d); %s it",
					m.Label, m.Count, m.UniqueSenders, m.Coherence, verb,
				),
			})
		}
		if m.Engagement < cfg.EngagementFloor && m.Count >= cfg.MinSize {
			recs = append(recs, Recommendation{
				Kind:   KindFix,
				Labels: []string{m.Label},
				Impact: float64(m.Count) * (cfg.EngagementFloor - m.Engagement) / 100,
				Rationale: fmt.Sprintf(
					"%s reads %.0f points below the inbox average across %d messages; re-triage its filters",
					m.Label, -m.Engagement, m.Count,
				),
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Impact == recs[j].Impact {
			return recs[i].Labels[0] < recs[j].Labels[0]
		}
		return recs[i].Impact > recs[j].Impact
	})
	return recs
}
