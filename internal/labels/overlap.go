package labels

import (
	"sort"

	"github.com/mailsift/mailsift/internal/snapshot"
)

// DefaultOverlapThreshold is the Jaccard ratio at which a label pair is
// reported. Callers may override it per run.
const DefaultOverlapThreshold = 0.5

// OverlapPair is a pair of labels whose message sets overlap enough to
// suggest merging. Target is the proposed survivor.
type OverlapPair struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	Ratio        float64 `json:"ratio"` // Jaccard: |A∩B| / |A∪B|
	SourceCount  int     `json:"source_count"`
	TargetCount  int     `json:"target_count"`
	Shared       int     `json:"shared"`
	DeleteSource bool    `json:"delete_source"`
}

// DetectOverlaps compares every unordered pair of non-system labels and
// reports those whose Jaccard ratio meets the threshold. The larger label
// survives the proposed merge; equal counts break the tie by name, the
// lexicographically smaller name surviving. Quadratic in label count,
// which stays in the tens for real mailboxes.
func DetectOverlaps(snap *snapshot.Snapshot, ix *snapshot.Index, threshold float64) []OverlapPair {
	if threshold <= 0 {
		threshold = DefaultOverlapThreshold
	}

	var names []string
	for _, l := range snap.Labels {
		if !l.System {
			names = append(names, l.Name)
		}
	}
	sort.Strings(names)

	sets := make(map[string]map[string]bool, len(names))
	for _, name := range names {
		set := make(map[string]bool, len(ix.ByLabel[name]))
		for _, m := range ix.ByLabel[name] {
			set[m.ID] = true
		}
		sets[name] = set
	}

	var pairs []OverlapPair
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := names[i], names[j]
			setA, setB := sets[a], sets[b]
			if len(setA) == 0 || len(setB) == 0 {
				continue
			}
			shared := 0
			for id := range setA {
				if setB[id] {
					shared++
				}
			}
			union := len(setA) + len(setB) - shared
			ratio := float64(shared) / float64(union)
			if ratio < threshold {
				continue
			}

			source, target := a, b
			if len(setA) > len(setB) {
				source, target = b, a
			} else if len(setA) == len(setB) && a < b {
				// Equal size: the smaller name survives.
				source, target = b, a
			}
			pairs = append(pairs, OverlapPair{
				Source:       source,
				Target:       target,
				Ratio:        ratio,
				SourceCount:  len(sets[source]),
				TargetCount:  len(sets[target]),
				Shared:       shared,
				DeleteSource: ratio >= 0.95,
			})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Ratio == pairs[j].Ratio {
			if pairs[i].Target == pairs[j].Target {
				return pairs[i].Source < pairs[j].Source
			}
			return pairs[i].Target < pairs[j].Target
		}
		return pairs[i].Ratio > pairs[j].Ratio
	})
	return pairs
}
