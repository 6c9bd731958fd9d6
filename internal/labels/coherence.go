// Package labels assesses label quality: sender concentration, engagement
// relative to the inbox average, redundant pairs, and the prioritized
// recommendations derived from them.
package labels

import (
	"sort"

	"github.com/mailsift/mailsift/internal/snapshot"
)

// Metrics is the per-label quality assessment.
type Metrics struct {
	Label string `json:"label"`
	Count int    `json:"count"`
	// Coherence scales sender concentration to 0..100: the share of the
	// label's messages coming from its top-K senders.
	Coherence      int     `json:"coherence"`
	UniqueSenders  int     `json:"unique_senders"`
	TopSender      string  `json:"top_sender,omitempty"`
	TopSenderShare float64 `json:"top_sender_share"` // percent
	// Engagement is the label read-rate minus the inbox read-rate, in
	// percentage points. Negative means the label underperforms.
	Engagement float64 `json:"engagement"`
	Abandoned  bool    `json:"abandoned"`
}

// Analyzer computes label metrics from an aggregation index.
type Analyzer struct {
	// TopK is how many top senders count toward coherence.
	TopK int
}

const defaultTopK = 2

// Analyze computes metrics for one label. An abandoned label (no messages
// in the window) gets zero coherence and engagement rather than an error.
func (a Analyzer) Analyze(label snapshot.Label, ix *snapshot.Index) Metrics {
	msgs := ix.ByLabel[label.Name]
	m := Metrics{Label: label.Name, Count: len(msgs)}
	if len(msgs) == 0 {
		m.Abandoned = !label.System
		return m
	}

	perSender := map[string]int{}
	read := 0
	for _, msg := range msgs {
		perSender[msg.Sender]++
		if msg.Read {
			read++
		}
	}
	m.UniqueSenders = len(perSender)

	counts := make([]int, 0, len(perSender))
	top, topCount := "", 0
	for sender, n := range perSender {
		counts = append(counts, n)
		if n > topCount || (n == topCount && sender < top) {
			top, topCount = sender, n
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))

	k := a.TopK
	if k <= 0 {
		k = defaultTopK
	}
	topK := 0
	for i := 0; i < k && i < len(counts); i++ {
		topK += counts[i]
	}
	m.Coherence = topK * 100 / len(msgs)
	m.TopSender = top
	m.TopSenderShare = float64(topCount) / float64(len(msgs)) * 100

	labelRate := float64(read) / float64(len(msgs)) * 100
	m.Engagement = labelRate - ix.InboxReadRate()
	return m
}

// AnalyzeAll computes metrics for every non-system label, sorted by count
// descending with a name tie break.
func (a Analyzer) AnalyzeAll(snap *snapshot.Snapshot, ix *snapshot.Index) []Metrics {
	var out []Metrics
	for _, l := range snap.Labels {
		if l.System {
			continue
		}
		out = append(out, a.Analyze(l, ix))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Label < out[j].Label
		}
		return out[i].Count > out[j].Count
	})
	return out
}
