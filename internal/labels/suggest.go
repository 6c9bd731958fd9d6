package labels

import (
	"sort"
	"strings"

	"github.com/mailsift/mailsift/internal/snapshot"
)

// Suggestion proposes a new label for a cluster of unlabeled, engaged,
// non-marketing messages from one sender domain.
type Suggestion struct {
	Label          string   `json:"label"`
	Domain         string   `json:"domain"`
	Count          int      `json:"count"`
	ReadRate       float64  `json:"read_rate"` // percent
	SampleSubjects []string `json:"sample_subjects"`
}

const (
	defaultMinClusterSize = 5
	defaultMinReadRate    = 30.0 // percent
	maxSampleSubjects     = 3
)

// SuggestLabels finds sender domains with enough unlabeled, well-read,
// non-marketing traffic to deserve a label of their own. Marketing is
// excluded by the unsubscribe signal: labeling mail you never chose to
// receive just hides it.
func SuggestLabels(snap *snapshot.Snapshot, minCluster int, minReadRate float64) []Suggestion {
	if minCluster <= 0 {
		minCluster = defaultMinClusterSize
	}
	if minReadRate <= 0 {
		minReadRate = defaultMinReadRate
	}

	userLabels := snap.UserLabels()
	byDomain := map[string][]*snapshot.Message{}
	for i := range snap.Messages {
		m := &snap.Messages[i]
		if m.HasUserLabel(userLabels) || m.HasUnsubscribe {
			continue
		}
		if dom := m.Domain(); dom != "" {
			byDomain[dom] = append(byDomain[dom], m)
		}
	}

	var out []Suggestion
	for dom, msgs := range byDomain {
		if len(msgs) < minCluster {
			continue
		}
		read := 0
		for _, m := range msgs {
			if m.Read {
				read++
			}
		}
		rate := float64(read) / float64(len(msgs)) * 100
		if rate < minReadRate {
			continue
		}

		s := Suggestion{
			Label:    labelNameFor(dom),
			Domain:   dom,
			Count:    len(msgs),
			ReadRate: rate,
		}
		for _, m := range msgs {
			if len(s.SampleSubjects) == maxSampleSubjects {
				break
			}
			s.SampleSubjects = append(s.SampleSubjects, m.Subject)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Domain < out[j].Domain
		}
		return out[i].Count > out[j].Count
	})
	return out
}

func labelNameFor(domain string) string {
	base, _, _ := strings.Cut(domain, ".")
	if base == "" {
		return domain
	}
	return strings.ToUpper(base[:1]) + base[1:]
}
