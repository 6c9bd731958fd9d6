package taxonomy

import (
	"sort"

	"github.com/mailsift/mailsift/internal/snapshot"
)

// CategoryStat summarizes one category across a snapshot.
type CategoryStat struct {
	Category      Category
	Count         int
	Read          int
	Unread        int
	ReadRate      float64 // percent
	UniqueSenders int
}

// Stats classifies every message and aggregates per-category counts.
// Categories with zero messages are omitted. Results sort by count
// descending, ties by category name.
func Stats(snap *snapshot.Snapshot, userDomain string) []CategoryStat {
	type acc struct {
		count, read int
		senders     map[string]struct{}
	}
	byCat := map[Category]*acc{}
	for _, m := range snap.Messages {
		cat := Classify(m, userDomain)
		a := byCat[cat]
		if a == nil {
			a = &acc{senders: map[string]struct{}{}}
			byCat[cat] = a
		}
		a.count++
		if m.Read {
			a.read++
		}
		a.senders[m.Sender] = struct{}{}
	}

	stats := make([]CategoryStat, 0, len(byCat))
	for cat, a := range byCat {
		st := CategoryStat{
			Category:      cat,
			Count:         a.count,
			Read:          a.read,
			Unread:        a.count - a.read,
			UniqueSenders: len(a.senders),
		}
		if a.count > 0 {
			st.ReadRate = float64(a.read) / float64(a.count) * 100
		}
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Category < stats[j].Category
		}
		return stats[i].Count > stats[j].Count
	})
	return stats
}
