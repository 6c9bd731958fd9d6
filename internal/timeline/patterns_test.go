package timeline

import (
	"testing"
	"time"

	"github.com/mailsift/mailsift/internal/snapshot"
)

// buildIndex fills an index matrix directly; the analyzers only read
// DayHour and the totals.
func buildIndex(t *testing.T, fill func(ix *snapshot.Index)) *snapshot.Index {
	t.Helper()
	ix := &snapshot.Index{}
	fill(ix)
	for d := range ix.DayHour {
		for h := range ix.DayHour[d] {
			ix.Total += ix.DayHour[d][h]
		}
	}
	return ix
}

func TestAnalyzeTotalsAndPeak(t *testing.T) {
	ix := buildIndex(t, func(ix *snapshot.Index) {
		ix.DayHour[int(time.Monday)][9] = 10
		ix.DayHour[int(time.Monday)][14] = 4
		ix.DayHour[int(time.Friday)][9] = 6
	})
	p := Analyze(ix)

	if p.Total != 20 {
		t.Fatalf("total %d, want 20", p.Total)
	}
	if p.DayTotals[int(time.Monday)] != 14 {
		t.Fatalf("monday total %d, want 14", p.DayTotals[int(time.Monday)])
	}
	if p.HourTotals[9] != 16 {
		t.Fatalf("hour 9 total %d, want 16", p.HourTotals[9])
	}
	if p.Peak.Day != time.Monday || p.Peak.Hour != 9 || p.Peak.Count != 10 {
		t.Fatalf("peak %+v", p.Peak)
	}
}

func TestAnalyzeBlocks(t *testing.T) {
	// Monday: 12 messages, all in the 08-12 block. Six blocks, mean 2:
	// that block is a peak (12 >= 3) and every empty block is quiet.
	ix := buildIndex(t, func(ix *snapshot.Index) {
		ix.DayHour[int(time.Monday)][9] = 12
	})
	p := Analyze(ix)

	monday := p.Days[int(time.Monday)]
	if len(monday.Blocks) != 6 {
		t.Fatalf("got %d blocks, want 6", len(monday.Blocks))
	}
	busy := monday.Blocks[2] // hours 8..11
	if busy.StartHour != 8 || busy.EndHour != 12 {
		t.Fatalf("block bounds %d..%d", busy.StartHour, busy.EndHour)
	}
	if busy.Count != 12 || !busy.Peak || busy.Quiet {
		t.Fatalf("busy block %+v", busy)
	}
	for i, b := range monday.Blocks {
		if i == 2 {
			continue
		}
		if !b.Quiet || b.Peak {
			t.Fatalf("block %d should be quiet only: %+v", i, b)
		}
	}

	// A day with no traffic marks nothing.
	tuesday := p.Days[int(time.Tuesday)]
	for _, b := range tuesday.Blocks {
		if b.Peak || b.Quiet {
			t.Fatalf("empty day block flagged: %+v", b)
		}
	}
}

func TestFocusBlocks(t *testing.T) {
	ix := buildIndex(t, func(ix *snapshot.Index) {
		ix.DayHour[int(time.Monday)][9] = 12
	})
	p := Analyze(ix)

	focus := p.FocusBlocks()
	if len(focus) != 1 {
		t.Fatalf("got %d focus days, want 1", len(focus))
	}
	if focus[0].Day != time.Monday || len(focus[0].Blocks) != 5 {
		t.Fatalf("focus day %+v", focus[0])
	}
	for _, b := range focus[0].Blocks {
		if !b.Quiet {
			t.Fatalf("non-quiet block in focus list: %+v", b)
		}
	}
}

func TestBusiestAndQuietestSlots(t *testing.T) {
	ix := buildIndex(t, func(ix *snapshot.Index) {
		ix.DayHour[int(time.Monday)][9] = 10
		ix.DayHour[int(time.Monday)][14] = 4
		ix.DayHour[int(time.Friday)][9] = 4
		ix.DayHour[int(time.Saturday)][22] = 1
	})
	p := Analyze(ix)

	busiest := p.BusiestSlots(3)
	if len(busiest) != 3 {
		t.Fatalf("got %d slots, want 3", len(busiest))
	}
	if busiest[0].Count != 10 {
		t.Fatalf("top slot %+v", busiest[0])
	}
	// Equal counts tie-break by day then hour.
	if busiest[1].Day != time.Monday || busiest[2].Day != time.Friday {
		t.Fatalf("tie break wrong: %v then %v", busiest[1], busiest[2])
	}

	quietest := p.QuietestSlots(2)
	if len(quietest) != 2 {
		t.Fatalf("got %d quiet slots, want 2", len(quietest))
	}
	if quietest[0].Count != 1 || quietest[0].Day != time.Saturday {
		t.Fatalf("quietest slot %+v; zero cells must be excluded", quietest[0])
	}
}

func TestSlotString(t *testing.T) {
	s := Slot{Day: time.Wednesday, Hour: 7, Count: 3}
	if got := s.String(); got != "Wednesday 07:00" {
		t.Fatalf("slot string %q", got)
	}
}

func TestDayDistribution(t *testing.T) {
	ix := buildIndex(t, func(ix *snapshot.Index) {
		ix.DayHour[int(time.Monday)][9] = 10
		ix.DayHour[int(time.Tuesday)][9] = 5
		ix.DayHour[int(time.Saturday)][12] = 4
		ix.DayHour[int(time.Sunday)][12] = 2
	})
	d := Analyze(ix).DayDistribution()

	if d.BusiestDay != time.Monday {
		t.Fatalf("busiest %s, want Monday", d.BusiestDay)
	}
	// Wednesday through Friday are all zero; the earliest zero day wins.
	if d.QuietestDay != time.Wednesday {
		t.Fatalf("quietest %s, want Wednesday", d.QuietestDay)
	}
	if d.WeekdayTotal != 15 || d.WeekendTotal != 6 {
		t.Fatalf("weekday %d weekend %d", d.WeekdayTotal, d.WeekendTotal)
	}
	if d.WeekdayAvg != 3 || d.WeekendAvg != 3 {
		t.Fatalf("averages %.1f / %.1f", d.WeekdayAvg, d.WeekendAvg)
	}
	share := d.Days[int(time.Monday)]
	if share.Count != 10 || share.Percentage != float64(10)/float64(21)*100 {
		t.Fatalf("monday share %+v", share)
	}
}

func TestDayDistributionEmpty(t *testing.T) {
	d := Analyze(&snapshot.Index{}).DayDistribution()
	if d.WeekdayTotal != 0 || d.WeekendTotal != 0 {
		t.Fatalf("empty distribution has totals: %+v", d)
	}
	for _, s := range d.Days {
		if s.Percentage != 0 {
			t.Fatalf("empty distribution has percentage: %+v", s)
		}
	}
}
