// Package timeline derives day-of-week and hour-of-day volume patterns
// from an aggregation index, including the low-traffic "focus" blocks
// inside each day.
package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/mailsift/mailsift/internal/snapshot"
)

// BlockHours is the fixed width of an intra-day block. Six four-hour
// blocks cover the day, starting at midnight.
const BlockHours = 4

const blocksPerDay = 24 / BlockHours

// Thresholds against the day's mean block count that mark a block peak or
// quiet.
const (
	peakRatio  = 1.5
	quietRatio = 0.5
)

// Block is one fixed slice of a day.
type Block struct {
	StartHour int  `json:"start_hour"`
	EndHour   int  `json:"end_hour"` // exclusive
	Count     int  `json:"count"`
	Peak      bool `json:"peak"`
	Quiet     bool `json:"quiet"`
}

// DaySummary carries a weekday's total and its block breakdown.
type DaySummary struct {
	Day    time.Weekday `json:"day"`
	Total  int          `json:"total"`
	Blocks []Block      `json:"blocks"`
}

// Slot is a single (day, hour) cell with its count.
type Slot struct {
	Day   time.Weekday `json:"day"`
	Hour  int          `json:"hour"`
	Count int          `json:"count"`
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %02d:00", s.Day, s.Hour)
}

// Patterns is the full time-of-arrival picture of one snapshot.
type Patterns struct {
	// Matrix rows follow time.Weekday order, Sunday first.
	Matrix     [7][24]int    `json:"matrix"`
	DayTotals  [7]int        `json:"day_totals"`
	HourTotals [24]int       `json:"hour_totals"`
	Total      int           `json:"total"`
	Peak       Slot          `json:"peak"`
	Days       [7]DaySummary `json:"days"`
}

// Analyze derives volume patterns from the index's day/hour matrix. Blocks
// are peak when they exceed 1.5x the day's mean block count and quiet when
// they fall below half of it; quiet blocks are the focus-mode candidates.
func Analyze(ix *snapshot.Index) Patterns {
	p := Patterns{Matrix: ix.DayHour}
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			n := p.Matrix[d][h]
			p.DayTotals[d] += n
			p.HourTotals[h] += n
			p.Total += n
			if n > p.Peak.Count {
				p.Peak = Slot{Day: time.Weekday(d), Hour: h, Count: n}
			}
		}
	}

	for d := 0; d < 7; d++ {
		day := DaySummary{Day: time.Weekday(d), Total: p.DayTotals[d]}
		mean := float64(day.Total) / blocksPerDay
		for b := 0; b < blocksPerDay; b++ {
			start := b * BlockHours
			blk := Block{StartHour: start, EndHour: start + BlockHours}
			for h := start; h < start+BlockHours; h++ {
				blk.Count += p.Matrix[d][h]
			}
			if day.Total > 0 {
				blk.Peak = float64(blk.Count) >= peakRatio*mean
				blk.Quiet = float64(blk.Count) <= quietRatio*mean
			}
			day.Blocks = append(day.Blocks, blk)
		}
		p.Days[d] = day
	}
	return p
}

// FocusBlocks returns every quiet block across the week, the low-traffic
// windows a user could reserve for uninterrupted work.
func (p Patterns) FocusBlocks() []DaySummary {
	var out []DaySummary
	for _, day := range p.Days {
		quiet := DaySummary{Day: day.Day, Total: day.Total}
		for _, b := range day.Blocks {
			if b.Quiet {
				quiet.Blocks = append(quiet.Blocks, b)
			}
		}
		if len(quiet.Blocks) > 0 {
			out = append(out, quiet)
		}
	}
	return out
}

// BusiestSlots returns the n highest-volume (day, hour) cells, count
// descending with a day/hour tie break.
func (p Patterns) BusiestSlots(n int) []Slot {
	slots := p.allSlots(false)
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Count == slots[j].Count {
			if slots[i].Day == slots[j].Day {
				return slots[i].Hour < slots[j].Hour
			}
			return slots[i].Day < slots[j].Day
		}
		return slots[i].Count > slots[j].Count
	})
	return firstN(slots, n)
}

// QuietestSlots returns the n lowest-volume cells that saw any traffic.
func (p Patterns) QuietestSlots(n int) []Slot {
	slots := p.allSlots(true)
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Count == slots[j].Count {
			if slots[i].Day == slots[j].Day {
				return slots[i].Hour < slots[j].Hour
			}
			return slots[i].Day < slots[j].Day
		}
		return slots[i].Count < slots[j].Count
	})
	return firstN(slots, n)
}

func (p Patterns) allSlots(nonzeroOnly bool) []Slot {
	slots := make([]Slot, 0, 7*24)
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			if nonzeroOnly && p.Matrix[d][h] == 0 {
				continue
			}
			slots = append(slots, Slot{Day: time.Weekday(d), Hour: h, Count: p.Matrix[d][h]})
		}
	}
	return slots
}

func firstN(slots []Slot, n int) []Slot {
	if n < len(slots) {
		return slots[:n]
	}
	return slots
}
