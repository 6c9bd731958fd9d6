package timeline

import "time"

// DayShare is one weekday's slice of total volume.
type DayShare struct {
	Day        time.Weekday `json:"day"`
	Count      int          `json:"count"`
	Percentage float64      `json:"percentage"`
}

// Distribution summarizes weekday versus weekend volume.
type Distribution struct {
	Days         [7]DayShare  `json:"days"`
	BusiestDay   time.Weekday `json:"busiest_day"`
	QuietestDay  time.Weekday `json:"quietest_day"`
	WeekdayTotal int          `json:"weekday_total"`
	WeekendTotal int          `json:"weekend_total"`
	WeekdayAvg   float64      `json:"weekday_avg"`
	WeekendAvg   float64      `json:"weekend_avg"`
}

// DayDistribution folds the patterns' day totals into a weekday/weekend
// view. Ties on busiest/quietest resolve to the earlier weekday.
func (p Patterns) DayDistribution() Distribution {
	var d Distribution
	busiest, quietest := 0, 0
	for i := 0; i < 7; i++ {
		n := p.DayTotals[i]
		d.Days[i] = DayShare{Day: time.Weekday(i), Count: n}
		if p.Total > 0 {
			d.Days[i].Percentage = float64(n) / float64(p.Total) * 100
		}
		if n > p.DayTotals[busiest] {
			busiest = i
		}
		if n < p.DayTotals[quietest] {
			quietest = i
		}
		if time.Weekday(i) == time.Saturday || time.Weekday(i) == time.Sunday {
			d.WeekendTotal += n
		} else {
			d.WeekdayTotal += n
		}
	}
	d.BusiestDay = time.Weekday(busiest)
	d.QuietestDay = time.Weekday(quietest)
	d.WeekdayAvg = float64(d.WeekdayTotal) / 5
	d.WeekendAvg = float64(d.WeekendTotal) / 2
	return d
}
