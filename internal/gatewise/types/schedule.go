package types

import "time"

// BlackoutBlock is one blackout window within a day. When AllDay is false
// the window is the half-open hour range [Start, End).
type BlackoutBlock struct {
	Start  int  `json:"start" yaml:"start"`
	End    int  `json:"end" yaml:"end"`
	AllDay bool `json:"all_day,omitempty" yaml:"all_day,omitempty"`
}

// BlackoutSchedule maps a three-letter weekday key ("Mon".."Sun") to the
// blackout blocks for that day.
type BlackoutSchedule map[string][]BlackoutBlock

// Weekdays lists the valid schedule keys in calendar order.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// WeekdayKey returns the schedule key for t in t's own location.
func WeekdayKey(t time.Time) string {
	return t.Weekday().String()[:3]
}

func (s BlackoutSchedule) Clone() BlackoutSchedule {
	if s == nil {
		return nil
	}
	out := make(BlackoutSchedule, len(s))
	for day, blocks := range s {
		out[day] = append([]BlackoutBlock(nil), blocks...)
	}
	return out
}
