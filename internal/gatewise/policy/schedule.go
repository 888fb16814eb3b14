// Package policy holds the pure access decision logic: blackout schedule
// evaluation and the verdict for a presented credential. Nothing in this
// package performs I/O or reads the clock.
package policy

import (
	"time"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
)

// IsBlocked reports whether the blackout schedule blocks access at the given
// instant. Weekday and hour are taken in at's location. Exempt callers
// (admins) are never blocked.
func IsBlocked(schedule types.BlackoutSchedule, at time.Time, exempt bool) bool {
	if exempt {
		return false
	}
	hour := at.Hour()
	for _, block := range schedule[types.WeekdayKey(at)] {
		if blockCovers(block, hour) {
			return true
		}
	}
	return false
}

// blockCovers treats a block as a single same-day interval. A block whose
// start is not before its end never matches; config validation rejects
// such blocks before they reach a schedule.
func blockCovers(b types.BlackoutBlock, hour int) bool {
	if b.AllDay {
		return true
	}
	return b.Start <= hour && hour < b.End
}
