package faith

import (
	"errors"
	"time"

	"github.com/homestead/homestead/internal/model"
)

// DateLayout is the day format used for streak dates.
const DateLayout = "2006-01-02"

// Streak validation errors.
var (
	ErrNegativeLength = errors.New("valid streak length required")
	ErrInvalidDate    = errors.New("invalid last_prayed format")
)

// ValidateStreak checks a client supplied streak.
func ValidateStreak(length int, lastPrayed *string) error {
	if length < 0 {
		return ErrNegativeLength
	}
	if lastPrayed != nil {
		if _, err := time.Parse(DateLayout, *lastPrayed); err != nil {
			return ErrInvalidDate
		}
	}
	return nil
}

// RecordPrayer updates s for a prayer on today's date. Praying twice on the
// same day changes nothing; praying the day after the last prayer extends the
// streak; any other gap restarts it at one. It reports whether s changed.
func RecordPrayer(s *model.RosaryStreak, today time.Time) bool {
	day := today.Format(DateLayout)
	if s.LastPrayed != nil && *s.LastPrayed == day {
		return false
	}

	yesterday := today.AddDate(0, 0, -1).Format(DateLayout)
	if s.LastPrayed != nil && *s.LastPrayed == yesterday {
		s.Length++
	} else {
		s.Length = 1
	}
	s.LastPrayed = &day
	return true
}

// MergeStreak reconciles a local and a remote streak. The more recent
// last_prayed wins; on the same day the longer streak wins. A nil side loses.
func MergeStreak(local, remote *model.RosaryStreak) *model.RosaryStreak {
	switch {
	case local == nil:
		return remote
	case remote == nil:
		return local
	}

	l, r := dateOf(local), dateOf(remote)
	switch {
	case l == r:
		if remote.Length > local.Length {
			return remote
		}
		return local
	case l > r:
		return local
	default:
		return remote
	}
}

// dateOf returns the ISO date, which sorts lexically. A missing date sorts first.
func dateOf(s *model.RosaryStreak) string {
	if s.LastPrayed == nil {
		return ""
	}
	return *s.LastPrayed
}
