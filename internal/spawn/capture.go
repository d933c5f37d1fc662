package spawn

import (
	"slices"

	"github.com/craftmods/cobblespawner/internal/model"
)

// CaptureVerdict is the outcome of a capture-permission check.
type CaptureVerdict struct {
	Allowed      bool
	AllowedBalls []string // non-nil only when a ball restriction denied the attempt
}

// CaptureAllowed decides whether a capture attempt on a spawner-sourced
// creature may proceed, given the ball used. Entries without a ball
// restriction admit any ball; a restricted list containing "ALL" does too.
func CaptureAllowed(entry *model.SpawnEntry, ball string) CaptureVerdict {
	if !entry.Capture.Catchable {
		return CaptureVerdict{}
	}
	if !entry.Capture.RestrictBalls {
		return CaptureVerdict{Allowed: true}
	}
	if slices.Contains(entry.Capture.AllowedBalls, "ALL") ||
		slices.Contains(entry.Capture.AllowedBalls, ball) {
		return CaptureVerdict{Allowed: true}
	}
	return CaptureVerdict{AllowedBalls: entry.Capture.AllowedBalls}
}
