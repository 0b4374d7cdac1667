package watering

import (
	"fmt"
)

// ParseTrigger maps a query value to a Trigger. Empty means manual.
func ParseTrigger(s string) (Trigger, error) {
	if s == "" {
		return TriggerManual, nil
	}
	for _, t := range AllTriggers {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid: manual, automatic, scheduled)", ErrInvalidTrigger, s)
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Validate checks the fields a patch sets.
func (p *EventPatch) Validate() error {
	if p.Status != nil && !ValidStatus(*p.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, *p.Status)
	}
	if p.WaterML != nil && *p.WaterML < 0 {
		return fmt.Errorf("%w: water_ml must not be negative", ErrInvalidEvent)
	}
	if p.DurationSeconds != nil && *p.DurationSeconds < 0 {
		return fmt.Errorf("%w: duration_seconds must not be negative", ErrInvalidEvent)
	}
	for name, v := range map[string]*float64{
		"moisture_before_pct": p.MoistureBeforePct,
		"moisture_after_pct":  p.MoistureAfterPct,
	} {
		if v != nil && (*v < 0 || *v > 100) {
			return fmt.Errorf("%w: %s must be between 0 and 100", ErrInvalidEvent, name)
		}
	}
	return nil
}
