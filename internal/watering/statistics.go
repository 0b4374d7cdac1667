package watering

import (
	"time"
)

const day = 24 * time.Hour

// ComputeStatistics aggregates completed events, which must be ordered by
// scheduled time ascending. Gaps between consecutive events are counted in
// whole days, rounded down.
func ComputeStatistics(plantID int64, days int, completed []Event, lastWatered *time.Time) Statistics {
	stats := Statistics{
		PlantID:       plantID,
		PeriodDays:    days,
		TotalEvents:   len(completed),
		TriggerCounts: make(map[Trigger]int, len(AllTriggers)),
		LastWatered:   lastWatered,
	}
	for _, t := range AllTriggers {
		stats.TriggerCounts[t] = 0
	}

	for i, ev := range completed {
		if ev.WaterML != nil {
			stats.TotalWaterML += *ev.WaterML
		}
		stats.TriggerCounts[ev.Trigger]++
		if i > 0 {
			gap := ev.ScheduledTime.Sub(completed[i-1].ScheduledTime) / day
			if stats.AverageIntervalDays == nil {
				stats.AverageIntervalDays = new(float64)
			}
			*stats.AverageIntervalDays += float64(gap)
		}
	}
	if stats.AverageIntervalDays != nil {
		*stats.AverageIntervalDays /= float64(len(completed) - 1)
	}
	return stats
}
