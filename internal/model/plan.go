package model

import "time"

// DefaultFreePlan is the plan assigned to free-tier keys.
const DefaultFreePlan = "1-month"

// planDurations maps plan names to key lifetimes. New plans are added here;
// call sites look durations up by name and never hardcode them.
var planDurations = map[string]time.Duration{
	DefaultFreePlan: 30 * 24 * time.Hour,
}

// PlanDuration returns the key lifetime for a plan name.
// The second return is false for unknown plans.
func PlanDuration(name string) (time.Duration, bool) {
	d, ok := planDurations[name]
	return d, ok
}

// PlanNames returns the names of all configured plans.
func PlanNames() []string {
	names := make([]string, 0, len(planDurations))
	for name := range planDurations {
		names = append(names, name)
	}
	return names
}
