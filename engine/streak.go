package engine

import "sort"

// =============================================================================
// STREAK DETECTOR - Consecutive calendar days with at least one sale
// =============================================================================

// StreakResult is the current and best run of consecutive active days.
type StreakResult struct {
	CurrentStreak    int
	MaxStreak        int
	LastActivityDate *Date // nil when there is no activity
}

// DetectStreak computes streaks over activityDates as seen from reference.
//
// Rules:
//   - dates are deduplicated and sorted; order of input does not matter
//   - dates after reference are ignored
//   - MaxStreak is the longest run of days exactly one apart (1 for a single date)
//   - CurrentStreak is 0 when the last activity is more than one day before
//     reference; otherwise it is the run ending at the last activity
//
// Example: {06-01, 06-02, 06-03, 06-05} with reference 06-05 gives current 1,
// max 3; with reference 06-07 gives current 0, max 3.
func DetectStreak(activityDates []Date, reference Date) StreakResult {
	dates := uniqueSortedDates(activityDates)
	for len(dates) > 0 && !reference.IsZero() && dates[len(dates)-1].After(reference) {
		dates = dates[:len(dates)-1]
	}
	if len(dates) == 0 {
		return StreakResult{}
	}

	best, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if DaysBetween(dates[i-1], dates[i]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}

	last := dates[len(dates)-1]
	result := StreakResult{MaxStreak: best, LastActivityDate: &last}

	if DaysBetween(last, reference) > 1 {
		return result
	}

	current := 1
	for i := len(dates) - 2; i >= 0; i-- {
		if DaysBetween(dates[i], dates[i+1]) != 1 {
			break
		}
		current++
	}
	result.CurrentStreak = current
	return result
}

func uniqueSortedDates(in []Date) []Date {
	seen := make(map[Date]bool, len(in))
	out := make([]Date, 0, len(in))
	for _, d := range in {
		if d.IsZero() || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
