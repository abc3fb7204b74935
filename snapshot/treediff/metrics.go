package treediff

import "time"

func (d *differ) recordMetrics(dt time.Duration) {
	m := d.opt.Metrics
	if m == nil {
		return
	}

	r := d.res

	m.CounterInt64("diff_runs", "Number of tree comparisons", nil).Add(1)
	m.DurationDistribution("diff_duration", "Duration of tree comparisons", nil).Observe(dt)
	m.CounterInt64("diff_compared_pairs", "Number of entry pairs compared", nil).Add(int64(r.Stats.ComparedPairs))
	m.CounterInt64("diff_unordered_root_matches", "Number of top-level entries matched out of order", nil).Add(int64(r.Stats.UnorderedRootMatches))

	for set, n := range map[string]int{
		"changed":                  len(r.Changed),
		"changed_directories":      len(r.ChangedDirectories),
		"deleted":                  len(r.Deleted),
		"modified_in_place":        len(r.ModifiedInPlace),
		"deleted_in_place":         len(r.DeletedInPlace),
		"large_unchanged_subtrees": len(r.LargeUnchangedSubtrees),
	} {
		m.CounterInt64("diff_result_entries", "Number of entry IDs reported per result set", map[string]string{"set": set}).Add(int64(n))
	}
}
