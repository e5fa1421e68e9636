package implementation

import (
	"sort"

	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
)

// ensureMetricsNotNull ensures Metrics is not nil to prevent null JSON issues
func ensureMetricsNotNull(metrics map[string]interface{}) map[string]interface{} {
	if metrics == nil {
		return make(map[string]interface{})
	}
	return metrics
}

// sortNewestFirst orders readings by timestamp descending
func sortNewestFirst(readings []aqmmodels.Reading) {
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp > readings[j].Timestamp
	})
}

// distinctSorted drops empty and duplicate ids and sorts the rest
func distinctSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
