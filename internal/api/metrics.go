package api

import (
	"encoding/json"
	"net/http"

	"github.com/heysubinoy/localstore/internal/engine"
	"github.com/heysubinoy/localstore/internal/store"
)

// StatsSource reports engine-level counters.
type StatsSource interface {
	Stats() engine.Stats
}

// MetricsHandler returns current store and flush metrics as JSON.
func MetricsHandler(instrumentedStore *store.InstrumentedStore, stats StatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		metrics := instrumentedStore.GetMetrics()
		st := stats.Stats()

		response := map[string]interface{}{
			"operations": map[string]uint64{
				"get":    metrics.GetCount,
				"set":    metrics.SetCount,
				"remove": metrics.RemoveCount,
				"clear":  metrics.ClearCount,
				"getAll": metrics.GetAllCount,
			},
			"avg_latency": map[string]string{
				"get":    metrics.GetAvgLatency.String(),
				"set":    metrics.SetAvgLatency.String(),
				"remove": metrics.RemoveAvgLatency.String(),
				"getAll": metrics.GetAllAvgLatency.String(),
			},
			"storage": map[string]interface{}{
				"state":          st.State.String(),
				"keys":           st.Keys,
				"flushes":        st.Flushes,
				"flush_failures": st.FlushFailures,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
