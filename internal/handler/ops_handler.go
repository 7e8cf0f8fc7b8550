package handler

import (
	"net/http"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/infra/observability"
	"github.com/lynixity/lynix-go/internal/service"
)

func healthzHandler(health *service.HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health == nil {
			writeJSON(w, http.StatusOK, domain.HealthStatus{Status: "healthy", Services: []domain.ServiceHealth{}})
			return
		}
		writeJSON(w, http.StatusOK, health.Check(r.Context()))
	}
}

// readyzHandler reports 503 while the store is unreachable.
func readyzHandler(health *service.HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil && health.Check(r.Context()).Status == "unhealthy" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func statsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if metrics == nil {
			writeJSON(w, http.StatusOK, domain.UsageStats{Period: "all_time"})
			return
		}
		writeJSON(w, http.StatusOK, metrics.GetUsageSnapshot())
	}
}
