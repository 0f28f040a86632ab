package lifecycle

import (
	"context"

	"github.com/ashureev/frontdesk/internal/domain"
)

// RequestMetrics summarizes outcomes over every stored help request.
type RequestMetrics struct {
	// AverageResolutionMinutes averages CreatedAt to ResolvedAt over resolved requests only.
	AverageResolutionMinutes float64 `json:"average_resolution_minutes"`
	// TimeoutRate is timeouts / total, in [0, 1].
	TimeoutRate float64 `json:"timeout_rate"`
	// ResolutionRate is resolved / total, in [0, 1].
	ResolutionRate   float64 `json:"resolution_rate"`
	TotalRequests    int     `json:"total_requests"`
	PendingRequests  int     `json:"pending_requests"`
	ResolvedRequests int     `json:"resolved_requests"`
	TimeoutRequests  int     `json:"timeout_requests"`
}

// ComputeMetrics aggregates requests. An empty input yields all zeros.
func ComputeMetrics(requests []*domain.HelpRequest) RequestMetrics {
	var m RequestMetrics
	var totalMinutes float64
	var latencies int

	for _, r := range requests {
		m.TotalRequests++
		switch r.Status {
		case domain.StatusPending:
			m.PendingRequests++
		case domain.StatusTimeout:
			m.TimeoutRequests++
		case domain.StatusResolved:
			m.ResolvedRequests++
			if d, ok := r.ResolutionLatency(); ok {
				totalMinutes += d.Minutes()
				latencies++
			}
		}
	}

	if latencies > 0 {
		m.AverageResolutionMinutes = totalMinutes / float64(latencies)
	}
	if m.TotalRequests > 0 {
		m.TimeoutRate = float64(m.TimeoutRequests) / float64(m.TotalRequests)
		m.ResolutionRate = float64(m.ResolvedRequests) / float64(m.TotalRequests)
	}
	return m
}

// GetMetrics computes RequestMetrics over all stored requests.
func (m *Manager) GetMetrics(ctx context.Context) (RequestMetrics, error) {
	all, err := m.store.ListRequests(ctx)
	if err != nil {
		return RequestMetrics{}, storeFailure("list requests", err)
	}
	return ComputeMetrics(all), nil
}
