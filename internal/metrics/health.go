package metrics

import (
	"sync"
	"time"
)

// HealthChecker tracks the liveness of daemon components. A component is
// healthy when it reported success within its staleness window.
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]componentState
	maxAge     time.Duration
}

type componentState struct {
	healthy  bool
	reported time.Time
}

// NewHealthChecker creates a checker; components older than maxAge are
// considered unhealthy. maxAge <= 0 disables the staleness check.
func NewHealthChecker(maxAge time.Duration) *HealthChecker {
	return &HealthChecker{
		components: make(map[string]componentState),
		maxAge:     maxAge,
	}
}

// Report records the health of a named component
func (h *HealthChecker) Report(component string, healthy bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[component] = componentState{healthy: healthy, reported: time.Now()}
}

// IsHealthy returns true when every reported component is healthy and fresh
func (h *HealthChecker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, state := range h.components {
		if !state.healthy {
			return false
		}
		if h.maxAge > 0 && time.Since(state.reported) > h.maxAge {
			return false
		}
	}
	return true
}
