package server

import (
	"context"
	"sync"
	"time"
)

type HealthChecker interface {
	Name() string
	Healthy(ctx context.Context) bool
}

type OkHealthChecker struct {
	name string
}

func NewOkHealthChecker(name string) *OkHealthChecker {
	return &OkHealthChecker{name: name}
}

func (hc *OkHealthChecker) Name() string {
	return hc.name
}

func (hc *OkHealthChecker) Healthy(ctx context.Context) bool {
	return true
}

const (
	StatusUp   = "up"
	StatusDown = "down"
)

type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Check runs every checker concurrently, each bounded by timeout. The report
// is down when any checker is.
func Check(ctx context.Context, timeout time.Duration, checkers ...HealthChecker) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report := HealthReport{Status: StatusUp, Checks: make(map[string]string, len(checkers))}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, hc := range checkers {
		wg.Add(1)
		go func(hc HealthChecker) {
			defer wg.Done()
			status := StatusUp
			if !hc.Healthy(ctx) {
				status = StatusDown
			}

			mu.Lock()
			defer mu.Unlock()
			report.Checks[hc.Name()] = status
			if status == StatusDown {
				report.Status = StatusDown
			}
		}(hc)
	}
	wg.Wait()
	return report
}
