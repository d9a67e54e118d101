package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Views  int
}

// Service coordinates health checks.
type Service struct {
	db    DBPinger
	views ViewCounter
}

// New creates a Service. views can be nil.
func New(db DBPinger, views ViewCounter) *Service {
	return &Service{db: db, views: views}
}

// Check pings the store and counts loaded views. A failing store is
// Unhealthy; missing views alone are Degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		status = Unhealthy
	} else {
		checks["database"] = CheckOK
	}

	var count int
	if s.views != nil {
		n, err := s.views.Count(ctx)
		switch {
		case err != nil || n == 0:
			checks["views"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		default:
			checks["views"] = CheckOK
			count = n
		}
	}

	return Report{Status: status, Checks: checks, Views: count}
}
