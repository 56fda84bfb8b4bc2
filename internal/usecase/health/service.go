package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. Questions may still be answered
	// from the lexical index.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckEmpty indicates a reachable but empty component.
	CheckEmpty CheckResult = "empty"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	// Chunks is the vector index size, -1 when unknown.
	Chunks int
	// Corpus is the number of chunks held by the lexical index.
	Corpus int
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	index     IndexCounter
	embedding EmbeddingChecker
	corpus    int
}

// New creates a Service. index and embedding can be nil.
func New(db DBPinger, index IndexCounter, embedding EmbeddingChecker, corpusSize int) *Service {
	return &Service{db: db, index: index, embedding: embedding, corpus: corpusSize}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	report := Report{Chunks: -1, Corpus: s.corpus}

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.index != nil {
		n, err := s.index.Count(ctx)
		switch {
		case err != nil:
			checks["index"] = CheckError
		case n == 0:
			checks["index"] = CheckEmpty
			report.Chunks = 0
		default:
			checks["index"] = CheckOK
			report.Chunks = n
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if s.corpus == 0 {
		checks["corpus"] = CheckEmpty
	} else {
		checks["corpus"] = CheckOK
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}
	if checks["database"] == CheckError {
		status = Unhealthy
	}

	report.Status = status
	report.Checks = checks
	return report
}
