package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	DB           Pinger
	StoreBackend string
	AIProvider   string
	Timeout      time.Duration
}

// Status is the health payload.
type Status struct {
	OK         bool   `json:"ok"`
	Store      string `json:"store,omitempty"`
	AIProvider string `json:"aiProvider,omitempty"`
	Database   string `json:"database,omitempty"`
}

// Check reports whether the process can serve requests. Only a configured
// database that fails to answer makes it unhealthy.
func (s *Service) Check(ctx context.Context) Status {
	st := Status{OK: true, Store: s.StoreBackend, AIProvider: s.AIProvider}
	if s.DB == nil {
		return st
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		st.OK = false
		st.Database = "unreachable"
		return st
	}
	st.Database = "ok"
	return st
}
