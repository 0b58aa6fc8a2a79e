package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"saasgate/backend/internal/platform/httpx"
)

// Pinger checks the database connection (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the policy engine evaluates (e.g. *engine.OPAEvaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

type status struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Policy   string `json:"policy,omitempty"`
}

// Handler serves readiness for load balancers and Kubernetes.
type Handler struct {
	db      Pinger
	policy  PolicyChecker
	timeout time.Duration
}

// New returns a health handler. Nil checks are skipped.
func New(db Pinger, policy PolicyChecker) *Handler {
	return &Handler{db: db, policy: policy, timeout: 2 * time.Second}
}

// ServeHTTP responds 200 when every configured check passes, else 503.
// GET /healthz
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st := status{Status: "ok"}
	if h.db != nil {
		st.Database = "ok"
		if err := h.db.PingContext(ctx); err != nil {
			slog.Warn("health: database ping failed", "error", err)
			st.Status, st.Database = "unavailable", "unavailable"
		}
	}
	if h.policy != nil {
		st.Policy = "ok"
		if err := h.policy.HealthCheck(ctx); err != nil {
			slog.Warn("health: policy check failed", "error", err)
			st.Status, st.Policy = "unavailable", "unavailable"
		}
	}
	code := http.StatusOK
	if st.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, code, st)
}
