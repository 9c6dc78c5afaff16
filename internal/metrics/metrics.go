package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nkiryanov/vidtube/internal/apperrors"
)

const namespace = "vidtube"

// Auth operations
const (
	OpRegister       = "register"
	OpLogin          = "login"
	OpLogout         = "logout"
	OpRefresh        = "refresh"
	OpAuthenticate   = "authenticate"
	OpChangePassword = "change_password"
)

// Auth service and http metrics
// Nil *Metrics is valid and records nothing
type Metrics struct {
	authTotal       *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// Create metrics and register them in reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		authTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "operations_total",
				Help:      "Auth operations by result.",
			},
			[]string{"operation", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latencies.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "code"},
		),
	}

	for _, c := range []prometheus.Collector{m.authTotal, m.requestDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Count auth operation result
func (m *Metrics) Observe(op string, err error) {
	if m == nil {
		return
	}
	m.authTotal.WithLabelValues(op, Outcome(err)).Inc()
}

func (m *Metrics) ObserveRequest(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, strconv.Itoa(code)).Observe(d.Seconds())
}

// Outcome label for an error. Keeps label cardinality bounded
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrInfrastructure):
		return "infrastructure"
	case errors.Is(err, apperrors.ErrValidation):
		return "validation"
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, apperrors.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, apperrors.ErrExpiredSession):
		return "expired_session"
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		return "conflict"
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
