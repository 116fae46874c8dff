// Package metrics holds the Prometheus collectors of the trust core.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector exported by the trust core.
type Metrics struct {
	CertificatesIssued       prometheus.Counter
	CertificateVerifications *prometheus.CounterVec
	Revocations              prometheus.Counter
	Authentications          *prometheus.CounterVec
	PayloadOperations        *prometheus.CounterVec
	KeyGenDuration           prometheus.Histogram
}

// New builds the collectors and registers them on reg (or the default
// registerer if nil). Collectors that are already registered are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		CertificatesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trustcore_certificates_issued_total",
			Help: "Leaf certificates issued by the certificate authority",
		}),
		CertificateVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcore_certificate_verifications_total",
			Help: "Certificate verifications by resulting status",
		}, []string{"status"}),
		Revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trustcore_revocations_total",
			Help: "Certificates newly added to the revocation list",
		}),
		Authentications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcore_authentications_total",
			Help: "Challenge-response authentications by result",
		}, []string{"result"}),
		PayloadOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcore_payload_operations_total",
			Help: "Hybrid payload operations by operation and result",
		}, []string{"op", "result"}),
		KeyGenDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustcore_keygen_duration_seconds",
			Help:    "Time spent generating RSA key pairs",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
	}

	var err error
	m.CertificatesIssued = register(reg, m.CertificatesIssued, &err)
	m.CertificateVerifications = register(reg, m.CertificateVerifications, &err)
	m.Revocations = register(reg, m.Revocations, &err)
	m.Authentications = register(reg, m.Authentications, &err)
	m.PayloadOperations = register(reg, m.PayloadOperations, &err)
	m.KeyGenDuration = register(reg, m.KeyGenDuration, &err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, errp *error) C {
	if *errp != nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		*errp = err
	}
	return c
}

// CertificateIssued records one issued certificate.
func (m *Metrics) CertificateIssued() {
	if m == nil {
		return
	}
	m.CertificatesIssued.Inc()
}

// CertificateVerified records a verification with the given status.
func (m *Metrics) CertificateVerified(status string) {
	if m == nil {
		return
	}
	m.CertificateVerifications.WithLabelValues(status).Inc()
}

// Revoked records a newly revoked serial.
func (m *Metrics) Revoked() {
	if m == nil {
		return
	}
	m.Revocations.Inc()
}

// Authenticated records an authentication attempt with the given result.
func (m *Metrics) Authenticated(result string) {
	if m == nil {
		return
	}
	m.Authentications.WithLabelValues(result).Inc()
}

// PayloadOperation records a seal/open/share operation.
func (m *Metrics) PayloadOperation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.PayloadOperations.WithLabelValues(op, result).Inc()
}

// ObserveKeyGen records how long one key generation took.
func (m *Metrics) ObserveKeyGen(d time.Duration) {
	if m == nil {
		return
	}
	m.KeyGenDuration.Observe(d.Seconds())
}
