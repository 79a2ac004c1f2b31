// Package metrics records token issuance for the Prometheus node_exporter
// textfile collector. The generator exits after one token, so metrics are
// written to a file instead of being served over HTTP.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns a private registry holding the issuance collectors.
type Recorder struct {
	registry *prometheus.Registry

	// LastTokenInfo is 1 for the role claim of the last issued token. Each
	// run starts from a fresh registry and overwrites the textfile, so a
	// counter would never exceed one.
	LastTokenInfo *prometheus.GaugeVec

	// IssuedAt holds the iat claim of the last issued token.
	IssuedAt prometheus.Gauge

	// ExpiresAt holds the exp claim of the last issued token.
	ExpiresAt prometheus.Gauge
}

// New returns a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		LastTokenInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "generate_jwt_last_token_info",
				Help: "Always 1; the role label carries the role claim of the last issued token",
			},
			[]string{"role"},
		),
		IssuedAt: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "generate_jwt_token_issued_at_seconds",
				Help: "Unix time of the iat claim of the last issued token",
			},
		),
		ExpiresAt: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "generate_jwt_token_expiry_timestamp_seconds",
				Help: "Unix time of the exp claim of the last issued token",
			},
		),
	}
	r.registry.MustRegister(r.LastTokenInfo, r.IssuedAt, r.ExpiresAt)
	return r
}

// Observe records one issued token. It fails without recording anything if
// role is not a valid label value.
func (r *Recorder) Observe(role string, issuedAt, expiresAt time.Time) error {
	info, err := r.LastTokenInfo.GetMetricWithLabelValues(role)
	if err != nil {
		return fmt.Errorf("recording token metrics: %w", err)
	}
	info.Set(1)
	r.IssuedAt.Set(float64(issuedAt.Unix()))
	r.ExpiresAt.Set(float64(expiresAt.Unix()))
	return nil
}

// Gatherer exposes the private registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically writes the registry in text exposition format to
// path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
