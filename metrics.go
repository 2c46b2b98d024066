package stashcat

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "stashcat"

// Metrics counts key unwraps, decryptions and verifications. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	chatKeys      *prometheus.CounterVec
	decryptions   *prometheus.CounterVec
	verifications *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. reg may
// be nil to skip registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		chatKeys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "chat_keys_total",
			Help:      "Chat key lookups by result (unwrapped, cached, failed).",
		}, []string{"result"}),
		decryptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decryptions_total",
			Help:      "Decryptions by payload kind and result.",
		}, []string{"kind", "result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "verifications_total",
			Help:      "Message verifications by result.",
		}, []string{"result"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.chatKeys, m.decryptions, m.verifications} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) chatKey(result string) {
	if m == nil {
		return
	}
	m.chatKeys.WithLabelValues(result).Inc()
}

func (m *Metrics) decryption(kind string, err error) {
	if m == nil {
		return
	}
	m.decryptions.WithLabelValues(kind, errorResult(err)).Inc()
}

func (m *Metrics) verification(ok bool, err error) {
	if m == nil {
		return
	}
	result := "valid"
	switch {
	case err != nil:
		result = errorResult(err)
	case !ok:
		result = "invalid"
	}
	m.verifications.WithLabelValues(result).Inc()
}

func errorResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCrypto):
		return "crypto_error"
	case errors.Is(err, ErrProtocol):
		return "protocol_error"
	case errors.Is(err, ErrValue):
		return "value_error"
	case errors.Is(err, ErrEncoding):
		return "encoding_error"
	default:
		return "error"
	}
}
