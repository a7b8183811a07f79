package registry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/courier/pkg/event"
)

// Metrics はライブチャネルのメトリクス。nilの場合は何も記録しない。
type Metrics struct {
	channels   prometheus.Gauge
	deliveries *prometheus.CounterVec
}

// NewMetrics はメトリクスを生成してregに登録する。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "courier",
			Subsystem: "live",
			Name:      "channels",
			Help:      "Number of open live channels.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courier",
			Subsystem: "live",
			Name:      "deliveries_total",
			Help:      "Live channel deliveries by event name and result.",
		}, []string{"event", "result"}),
	}
	reg.MustRegister(m.channels, m.deliveries)
	return m
}

func (m *Metrics) channelOpened() {
	if m != nil {
		m.channels.Inc()
	}
}

func (m *Metrics) channelClosed() {
	if m != nil {
		m.channels.Dec()
	}
}

func (m *Metrics) delivery(name event.Name, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.deliveries.WithLabelValues(string(name), result).Inc()
}
