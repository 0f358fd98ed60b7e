package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// GaugeSpec derives a gauge from a pair of event types: Inc events add one,
// Dec events subtract one. Used for live counts such as connected kernels.
type GaugeSpec struct {
	Name string
	Help string
	Inc  EventType
	Dec  EventType
}

// PrometheusObserver counts events by type and level and maintains the
// configured gauges.
type PrometheusObserver struct {
	events *prometheus.CounterVec
	gauges []gaugeBinding
}

type gaugeBinding struct {
	spec  GaugeSpec
	gauge prometheus.Gauge
}

// NewPrometheusObserver registers its collectors with reg, reusing
// collectors that are already registered under the same name. A nil reg
// uses prometheus.DefaultRegisterer.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer, gauges ...GaugeSpec) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "kernelhub"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	events, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Count of observability events by type and level.",
	}, []string{"type", "level"}))
	if err != nil {
		return nil, fmt.Errorf("register events counter: %w", err)
	}

	observer := &PrometheusObserver{events: events}
	for _, spec := range gauges {
		gauge, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      spec.Name,
			Help:      spec.Help,
		}))
		if err != nil {
			return nil, fmt.Errorf("register gauge %s: %w", spec.Name, err)
		}
		observer.gauges = append(observer.gauges, gaugeBinding{spec: spec, gauge: gauge})
	}

	return observer, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return collector, err
	}
	return collector, nil
}

func (o *PrometheusObserver) OnEvent(_ context.Context, event Event) {
	o.events.WithLabelValues(string(event.Type), event.Level.String()).Inc()

	for _, binding := range o.gauges {
		switch event.Type {
		case binding.spec.Inc:
			binding.gauge.Inc()
		case binding.spec.Dec:
			binding.gauge.Dec()
		}
	}
}

// Gauge returns the gauge registered under name, or nil.
func (o *PrometheusObserver) Gauge(name string) prometheus.Gauge {
	for _, binding := range o.gauges {
		if binding.spec.Name == name {
			return binding.gauge
		}
	}
	return nil
}
