package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "outfitkit"

// Prometheus 将指标导出为 Prometheus counter / histogram。
type Prometheus struct {
	users      *prometheus.CounterVec
	components prometheus.Counter
	negatives  *prometheus.CounterVec
	shortfall  *prometheus.CounterVec
	stages     *prometheus.HistogramVec
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus 创建并注册所有指标。reg 为 nil 时使用 prometheus.DefaultRegisterer。
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		users: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "split_users_total",
			Help:      "Users processed by the phase splitter, by outcome.",
		}, []string{"outcome"}),
		components: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "components_extracted_total",
			Help:      "Connected components extracted while splitting.",
		}),
		negatives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "negatives_generated_total",
			Help:      "Negative tuples accepted, by phase.",
		}, []string{"phase"}),
		shortfall: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "negatives_shortfall_total",
			Help:      "Negative tuples that could not be generated, by phase.",
		}, []string{"phase"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
	}
	for _, c := range []prometheus.Collector{p.users, p.components, p.negatives, p.shortfall, p.stages} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) UsersSplit(kept, dropped int) {
	p.users.WithLabelValues("kept").Add(float64(kept))
	p.users.WithLabelValues("dropped").Add(float64(dropped))
}

func (p *Prometheus) ComponentsExtracted(n int) { p.components.Add(float64(n)) }

func (p *Prometheus) NegativesGenerated(phase string, n int) {
	p.negatives.WithLabelValues(phase).Add(float64(n))
}

func (p *Prometheus) NegativeShortfall(phase string, missing int) {
	p.shortfall.WithLabelValues(phase).Add(float64(missing))
}

func (p *Prometheus) StageDuration(stage string, d time.Duration) {
	p.stages.WithLabelValues(stage).Observe(d.Seconds())
}
