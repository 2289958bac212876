package runtime

import (
	fnv1 "github.com/crossplane/function-sdk-go/proto/v1"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	functionRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dagbucket_function_runs_total",
		Help: "Number of composition function runs per service",
	}, []string{"service"})

	stepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dagbucket_function_step_seconds",
		Help:    "Duration of composition function steps",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, .25, .5, 1, 2.5},
	}, []string{"service", "step"})

	stepResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dagbucket_function_step_results_total",
		Help: "Results of composition function steps by severity",
	}, []string{"service", "step", "severity"})
)

// RegisterMetrics registers the function metrics with the given registerer.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{functionRuns, stepDuration, stepResults} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func severityLabel(s fnv1.Severity) string {
	switch s {
	case fnv1.Severity_SEVERITY_FATAL:
		return "fatal"
	case fnv1.Severity_SEVERITY_WARNING:
		return "warning"
	case fnv1.Severity_SEVERITY_NORMAL:
		return "normal"
	}
	return "unspecified"
}
