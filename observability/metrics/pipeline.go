package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics collects the credential pipeline's observability counters.
// Progress reporting has no effect on correctness; every method tolerates a
// nil receiver so call sites never need guards.
type PipelineMetrics struct {
	jobsProcessed     *prometheus.CounterVec
	credentialsIssued *prometheus.CounterVec
	loyaltyWrites     *prometheus.CounterVec
	walletsDispatched *prometheus.CounterVec
	storeFailures     *prometheus.CounterVec
}

var (
	pipelineOnce     sync.Once
	pipelineRegistry *PipelineMetrics
)

// Pipeline returns the process-wide pipeline metrics, registering the
// collectors on first use.
func Pipeline() *PipelineMetrics {
	pipelineOnce.Do(func() {
		pipelineRegistry = &PipelineMetrics{
			jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyaltyd_jobs_processed_total",
				Help: "Count of queue jobs processed by task type and outcome.",
			}, []string{"task", "outcome"}),
			credentialsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyaltyd_credentials_issued_total",
				Help: "Count of credentials created in the store by data model.",
			}, []string{"data_model"}),
			loyaltyWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyaltyd_loyalty_pass_writes_total",
				Help: "Loyalty pass aggregation outcomes (created, updated, unchanged, skipped).",
			}, []string{"outcome"}),
			walletsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyaltyd_wallets_dispatched_total",
				Help: "Wallet pipelines submitted to the task runner by report kind.",
			}, []string{"kind"}),
			storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyaltyd_store_failures_total",
				Help: "Credential store call failures by operation.",
			}, []string{"operation"}),
		}
		prometheus.MustRegister(
			pipelineRegistry.jobsProcessed,
			pipelineRegistry.credentialsIssued,
			pipelineRegistry.loyaltyWrites,
			pipelineRegistry.walletsDispatched,
			pipelineRegistry.storeFailures,
		)
	})
	return pipelineRegistry
}

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *PipelineMetrics) ObserveJob(task, outcome string) {
	if m == nil {
		return
	}
	m.jobsProcessed.WithLabelValues(task, outcome).Inc()
}

func (m *PipelineMetrics) ObserveCredentialIssued(dataModel string) {
	if m == nil {
		return
	}
	if dataModel == "" {
		dataModel = "unknown"
	}
	m.credentialsIssued.WithLabelValues(dataModel).Inc()
}

func (m *PipelineMetrics) ObserveLoyaltyWrite(outcome string) {
	if m == nil {
		return
	}
	m.loyaltyWrites.WithLabelValues(outcome).Inc()
}

func (m *PipelineMetrics) ObserveWalletDispatched(kind string) {
	if m == nil {
		return
	}
	m.walletsDispatched.WithLabelValues(kind).Inc()
}

func (m *PipelineMetrics) IncStoreFailure(operation string) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.storeFailures.WithLabelValues(operation).Inc()
}
