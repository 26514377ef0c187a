package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// maxRetainedSamples bounds the raw-sample ring buffer kept per
// metric for local introspection; Prometheus's own aggregated
// histograms don't expose individual observations back to the
// process that recorded them.
const maxRetainedSamples = 100

var (
	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "notepipe_job_duration_seconds",
		Help: "Processing time of a pipeline job, tagged by operation and outcome.",
	}, []string{"operation", "outcome"})

	actionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "notepipe_action_duration_seconds",
		Help: "Execution time of a single action, tagged by action name.",
	}, []string{"action"})

	queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "notepipe_queue_depth",
		Help: "Observed depth of a pipeline queue.",
	}, []string{"queue"})

	workerUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "notepipe_worker_up",
		Help: "1 if the worker bound to this queue is running, 0 otherwise.",
	}, []string{"queue"})

	staleNotesReaped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notepipe_stale_notes_reaped_total",
		Help: "Completion-tracker entries force-cleaned by the housekeeping sweep.",
	})
)

func init() {
	prometheus.MustRegister(jobDuration, actionDuration, queueDepth, workerUp, staleNotesReaped)
}

// ring is a capped FIFO buffer of raw float64 samples, used to answer
// "what were the last N values of this metric" without re-deriving it
// from Prometheus's aggregated buckets.
type ring struct {
	mu      sync.Mutex
	samples []float64
	cap     int
}

func newRing(cap int) *ring {
	return &ring{cap: cap}
}

func (r *ring) add(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, v)
	if len(r.samples) > r.cap {
		r.samples = r.samples[len(r.samples)-r.cap:]
	}
}

func (r *ring) snapshot() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.samples))
	copy(out, r.samples)
	return out
}

// Collector records the metrics the runtime emits and retains a
// bounded window of raw samples per metric/tag combination for
// introspection outside of a Prometheus scrape.
type Collector struct {
	mu         sync.Mutex
	jobSamples map[string]*ring
	actSamples map[string]*ring
}

// NewCollector creates a Collector backed by the package-level
// Prometheus registrations.
func NewCollector() *Collector {
	return &Collector{
		jobSamples: make(map[string]*ring),
		actSamples: make(map[string]*ring),
	}
}

// ObserveJobDuration records a job's processing time in seconds.
func (c *Collector) ObserveJobDuration(operation, outcome string, seconds float64) {
	jobDuration.WithLabelValues(operation, outcome).Observe(seconds)
	c.ringFor(c.jobSamples, operation+"|"+outcome).add(seconds)
}

// ObserveActionDuration records a single action's execution time.
func (c *Collector) ObserveActionDuration(action string, seconds float64) {
	actionDuration.WithLabelValues(action).Observe(seconds)
	c.ringFor(c.actSamples, action).add(seconds)
}

// SetQueueDepth reports the last-observed depth of a queue.
func (c *Collector) SetQueueDepth(queue string, depth float64) {
	queueDepth.WithLabelValues(queue).Set(depth)
}

// SetWorkerUp flips the up/down gauge for a queue's worker.
func (c *Collector) SetWorkerUp(queue string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	workerUp.WithLabelValues(queue).Set(v)
}

// IncStaleNotesReaped counts one housekeeping force-cleanup.
func (c *Collector) IncStaleNotesReaped(n int) {
	staleNotesReaped.Add(float64(n))
}

// JobDurationSamples returns up to the last 100 retained job-duration
// samples for the given operation/outcome tag pair.
func (c *Collector) JobDurationSamples(operation, outcome string) []float64 {
	return c.ringFor(c.jobSamples, operation+"|"+outcome).snapshot()
}

// ActionDurationSamples returns up to the last 100 retained
// action-duration samples for the given action name.
func (c *Collector) ActionDurationSamples(action string) []float64 {
	return c.ringFor(c.actSamples, action).snapshot()
}

func (c *Collector) ringFor(m map[string]*ring, key string) *ring {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := m[key]
	if !ok {
		r = newRing(maxRetainedSamples)
		m[key] = r
	}
	return r
}
