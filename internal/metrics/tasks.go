// Package metrics provides Prometheus metrics for the scheduler, the
// buttons and the status display.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	taskSuspended = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "panelnode",
		Subsystem: "task",
		Name:      "suspended",
		Help:      "1 while the task is suspended",
	}, []string{"task"})

	taskToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "panelnode",
		Subsystem: "task",
		Name:      "toggles_total",
		Help:      "Run-state changes requested by button presses",
	}, []string{"task"})

	taskFaults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "panelnode",
		Subsystem: "task",
		Name:      "faults",
		Help:      "Recovered panics in the task body",
	}, []string{"task"})

	buttonEdges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "panelnode",
		Subsystem: "button",
		Name:      "edges_total",
		Help:      "Rising edges seen on each input",
	}, []string{"input"})

	displayFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panelnode",
		Subsystem: "display",
		Name:      "frames_total",
		Help:      "Frames presented on the status display",
	})

	kernelUptime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "panelnode",
		Subsystem: "kernel",
		Name:      "uptime_seconds",
		Help:      "Kernel time elapsed since the scheduler started",
	})

	// Local cache for SSE exporter access.
	taskCache   = make(map[string]*TaskMetrics)
	taskCacheMu sync.RWMutex
)

// TaskMetrics holds current metric values for a task.
type TaskMetrics struct {
	State     string // scheduler state: ready, running, blocked or suspended
	Suspended bool   // run-state as last set by the button task
	Toggles   float64
	Faults    float64
}

// SetTaskState records the scheduler state of a task. State is only ever
// written here so it keeps the scheduler vocabulary.
func SetTaskState(task, state string, suspended bool) {
	setSuspendedGauge(task, suspended)
	updateCache(task, func(m *TaskMetrics) {
		m.State = state
		m.Suspended = suspended
	})
}

// SetTaskSuspended records a run-state change without touching State.
func SetTaskSuspended(task string, suspended bool) {
	setSuspendedGauge(task, suspended)
	updateCache(task, func(m *TaskMetrics) { m.Suspended = suspended })
}

func setSuspendedGauge(task string, suspended bool) {
	v := 0.0
	if suspended {
		v = 1
	}
	taskSuspended.WithLabelValues(task).Set(v)
}

// IncTaskToggles counts one run-state change of a task.
func IncTaskToggles(task string) {
	taskToggles.WithLabelValues(task).Inc()
	updateCache(task, func(m *TaskMetrics) { m.Toggles++ })
}

// SetTaskFaults sets the fault count of a task.
func SetTaskFaults(task string, faults float64) {
	taskFaults.WithLabelValues(task).Set(faults)
	updateCache(task, func(m *TaskMetrics) { m.Faults = faults })
}

// IncButtonEdges counts one rising edge on an input.
func IncButtonEdges(input string) {
	buttonEdges.WithLabelValues(input).Inc()
}

// IncDisplayFrames counts one presented status frame.
func IncDisplayFrames() {
	displayFrames.Inc()
}

// SetKernelUptime sets the kernel clock in seconds.
func SetKernelUptime(seconds float64) {
	kernelUptime.Set(seconds)
}

// DeleteTaskMetrics removes all metrics for a task.
func DeleteTaskMetrics(task string) {
	taskSuspended.DeleteLabelValues(task)
	taskToggles.DeleteLabelValues(task)
	taskFaults.DeleteLabelValues(task)

	taskCacheMu.Lock()
	delete(taskCache, task)
	taskCacheMu.Unlock()
}

// GetTaskMetrics returns current metric values for a task.
func GetTaskMetrics(task string) *TaskMetrics {
	taskCacheMu.RLock()
	defer taskCacheMu.RUnlock()
	if m, ok := taskCache[task]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAllTaskMetrics returns metrics for every known task.
func GetAllTaskMetrics() map[string]*TaskMetrics {
	taskCacheMu.RLock()
	defer taskCacheMu.RUnlock()
	result := make(map[string]*TaskMetrics, len(taskCache))
	for name, m := range taskCache {
		dup := *m
		result[name] = &dup
	}
	return result
}

func updateCache(task string, update func(*TaskMetrics)) {
	taskCacheMu.Lock()
	defer taskCacheMu.Unlock()
	m, ok := taskCache[task]
	if !ok {
		m = &TaskMetrics{}
		taskCache[task] = m
	}
	update(m)
}
