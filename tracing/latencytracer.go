package tracing

import (
	"sync"

	"github.com/busforge/axi/sim"
)

// LatencyTracer collects the latency of a certain type of task. If the
// execution of two tasks overlaps, both latencies are counted in full.
type LatencyTracer struct {
	timeTeller    sim.TimeTeller
	filter        TaskFilter
	lock          sync.Mutex
	inflightTasks map[string]Task

	count     uint64
	totalTime sim.VTimeInSec
	maxTime   sim.VTimeInSec
}

// NewLatencyTracer creates a new LatencyTracer
func NewLatencyTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *LatencyTracer {
	t := &LatencyTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightTasks: make(map[string]Task),
	}

	return t
}

// TotalTime returns the total time has been spent on the tasks.
func (t *LatencyTracer) TotalTime() sim.VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.totalTime
}

// AverageTime returns the average latency of the completed tasks.
func (t *LatencyTracer) AverageTime() sim.VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.count == 0 {
		return 0
	}

	return t.totalTime / sim.VTimeInSec(t.count)
}

// MaxTime returns the longest latency observed.
func (t *LatencyTracer) MaxTime() sim.VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.maxTime
}

// TotalCount returns the number of completed tasks.
func (t *LatencyTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

// NumInflight returns the number of tasks started but not ended.
func (t *LatencyTracer) NumInflight() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.inflightTasks)
}

// StartTask records the task start time
func (t *LatencyTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	if t.filter != nil && !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// StepTask does nothing
func (t *LatencyTracer) StepTask(_ Task) {
	// Do nothing
}

// EndTask records the end of the task
func (t *LatencyTracer) EndTask(task Task) {
	task.EndTime = t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	latency := task.EndTime - originalTask.StartTime
	t.totalTime += latency
	t.count++

	if latency > t.maxTime {
		t.maxTime = latency
	}

	delete(t.inflightTasks, task.ID)
}
