package observability

import (
	"sort"
	"sync"
	"time"
)

// TaskCounts is one row of the worker tally.
type TaskCounts struct {
	Claimed         uint64        `json:"claimed"`
	Done            uint64        `json:"done"`
	Failed          uint64        `json:"failed"`
	Retried         uint64        `json:"retried"`
	DeadLettered    uint64        `json:"deadLettered"`
	DurationCount   uint64        `json:"-"`
	AverageDuration time.Duration `json:"-"`
	MaxDuration     time.Duration `json:"-"`

	total time.Duration
}

func (c *TaskCounts) observe(d time.Duration) {
	c.DurationCount++
	c.total += d
	if d > c.MaxDuration {
		c.MaxDuration = d
	}
}

func (c *TaskCounts) add(o TaskCounts) {
	c.Claimed += o.Claimed
	c.Done += o.Done
	c.Failed += o.Failed
	c.Retried += o.Retried
	c.DeadLettered += o.DeadLettered
	c.DurationCount += o.DurationCount
	c.total += o.total
	if o.MaxDuration > c.MaxDuration {
		c.MaxDuration = o.MaxDuration
	}
}

func (c TaskCounts) settle() TaskCounts {
	if c.DurationCount > 0 {
		c.AverageDuration = c.total / time.Duration(c.DurationCount)
	}
	return c
}

// TaskMetrics is the worker's in-process tally, kept per task type so the
// health server can tell employer notifications from applicant ones.
type TaskMetrics struct {
	mu     sync.Mutex
	byType map[string]*TaskCounts
}

func NewTaskMetrics() *TaskMetrics {
	return &TaskMetrics{byType: make(map[string]*TaskCounts)}
}

func (m *TaskMetrics) with(taskType string, fn func(c *TaskCounts)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byType[taskType]
	if !ok {
		c = &TaskCounts{}
		m.byType[taskType] = c
	}
	fn(c)
}

func (m *TaskMetrics) IncClaimed(taskType string) {
	m.with(taskType, func(c *TaskCounts) { c.Claimed++ })
}

func (m *TaskMetrics) IncDone(taskType string) {
	m.with(taskType, func(c *TaskCounts) { c.Done++ })
}

func (m *TaskMetrics) IncRetried(taskType string) {
	m.with(taskType, func(c *TaskCounts) { c.Retried++ })
}

// IncDeadLettered records a task that will not run again.
func (m *TaskMetrics) IncDeadLettered(taskType string) {
	m.with(taskType, func(c *TaskCounts) {
		c.Failed++
		c.DeadLettered++
	})
}

func (m *TaskMetrics) ObserveDuration(taskType string, d time.Duration) {
	m.with(taskType, func(c *TaskCounts) { c.observe(d) })
}

// TaskMetricsSnapshot carries the totals inline and the per-type rows in ByType.
type TaskMetricsSnapshot struct {
	TaskCounts
	ByType map[string]TaskCounts
}

// Types lists the task types seen so far, sorted.
func (s TaskMetricsSnapshot) Types() []string {
	out := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (m *TaskMetrics) Snapshot() TaskMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total TaskCounts
	byType := make(map[string]TaskCounts, len(m.byType))
	for t, c := range m.byType {
		byType[t] = c.settle()
		total.add(*c)
	}

	return TaskMetricsSnapshot{TaskCounts: total.settle(), ByType: byType}
}
