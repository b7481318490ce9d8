package observability

import (
	"time"
)

// Timer measures one operation and reports it as a timing plus an outcome
// counter.
type Timer struct {
	metrics Metrics
	name    string
	start   time.Time
	now     func() time.Time
	tags    []Tag
}

// StartTimer starts timing the named operation.
func StartTimer(metrics Metrics, name string, tags ...Tag) *Timer {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Timer{metrics: metrics, name: name, start: time.Now(), now: time.Now, tags: tags}
}

// Elapsed returns the elapsed time without stopping the timer.
func (t *Timer) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}

// Stop records the duration tagged with result=ok or result=error.
func (t *Timer) Stop(err error) time.Duration {
	d := t.Elapsed()
	result := "ok"
	if err != nil {
		result = "error"
	}
	tags := append(append([]Tag(nil), t.tags...), T("result", result))
	t.metrics.Timing(t.name, d, tags...)
	return d
}
