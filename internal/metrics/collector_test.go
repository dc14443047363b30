package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	state PoolState
}

func (f fakeSource) PoolState() PoolState {
	return f.state
}

func TestCollectorCount(t *testing.T) {
	src := fakeSource{state: PoolState{ID: "p1", Total: 4, Alive: 4, Busy: 1, Queued: 7}}

	if n := testutil.CollectAndCount(NewCollector(src, nil)); n != 4 {
		t.Errorf("expected 4 pool metrics without job metrics, got %d", n)
	}
	if n := testutil.CollectAndCount(NewCollector(src, New())); n != 8 {
		t.Errorf("expected 8 metrics with job metrics, got %d", n)
	}
}

func TestCollectorValues(t *testing.T) {
	src := fakeSource{state: PoolState{ID: "p1", Total: 4, Alive: 3, Busy: 2, Queued: 9}}
	m := New()
	m.Record(0, false, time.Millisecond)
	m.Record(1, false, time.Millisecond)
	m.Record(-1, true, time.Millisecond)

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(src, m))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	got := make(map[string]float64)
	for _, mf := range families {
		metric := mf.GetMetric()[0]
		if label := metric.GetLabel()[0]; label.GetName() != "pool" || label.GetValue() != "p1" {
			t.Errorf("%s: expected pool=p1 label, got %s=%s", mf.GetName(), label.GetName(), label.GetValue())
		}
		if metric.GetGauge() != nil {
			got[mf.GetName()] = metric.GetGauge().GetValue()
		} else {
			got[mf.GetName()] = metric.GetCounter().GetValue()
		}
	}

	want := map[string]float64{
		"bsempool_workers_total":       4,
		"bsempool_workers_alive":       3,
		"bsempool_workers_busy":        2,
		"bsempool_queue_depth":         9,
		"bsempool_jobs_executed_total": 3,
		"bsempool_jobs_failed_total":   2,
		"bsempool_jobs_panicked_total": 1,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %v, want %v", name, got[name], v)
		}
	}
}
