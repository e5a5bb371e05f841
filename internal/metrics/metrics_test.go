package metrics

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// TestObservePass tests pass counters and duration
func TestObservePass(t *testing.T) {
	m := New()

	m.ObservePass(2*time.Second, nil)
	m.ObservePass(time.Second, errors.New("store down"))

	if got := testutil.ToFloat64(m.passes); got != 2 {
		t.Errorf("passes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.passesFailed); got != 1 {
		t.Errorf("passesFailed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lastPass); got <= 0 {
		t.Errorf("lastPass = %v, want a timestamp", got)
	}
	if n := testutil.CollectAndCount(m.passDuration); n != 1 {
		t.Errorf("passDuration series = %d, want 1", n)
	}
}

// TestObserveLink tests per-link counters
func TestObserveLink(t *testing.T) {
	m := New()

	m.ObserveLink(true, true)
	m.ObserveLink(false, false)
	m.ObserveLink(true, false)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{name: "checked", got: testutil.ToFloat64(m.linksChecked), want: 3},
		{name: "inaccessible", got: testutil.ToFloat64(m.linksInaccessible), want: 1},
		{name: "back links missing", got: testutil.ToFloat64(m.backLinksMissing), want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

// TestSnapshot tests the text exposition round trip through expfmt
func TestSnapshot(t *testing.T) {
	m := New()
	m.ObserveLink(false, true)
	m.ObservePass(3*time.Second, nil)

	text, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !strings.Contains(text, "links_health_links_inaccessible_total 1") {
		t.Errorf("snapshot missing inaccessible counter:\n%s", text)
	}

	decoder := expfmt.NewDecoder(strings.NewReader(text), expfmt.NewFormat(expfmt.TypeTextPlain))
	families := make(map[string]*dto.MetricFamily)
	for {
		mf := &dto.MetricFamily{}
		if err := decoder.Decode(mf); err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("Decode() error = %v", err)
		}
		families[mf.GetName()] = mf
	}

	passes, ok := families["links_health_passes_total"]
	if !ok {
		t.Fatal("links_health_passes_total not in snapshot")
	}
	if v := passes.GetMetric()[0].GetCounter().GetValue(); v != 1 {
		t.Errorf("passes_total = %v, want 1", v)
	}
}

// TestSummary tests the flattened counter view
func TestSummary(t *testing.T) {
	m := New()
	m.ObservePass(time.Second, nil)
	m.ObserveLink(true, false)

	s, err := m.Summary()
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if s["links_health_passes_total"] != 1 {
		t.Errorf("passes_total = %v, want 1", s["links_health_passes_total"])
	}
	if s["links_health_back_links_missing_total"] != 1 {
		t.Errorf("back_links_missing_total = %v, want 1", s["links_health_back_links_missing_total"])
	}
	if s["links_health_pass_duration_seconds_count"] != 1 {
		t.Errorf("pass_duration count = %v, want 1", s["links_health_pass_duration_seconds_count"])
	}
}
