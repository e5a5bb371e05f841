package status

import (
	"testing"
)

// TestLabel tests the label lookup for defined and undefined statuses
func TestLabel(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   string
	}{
		{name: "uncreated", status: Uncreated, want: "未创建"},
		{name: "created", status: Created, want: "已创建,等待执行"},
		{name: "running", status: Running, want: "执行中"},
		{name: "stopped", status: Stopped, want: "已停止"},
		{name: "failed", status: Failed, want: "执行失败"},
		{name: "completed", status: Completed, want: "任务成功"},
		{name: "empty", status: "", want: UnknownLabel},
		{name: "lowercase", status: "completed", want: UnknownLabel},
		{name: "garbage", status: "PAUSED", want: UnknownLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.status); got != tt.want {
				t.Errorf("Label(%q) = %q, want %q", tt.status, got, tt.want)
			}
			if got := tt.status.Label(); got != tt.want {
				t.Errorf("%q.Label() = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

// TestUnknownLabelValue pins the fallback text shown by the console
func TestUnknownLabelValue(t *testing.T) {
	if UnknownLabel != "未知状态" {
		t.Errorf("UnknownLabel = %q, want %q", UnknownLabel, "未知状态")
	}
}

// TestEveryStatusHasLabel tests that no defined status falls back
func TestEveryStatusHasLabel(t *testing.T) {
	seen := make(map[string]TaskStatus)
	for _, s := range All() {
		label := Label(s)
		if label == UnknownLabel {
			t.Errorf("Label(%s) fell back to UnknownLabel", s)
		}
		if other, dup := seen[label]; dup {
			t.Errorf("Label(%s) duplicates Label(%s) = %q", s, other, label)
		}
		seen[label] = s
	}
	if len(All()) != 6 {
		t.Errorf("All() returned %d statuses, want 6", len(All()))
	}
}

// TestParse tests conversion from raw strings
func TestParse(t *testing.T) {
	for _, s := range All() {
		got, ok := Parse(string(s))
		if !ok || got != s {
			t.Errorf("Parse(%q) = %q, %v; want %q, true", s, got, ok, s)
		}
	}

	for _, raw := range []string{"", "running", "UNKNOWN"} {
		if _, ok := Parse(raw); ok {
			t.Errorf("Parse(%q) ok = true, want false", raw)
		}
	}
}

// TestShowResult tests revision A result visibility
func TestShowResult(t *testing.T) {
	for _, s := range All() {
		want := s == Completed
		if got := ShowResult(s); got != want {
			t.Errorf("ShowResult(%s) = %v, want %v", s, got, want)
		}
	}
}

// TestShowNextScheduledExecution tests revision A next-run visibility
func TestShowNextScheduledExecution(t *testing.T) {
	for _, s := range All() {
		want := s != Created
		if got := ShowNextScheduledExecution(s); got != want {
			t.Errorf("ShowNextScheduledExecution(%s) = %v, want %v", s, got, want)
		}
	}
}

// TestRevisionBAlwaysVisible tests that revision B flags ignore the status
func TestRevisionBAlwaysVisible(t *testing.T) {
	inputs := append(All(), "", "BOGUS")
	for _, s := range inputs {
		if !ShowResultSpec(s) {
			t.Errorf("ShowResultSpec(%q) = false, want true", s)
		}
		if !ShowMonitorRecord(s) {
			t.Errorf("ShowMonitorRecord(%q) = false, want true", s)
		}
	}
}

// TestDisplayIdempotent tests that repeated evaluation yields identical flags
func TestDisplayIdempotent(t *testing.T) {
	for _, s := range All() {
		first := Display(s)
		firstLabel := Label(s)
		for i := 0; i < 3; i++ {
			if got := Display(s); got != first {
				t.Errorf("Display(%s) call %d = %+v, want %+v", s, i, got, first)
			}
			if got := Label(s); got != firstLabel {
				t.Errorf("Label(%s) call %d = %q, want %q", s, i, got, firstLabel)
			}
		}
	}
}

// TestFailedScenario tests the display of a failed run end to end
func TestFailedScenario(t *testing.T) {
	s, ok := Parse("FAILED")
	if !ok {
		t.Fatal("Parse(FAILED) not ok")
	}

	if got := Label(s); got != "执行失败" {
		t.Errorf("Label() = %q, want 执行失败", got)
	}

	d := Display(s)
	if d.ShowResult {
		t.Error("ShowResult = true, want false")
	}
	if !d.ShowNextScheduledExecution {
		t.Error("ShowNextScheduledExecution = false, want true")
	}
	if !d.ShowResultSpec || !d.ShowMonitorRecord {
		t.Errorf("revision B flags = %+v, want both true", d)
	}
}
