package status

// Two generations of display rules exist for the monitor view. Revision A gates
// the result panel on a successful run; revision B always shows the plugin
// configuration and the monitor records. Both are kept and reported together.

// ShowResult reports whether the monitoring result should be shown (revision A).
// Only a successfully completed run has a result worth showing.
func ShowResult(s TaskStatus) bool {
	return s == Completed
}

// ShowNextScheduledExecution reports whether the next run time should be shown
// (revision A). A task that is only created has no meaningful estimate yet.
func ShowNextScheduledExecution(s TaskStatus) bool {
	return s != Created
}

// ShowResultSpec reports whether the plugin configuration should be shown (revision B)
func ShowResultSpec(TaskStatus) bool {
	return true
}

// ShowMonitorRecord reports whether the monitor records should be shown (revision B)
func ShowMonitorRecord(TaskStatus) bool {
	return true
}

// Visibility holds every display flag derived from a status
type Visibility struct {
	ShowResult                 bool `json:"show_result"`
	ShowNextScheduledExecution bool `json:"show_next_scheduled_execution"`
	ShowResultSpec             bool `json:"show_result_spec"`
	ShowMonitorRecord          bool `json:"show_monitor_record"`
}

// Display evaluates both revisions of the display rules for s
func Display(s TaskStatus) Visibility {
	return Visibility{
		ShowResult:                 ShowResult(s),
		ShowNextScheduledExecution: ShowNextScheduledExecution(s),
		ShowResultSpec:             ShowResultSpec(s),
		ShowMonitorRecord:          ShowMonitorRecord(s),
	}
}
