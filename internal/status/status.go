package status

// TaskStatus represents the lifecycle stage of the link monitoring task.
// Values are produced by the task runner and only read by display code.
type TaskStatus string

const (
	// Uncreated indicates no monitoring task has been scheduled yet
	Uncreated TaskStatus = "UNCREATED"

	// Created indicates the task is scheduled and waiting for its first run
	Created TaskStatus = "CREATED"

	// Running indicates a health pass is in progress
	Running TaskStatus = "RUNNING"

	// Stopped indicates the task was cancelled (e.g., after a config change)
	Stopped TaskStatus = "STOPPED"

	// Failed indicates the last health pass did not finish
	Failed TaskStatus = "FAILED"

	// Completed indicates the last health pass finished successfully
	Completed TaskStatus = "COMPLETED"
)

// UnknownLabel is returned by Label for values outside the enumeration
const UnknownLabel = "未知状态"

var labels = map[TaskStatus]string{
	Uncreated: "未创建",
	Created:   "已创建,等待执行",
	Running:   "执行中",
	Stopped:   "已停止",
	Failed:    "执行失败",
	Completed: "任务成功",
}

// All returns every defined status in lifecycle order
func All() []TaskStatus {
	return []TaskStatus{Uncreated, Created, Running, Stopped, Failed, Completed}
}

// Parse converts a raw value into a TaskStatus.
// The boolean is false when the value is not one of the defined statuses.
func Parse(s string) (TaskStatus, bool) {
	st := TaskStatus(s)
	return st, st.IsValid()
}

// IsValid reports whether s is one of the defined statuses
func (s TaskStatus) IsValid() bool {
	_, ok := labels[s]
	return ok
}

// String implements fmt.Stringer
func (s TaskStatus) String() string {
	return string(s)
}

// Label returns the display label for s, or UnknownLabel
func Label(s TaskStatus) string {
	if label, ok := labels[s]; ok {
		return label
	}
	return UnknownLabel
}

// Label returns the display label for s
func (s TaskStatus) Label() string {
	return Label(s)
}
