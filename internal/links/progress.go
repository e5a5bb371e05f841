package links

import "fmt"

// Progress renders pass progress as "monitored/all（无需监测友链数notRequired）"
func Progress(all, notRequired, monitored int) string {
	return fmt.Sprintf("%d/%d（无需监测友链数%d）", monitored, all, notRequired)
}
