package tasks

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Resource identity of stored results
const (
	ResultGroup      = "result.linkshealthmonitor.tch.cool"
	ResultVersion    = "v1alpha1"
	ResultKind       = "Result"
	ResultNamePrefix = "links-health-monitor-"
)

// Result is the outcome of one health pass
type Result struct {
	APIVersion string     `json:"api_version"`
	Kind       string     `json:"kind"`
	Metadata   Metadata   `json:"metadata"`
	Spec       ResultSpec `json:"spec"`
}

// Metadata identifies a stored result
type Metadata struct {
	Name              string    `json:"name"`
	CreationTimestamp time.Time `json:"creation_timestamp"`
}

// ResultSpec carries the pass settings and per-link records
type ResultSpec struct {
	CustomizedCronEnable    bool                    `json:"customized_cron_enable"`
	CustomizedCron          string                  `json:"customized_cron"`
	CustomizedCronAvailable bool                    `json:"customized_cron_available"`
	PracticalCron           string                  `json:"practical_cron"`
	ExternalURL             string                  `json:"external_url"`
	MonitorDate             string                  `json:"monitor_date"`
	Records                 []LinkHealthCheckRecord `json:"records"`
}

// LinkHealthCheckRecord is the health of a single friend link
type LinkHealthCheckRecord struct {
	LinkName             string  `json:"link_name"`
	LinkURL              string  `json:"link_url"`
	LinkDisplayName      string  `json:"link_display_name"`
	LinkLogo             string  `json:"link_logo,omitempty"`
	LinkGroup            string  `json:"link_group,omitempty"`
	LinkGroupDisplayName string  `json:"link_group_display_name,omitempty"`
	WebsiteAccessible    bool    `json:"website_accessible"`
	LogoAccessible       bool    `json:"logo_accessible"`
	DisplayNameChanged   bool    `json:"display_name_changed"`
	LatestDisplayName    string  `json:"latest_display_name,omitempty"`
	FriendLinkRoute      string  `json:"friend_link_route,omitempty"`
	ContainsOurLink      bool    `json:"contains_our_link"`
	LatestArticleTitle   string  `json:"latest_article_title,omitempty"`
	LatestArticleURL     string  `json:"latest_article_url,omitempty"`
	LatestArticleTime    string  `json:"latest_article_time,omitempty"`
	ResponseTimeSeconds  float64 `json:"response_time_seconds"`
}

// NewResult returns an empty result stamped with a fresh name
func NewResult(now time.Time) *Result {
	return &Result{
		APIVersion: ResultGroup + "/" + ResultVersion,
		Kind:       ResultKind,
		Metadata: Metadata{
			Name:              NewResultName(),
			CreationTimestamp: now,
		},
	}
}

// NewResultName returns the result prefix followed by a dashless UUID
func NewResultName() string {
	return ResultNamePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
