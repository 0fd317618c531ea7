// Package prometheus renders engine counters in Prometheus text exposition
// format. The exporter holds no state of its own; mount Handler wherever the
// deployment scrapes.
package prometheus

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	shopauth "github.com/MrEthical07/shopauth"
)

// Source is the subset of the engine the exporter reads. It is an interface
// so tests can feed fixed snapshots.
type Source interface {
	MetricsSnapshot() map[shopauth.MetricID]uint64
	TasksDropped() uint64
}

// counterNames maps engine counters to their exposition names. Names follow
// the <namespace>_<subject>_total convention.
var counterNames = map[shopauth.MetricID]string{
	shopauth.MetricRegisterSuccess:          "shopauth_register_success_total",
	shopauth.MetricRegisterDuplicate:        "shopauth_register_duplicate_total",
	shopauth.MetricLoginSuccess:             "shopauth_login_success_total",
	shopauth.MetricLoginFailure:             "shopauth_login_failure_total",
	shopauth.MetricRefreshSuccess:           "shopauth_refresh_success_total",
	shopauth.MetricRefreshFailure:           "shopauth_refresh_failure_total",
	shopauth.MetricRotationConflict:         "shopauth_refresh_rotation_conflict_total",
	shopauth.MetricLogout:                   "shopauth_logout_total",
	shopauth.MetricLogoutAll:                "shopauth_logout_all_total",
	shopauth.MetricEmailVerificationSent:    "shopauth_email_verification_sent_total",
	shopauth.MetricEmailVerificationSuccess: "shopauth_email_verification_success_total",
	shopauth.MetricEmailVerificationFailure: "shopauth_email_verification_failure_total",
	shopauth.MetricResetRequested:           "shopauth_password_reset_requested_total",
	shopauth.MetricResetSuccess:             "shopauth_password_reset_success_total",
	shopauth.MetricResetFailure:             "shopauth_password_reset_failure_total",
	shopauth.MetricAccountDeleted:           "shopauth_account_deleted_total",
	shopauth.MetricTaskDropped:              "shopauth_task_dropped_total",
}

const droppedName = "shopauth_background_tasks_dropped_total"

// Exporter serves a point-in-time view of the engine's counters.
type Exporter struct {
	source Source
}

func New(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler returns the scrape endpoint.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(e.Render()))
	})
}

// Render produces the full exposition document. Lines are sorted by metric
// name so scrapes are diffable.
func (e *Exporter) Render() string {
	snap := e.source.MetricsSnapshot()

	lines := make([]string, 0, len(snap)+2)
	for id, value := range snap {
		name, ok := counterNames[id]
		if !ok {
			continue
		}
		lines = append(lines, renderCounter(name, value))
	}
	lines = append(lines, renderCounter(droppedName, e.source.TasksDropped()))
	sort.Strings(lines)

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
	}
	return b.String()
}

func renderCounter(name string, value uint64) string {
	var b strings.Builder
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
	return b.String()
}
