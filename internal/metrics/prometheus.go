// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the MindfulTime reward core.
var (
	// Counters.
	TasksCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_completed_total",
			Help: "Total number of mindful tasks completed",
		},
		[]string{"category"},
	)

	MinutesEarnedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minutes_earned_total",
			Help: "Total minutes credited to reward ledgers",
		},
		[]string{"type"}, // 'earned' or 'bonus'
	)

	MinutesSpentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minutes_spent_total",
			Help: "Total minutes spent on app time extensions",
		},
	)

	SpendRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spend_rejected_total",
			Help: "Total spend attempts rejected for insufficient balance",
		},
	)

	AchievementsUnlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Total number of achievements unlocked",
		},
		[]string{"achievement", "type"},
	)

	// Gauges.
	BlockedApps = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "blocked_apps",
			Help: "Current number of blocked apps across all users",
		},
	)

	// Histograms.
	CompletionPipelineDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "completion_pipeline_duration_seconds",
			Help:    "Time taken to run the task completion pipeline",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		},
	)

	// Sweep job metrics.
	SweepJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "limit_sweep_jobs_run_total",
			Help: "Total limit-sweep job executions",
		},
		[]string{"status"},
	)

	SweepSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "limit_sweep_skipped_total",
			Help: "Total sweep runs skipped because the prior run was still in flight",
		},
	)

	SweepJobDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "limit_sweep_duration_seconds",
			Help:    "Time taken to execute the limit-sweep job",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 8), // 10ms to ~1.3s
		},
	)

	DailyResetJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_reset_jobs_run_total",
			Help: "Total daily rollover job executions",
		},
		[]string{"status"},
	)
)

// RecordTaskCompleted records a completed mindful task.
func RecordTaskCompleted(category string) {
	TasksCompletedTotal.WithLabelValues(category).Inc()
}

// RecordMinutesEarned records minutes credited to a ledger.
func RecordMinutesEarned(txnType string, minutes int) {
	MinutesEarnedTotal.WithLabelValues(txnType).Add(float64(minutes))
}

// RecordMinutesSpent records minutes spent.
func RecordMinutesSpent(minutes int) {
	MinutesSpentTotal.Add(float64(minutes))
}

// RecordSpendRejected records a spend rejected for insufficient balance.
func RecordSpendRejected() {
	SpendRejectedTotal.Inc()
}

// RecordAchievementUnlocked records an achievement unlock.
func RecordAchievementUnlocked(slug, achievementType string) {
	AchievementsUnlockedTotal.WithLabelValues(slug, achievementType).Inc()
}

// SetBlockedApps sets the current number of blocked apps.
func SetBlockedApps(count int) {
	BlockedApps.Set(float64(count))
}

// ObservePipelineDuration observes the duration of a completion pipeline run.
func ObservePipelineDuration(seconds float64) {
	CompletionPipelineDurationSeconds.Observe(seconds)
}

// RecordSweepRun records a limit-sweep job execution.
func RecordSweepRun(status string) {
	SweepJobsRunTotal.WithLabelValues(status).Inc()
}

// RecordSweepSkipped records a sweep skipped due to an in-flight run.
func RecordSweepSkipped() {
	SweepSkippedTotal.Inc()
}

// ObserveSweepDuration observes the duration of a limit-sweep job.
func ObserveSweepDuration(seconds float64) {
	SweepJobDurationSeconds.Observe(seconds)
}

// RecordDailyResetRun records a daily rollover job execution.
func RecordDailyResetRun(status string) {
	DailyResetJobsRunTotal.WithLabelValues(status).Inc()
}
