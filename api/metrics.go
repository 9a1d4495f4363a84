package api

import (
	"time"

	log "github.com/sirupsen/logrus"

	"petcare/tracker"
)

type dashboardRequestMetrics struct {
	logger         *log.Logger
	start          time.Time
	loadDuration   time.Duration
	encodeDuration time.Duration
	completed      int
	missed         int
	wellbeing      float64
	hasDashboard   bool
	errorStage     string
}

func newDashboardRequestMetrics(logger *log.Logger) *dashboardRequestMetrics {
	return &dashboardRequestMetrics{
		logger: logger,
		start:  time.Now(),
	}
}

func (m *dashboardRequestMetrics) ObserveLoad(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.loadDuration = duration
}

func (m *dashboardRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *dashboardRequestMetrics) SetDashboard(dash tracker.Dashboard) {
	m.hasDashboard = true
	m.completed = dash.Progress.Completed
	m.missed = len(dash.Missed)
	m.wellbeing = dash.Wellbeing
}

func (m *dashboardRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *dashboardRequestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"route":    "/api/dashboard",
		"status":   status,
		"total_ms": durationToMillis(time.Since(m.start)),
	}
	if m.hasDashboard {
		fields["completed"] = m.completed
		fields["missed"] = m.missed
		fields["wellbeing"] = m.wellbeing
	}
	if m.loadDuration > 0 {
		fields["load_ms"] = durationToMillis(m.loadDuration)
	}
	if m.encodeDuration > 0 {
		fields["encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Debug("dashboard.request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
