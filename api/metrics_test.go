package api

import (
	"errors"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"petcare/domain"
	"petcare/tracker"
)

func TestDashboardRequestMetricsLog(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	metrics := newDashboardRequestMetrics(logger)
	metrics.start = metrics.start.Add(-50 * time.Millisecond)
	metrics.ObserveLoad(15 * time.Millisecond)
	metrics.ObserveEncode(5 * time.Millisecond)
	metrics.SetDashboard(tracker.Dashboard{
		Wellbeing: 85,
		Missed:    []domain.MissedTask{{TaskID: "breakfast"}},
		Progress:  domain.Progress{Completed: 3, Total: 7},
	})

	metrics.Log(http.StatusOK, nil)

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected log entry")
	}
	if entry.Message != "dashboard.request.metrics" {
		t.Fatalf("unexpected message: %s", entry.Message)
	}
	if entry.Data["completed"] != 3 || entry.Data["missed"] != 1 || entry.Data["wellbeing"] != 85.0 {
		t.Fatalf("unexpected dashboard fields: %#v", entry.Data)
	}
	if entry.Data["load_ms"] != 15.0 || entry.Data["encode_ms"] != 5.0 {
		t.Fatalf("unexpected durations: %#v", entry.Data)
	}
	if total, _ := entry.Data["total_ms"].(float64); total < 50 {
		t.Fatalf("expected total >= 50ms, got %v", entry.Data["total_ms"])
	}
	if _, ok := entry.Data["error_stage"]; ok {
		t.Fatalf("unexpected error stage")
	}
}

func TestDashboardRequestMetricsLogError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	metrics := newDashboardRequestMetrics(logger)
	metrics.ObserveLoad(0)
	metrics.SetErrorStage("load")
	metrics.SetErrorStage("")
	metrics.Log(http.StatusInternalServerError, errors.New("boom"))

	entry := hook.LastEntry()
	if entry.Data["error_stage"] != "load" || entry.Data["error"] != "boom" {
		t.Fatalf("unexpected fields: %#v", entry.Data)
	}
	if _, ok := entry.Data["load_ms"]; ok {
		t.Fatalf("zero durations must be omitted")
	}
	if _, ok := entry.Data["completed"]; ok {
		t.Fatalf("dashboard fields must be omitted without a dashboard")
	}
}

func TestDashboardRequestMetricsNilSafe(t *testing.T) {
	var metrics *dashboardRequestMetrics
	metrics.Log(http.StatusOK, nil)
}
