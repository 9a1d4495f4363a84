package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"petcare/storage"
	"petcare/tracker"
)

func newBenchTracker(b *testing.B) *tracker.Tracker {
	b.Helper()
	kv, err := storage.NewSQLiteKV(":memory:")
	if err != nil {
		b.Fatalf("sqlite: %v", err)
	}
	store := storage.New(kv, "bench:")
	b.Cleanup(func() { _ = store.Close() })
	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	return tracker.New(store, tracker.Options{Logger: logger})
}

func BenchmarkPostCommands(b *testing.B) {
	payloads := []struct {
		name     string
		commands int
	}{
		{name: "Single", commands: 1},
		{name: "Batch4", commands: 4},
	}

	for _, payload := range payloads {
		b.Run(payload.name, func(b *testing.B) {
			tr := newBenchTracker(b)
			handler := postCommands(tr, nil, nil)
			body := buildCommandPayload(payload.commands)

			runBenchmark(b, handler, http.MethodPost, body)
		})
	}
}

func BenchmarkGetDashboard(b *testing.B) {
	tr := newBenchTracker(b)
	logger := log.New()
	logger.SetLevel(log.WarnLevel)

	runBenchmark(b, getDashboard(tr, logger), http.MethodGet, nil)
}

func runBenchmark(b *testing.B, handler echo.HandlerFunc, method string, payload []byte) {
	e := echo.New()
	e.JSONSerializer = sonicSerializer{}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(method, "/", bytes.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler(c); err != nil {
			b.Fatalf("handler returned error: %v", err)
		}
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status: %d", rec.Code)
		}
	}
}

func buildCommandPayload(count int) []byte {
	ids := []string{"breakfast", "snacks", "dinner", "omega3"}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < count; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, `{"type":"toggle-task","taskId":%q}`, ids[i%len(ids)])
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
