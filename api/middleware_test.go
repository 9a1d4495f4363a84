package api

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func echoBody(c echo.Context) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	return c.String(http.StatusOK, string(data))
}

func TestGzipRequestMiddlewareInflates(t *testing.T) {
	e := echo.New()
	e.POST("/", echoBody, GzipRequestMiddleware())

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(`{"time":"08:30"}`))
	zw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set(echo.HeaderContentEncoding, "identity, GZIP")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != `{"time":"08:30"}` {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestGzipRequestMiddlewareRejectsInvalidBody(t *testing.T) {
	e := echo.New()
	e.POST("/", echoBody, GzipRequestMiddleware())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("plain text"))
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGzipRequestMiddlewarePassThrough(t *testing.T) {
	e := echo.New()
	e.POST("/", echoBody, GzipRequestMiddleware())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("plain"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Body.String() != "plain" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestRequestLoggerLevels(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	e := echo.New()
	e.Use(requestLogger(logger))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/bad", func(c echo.Context) error { return c.NoContent(http.StatusBadRequest) })
	e.GET("/fail", func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError, "boom") })

	tests := []struct {
		path  string
		level log.Level
	}{
		{path: "/ok", level: log.DebugLevel},
		{path: "/bad", level: log.WarnLevel},
		{path: "/fail", level: log.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			hook.Reset()
			e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))
			entry := hook.LastEntry()
			if entry == nil || entry.Level != tt.level {
				t.Fatalf("unexpected entry %#v", entry)
			}
			if entry.Data["uri"] != tt.path {
				t.Fatalf("unexpected uri %v", entry.Data["uri"])
			}
		})
	}
}
