package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"petcare/domain"
	"petcare/notify"
)

// Services are the collaborators the routes are served from. Stream, Health
// and Deduper are optional.
type Services struct {
	Tracker       Tracker
	Notifications Notifications
	Stream        notify.Subscriber
	Health        Pinger
	Deduper       Deduper
	Logger        *log.Logger
	// Registry collects request metrics. A private registry is created when nil.
	Registry *prometheus.Registry
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, s Services) {
	logger := s.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	reg := s.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	e.JSONSerializer = sonicSerializer{}
	e.Use(requestLogger(logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "petcare",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/api/notifications/stream"
		},
	}))
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg}))
	e.GET("/healthz", healthz(s.Health))

	g := e.Group("/api", GzipRequestMiddleware())
	g.GET("/dashboard", getDashboard(s.Tracker, logger))
	g.GET("/catalog", getCatalog(s.Tracker))
	g.GET("/today", getToday(s.Tracker))
	g.GET("/history", getHistory(s.Tracker))
	g.POST("/tasks/:id/toggle", toggleTask(s.Tracker))
	g.GET("/reminders", getReminders(s.Tracker))
	g.PUT("/reminders/:id", updateReminder(s.Tracker))
	g.POST("/day/reset", resetDay(s.Tracker))
	g.POST("/commands", postCommands(s.Tracker, s.Notifications, s.Deduper))
	g.GET("/notifications", getNotifications(s.Notifications))
	g.POST("/notifications", enableNotifications(s.Notifications))
	g.DELETE("/notifications", disableNotifications(s.Notifications))
	g.GET("/notifications/stream", streamNotifications(s.Stream))
}

func healthz(health Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if health == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := health.Ping(ctx); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusServiceUnavailable, "store unavailable")
		}
		return c.NoContent(http.StatusOK)
	}
}

func getDashboard(tr Tracker, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newDashboardRequestMetrics(logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		loadStart := time.Now()
		dash, loadErr := tr.Dashboard(c.Request().Context())
		metrics.ObserveLoad(time.Since(loadStart))
		if loadErr != nil {
			metrics.SetErrorStage("load")
			c.Logger().Error(loadErr)
			err = c.String(http.StatusInternalServerError, loadErr.Error())
			return err
		}
		metrics.SetDashboard(dash)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, dash)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getCatalog(tr Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, catalogResponse{
			Tasks:      tr.Catalog().Tasks(),
			Categories: domain.Categories(),
		})
	}
}

func getToday(tr Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		day, err := tr.Today(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, day)
	}
}

func getHistory(tr Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		history, err := tr.History(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, historyResponse{
			Dates:   history.DatesDesc(),
			History: history,
			Missed:  domain.MissedTasks(history, tr.Catalog()),
		})
	}
}

func toggleTask(tr Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		day, applied, err := tr.Toggle(c.Request().Context(), c.Param("id"))
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, toggleResponse{Applied: applied, Today: day})
	}
}

func getReminders(tr Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		reminders, err := tr.Reminders(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, reminders)
	}
}

func updateReminder(tr Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req reminderRequest
		if err := c.Bind(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if !domain.ValidReminder(req.Time) {
			return c.String(http.StatusBadRequest, "invalid time, expected HH:MM")
		}
		reminders, applied, err := tr.UpdateReminder(c.Request().Context(), c.Param("id"), req.Time)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, reminderResponse{Applied: applied, Reminders: reminders})
	}
}

func resetDay(tr Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		day, err := tr.ResetDay(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, day)
	}
}

// postCommands applies a batch of user intents in order. The batch is
// validated before anything is applied; commands whose idempotency key was
// already seen are reported as duplicates and skipped.
func postCommands(tr Tracker, notifications Notifications, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		lr := io.LimitReader(c.Request().Body, postCommandMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		cmds := make([]domain.Command, 0, 4)
		if err := dec.Decode(&cmds); err != nil {
			return c.JSON(http.StatusBadRequest, commandsResponse{Error: "invalid body"})
		}
		for _, cmd := range cmds {
			if err := validateCommand(cmd, notifications); err != nil {
				return c.JSON(http.StatusBadRequest, commandsResponse{Error: err.Error()})
			}
		}

		ctx := c.Request().Context()
		results := make([]commandResult, 0, len(cmds))
		for _, cmd := range cmds {
			dedupe := deduper != nil && cmd.IdempotencyKey != ""
			if dedupe {
				added, err := deduper.Add(ctx, cmd.IdempotencyKey)
				if err != nil {
					c.Logger().Errorf("dedupe %s: %v", cmd.IdempotencyKey, err)
					return c.JSON(http.StatusInternalServerError, commandsResponse{Results: results, Error: "failed to record command"})
				}
				if !added {
					results = append(results, commandResult{Type: cmd.Type, TaskID: cmd.TaskID, Duplicate: true})
					continue
				}
			}
			res, err := applyCommand(ctx, tr, notifications, cmd)
			if err != nil {
				if dedupe {
					if rerr := deduper.Remove(ctx, cmd.IdempotencyKey); rerr != nil {
						c.Logger().Errorf("rollback %s: %v", cmd.IdempotencyKey, rerr)
					}
				}
				c.Logger().Errorf("apply %s: %v", cmd.Type, err)
				return c.JSON(http.StatusInternalServerError, commandsResponse{Results: results, Error: err.Error()})
			}
			results = append(results, res)
		}
		return c.JSON(http.StatusOK, commandsResponse{Results: results})
	}
}

func validateCommand(cmd domain.Command, notifications Notifications) error {
	switch cmd.Type {
	case domain.CommandToggleTask, domain.CommandResetDay:
		return nil
	case domain.CommandUpdateReminder:
		if !domain.ValidReminder(cmd.Time) {
			return fmt.Errorf("invalid time %q for %s", cmd.Time, cmd.TaskID)
		}
		return nil
	case domain.CommandEnableNotifications:
		if notifications == nil {
			return fmt.Errorf("notifications unavailable")
		}
		return nil
	default:
		return fmt.Errorf("unknown command type %q", cmd.Type)
	}
}

func applyCommand(ctx context.Context, tr Tracker, notifications Notifications, cmd domain.Command) (commandResult, error) {
	res := commandResult{Type: cmd.Type, TaskID: cmd.TaskID}
	switch cmd.Type {
	case domain.CommandToggleTask:
		_, applied, err := tr.Toggle(ctx, cmd.TaskID)
		res.Applied = applied
		return res, err
	case domain.CommandUpdateReminder:
		_, applied, err := tr.UpdateReminder(ctx, cmd.TaskID, cmd.Time)
		res.Applied = applied
		return res, err
	case domain.CommandResetDay:
		_, err := tr.ResetDay(ctx)
		res.Applied = err == nil
		return res, err
	case domain.CommandEnableNotifications:
		perm, err := notifications.Enable(ctx)
		res.Applied = perm == notify.PermissionGranted
		res.Result = string(perm)
		return res, err
	}
	return res, fmt.Errorf("unknown command type %q", cmd.Type)
}

func getNotifications(n Notifications) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, notificationState(n, ""))
	}
}

func enableNotifications(n Notifications) echo.HandlerFunc {
	return func(c echo.Context) error {
		if n == nil {
			return c.JSON(http.StatusOK, notificationState(nil, notify.PermissionUnsupported))
		}
		perm, err := n.Enable(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, notificationState(n, perm))
	}
}

func disableNotifications(n Notifications) echo.HandlerFunc {
	return func(c echo.Context) error {
		if n != nil {
			if err := n.Disable(c.Request().Context()); err != nil {
				c.Logger().Error(err)
				return c.String(http.StatusInternalServerError, err.Error())
			}
		}
		return c.JSON(http.StatusOK, notificationState(n, ""))
	}
}

func notificationState(n Notifications, perm notify.Permission) notificationsResponse {
	state := notify.Disabled
	if n != nil {
		state = n.State()
	}
	return notificationsResponse{
		Enabled:    state == notify.Enabled,
		State:      state.String(),
		Permission: perm,
	}
}
