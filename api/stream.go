package api

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"petcare/notify"
)

// streamNotifications pushes every shown reminder to the client as a
// server-sent event until the client goes away.
func streamNotifications(sub notify.Subscriber) echo.HandlerFunc {
	return func(c echo.Context) error {
		if sub == nil {
			return c.String(http.StatusServiceUnavailable, "notification stream unavailable")
		}
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		ctx := c.Request().Context()
		ch, stop := sub.Subscribe(ctx)
		defer stop()

		c.Response().WriteHeader(http.StatusOK)
		if _, err := c.Response().Write([]byte(": connected\n\n")); err != nil {
			return nil
		}
		flusher.Flush()
		for {
			select {
			case <-ctx.Done():
				return nil
			case n, ok := <-ch:
				if !ok {
					return nil
				}
				data, err := sonic.Marshal(n)
				if err != nil {
					c.Logger().Error(err)
					continue
				}
				if err := writeEvent(c.Response(), n.ID, data); err != nil {
					return nil
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w *echo.Response, id string, data []byte) error {
	if id != "" {
		if _, err := w.Write([]byte("id: " + id + "\n")); err != nil {
			return err
		}
	}
	if _, err := w.Write([]byte("event: reminder\ndata: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n\n"))
	return err
}
