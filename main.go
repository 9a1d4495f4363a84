package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"petcare/api"
	"petcare/config"
	"petcare/domain"
	"petcare/notify"
	"petcare/storage"
	"petcare/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	logger := log.StandardLogger()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("timezone: %v", err)
	}
	clock := domain.InLocation(domain.RealClock{}, loc)

	var (
		kv        storage.KV
		publisher *notify.RedisPublisher
		deduper   api.Deduper
	)
	switch cfg.Backend {
	case config.BackendRedis:
		rc := redis.NewClient(parseRedisOptions(cfg.RedisURL))
		kv = storage.NewRedisKV(rc)
		publisher = notify.NewRedisPublisher(rc, cfg.NotifyChannel, logger)
		deduper = api.NewRedisDeduper(rc, cfg.KeyPrefix, cfg.DeduperTTL)
	default:
		kv, err = storage.NewSQLiteKV(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		deduper = api.NewMemoryDeduper(cfg.DeduperTTL, clock)
	}
	store := storage.New(kv, cfg.KeyPrefix)
	defer store.Close()

	tr := tracker.New(store, tracker.Options{
		Clock:         clock,
		RetentionDays: cfg.RetentionDays,
		Logger:        logger,
	})

	// Reminders always reach the log. The SSE stream is fed by redis pub/sub
	// when the store is shared, and by an in-process broker otherwise.
	notifiers := notify.Fanout{notify.LogNotifier{Logger: logger}}
	var stream notify.Subscriber
	if publisher != nil {
		notifiers = append(notifiers, publisher)
		stream = publisher
	} else {
		broker := notify.NewBroker()
		notifiers = append(notifiers, broker)
		stream = broker
	}
	scheduler := notify.NewScheduler(tr, notifiers, notify.Options{
		PetName:  cfg.PetName,
		Icon:     cfg.NotifyIcon,
		Interval: cfg.Interval,
		Clock:    clock,
		Logger:   logger,
	})
	defer scheduler.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := tr.Today(ctx); err != nil {
		log.Fatalf("load checklist: %v", err)
	}
	if state, err := scheduler.Restore(ctx); err != nil {
		log.WithError(err).Warn("unable to restore notifications")
	} else {
		log.WithField("state", state).Info("notification scheduler ready")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding},
	}))

	api.Register(e, api.Services{
		Tracker:       tr,
		Notifications: scheduler,
		Stream:        stream,
		Health:        store,
		Deduper:       deduper,
		Logger:        logger,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	log.WithFields(log.Fields{
		"addr":    cfg.ListenAddr,
		"backend": cfg.Backend,
		"pet":     cfg.PetName,
	}).Info("petcare starting")
	if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		e.Logger.Fatal(err)
	}
}

// parseRedisOptions accepts a redis URL or an Azure style
// "host:port,password=...,ssl=true" connection string.
func parseRedisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
