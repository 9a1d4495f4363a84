package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"petcare/domain"
)

// DefaultInterval is the cadence of the reminder check.
const DefaultInterval = time.Minute

const minuteLayout = "2006-01-02 15:04"

// State of the scheduler.
type State int

const (
	Disabled State = iota
	Enabled
)

func (s State) String() string {
	if s == Enabled {
		return "enabled"
	}
	return "disabled"
}

// Source provides the checklist the scheduler reminds about and keeps the
// persisted notification flag.
type Source interface {
	Catalog() *domain.Catalog
	Checklist(ctx context.Context) (domain.DaySnapshot, domain.ReminderMap, error)
	NotificationsEnabled(ctx context.Context) (bool, error)
	SetNotificationsEnabled(ctx context.Context, enabled bool) error
}

// Options configures a Scheduler. Zero values select defaults.
type Options struct {
	PetName  string
	Icon     string
	Interval time.Duration
	Clock    domain.Clock
	Logger   *log.Logger
}

// Scheduler shows a notification for every incomplete task whose reminder
// time equals the current minute. Checks run once on enabling and then on
// every interval until the scheduler is disabled or closed.
type Scheduler struct {
	source   Source
	notifier Notifier
	pet      string
	icon     string
	interval time.Duration
	clock    domain.Clock
	logger   *log.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}

	checkMu     sync.Mutex
	firedMinute string
	fired       map[string]struct{}
}

// NewScheduler creates a disabled scheduler. A nil notifier means the host
// has no notification capability.
func NewScheduler(source Source, notifier Notifier, opts Options) *Scheduler {
	if source == nil {
		panic("notify.NewScheduler: source is nil")
	}
	s := &Scheduler{
		source:   source,
		notifier: notifier,
		pet:      opts.PetName,
		icon:     opts.Icon,
		interval: opts.Interval,
		clock:    opts.Clock,
		logger:   opts.Logger,
		fired:    make(map[string]struct{}),
	}
	if s.pet == "" {
		s.pet = "Luna"
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.clock == nil {
		s.clock = domain.RealClock{}
	}
	if s.logger == nil {
		s.logger = log.StandardLogger()
	}
	return s
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Enable asks the host for permission and starts the reminder check when it
// is granted. A missing capability or a denial leaves the scheduler disabled
// and is not retried. The returned error reports only persistence failures.
func (s *Scheduler) Enable(ctx context.Context) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Enabled {
		return PermissionGranted, nil
	}
	perm := s.requestPermission(ctx)
	if perm != PermissionGranted {
		return perm, nil
	}
	if err := s.source.SetNotificationsEnabled(ctx, true); err != nil {
		return perm, fmt.Errorf("persist notifications flag: %w", err)
	}
	if err := s.notifier.Show(context.WithoutCancel(ctx), Confirmation(s.pet, s.icon, s.clock.Now())); err != nil {
		s.logger.WithError(err).Warn("unable to show confirmation")
	}
	s.start()
	s.logger.Info("notifications enabled")
	return perm, nil
}

// Restore re-enters the enabled state when the persisted flag says so.
func (s *Scheduler) Restore(ctx context.Context) (State, error) {
	enabled, err := s.source.NotificationsEnabled(ctx)
	if err != nil {
		return Disabled, err
	}
	if !enabled {
		return Disabled, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Enabled {
		return Enabled, nil
	}
	if perm := s.requestPermission(ctx); perm != PermissionGranted {
		return Disabled, nil
	}
	s.start()
	s.logger.Info("notifications restored")
	return Enabled, nil
}

// Disable stops the reminder check and persists the flag. Notifications
// already handed to the host are not withdrawn.
func (s *Scheduler) Disable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stop()
	if err := s.source.SetNotificationsEnabled(ctx, false); err != nil {
		return fmt.Errorf("persist notifications flag: %w", err)
	}
	s.logger.Info("notifications disabled")
	return nil
}

// Close stops the reminder check without touching the persisted flag.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
}

func (s *Scheduler) requestPermission(ctx context.Context) Permission {
	if s.notifier == nil {
		s.logger.Warn("notifications unsupported by host")
		return PermissionUnsupported
	}
	perm, err := s.notifier.RequestPermission(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("notification permission request failed")
		return PermissionUnsupported
	}
	if perm != PermissionGranted {
		s.logger.WithField("permission", perm).Info("notification permission not granted")
	}
	return perm
}

// start launches the check loop. Callers hold s.mu.
func (s *Scheduler) start() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.state = Enabled
	go s.run(ctx, done)
}

// stop cancels the check loop and waits for it to exit. Callers hold s.mu.
func (s *Scheduler) stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
		s.done = nil
	}
	s.state = Disabled
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.tick(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.check(ctx); err != nil && ctx.Err() == nil {
		s.logger.WithError(err).Error("reminder check failed")
	}
}

// check shows the reminders due at the current minute and returns how many
// were shown. A task fires at most once per minute.
func (s *Scheduler) check(ctx context.Context) (int, error) {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()

	now := s.clock.Now()
	day, reminders, err := s.source.Checklist(ctx)
	if err != nil {
		return 0, fmt.Errorf("load checklist: %w", err)
	}
	if minute := now.Format(minuteLayout); minute != s.firedMinute {
		s.firedMinute = minute
		clear(s.fired)
	}

	shown := 0
	for _, def := range s.source.Catalog().Tasks() {
		state, ok := day.Find(def.ID)
		if !ok || state.Completed {
			continue
		}
		if !domain.ReminderDue(now, reminders[def.ID]) {
			continue
		}
		if _, ok := s.fired[def.ID]; ok {
			continue
		}
		s.fired[def.ID] = struct{}{}
		n := Reminder(s.pet, def, s.icon, now)
		if err := s.notifier.Show(context.WithoutCancel(ctx), n); err != nil {
			s.logger.WithError(err).WithField("task", def.ID).Warn("unable to show reminder")
			continue
		}
		s.logger.WithFields(log.Fields{"task": def.ID, "minute": s.firedMinute}).Debug("reminder shown")
		shown++
	}
	return shown, nil
}
