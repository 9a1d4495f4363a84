package storage

import (
	"context"
	"errors"
	"strconv"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"petcare/domain"
)

// Keys of the persisted entries, relative to the storage prefix.
const (
	TodayKey         = "today-state"
	HistoryKey       = "history-archive"
	RemindersKey     = "reminder-map"
	NotificationsKey = "notifications-enabled"
)

// Storage reads and writes the checklist entries in a KV. Missing and
// undecodable entries are reported as absent; undecodable ones are removed so
// defaults regenerate on the next write.
type Storage struct {
	kv     KV
	prefix string
}

// New creates a Storage over kv. Every key is prefixed with prefix.
func New(kv KV, prefix string) *Storage {
	if kv == nil {
		panic("storage.New: kv is nil")
	}
	return &Storage{kv: kv, prefix: prefix}
}

// Key returns the full key of a named entry.
func (s *Storage) Key(name string) string {
	return s.prefix + name
}

// LoadToday returns the persisted "today" snapshot.
func (s *Storage) LoadToday(ctx context.Context) (domain.DaySnapshot, bool, error) {
	var day domain.DaySnapshot
	ok, err := s.load(ctx, TodayKey, &day)
	if err != nil || !ok {
		return domain.DaySnapshot{}, false, err
	}
	if !domain.ValidDate(day.Date) {
		_ = s.kv.Delete(ctx, s.Key(TodayKey))
		return domain.DaySnapshot{}, false, nil
	}
	return day, true, nil
}

// SaveToday persists the "today" snapshot.
func (s *Storage) SaveToday(ctx context.Context, day domain.DaySnapshot) error {
	return s.save(ctx, TodayKey, day)
}

// LoadHistory returns the archived snapshots. Entries whose key is not a
// calendar date are dropped and the cleaned archive is written back.
func (s *Storage) LoadHistory(ctx context.Context) (domain.History, bool, error) {
	var history domain.History
	ok, err := s.load(ctx, HistoryKey, &history)
	if err != nil || !ok {
		return domain.History{}, false, err
	}
	if history == nil {
		history = domain.History{}
	}
	if dropped := history.DropInvalidDates(); len(dropped) > 0 {
		entry := log.WithFields(log.Fields{"key": s.Key(HistoryKey), "dates": dropped})
		if err := s.SaveHistory(ctx, history); err != nil {
			entry.WithError(err).Error("failed to rewrite history without invalid dates")
		} else {
			entry.Warn("dropped history entries with invalid dates")
		}
	}
	return history, true, nil
}

// SaveHistory persists the archived snapshots.
func (s *Storage) SaveHistory(ctx context.Context, history domain.History) error {
	if history == nil {
		history = domain.History{}
	}
	return s.save(ctx, HistoryKey, history)
}

// LoadReminders returns the configured reminder times.
func (s *Storage) LoadReminders(ctx context.Context) (domain.ReminderMap, bool, error) {
	var reminders domain.ReminderMap
	ok, err := s.load(ctx, RemindersKey, &reminders)
	if err != nil || !ok {
		return nil, false, err
	}
	if reminders == nil {
		reminders = domain.ReminderMap{}
	}
	return reminders, true, nil
}

// SaveReminders persists the reminder times.
func (s *Storage) SaveReminders(ctx context.Context, reminders domain.ReminderMap) error {
	if reminders == nil {
		reminders = domain.ReminderMap{}
	}
	return s.save(ctx, RemindersKey, reminders)
}

// LoadNotificationsEnabled returns the persisted notification flag. Absent or
// unparsable values read as false.
func (s *Storage) LoadNotificationsEnabled(ctx context.Context) (bool, error) {
	data, err := s.kv.Get(ctx, s.Key(NotificationsKey))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	enabled, err := strconv.ParseBool(string(data))
	if err != nil {
		_ = s.kv.Delete(ctx, s.Key(NotificationsKey))
		return false, nil
	}
	return enabled, nil
}

// SaveNotificationsEnabled persists the notification flag as "true"/"false".
func (s *Storage) SaveNotificationsEnabled(ctx context.Context, enabled bool) error {
	return s.kv.Set(ctx, s.Key(NotificationsKey), []byte(strconv.FormatBool(enabled)))
}

// Ping checks the backing store.
func (s *Storage) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// Close closes the backing store.
func (s *Storage) Close() error {
	return s.kv.Close()
}

func (s *Storage) load(ctx context.Context, name string, v any) (bool, error) {
	key := s.Key(name)
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		_ = s.kv.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

func (s *Storage) save(ctx context.Context, name string, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.Key(name), data)
}
