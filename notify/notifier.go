package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"petcare/domain"
)

// Permission is the answer of a host notification facility.
type Permission string

const (
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionUnsupported Permission = "unsupported"
)

// ErrUnsupported is returned by notifiers that cannot deliver anything.
var ErrUnsupported = errors.New("notifications unsupported")

// Notification is a single reminder shown to the user.
type Notification struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	Icon    string    `json:"icon,omitempty"`
	Tag     string    `json:"tag,omitempty"`
	TaskID  string    `json:"taskId,omitempty"`
	FiredAt time.Time `json:"firedAt"`
}

// Notifier is the host notification facility.
type Notifier interface {
	RequestPermission(ctx context.Context) (Permission, error)
	Show(ctx context.Context, n Notification) error
}

// Subscriber streams shown notifications. The returned func stops the
// subscription and closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Notification, func())
}

// Reminder builds the notification for a due task.
func Reminder(pet string, def domain.TaskDefinition, icon string, now time.Time) Notification {
	lower := cases.Lower(language.English)
	return Notification{
		ID:      uuid.NewString(),
		Title:   fmt.Sprintf("%s needs: %s! %s", pet, def.Name, def.Glyph),
		Body:    fmt.Sprintf("Don't forget to %s for %s!", lower.String(def.Name), pet),
		Icon:    icon,
		Tag:     def.ID,
		TaskID:  def.ID,
		FiredAt: now,
	}
}

// Confirmation builds the notification shown once permission is granted.
func Confirmation(pet, icon string, now time.Time) Notification {
	return Notification{
		ID:      uuid.NewString(),
		Title:   "Notifications enabled! 🐱",
		Body:    fmt.Sprintf("You'll get a reminder when it's time to care for %s.", pet),
		Icon:    icon,
		FiredAt: now,
	}
}

// Fanout delivers to several notifiers. Permission is granted when any
// member grants it.
type Fanout []Notifier

func (f Fanout) RequestPermission(ctx context.Context) (Permission, error) {
	if len(f) == 0 {
		return PermissionUnsupported, ErrUnsupported
	}
	var errs []error
	result := PermissionUnsupported
	for _, n := range f {
		perm, err := n.RequestPermission(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch perm {
		case PermissionGranted:
			return PermissionGranted, nil
		case PermissionDenied:
			result = PermissionDenied
		}
	}
	if result == PermissionDenied {
		return result, nil
	}
	return result, errors.Join(errs...)
}

func (f Fanout) Show(ctx context.Context, n Notification) error {
	var errs []error
	for _, member := range f {
		if err := member.Show(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
