package notify

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// LogNotifier writes notifications to a logger. It always grants permission.
type LogNotifier struct {
	Logger *log.Logger
}

func (l LogNotifier) RequestPermission(context.Context) (Permission, error) {
	return PermissionGranted, nil
}

func (l LogNotifier) Show(_ context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	logger.WithFields(log.Fields{
		"id":    n.ID,
		"tag":   n.Tag,
		"title": n.Title,
	}).Info(n.Body)
	return nil
}
