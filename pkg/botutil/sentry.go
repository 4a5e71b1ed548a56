package botutil

import (
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/spicierbot/spicier/pkg/config"
)

// InitSentry sets up error reporting. It reports false when no DSN is set.
func InitSentry(cfg config.SentryConfig) (bool, error) {
	if cfg.DSN == "" {
		return false, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
	}); err != nil {
		return false, errors.WrapIf(err, "initializing sentry")
	}
	return true, nil
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// ReportError sends err to Sentry and returns the error code to show users.
// Without a configured client a random id is returned.
func ReportError(err error, userID snowflake.ID, tags map[string]string) string {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		if userID != 0 {
			scope.SetUser(sentry.User{ID: userID.String()})
		}
		scope.SetTags(tags)
	})
	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Data:      map[string]any{"user": userID},
		Level:     sentry.LevelError,
		Timestamp: time.Now().UTC(),
	}, nil)

	if id := hub.CaptureException(err); id != nil {
		return string(*id)
	}
	return uuid.NewString()
}
