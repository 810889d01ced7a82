package database

import (
	"context"

	"go.uber.org/zap"

	"github.com/nimdassdev/passbolt-api/internal/usecase/healthcheck"
)

// Unavailable stands in for a Repo whose construction failed, typically on an
// unusable DSN. Facts come back negative and queries fail with the original
// error, so the healthcheck still runs end to end.
type Unavailable struct {
	err    error
	logger *zap.Logger
}

// NewUnavailable wraps a construction error.
func NewUnavailable(err error, logger *zap.Logger) *Unavailable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Unavailable{err: err, logger: logger}
}

func (u *Unavailable) Check(context.Context) *healthcheck.DatabaseChecks {
	u.logger.Debug("database checks skipped", zap.Error(u.err))
	return &healthcheck.DatabaseChecks{}
}

func (u *Unavailable) CountAdmins(context.Context) (int64, error) {
	return 0, u.err
}

func (u *Unavailable) SchemaUpToDate(context.Context) (bool, error) {
	return false, u.err
}

func (u *Unavailable) OrganizationSetting(context.Context, string) (string, error) {
	return "", u.err
}

func (u *Unavailable) Close() error { return nil }
