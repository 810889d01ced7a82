package smtpsettings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nimdassdev/passbolt-api/internal/domain"
	"github.com/nimdassdev/passbolt-api/internal/usecase/healthcheck"
)

// Organization setting property the administration workspace writes to.
const settingsProperty = "smtp"

// Service resolves where SMTP settings come from and whether the stored ones
// are usable.
type Service struct {
	source            SettingsSource
	decryptor         Decryptor
	endpointsDisabled bool
	logger            *zap.Logger
}

// New creates a Service. endpointsDisabled mirrors the security flag that
// hides the settings endpoints from the API.
func New(source SettingsSource, decryptor Decryptor, endpointsDisabled bool, logger *zap.Logger) (*Service, error) {
	if source == nil || decryptor == nil {
		return nil, errors.New("smtpsettings: source and decryptor are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:            source,
		decryptor:         decryptor,
		endpointsDisabled: endpointsDisabled,
		logger:            logger,
	}, nil
}

// Check reports the smtpSettings category facts. No database row means the
// instance runs on file configuration, which is a healthy outcome. A row that
// cannot be decrypted, parsed or validated keeps Source at "db" with the
// failure in ErrorMessage.
func (s *Service) Check(ctx context.Context) *healthcheck.SMTPSettingsChecks {
	checks := &healthcheck.SMTPSettingsChecks{
		AreEndpointsDisabled: s.endpointsDisabled,
		Source:               healthcheck.SMTPSourceFile,
	}

	raw, err := s.source.OrganizationSetting(ctx, settingsProperty)
	if errors.Is(err, domain.ErrSettingNotFound) {
		return checks
	}
	if err != nil {
		s.fail(checks, healthcheck.SMTPSourceUndefined, fmt.Errorf("read smtp settings: %w", err))
		return checks
	}

	checks.IsInDb = true
	checks.Source = healthcheck.SMTPSourceDB

	plain, err := s.decryptor.Decrypt(raw)
	if err != nil {
		s.fail(checks, checks.Source, fmt.Errorf("decrypt smtp settings: %w", err))
		return checks
	}

	var settings domain.SmtpSettings
	if err := json.Unmarshal(plain, &settings); err != nil {
		s.fail(checks, checks.Source, fmt.Errorf("parse smtp settings: %w", err))
		return checks
	}
	if err := settings.Validate(); err != nil {
		s.fail(checks, checks.Source, err)
		return checks
	}

	checks.AreSettingsValid = true
	return checks
}

func (s *Service) fail(checks *healthcheck.SMTPSettingsChecks, source string, err error) {
	msg := err.Error()
	checks.ErrorMessage = &msg
	checks.Source = source
	s.logger.Debug("smtp settings check failed", zap.Error(err))
}
