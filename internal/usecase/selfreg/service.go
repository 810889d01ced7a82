package selfreg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nimdassdev/passbolt-api/internal/domain"
)

// Organization setting property the plugin stores its policy under.
const settingsProperty = "selfRegistration"

// providerPayload is the stored JSON shape. Data carries provider specific
// policy, such as the allowed email domains.
type providerPayload struct {
	Provider string          `json:"provider"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Service answers whether self registration is open and through which
// provider.
type Service struct {
	enabled bool
	source  SettingsSource
	logger  *zap.Logger
}

// New creates a Service. enabled comes from the plugin registry.
func New(enabled bool, source SettingsSource, logger *zap.Logger) (*Service, error) {
	if source == nil {
		return nil, errors.New("selfreg: settings source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{enabled: enabled, source: source, logger: logger}, nil
}

// Enabled reports whether the self registration plugin is switched on.
func (s *Service) Enabled() bool { return s.enabled }

// Provider returns the configured provider name. An empty name with a nil
// error means registration is closed: the plugin is off or no policy was
// saved.
func (s *Service) Provider(ctx context.Context) (string, error) {
	if !s.enabled {
		return "", nil
	}

	raw, err := s.source.OrganizationSetting(ctx, settingsProperty)
	if errors.Is(err, domain.ErrSettingNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read self registration settings: %w", err)
	}

	var payload providerPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("%w: self registration: %v", domain.ErrSettingMalformed, err)
	}
	return payload.Provider, nil
}
