package selfreg

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/nimdassdev/passbolt-api/internal/domain"
)

// --- Mocks ---

type mockSource struct {
	value string
	err   error
	calls int
}

func (m *mockSource) OrganizationSetting(context.Context, string) (string, error) {
	m.calls++
	return m.value, m.err
}

// --- Tests ---

func TestNew_RequiresSource(t *testing.T) {
	if _, err := New(true, nil, zap.NewNop()); err == nil {
		t.Error("New(nil source) error = nil")
	}
}

func TestProvider_PluginDisabled(t *testing.T) {
	source := &mockSource{value: `{"provider":"email_domains"}`}
	svc, err := New(false, source, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if svc.Enabled() {
		t.Error("Enabled() = true, want false")
	}
	provider, err := svc.Provider(context.Background())
	if err != nil || provider != "" {
		t.Errorf("Provider() = (%q, %v), want empty and nil", provider, err)
	}
	if source.calls != 0 {
		t.Errorf("settings read %d times while the plugin is off", source.calls)
	}
}

func TestProvider_NoStoredPolicy(t *testing.T) {
	source := &mockSource{err: fmt.Errorf("%w: selfRegistration", domain.ErrSettingNotFound)}
	svc, err := New(true, source, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	provider, err := svc.Provider(context.Background())
	if err != nil {
		t.Fatalf("Provider() error = %v, want nil for an absent policy", err)
	}
	if provider != "" {
		t.Errorf("Provider() = %q, want empty", provider)
	}
}

func TestProvider_StoredPolicy(t *testing.T) {
	source := &mockSource{value: `{"provider":"email_domains","data":{"allowed_domains":["passbolt.test"]}}`}
	svc, err := New(true, source, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	provider, err := svc.Provider(context.Background())
	if err != nil {
		t.Fatalf("Provider() error = %v", err)
	}
	if provider != "email_domains" {
		t.Errorf("Provider() = %q, want email_domains", provider)
	}
}

func TestProvider_MalformedPolicy(t *testing.T) {
	svc, err := New(true, &mockSource{value: "not json"}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Provider(context.Background()); !errors.Is(err, domain.ErrSettingMalformed) {
		t.Errorf("Provider() error = %v, want ErrSettingMalformed", err)
	}
}

func TestProvider_SourceFailure(t *testing.T) {
	svc, err := New(true, &mockSource{err: errors.New("connection refused")}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Provider(context.Background()); err == nil {
		t.Error("Provider() error = nil, want read failure propagated")
	}
}
