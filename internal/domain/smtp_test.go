package domain

import (
	"errors"
	"testing"
)

func validSmtpSettings() SmtpSettings {
	return SmtpSettings{
		SenderName:  "Passbolt",
		SenderEmail: "admin@passbolt.test",
		Host:        "smtp.passbolt.test",
		Port:        587,
		TLS:         true,
	}
}

func TestSmtpSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SmtpSettings)
		wantErr bool
	}{
		{"valid", func(*SmtpSettings) {}, false},
		{"valid without tls", func(s *SmtpSettings) { s.TLS = false }, false},
		{"missing host", func(s *SmtpSettings) { s.Host = "" }, true},
		{"port zero", func(s *SmtpSettings) { s.Port = 0 }, true},
		{"port too large", func(s *SmtpSettings) { s.Port = 70000 }, true},
		{"missing sender name", func(s *SmtpSettings) { s.SenderName = "" }, true},
		{"bad sender email", func(s *SmtpSettings) { s.SenderEmail = "not-an-address" }, true},
		{"empty sender email", func(s *SmtpSettings) { s.SenderEmail = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSmtpSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if err != nil && !errors.Is(err, ErrSettingMalformed) {
				t.Errorf("Validate() error %v does not wrap ErrSettingMalformed", err)
			}
		})
	}
}
