package domain

import (
	"fmt"
	"net/mail"
)

// SmtpSettings is the mail relay configuration an administrator saves from
// the administration workspace. It is stored OpenPGP encrypted in the
// organization settings table.
type SmtpSettings struct {
	SenderName  string `json:"sender_name"`
	SenderEmail string `json:"sender_email"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	TLS         bool   `json:"tls"`
	Client      string `json:"client,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
}

// Validate reports the first problem that would prevent sending mail with
// these settings.
func (s SmtpSettings) Validate() error {
	if s.Host == "" {
		return fmt.Errorf("%w: host is required", ErrSettingMalformed)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrSettingMalformed, s.Port)
	}
	if s.SenderName == "" {
		return fmt.Errorf("%w: sender name is required", ErrSettingMalformed)
	}
	if _, err := mail.ParseAddress(s.SenderEmail); err != nil {
		return fmt.Errorf("%w: sender email: %v", ErrSettingMalformed, err)
	}
	return nil
}
