// Package smtpsettings validates the mail relay settings an administrator
// stored in the database.
package smtpsettings

import "context"

// SettingsSource reads raw organization setting values.
type SettingsSource interface {
	OrganizationSetting(ctx context.Context, property string) (string, error)
}

// Decryptor opens OpenPGP messages encrypted to the server key.
type Decryptor interface {
	Decrypt(armored string) ([]byte, error)
}
