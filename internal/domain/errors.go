package domain

import "errors"

var (
	// ErrSettingNotFound signals a missing organization setting row.
	ErrSettingNotFound = errors.New("organization setting not found")
	// ErrSettingMalformed signals a setting row whose value cannot be used.
	ErrSettingMalformed = errors.New("organization setting malformed")
)
