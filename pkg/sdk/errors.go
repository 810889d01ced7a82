package passbolt

import "errors"

// ErrUnauthorized is returned when the server rejects the API key.
// Use errors.Is() to check.
var ErrUnauthorized = errors.New("passbolt: unauthorized")
