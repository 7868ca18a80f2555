package vendors

import "errors"

// ErrNotConfigured is the cause reported when a vendor has no credentials
var ErrNotConfigured = errors.New("vendor not configured")
