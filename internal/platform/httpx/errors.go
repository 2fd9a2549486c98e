package httpx

import "errors"

// ErrDuplicate marks unique constraint violations surfaced by repositories.
// Handlers map it to 409.
var ErrDuplicate = errors.New("duplicate entry")
