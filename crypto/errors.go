package crypto

import "errors"

// ErrInvalidPublicInputCount is returned when a proof's public input count
// does not match its verifying key's IC length minus one.
var ErrInvalidPublicInputCount = errors.New("crypto: public input count does not match verifying key")
