package errs

import "errors"

// Socket relay errors. Each is handled where it occurs and turned into a
// sender-directed event or a rejected handshake.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrAuthorization  = errors.New("not authorized")
	ErrValidation     = errors.New("invalid payload")
	ErrNotFound       = errors.New("not found")
	ErrSelfScan       = errors.New("you cannot connect with yourself")
	ErrPersistence    = errors.New("persistence failed")
)

// REST sentinels mapped to HTTP codes in handlers.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFinished = errors.New("session already finished")
	ErrForbidden       = errors.New("forbidden")
)
