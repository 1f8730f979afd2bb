package relay

import "errors"

var (
	// ErrInvalidTarget means a support-agent send could not be mapped to a
	// requester conversation. Nothing is persisted or broadcast.
	ErrInvalidTarget = errors.New("send target does not resolve to a requester conversation")

	// ErrAuthorization means the caller lacks the role or identity
	// relationship an operation requires.
	ErrAuthorization = errors.New("not authorized")
)
