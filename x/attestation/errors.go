package attestation

import (
	"github.com/iov-one/weave/errors"
)

var (
	// ErrCannotChallenge is raised when an attestation is in a state
	// that cannot be disputed.
	ErrCannotChallenge = errors.Register(1110, "cannot challenge")
)
