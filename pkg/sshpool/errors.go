package sshpool

import "errors"

var (
	// ErrCircuitOpen is returned when a host's failure record is within its
	// open window and the connection attempt is rejected without dialing.
	// A permanently failed host gets ErrPermanentFailure instead.
	ErrCircuitOpen = errors.New("ssh: host circuit open")

	// ErrPermanentFailure marks a host as permanently unreachable (e.g. DNS
	// NXDOMAIN), bypassing the normal threshold/timeout recovery path.
	ErrPermanentFailure = errors.New("ssh: host permanently failed")

	// ErrHostKeyRejected is returned by the host-key policy in reject mode
	// when a host key is unknown or mismatched.
	ErrHostKeyRejected = errors.New("ssh: host key rejected")
)
