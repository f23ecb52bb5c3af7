/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "errors"

// Every failure an operation can return wraps exactly one of these, so
// callers branch with errors.Is and map each kind to a transport status.
// Raise sites add detail via fmt.Errorf("%w: ...", kind).
var (
	// ErrInvalidInput marks malformed or missing caller input, such as an
	// empty name or an out-of-range question index.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a room or player that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks an actor lacking the required role: a non-host
	// invoking a host-only operation, or a non-member acting on a room.
	ErrForbidden = errors.New("forbidden")

	// ErrWrongPhase marks an operation the current phase does not allow,
	// including submissions after the question deadline.
	ErrWrongPhase = errors.New("wrong phase")

	// ErrNoFreeCode is returned when the allocator exhausts its retry
	// budget without finding an unused room code.
	ErrNoFreeCode = errors.New("no free room code")

	// ErrStorage marks an opaque failure in the external room store. It is
	// always distinct from ErrNotFound so a broken store never reads as a
	// missing room.
	ErrStorage = errors.New("storage failure")
)
