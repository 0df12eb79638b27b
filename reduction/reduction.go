// Package reduction simplifies linear time-invariant state-space models: it
// computes Hankel singular values, eliminates chosen states by truncation or
// DC-gain-matching residualization, and produces balanced reduced-order
// models through the balance kernel.
package reduction

import (
	"errors"
	"fmt"
)

var (
	// ErrUnstable is returned when state elimination is attempted on a
	// system whose A matrix has an eigenvalue with nonnegative real part.
	ErrUnstable = errors.New("reduction: system is not asymptotically stable")

	// ErrSingular is returned when the A22 block of a DC-matching
	// elimination is singular to working precision.
	ErrSingular = errors.New("reduction: A22 block is singular")

	// ErrInvalidMethod is returned for a reduction method outside the
	// closed {Truncate, MatchDC} set.
	ErrInvalidMethod = errors.New("reduction: unsupported method")

	// ErrStateIndex is returned when an elimination index is out of range
	// or repeated.
	ErrStateIndex = errors.New("reduction: invalid state index")

	// ErrNotImplemented marks declared but unimplemented operations.
	ErrNotImplemented = errors.New("reduction: not implemented")
)

// Method selects how eliminated states are removed. The zero value is
// invalid so that an unset method cannot silently fall back to either
// behavior.
type Method int

const (
	methodUnset Method = iota
	// Truncate discards the eliminated states outright.
	Truncate
	// MatchDC residualizes the eliminated states through the Schur
	// complement, preserving the zero-frequency gain exactly.
	MatchDC
)

// ParseMethod resolves the wire names "truncate" and "matchdc".
func ParseMethod(s string) (Method, error) {
	switch s {
	case "truncate":
		return Truncate, nil
	case "matchdc":
		return MatchDC, nil
	}
	return methodUnset, fmt.Errorf("%w: %q", ErrInvalidMethod, s)
}

func (m Method) String() string {
	switch m {
	case Truncate:
		return "truncate"
	case MatchDC:
		return "matchdc"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

func (m Method) valid() bool { return m == Truncate || m == MatchDC }
