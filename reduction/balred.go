package reduction

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"ltitools/balance"
	"ltitools/ssm"
)

// ErrOrderInfeasible is the balance kernel's order error, re-exported so
// callers can match it without importing the kernel package.
var ErrOrderInfeasible = balance.ErrOrderInfeasible

// BalRedOptions configures balanced reduction. The zero value selects the
// defaults: stability boundary 0 and the balance.Default kernel.
type BalRedOptions struct {
	// Alpha redefines the stability boundary for the real parts of A's
	// eigenvalues; nil keeps the continuous-time default 0.
	Alpha *float64
	// Kernel overrides balance.Default for this call.
	Kernel balance.Kernel
	// Tol is passed through to the kernel as the Hankel singular value
	// floor.
	Tol float64
}

func (o *BalRedOptions) alpha() float64 {
	if o != nil && o.Alpha != nil {
		return *o.Alpha
	}
	return 0
}

func (o *BalRedOptions) kernel() (balance.Kernel, error) {
	if o != nil && o.Kernel != nil {
		return o.Kernel, nil
	}
	if balance.Default == nil {
		return nil, balance.ErrUnavailable
	}
	return balance.Default, nil
}

// BalRed produces a balanced reduced-order model of sys with the requested
// order. States are discarded by ascending Hankel singular value; unstable
// modes are separated first, the stable part is balanced and reduced, and
// the unstable dynamics are reinserted unchanged (Hsu and Hou, 1991).
func BalRed(sys *ssm.StateSpace, order int, method Method, opts *BalRedOptions) (*ssm.StateSpace, error) {
	reduced, err := BalRedMany(sys, []int{order}, method, opts)
	if err != nil {
		return nil, err
	}
	return reduced[0], nil
}

// BalRedMany reduces sys once per requested order and returns the reduced
// systems in the same order as requested. The per-order reductions are
// independent and run concurrently over the shared read-only input matrices.
func BalRedMany(sys *ssm.StateSpace, orders []int, method Method, opts *BalRedOptions) ([]*ssm.StateSpace, error) {
	if !method.valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMethod, method)
	}
	if len(orders) == 0 {
		return nil, errors.New("reduction: no orders requested")
	}
	if sys.IsDTime(true) {
		return nil, fmt.Errorf("balred: %w", ssm.ErrNotSupported)
	}
	kernel, err := opts.kernel()
	if err != nil {
		return nil, fmt.Errorf("balred: %w", err)
	}

	// Stability is a property of A alone; decide the branch once for all
	// orders.
	alpha := opts.alpha()
	poles, err := sys.Poles()
	if err != nil {
		return nil, fmt.Errorf("balred: %w", err)
	}
	unstable := false
	for _, pole := range poles {
		if real(pole) >= alpha {
			unstable = true
			break
		}
	}

	results := make([]*ssm.StateSpace, len(orders))
	var group errgroup.Group
	for i, order := range orders {
		group.Go(func() error {
			job := balance.Job{
				A: sys.A, B: sys.B, C: sys.C, D: sys.D,
				Order:            order,
				Alpha:            alpha,
				MatchDC:          method == MatchDC,
				SeparateUnstable: unstable,
				Tol:              opts.tol(),
			}
			res, err := kernel.Reduce(job)
			if err != nil {
				return fmt.Errorf("balred order %d: %w", order, err)
			}
			d := res.D
			if method == Truncate {
				d = sys.D
			}
			reduced, err := ssm.NewStateSpace(res.A, res.B, res.C, d)
			if err != nil {
				return fmt.Errorf("balred order %d: %w", order, err)
			}
			results[i] = reduced
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *BalRedOptions) tol() float64 {
	if o == nil {
		return 0
	}
	return o.Tol
}
