package policy

import (
	"errors"

	"swapguard/internal/model"
)

var (
	// ErrUnknownPool is returned for operations on a pool that was never
	// initialized.
	ErrUnknownPool = errors.New("unknown pool")
	// ErrPoolExists is returned when a pool is initialized twice.
	ErrPoolExists = errors.New("pool already initialized")

	// Configuration-authorization failures.
	ErrNoTargetAsset    = errors.New("pool has no target asset")
	ErrOwnerQueryFailed = errors.New("owner query failed")
	ErrNotOwner         = errors.New("caller is not the asset owner")

	// ErrFeeTooHigh is returned when a requested fee exceeds MaxFeePPM.
	ErrFeeTooHigh = errors.New("fee exceeds maximum")
)

// Denial is the typed refusal of a swap. It aborts the evaluation call; the
// host surfaces it as the failed operation.
type Denial struct {
	Reason model.DenyReason
}

func (d *Denial) Error() string {
	return "swap denied: " + string(d.Reason)
}

func deny(reason model.DenyReason) *Denial {
	return &Denial{Reason: reason}
}

// DenialReason extracts the deny reason from an evaluation error, if the
// error is a Denial.
func DenialReason(err error) (model.DenyReason, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d.Reason, true
	}
	return "", false
}
