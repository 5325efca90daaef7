package authorization

import (
	"context"

	"github.com/swapdesk/tradebook-backend/internal/domain"
)

// Operation names a privileged action on a trade
type Operation string

const (
	OpCreate    Operation = "create"
	OpAmend     Operation = "amend"
	OpTerminate Operation = "terminate"
	OpCancel    Operation = "cancel"
	OpView      Operation = "view"
)

// Authorizer resolves a user's profile and decides whether an operation
// is permitted for it.
type Authorizer struct {
	refData domain.ReferenceDataRepository
}

// NewAuthorizer creates an Authorizer backed by the reference data gateway
func NewAuthorizer(refData domain.ReferenceDataRepository) *Authorizer {
	return &Authorizer{refData: refData}
}

// CheckPrivilege reports whether the user may perform the operation.
// Viewing is always permitted; an unknown operation or an unresolvable
// user is denied.
func (a *Authorizer) CheckPrivilege(ctx context.Context, user domain.Ref, op Operation) (bool, error) {
	if op == OpView {
		return true, nil
	}

	resolved, err := a.refData.FindUser(ctx, user)
	if err != nil {
		return false, err
	}
	if resolved == nil || !resolved.Active {
		return false, nil
	}

	switch op {
	case OpCreate:
		return resolved.Profile == domain.ProfileTrader || resolved.Profile == domain.ProfileSales, nil
	case OpAmend:
		return resolved.Profile == domain.ProfileTrader ||
			resolved.Profile == domain.ProfileSales ||
			resolved.Profile == domain.ProfileMiddleOffice, nil
	case OpTerminate, OpCancel:
		return resolved.Profile == domain.ProfileTrader, nil
	default:
		return false, nil
	}
}
