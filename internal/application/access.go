package application

import "slices"

// rolePolicy implements the visibility and mutation rules for one role.
// Keeping each role's rules in one value keeps them testable in
// isolation instead of scattering conditionals through the services.
type rolePolicy interface {
	// CanView reports whether the principal may read the case.
	// partyUserIDs holds the user ids attached to the case as parties.
	CanView(p Principal, c Case, partyUserIDs []int64) bool
	// CanManage reports whether the principal may mutate the case.
	CanManage(p Principal, c Case) bool
}

type adminPolicy struct{}

func (adminPolicy) CanView(Principal, Case, []int64) bool { return true }
func (adminPolicy) CanManage(Principal, Case) bool        { return true }

type mediatorPolicy struct{}

func (mediatorPolicy) CanView(p Principal, c Case, _ []int64) bool {
	return c.AssignedMediator != nil && *c.AssignedMediator == p.UserID
}

func (mediatorPolicy) CanManage(p Principal, c Case) bool {
	return c.AssignedMediator != nil && *c.AssignedMediator == p.UserID
}

type clientPolicy struct{}

func (clientPolicy) CanView(p Principal, c Case, partyUserIDs []int64) bool {
	return c.CreatedBy == p.UserID || slices.Contains(partyUserIDs, p.UserID)
}

func (clientPolicy) CanManage(Principal, Case) bool { return false }

// AccessController resolves whether a caller may view or mutate a case
// and its sessions. Unknown roles are denied everything.
type AccessController struct {
	policies map[Role]rolePolicy
}

// NewAccessController builds the controller with the platform's three
// role policies.
func NewAccessController() *AccessController {
	return &AccessController{
		policies: map[Role]rolePolicy{
			RoleAdmin:    adminPolicy{},
			RoleMediator: mediatorPolicy{},
			RoleClient:   clientPolicy{},
		},
	}
}

// CanView reports whether the principal may read the case.
func (a *AccessController) CanView(p Principal, c Case, partyUserIDs []int64) bool {
	policy, ok := a.policies[p.Role]
	if !ok {
		return false
	}
	return policy.CanView(p, c, partyUserIDs)
}

// CanMutate reports whether the principal's role is among the allowed
// roles for an operation. Admins always pass.
func (a *AccessController) CanMutate(p Principal, allowed ...Role) bool {
	if _, ok := a.policies[p.Role]; !ok {
		return false
	}
	if p.Role == RoleAdmin {
		return true
	}
	return slices.Contains(allowed, p.Role)
}

// CanManageCase reports whether the principal may mutate this specific
// case: the role must be allowed for the operation and, for mediators,
// the case must be assigned to them.
func (a *AccessController) CanManageCase(p Principal, c Case, allowed ...Role) bool {
	if !a.CanMutate(p, allowed...) {
		return false
	}
	return a.policies[p.Role].CanManage(p, c)
}
