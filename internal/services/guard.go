package services

import (
	"fmt"

	"github.com/SAP-F-2025/library-service/internal/models"
)

// Role sets used by route groups and services
var (
	// MemberRoles may reserve and rate books; visitors are read-only
	MemberRoles = []models.UserRole{models.RoleReader, models.RoleLibrarian, models.RoleAdmin}
	// StaffRoles handle reservations
	StaffRoles = []models.UserRole{models.RoleLibrarian, models.RoleAdmin}
	AdminRoles = []models.UserRole{models.RoleAdmin}
)

// assignableRoles are the roles reachable through ChangeRole
var assignableRoles = map[models.UserRole]bool{
	models.RoleVisitor:   true,
	models.RoleReader:    true,
	models.RoleLibrarian: true,
}

// Guard evaluates role and self-targeting rules
type Guard struct{}

func NewGuard() *Guard {
	return &Guard{}
}

// Authorize passes admins unconditionally, everyone else must hold one of required
func (g *Guard) Authorize(role models.UserRole, required ...models.UserRole) error {
	if role == models.RoleAdmin {
		return nil
	}
	for _, r := range required {
		if role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q is not permitted", ErrForbidden, role)
}

// CanModifyUser rejects an actor editing or deleting their own account
func (g *Guard) CanModifyUser(actor *models.User, targetID string) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if actor.ID == targetID {
		return ErrSelfModification
	}
	return nil
}

// CanChangeRole applies the generic role-update rules: no self toggling, no
// demoting an admin, no promotion to admin
func (g *Guard) CanChangeRole(actor, target *models.User, newRole models.UserRole) error {
	if err := g.Authorize(actor.Role, AdminRoles...); err != nil {
		return err
	}
	if actor.ID == target.ID {
		return ErrSelfModification
	}
	if target.Role == models.RoleAdmin {
		return ErrAdminDemotion
	}
	if !assignableRoles[newRole] {
		return NewPermissionError(actor.ID, target.ID, "user", "change_role", fmt.Sprintf("role %q cannot be assigned", newRole))
	}
	return nil
}
