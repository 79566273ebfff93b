package services

import (
	"errors"
	"testing"

	"github.com/SAP-F-2025/library-service/internal/models"
)

func TestGuard_Authorize(t *testing.T) {
	g := NewGuard()

	tests := []struct {
		name     string
		role     models.UserRole
		required []models.UserRole
		allowed  bool
	}{
		{"admin passes any check", models.RoleAdmin, []models.UserRole{models.RoleLibrarian}, true},
		{"admin passes empty set", models.RoleAdmin, nil, true},
		{"librarian is staff", models.RoleLibrarian, StaffRoles, true},
		{"reader is not staff", models.RoleReader, StaffRoles, false},
		{"reader is member", models.RoleReader, MemberRoles, true},
		{"visitor is not member", models.RoleVisitor, MemberRoles, false},
		{"librarian is not admin", models.RoleLibrarian, AdminRoles, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Authorize(tt.role, tt.required...)
			if tt.allowed && err != nil {
				t.Errorf("expected allowed, got %v", err)
			}
			if !tt.allowed && !errors.Is(err, ErrForbidden) {
				t.Errorf("expected ErrForbidden, got %v", err)
			}
		})
	}
}

func TestGuard_CanModifyUser(t *testing.T) {
	g := NewGuard()
	admin := &models.User{ID: "admin-1", Role: models.RoleAdmin}

	if err := g.CanModifyUser(admin, "reader-1"); err != nil {
		t.Errorf("modify other: %v", err)
	}
	if err := g.CanModifyUser(admin, admin.ID); !errors.Is(err, ErrSelfModification) {
		t.Errorf("modify self = %v, want ErrSelfModification", err)
	}
	if err := g.CanModifyUser(nil, "reader-1"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("nil actor = %v, want ErrUnauthorized", err)
	}
}

func TestGuard_CanChangeRole(t *testing.T) {
	g := NewGuard()
	admin := &models.User{ID: "admin-1", Role: models.RoleAdmin}
	otherAdmin := &models.User{ID: "admin-2", Role: models.RoleAdmin}
	librarian := &models.User{ID: "lib-1", Role: models.RoleLibrarian}
	reader := &models.User{ID: "reader-1", Role: models.RoleReader}

	tests := []struct {
		name    string
		actor   *models.User
		target  *models.User
		role    models.UserRole
		wantErr error
	}{
		{"promote reader to librarian", admin, reader, models.RoleLibrarian, nil},
		{"demote librarian to visitor", admin, librarian, models.RoleVisitor, nil},
		{"own role", admin, admin, models.RoleReader, ErrSelfModification},
		{"demote another admin", admin, otherAdmin, models.RoleReader, ErrAdminDemotion},
		{"promote to admin", admin, reader, models.RoleAdmin, ErrForbidden},
		{"librarian changes roles", librarian, reader, models.RoleLibrarian, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.CanChangeRole(tt.actor, tt.target, tt.role)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
