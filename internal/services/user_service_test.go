package services

import (
	"errors"
	"testing"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(env *testEnv) *userService {
	svc := NewUserService(env.repo, NewGuard(), env.logger, env.validator).(*userService)
	svc.hashCost = bcrypt.MinCost
	return svc
}

func TestUserService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestUserService(env)

	user := env.seedUserWithPassword(t, models.RoleReader, "me@example.com", "old-password")
	taken := env.seedUser(t, models.RoleReader)

	t.Run("name and password", func(t *testing.T) {
		updated, err := svc.UpdateProfile(env.ctx, user.ID, &UpdateProfileRequest{
			Name:     strPtr(" New Name "),
			Password: strPtr("new-password"),
		})
		if err != nil {
			t.Fatalf("Failed to update profile: %v", err)
		}
		if updated.Name != "New Name" {
			t.Errorf("name = %q, want New Name", updated.Name)
		}
		stored, _ := env.repo.User().GetByID(env.ctx, user.ID)
		if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("new-password")); err != nil {
			t.Errorf("password not updated: %v", err)
		}
		if stored.Role != models.RoleReader {
			t.Errorf("role changed to %s", stored.Role)
		}
	})

	t.Run("email taken", func(t *testing.T) {
		_, err := svc.UpdateProfile(env.ctx, user.ID, &UpdateProfileRequest{Email: strPtr(taken.Email)})
		if !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("error = %v, want ErrEmailTaken", err)
		}
	})

	t.Run("same email in different case", func(t *testing.T) {
		if _, err := svc.UpdateProfile(env.ctx, user.ID, &UpdateProfileRequest{Email: strPtr("ME@example.com")}); err != nil {
			t.Fatalf("Failed to keep own email: %v", err)
		}
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := svc.UpdateProfile(env.ctx, user.ID, &UpdateProfileRequest{Name: strPtr("   ")})
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("error = %v, want ValidationErrors", err)
		}
	})

	t.Run("short password", func(t *testing.T) {
		_, err := svc.UpdateProfile(env.ctx, user.ID, &UpdateProfileRequest{Password: strPtr("123")})
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("error = %v, want ValidationErrors", err)
		}
	})
}

func TestUserService_ChangeRole(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestUserService(env)

	admin := env.seedUser(t, models.RoleAdmin)
	otherAdmin := env.seedUser(t, models.RoleAdmin)
	reader := env.seedUser(t, models.RoleReader)

	t.Run("promote reader to librarian", func(t *testing.T) {
		updated, err := svc.ChangeRole(env.ctx, admin, reader.ID, &ChangeRoleRequest{Role: "librarian"})
		if err != nil {
			t.Fatalf("Failed to change role: %v", err)
		}
		if updated.Role != models.RoleLibrarian {
			t.Errorf("role = %s, want librarian", updated.Role)
		}
	})

	t.Run("user alias maps to reader", func(t *testing.T) {
		updated, err := svc.ChangeRole(env.ctx, admin, reader.ID, &ChangeRoleRequest{Role: "user"})
		if err != nil {
			t.Fatalf("Failed to change role: %v", err)
		}
		if updated.Role != models.RoleReader {
			t.Errorf("role = %s, want reader", updated.Role)
		}
	})

	tests := []struct {
		name    string
		actor   *models.User
		target  string
		role    string
		wantErr error
	}{
		{"own role", admin, admin.ID, "reader", ErrSelfModification},
		{"demote admin", admin, otherAdmin.ID, "reader", ErrAdminDemotion},
		{"promote to admin", admin, reader.ID, "admin", ErrForbidden},
		{"non admin actor", reader, otherAdmin.ID, "reader", ErrForbidden},
		{"missing user", admin, "00000000-0000-0000-0000-000000000000", "reader", ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ChangeRole(env.ctx, tt.actor, tt.target, &ChangeRoleRequest{Role: tt.role})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("unknown role", func(t *testing.T) {
		_, err := svc.ChangeRole(env.ctx, admin, reader.ID, &ChangeRoleRequest{Role: "superuser"})
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("error = %v, want ValidationErrors", err)
		}
	})

	stored, _ := env.repo.User().GetByID(env.ctx, otherAdmin.ID)
	if stored.Role != models.RoleAdmin {
		t.Errorf("other admin role = %s, want admin", stored.Role)
	}
}

func TestUserService_AdminManagement(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestUserService(env)
	admin := env.seedUser(t, models.RoleAdmin)

	created, err := svc.Create(env.ctx, &CreateUserRequest{
		Name: "Librarian", Email: "Librarian@Example.com", Password: "secret1", Role: "librarian",
	})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if created.Role != models.RoleLibrarian || created.Email != "librarian@example.com" {
		t.Errorf("created = %s <%s>", created.Role, created.Email)
	}

	t.Run("create duplicate email", func(t *testing.T) {
		_, err := svc.Create(env.ctx, &CreateUserRequest{
			Name: "Again", Email: "librarian@example.com", Password: "secret1", Role: "reader",
		})
		if !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("error = %v, want ErrEmailTaken", err)
		}
	})

	t.Run("update other user", func(t *testing.T) {
		updated, err := svc.Update(env.ctx, admin, created.ID, &AdminUpdateUserRequest{Name: strPtr("Head Librarian")})
		if err != nil {
			t.Fatalf("Failed to update user: %v", err)
		}
		if updated.Name != "Head Librarian" {
			t.Errorf("name = %q", updated.Name)
		}
	})

	t.Run("update self", func(t *testing.T) {
		_, err := svc.Update(env.ctx, admin, admin.ID, &AdminUpdateUserRequest{Name: strPtr("Me")})
		if !errors.Is(err, ErrSelfModification) {
			t.Fatalf("error = %v, want ErrSelfModification", err)
		}
	})

	t.Run("list by role", func(t *testing.T) {
		role := models.RoleLibrarian
		list, err := svc.List(env.ctx, repositories.UserFilters{Role: &role})
		if err != nil {
			t.Fatalf("Failed to list users: %v", err)
		}
		if list.Total != 1 || len(list.Users) != 1 || list.Users[0].ID != created.ID {
			t.Errorf("list = %+v", list)
		}
	})

	t.Run("delete self", func(t *testing.T) {
		if err := svc.Delete(env.ctx, admin, admin.ID); !errors.Is(err, ErrSelfModification) {
			t.Fatalf("error = %v, want ErrSelfModification", err)
		}
	})

	t.Run("delete user holding a reservation", func(t *testing.T) {
		reader := env.seedUser(t, models.RoleReader)
		book := env.seedBook(t, "Held", 1)
		if _, err := env.reservationService().Create(env.ctx, reader.ID, &CreateReservationRequest{BookID: book.ID}); err != nil {
			t.Fatalf("Failed to reserve: %v", err)
		}
		if err := svc.Delete(env.ctx, admin, reader.ID); !errors.Is(err, ErrActiveReservations) {
			t.Fatalf("error = %v, want ErrActiveReservations", err)
		}
	})

	t.Run("delete other user", func(t *testing.T) {
		if err := svc.Delete(env.ctx, admin, created.ID); err != nil {
			t.Fatalf("Failed to delete user: %v", err)
		}
		if _, err := svc.Get(env.ctx, created.ID); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("get after delete = %v, want ErrUserNotFound", err)
		}
	})
}
