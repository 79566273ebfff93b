package services

import (
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/library-service/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(env *testEnv) (*authService, *TokenManager) {
	tokens := NewTokenManager("test-secret", time.Hour, "library-test")
	svc := NewAuthService(env.repo, tokens, env.logger, env.validator).(*authService)
	svc.hashCost = bcrypt.MinCost
	return svc, tokens
}

func TestAuthService_RegisterAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newTestAuthService(env)

	resp, err := svc.Register(env.ctx, &RegisterRequest{
		Name:                 "  Ada Lovelace ",
		Email:                "Ada@Example.com",
		Password:             "secret1",
		PasswordConfirmation: "secret1",
	})
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if resp.User.Role != models.RoleReader {
		t.Errorf("role = %s, want reader", resp.User.Role)
	}
	if resp.User.Email != "ada@example.com" || resp.User.Name != "Ada Lovelace" {
		t.Errorf("user = %q <%s>", resp.User.Name, resp.User.Email)
	}
	if resp.TokenType != "Bearer" || resp.Token == "" {
		t.Errorf("token response = %+v", resp)
	}

	user, err := svc.Authenticate(env.ctx, resp.Token)
	if err != nil {
		t.Fatalf("Failed to authenticate: %v", err)
	}
	if user.ID != resp.User.ID {
		t.Errorf("authenticated %s, want %s", user.ID, resp.User.ID)
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(env.ctx, &RegisterRequest{
			Name: "Other", Email: "ada@example.com", Password: "secret1", PasswordConfirmation: "secret1",
		})
		if !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("error = %v, want ErrEmailTaken", err)
		}
	})

	t.Run("password confirmation mismatch", func(t *testing.T) {
		_, err := svc.Register(env.ctx, &RegisterRequest{
			Name: "Other", Email: "other@example.com", Password: "secret1", PasswordConfirmation: "secret2",
		})
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("error = %v, want ValidationErrors", err)
		}
		if verrs[0].Field != "password_confirmation" {
			t.Errorf("field = %s, want password_confirmation", verrs[0].Field)
		}
	})
}

func TestAuthService_Login(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newTestAuthService(env)
	seeded := env.seedUserWithPassword(t, models.RoleLibrarian, "lib@example.com", "correct-horse")

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid credentials", "LIB@example.com", "correct-horse", nil},
		{"wrong password", "lib@example.com", "wrong-horse", ErrInvalidCredentials},
		{"unknown email", "nobody@example.com", "correct-horse", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(env.ctx, &LoginRequest{Email: tt.email, Password: tt.password})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to login: %v", err)
			}
			if resp.User.ID != seeded.ID || resp.User.LastLoginAt == nil {
				t.Errorf("login user = %+v", resp.User)
			}
		})
	}
}

func TestAuthService_TokenRevocation(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newTestAuthService(env)
	env.seedUserWithPassword(t, models.RoleReader, "reader@example.com", "password")

	first, err := svc.Login(env.ctx, &LoginRequest{Email: "reader@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("Failed to login: %v", err)
	}
	second, err := svc.Login(env.ctx, &LoginRequest{Email: "reader@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("Failed to login again: %v", err)
	}

	if _, err := svc.Authenticate(env.ctx, first.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("earlier token error = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.Authenticate(env.ctx, second.Token); err != nil {
		t.Fatalf("latest token rejected: %v", err)
	}

	if err := svc.Logout(env.ctx, second.User.ID); err != nil {
		t.Fatalf("Failed to logout: %v", err)
	}
	if _, err := svc.Authenticate(env.ctx, second.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token after logout error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenManager_Parse(t *testing.T) {
	user := &models.User{ID: "user-1", Role: models.RoleReader, TokenVersion: 4}

	t.Run("round trip", func(t *testing.T) {
		m := NewTokenManager("secret", time.Hour, "library")
		token, expiresAt, err := m.Issue(user)
		if err != nil {
			t.Fatalf("Failed to issue token: %v", err)
		}
		if !expiresAt.After(time.Now()) {
			t.Errorf("expires_at %v is not in the future", expiresAt)
		}
		claims, err := m.Parse(token)
		if err != nil {
			t.Fatalf("Failed to parse token: %v", err)
		}
		if claims.UserID != user.ID || claims.Role != user.Role || claims.TokenVersion != 4 {
			t.Errorf("claims = %+v", claims)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _, _ := NewTokenManager("secret", time.Hour, "library").Issue(user)
		if _, err := NewTokenManager("other", time.Hour, "library").Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, _, _ := NewTokenManager("secret", time.Hour, "library").Issue(user)
		if _, err := NewTokenManager("secret", time.Hour, "elsewhere").Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		m := NewTokenManager("secret", time.Minute, "library")
		m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := m.Issue(user)
		if err != nil {
			t.Fatalf("Failed to issue token: %v", err)
		}
		m.now = time.Now
		if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := NewTokenManager("secret", time.Hour, "library").Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})
}
