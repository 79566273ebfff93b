package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
)

type userRepo struct {
	r *Repository
}

func (u *userRepo) emailTaken(email, excludeID string) bool {
	for _, existing := range u.r.s.users {
		if existing.ID != excludeID && strings.EqualFold(existing.Email, email) {
			return true
		}
	}
	return false
}

func (u *userRepo) Create(ctx context.Context, user *models.User) error {
	defer u.r.lock()()

	if _, ok := u.r.s.users[user.ID]; ok || user.ID == "" {
		return repositories.ErrDuplicate
	}
	if u.emailTaken(user.Email, "") {
		return repositories.ErrDuplicate
	}

	ts := now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = ts
	}
	user.UpdatedAt = ts
	if user.Role == "" {
		user.Role = models.RoleReader
	}

	stored := *user
	u.r.s.users[user.ID] = &stored
	return nil
}

func (u *userRepo) Update(ctx context.Context, user *models.User) error {
	defer u.r.lock()()

	existing, ok := u.r.s.users[user.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if u.emailTaken(user.Email, user.ID) {
		return repositories.ErrDuplicate
	}

	user.UpdatedAt = now()
	existing.Name = user.Name
	existing.Email = user.Email
	existing.PasswordHash = user.PasswordHash
	existing.Role = user.Role
	existing.LastLoginAt = user.LastLoginAt
	existing.UpdatedAt = user.UpdatedAt
	return nil
}

func (u *userRepo) Delete(ctx context.Context, id string) error {
	defer u.r.lock()()

	s := u.r.s
	if _, ok := s.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.users, id)

	for rid, rating := range s.ratings {
		if rating.UserID == id {
			delete(s.ratings, rid)
		}
	}
	for rid, reservation := range s.reservations {
		if reservation.UserID == id {
			delete(s.reservations, rid)
			continue
		}
		if reservation.HandledBy != nil && *reservation.HandledBy == id {
			reservation.HandledBy = nil
		}
	}
	return nil
}

func (u *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	defer u.r.lock()()

	user, ok := u.r.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *user
	return &c, nil
}

func (u *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer u.r.lock()()

	for _, user := range u.r.s.users {
		if strings.EqualFold(user.Email, email) {
			c := *user
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (u *userRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	defer u.r.lock()()

	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := u.r.s.users[id]; ok {
			c := *user
			users = append(users, &c)
		}
	}
	return users, nil
}

func (u *userRepo) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	defer u.r.lock()()

	query := strings.ToLower(strings.TrimSpace(filters.Query))
	var users []*models.User
	for _, user := range u.r.s.users {
		if query != "" &&
			!strings.Contains(strings.ToLower(user.Name), query) &&
			!strings.Contains(strings.ToLower(user.Email), query) {
			continue
		}
		if filters.Role != nil && user.Role != *filters.Role {
			continue
		}
		c := *user
		users = append(users, &c)
	}

	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID > users[j].ID
	})

	total := int64(len(users))
	return paginate(users, filters.Limit, filters.Offset), total, nil
}

func (u *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	defer u.r.lock()()
	return u.emailTaken(email, ""), nil
}

func (u *userRepo) IncrementTokenVersion(ctx context.Context, id string) (int, error) {
	defer u.r.lock()()

	user, ok := u.r.s.users[id]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	user.TokenVersion++
	return user.TokenVersion, nil
}
