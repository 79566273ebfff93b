package postgres

import (
	"context"
	"strings"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u *UserPostgreSQL) getDB(ctx context.Context) *gorm.DB {
	return u.db.WithContext(ctx)
}

func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	return translateError(u.getDB(ctx).Create(user).Error)
}

func (u *UserPostgreSQL) Update(ctx context.Context, user *models.User) error {
	return translateError(u.getDB(ctx).Model(user).
		Select("name", "email", "password_hash", "role", "last_login_at", "updated_at").
		Updates(user).Error)
}

func (u *UserPostgreSQL) Delete(ctx context.Context, id string) error {
	result := u.getDB(ctx).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := u.getDB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := u.getDB(ctx).First(&user, "LOWER(email) = ?", strings.ToLower(email)).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var users []*models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := u.getDB(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (u *UserPostgreSQL) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := u.getDB(ctx).Model(&models.User{})
	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := likePattern(q)
		query = query.Where("name ILIKE ? OR email ILIKE ?", pattern, pattern)
	}
	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyLimitOffset(query.Order("created_at DESC"), filters.Limit, filters.Offset)
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (u *UserPostgreSQL) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := u.getDB(ctx).Model(&models.User{}).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Count(&count).Error
	return count > 0, err
}

func (u *UserPostgreSQL) IncrementTokenVersion(ctx context.Context, id string) (int, error) {
	var user models.User
	result := u.getDB(ctx).Model(&user).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "token_version"}}}).
		Where("id = ?", id).
		Update("token_version", gorm.Expr("token_version + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, repositories.ErrNotFound
	}
	return user.TokenVersion, nil
}
