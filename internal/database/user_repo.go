package database

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/kdimtricp/cvat-api/internal/models"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) first(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	result := r.db.GORM().WithContext(ctx).Where(query, arg).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", result.Error)
	}
	return &user, nil
}

// CanAccess reports whether every named project exists and the user is a
// member of each of them. Superusers only need the projects to exist.
func (r *UserRepository) CanAccess(ctx context.Context, user *models.User, projectNames []string) (bool, error) {
	names := slices.Compact(slices.Sorted(slices.Values(projectNames)))
	if len(names) == 0 {
		return false, nil
	}

	var found int64
	result := r.db.GORM().WithContext(ctx).Model(&models.Project{}).Where("name IN ?", names).Count(&found)
	if result.Error != nil {
		return false, fmt.Errorf("failed to get projects: %w", result.Error)
	}
	if int(found) != len(names) {
		return false, nil
	}
	if user.IsSuperuser {
		return true, nil
	}

	var memberships int64
	result = r.db.GORM().WithContext(ctx).
		Model(&models.ProjectUser{}).
		Joins("JOIN engine_projects ON engine_projects.id = engine_projects_users.project_id").
		Where("engine_projects_users.user_id = ? AND engine_projects.name IN ?", user.ID, names).
		Distinct("engine_projects.id").
		Count(&memberships)
	if result.Error != nil {
		return false, fmt.Errorf("failed to check membership: %w", result.Error)
	}
	return int(memberships) == len(names), nil
}
