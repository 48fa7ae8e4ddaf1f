package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/JacobArthurs/ecommerce-api/pkg/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// EnsureGroups seeds the reserved role groups.
func (r *UserRepository) EnsureGroups(ctx context.Context) error {
	for _, name := range []string{models.GroupUser, models.GroupAdmin} {
		group := models.Group{Name: name}
		err := r.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&group).Error
		if err != nil {
			return fmt.Errorf("failed to seed group %q: %w", name, err)
		}
	}
	return nil
}

// Create persists the user and assigns the given role group.
func (r *UserRepository) Create(ctx context.Context, user *models.User, groupName string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.Where("name = ?", groupName).First(&group).Error; err != nil {
			return fmt.Errorf("role group %q missing: %w", groupName, err)
		}
		if err := tx.Omit("Groups").Create(user).Error; err != nil {
			return err
		}
		return tx.Model(user).Association("Groups").Append(&group)
	})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Groups").Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Groups").Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) All(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Preload("Groups").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Search(ctx context.Context, username, email string) ([]models.User, error) {
	q := r.db.WithContext(ctx).Model(&models.User{}).Preload("Groups")

	if username != "" {
		q = q.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(username)+"%")
	}
	if email != "" {
		q = q.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(email)+"%")
	}

	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ReplaceGroup swaps the user's role set for exactly the named group and
// aligns the elevated-privilege flags with it. Prior roles are cleared,
// never accumulated.
func (r *UserRepository) ReplaceGroup(ctx context.Context, user *models.User, groupName string) error {
	elevated := groupName == models.GroupAdmin
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.Where("name = ?", groupName).First(&group).Error; err != nil {
			return fmt.Errorf("role group %q missing: %w", groupName, err)
		}
		if err := tx.Model(user).Association("Groups").Clear(); err != nil {
			return err
		}
		if err := tx.Model(user).Association("Groups").Append(&group); err != nil {
			return err
		}
		err := tx.Model(user).Updates(map[string]interface{}{
			"is_staff":     elevated,
			"is_superuser": elevated,
		}).Error
		if err != nil {
			return err
		}
		user.Groups = []models.Group{group}
		user.IsStaff = elevated
		user.IsSuperuser = elevated
		return nil
	})
}
