package store

import (
	"context"

	"github.com/petermazzocco/findit/internal/apperr"
	"github.com/petermazzocco/findit/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// CreateUser inserts u. Username and email uniqueness is checked first so
// the caller gets a precise message; the unique indexes still catch races.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	db := s.db.WithContext(ctx)

	taken, err := s.exists(db, &models.User{}, "username = ?", u.Username)
	if err != nil {
		return errors.Wrap(err, "checking username")
	}
	if taken {
		return apperr.Conflict("Username already exists")
	}

	taken, err = s.exists(db, &models.User{}, "email = ?", u.Email)
	if err != nil {
		return errors.Wrap(err, "checking email")
	}
	if taken {
		return apperr.Conflict("Email already exists")
	}

	if err := db.Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("Username or email already exists")
		}
		return errors.Wrap(err, "creating user")
	}
	return nil
}

func (s *Store) exists(db *gorm.DB, model any, query string, args ...any) (bool, error) {
	var count int64
	if err := db.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, errors.Wrap(err, "getting user")
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, errors.Wrap(err, "getting user by username")
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, errors.Wrap(err, "getting user by email")
	}
	return &u, nil
}

func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	taken, err := s.exists(s.db.WithContext(ctx), &models.User{}, "username = ?", username)
	return taken, errors.Wrap(err, "checking username")
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "listing users")
	}
	return users, nil
}

// SetAdmin updates the admin flag and returns the updated user.
func (s *Store) SetAdmin(ctx context.Context, id uint, isAdmin bool) (*models.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(u).Update("is_admin", isAdmin).Error; err != nil {
		return nil, errors.Wrap(err, "updating user")
	}
	u.IsAdmin = isAdmin
	return u, nil
}

// DeleteUserCascade removes the user's items and then the user in a single
// transaction. It returns the image filenames of the deleted items so the
// caller can remove the stored files once the transaction has committed.
func (s *Store) DeleteUserCascade(ctx context.Context, id uint) ([]string, error) {
	var images []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("User not found")
			}
			return errors.Wrap(err, "getting user")
		}

		if err := tx.Model(&models.Item{}).
			Where("user_id = ? AND image_filename IS NOT NULL", id).
			Pluck("image_filename", &images).Error; err != nil {
			return errors.Wrap(err, "listing item images")
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.Item{}).Error; err != nil {
			return errors.Wrap(err, "deleting items")
		}
		if err := tx.Delete(&u).Error; err != nil {
			return errors.Wrap(err, "deleting user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}
