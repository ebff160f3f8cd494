package store

import (
	"context"
	"strings"

	"github.com/petermazzocco/findit/internal/apperr"
	"github.com/petermazzocco/findit/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemFilter narrows ListItems. Zero values mean "no restriction".
type ItemFilter struct {
	Type       string
	CategoryID uint
	Search     string
	UserID     uint
}

// likeEscaper escapes LIKE wildcards so a search term is matched literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListItems returns items matching f, most recently posted first. Ties on
// date_posted are broken by id so the order is deterministic.
func (s *Store) ListItems(ctx context.Context, f ItemFilter) ([]models.Item, error) {
	q := s.db.WithContext(ctx).Model(&models.Item{}).Preload("Category")

	if f.Type != "" {
		q = q.Where("item_type = ?", f.Type)
	}
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Search != "" {
		// Both sides go through the database's LOWER so folding is the same
		// for the term and the columns.
		pattern := "%" + likeEscaper.Replace(f.Search) + "%"
		q = q.Where(
			`(LOWER(title) LIKE LOWER(?) ESCAPE '\' OR LOWER(description) LIKE LOWER(?) ESCAPE '\' OR LOWER(location) LIKE LOWER(?) ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}

	var items []models.Item
	if err := q.Order("date_posted DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "listing items")
	}
	return items, nil
}

func (s *Store) GetItem(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	if err := s.db.WithContext(ctx).Preload("Category").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Item not found")
		}
		return nil, errors.Wrap(err, "getting item")
	}
	return &item, nil
}

// CreateItem inserts item and reloads its category.
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	db := s.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(item).Error; err != nil {
		if isForeignKeyViolation(err) {
			return apperr.Validation("Invalid category")
		}
		return errors.Wrap(err, "creating item")
	}
	return errors.Wrap(db.First(&item.Category, item.CategoryID).Error, "loading item category")
}

// UpdateItem writes the given columns and returns the reloaded item.
func (s *Store) UpdateItem(ctx context.Context, id uint, changes map[string]any) (*models.Item, error) {
	if len(changes) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			if isForeignKeyViolation(res.Error) {
				return nil, apperr.Validation("Invalid category")
			}
			return nil, errors.Wrap(res.Error, "updating item")
		}
	}
	return s.GetItem(ctx, id)
}

func (s *Store) DeleteItem(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Item{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting item")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Item not found")
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, errors.Wrap(err, "listing categories")
	}
	return categories, nil
}

func (s *Store) CategoryExists(ctx context.Context, id uint) (bool, error) {
	ok, err := s.exists(s.db.WithContext(ctx), &models.Category{}, "id = ?", id)
	return ok, errors.Wrap(err, "checking category")
}
