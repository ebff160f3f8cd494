package service

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petermazzocco/findit/internal/apperr"
	"github.com/petermazzocco/findit/internal/store"
	"github.com/petermazzocco/findit/internal/upload"
	"github.com/petermazzocco/findit/models"
	"github.com/sirupsen/logrus"
)

// ItemQuery holds the raw listing filters as received from the client.
type ItemQuery struct {
	Type     string
	Category string
	Search   string
}

// ItemFields carries item input in textual form, whichever encoding the
// client used. Absent keys are not set.
type ItemFields map[string]string

// Image is an uploaded file waiting for validation.
type Image struct {
	Reader   io.Reader
	Filename string
}

type itemInput struct {
	Title        string `json:"title" validate:"required,max=100"`
	Description  string `json:"description" validate:"required,max=5000"`
	ItemType     string `json:"item_type" validate:"required,oneof=lost found"`
	CategoryID   string `json:"category_id" validate:"required"`
	DateOccurred string `json:"date_occurred" validate:"required"`
	Location     string `json:"location" validate:"required,max=200"`
}

// editable lists the textual columns an item update may touch, in the order
// they are checked, with the rule each value must satisfy.
var editable = []struct {
	field string
	rule  string
}{
	{"title", "required,max=100"},
	{"description", "required,max=5000"},
	{"location", "required,max=200"},
}

type Items struct {
	store   *store.Store
	uploads *upload.Validator
	log     *logrus.Logger
	now     func() time.Time
}

func NewItems(s *store.Store, uploads *upload.Validator, log *logrus.Logger) *Items {
	return &Items{store: s, uploads: uploads, log: log, now: time.Now}
}

func parseCategoryID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || id == 0 {
		return 0, errCategory
	}
	return uint(id), nil
}

// List returns items matching q, most recently posted first.
func (s *Items) List(ctx context.Context, q ItemQuery) ([]models.Item, error) {
	var f store.ItemFilter
	if q.Type != "" {
		if !models.IsValidItemType(q.Type) {
			return nil, errItemType
		}
		f.Type = q.Type
	}
	if q.Category != "" {
		id, err := parseCategoryID(q.Category)
		if err != nil {
			return nil, err
		}
		f.CategoryID = id
	}
	f.Search = strings.TrimSpace(q.Search)
	return s.store.ListItems(ctx, f)
}

// Mine returns the items owned by userID.
func (s *Items) Mine(ctx context.Context, userID uint) ([]models.Item, error) {
	return s.store.ListItems(ctx, store.ItemFilter{UserID: userID})
}

func (s *Items) Get(ctx context.Context, id uint) (*models.Item, error) {
	return s.store.GetItem(ctx, id)
}

func (s *Items) Categories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}

// Create validates fields, stores the optional image and inserts the item.
// Nothing is written unless every field is valid, and a failed image
// aborts the whole operation.
func (s *Items) Create(ctx context.Context, ownerID uint, fields ItemFields, img *Image) (*models.Item, error) {
	in := itemInput{
		Title:        strings.TrimSpace(fields["title"]),
		Description:  strings.TrimSpace(fields["description"]),
		ItemType:     strings.TrimSpace(fields["item_type"]),
		CategoryID:   strings.TrimSpace(fields["category_id"]),
		DateOccurred: strings.TrimSpace(fields["date_occurred"]),
		Location:     strings.TrimSpace(fields["location"]),
	}
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	occurred, err := ParseDate(in.DateOccurred)
	if err != nil {
		return nil, err
	}
	categoryID, err := s.checkCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, ownerID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.ErrAuthRequired
		}
		return nil, err
	}

	item := &models.Item{
		UUID:         uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		ItemType:     in.ItemType,
		DatePosted:   s.now().UTC(),
		DateOccurred: occurred,
		Location:     in.Location,
		CategoryID:   categoryID,
		UserID:       ownerID,
	}

	if img != nil {
		name, err := s.uploads.Accept(ctx, img.Reader, img.Filename)
		if err != nil {
			return nil, err
		}
		item.ImageFilename = &name
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		if item.ImageFilename != nil {
			s.uploads.Remove(ctx, *item.ImageFilename)
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"item_id": item.ID, "user_id": ownerID}).Info("item created")
	return item, nil
}

func (s *Items) checkCategory(ctx context.Context, raw string) (uint, error) {
	id, err := parseCategoryID(raw)
	if err != nil {
		return 0, err
	}
	ok, err := s.store.CategoryExists(ctx, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errCategory
	}
	return id, nil
}

// editableItem loads item id and checks that actorID owns it or is an admin.
func (s *Items) editableItem(ctx context.Context, actorID, id uint) (*models.Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	actor, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.ErrAuthRequired
		}
		return nil, err
	}
	if item.UserID != actor.ID && !actor.IsAdmin {
		return nil, apperr.Forbidden("You can only change your own items")
	}
	return item, nil
}

// Update applies the present fields to item id. A new image replaces the
// previous one, which is removed once the row is updated.
func (s *Items) Update(ctx context.Context, actorID, id uint, fields ItemFields, img *Image) (*models.Item, error) {
	item, err := s.editableItem(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	for _, e := range editable {
		if v, ok := fields[e.field]; ok {
			v = strings.TrimSpace(v)
			if err := checkField(e.field, v, e.rule); err != nil {
				return nil, err
			}
			changes[e.field] = v
		}
	}
	if v, ok := fields["item_type"]; ok {
		v = strings.TrimSpace(v)
		if !models.IsValidItemType(v) {
			return nil, errItemType
		}
		changes["item_type"] = v
	}
	if v, ok := fields["category_id"]; ok {
		categoryID, err := s.checkCategory(ctx, v)
		if err != nil {
			return nil, err
		}
		changes["category_id"] = categoryID
	}
	if v, ok := fields["date_occurred"]; ok {
		occurred, err := ParseDate(v)
		if err != nil {
			return nil, err
		}
		changes["date_occurred"] = occurred
	}
	if v, ok := fields["is_resolved"]; ok {
		resolved, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, apperr.Validation("is_resolved must be true or false")
		}
		changes["is_resolved"] = resolved
	}

	var newImage string
	if img != nil {
		newImage, err = s.uploads.Accept(ctx, img.Reader, img.Filename)
		if err != nil {
			return nil, err
		}
		changes["image_filename"] = newImage
	}

	updated, err := s.store.UpdateItem(ctx, id, changes)
	if err != nil {
		if newImage != "" {
			s.uploads.Remove(ctx, newImage)
		}
		return nil, err
	}
	if newImage != "" && item.ImageFilename != nil {
		s.uploads.Remove(ctx, *item.ImageFilename)
	}
	return updated, nil
}

// Delete removes item id and then its image.
func (s *Items) Delete(ctx context.Context, actorID, id uint) error {
	item, err := s.editableItem(ctx, actorID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	if item.ImageFilename != nil {
		s.uploads.Remove(ctx, *item.ImageFilename)
	}
	s.log.WithFields(logrus.Fields{"item_id": id, "user_id": actorID}).Info("item deleted")
	return nil
}
