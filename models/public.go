package models

import "time"

// ImageRoute is the path prefix images are served under.
const ImageRoute = "/api/items/image/"

type PublicUser struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type PublicCategory struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type PublicItem struct {
	ID           uint            `json:"id"`
	UUID         string          `json:"uuid"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	ItemType     string          `json:"item_type"`
	DatePosted   time.Time       `json:"date_posted"`
	DateOccurred time.Time       `json:"date_occurred"`
	Location     string          `json:"location"`
	ImageURL     *string         `json:"image_url"`
	IsResolved   bool            `json:"is_resolved"`
	Category     *PublicCategory `json:"category"`
	UserID       uint            `json:"user_id"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func (c *Category) Public() PublicCategory {
	return PublicCategory{ID: c.ID, Name: c.Name}
}

func (i *Item) Public() PublicItem {
	p := PublicItem{
		ID:           i.ID,
		UUID:         i.UUID,
		Title:        i.Title,
		Description:  i.Description,
		ItemType:     i.ItemType,
		DatePosted:   i.DatePosted,
		DateOccurred: i.DateOccurred,
		Location:     i.Location,
		IsResolved:   i.IsResolved,
		UserID:       i.UserID,
	}
	if i.ImageFilename != nil {
		url := ImageRoute + *i.ImageFilename
		p.ImageURL = &url
	}
	// Category is only set when it was preloaded
	if i.Category.ID != 0 {
		c := i.Category.Public()
		p.Category = &c
	}
	return p
}

func PublicUsers(users []User) []PublicUser {
	out := make([]PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}

func PublicCategories(categories []Category) []PublicCategory {
	out := make([]PublicCategory, 0, len(categories))
	for i := range categories {
		out = append(out, categories[i].Public())
	}
	return out
}

func PublicItems(items []Item) []PublicItem {
	out := make([]PublicItem, 0, len(items))
	for i := range items {
		out = append(out, items[i].Public())
	}
	return out
}
