package models

import (
	"time"
)

const (
	ItemTypeLost  = "lost"
	ItemTypeFound = "found"
)

// DefaultCategories are created on first start when the categories table is empty.
var DefaultCategories = []string{
	"Electronics", "Clothing", "Accessories", "Books",
	"Documents", "Keys", "Pets", "Other",
}

type User struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"<-:create;not null"`
	Username  string    `gorm:"size:80;not null;uniqueIndex"`
	Email     string    `gorm:"size:120;not null;uniqueIndex"`
	Password  string    `gorm:"size:128;not null"`
	IsAdmin   bool      `gorm:"not null;default:false"`
}

type Category struct {
	ID   uint   `gorm:"primarykey"`
	Name string `gorm:"size:50;not null;uniqueIndex"`
}

// Item references its category and owner by foreign key only. The Category
// and Owner fields exist so migrations create the constraints; Category is
// preloaded at query time, Owner never is.
type Item struct {
	ID            uint      `gorm:"primarykey"`
	UUID          string    `gorm:"size:36;not null;uniqueIndex"`
	Title         string    `gorm:"size:100;not null"`
	Description   string    `gorm:"type:text;not null"`
	ItemType      string    `gorm:"size:10;not null;index;check:,item_type IN ('lost','found')"`
	DatePosted    time.Time `gorm:"not null;index"`
	DateOccurred  time.Time `gorm:"not null"`
	Location      string    `gorm:"size:200;not null"`
	ImageFilename *string   `gorm:"size:200"`
	IsResolved    bool      `gorm:"not null;default:false"`
	CategoryID    uint      `gorm:"not null;index"`
	Category      Category  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	UserID        uint      `gorm:"not null;index"`
	Owner         User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
}

func IsValidItemType(t string) bool {
	return t == ItemTypeLost || t == ItemTypeFound
}

// All returns the models in migration order.
func All() []any {
	return []any{&User{}, &Category{}, &Item{}}
}
