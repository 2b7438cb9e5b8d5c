package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// MaxQuantity bounds stock so that it fits a 32-bit column on every backend.
const MaxQuantity = math.MaxInt32

type Category string

const (
	CategoryChocolate Category = "chocolate"
	CategoryCandy     Category = "candy"
	CategoryGummy     Category = "gummy"
	CategorySweets    Category = "sweets"
	CategoryLollipop  Category = "lollipop"
	CategoryCake      Category = "cake"
	CategoryCookie    Category = "cookie"
	CategoryOther     Category = "other"
)

var Categories = []Category{
	CategoryChocolate,
	CategoryCandy,
	CategoryGummy,
	CategorySweets,
	CategoryLollipop,
	CategoryCake,
	CategoryCookie,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"        json:"id"`
	Name         string    `gorm:"size:50;not null"            json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null"                    json:"-"`
	Role         Role      `gorm:"size:16;not null;default:user" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Sweet struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"                    json:"id"`
	Name        string    `gorm:"size:100;not null;index"                 json:"name"`
	Category    Category  `gorm:"size:32;not null;index:idx_sweets_category_price,priority:1" json:"category"`
	Price       float64   `gorm:"not null;check:price >= 0;index:idx_sweets_category_price,priority:2" json:"price"`
	Quantity    int       `gorm:"not null;default:0;check:quantity >= 0"  json:"quantity"`
	Description string    `gorm:"size:500"                                json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `gorm:"index"                                   json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (s *Sweet) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SweetPatch carries the fields of a partial update; nil means unchanged.
type SweetPatch struct {
	Name        *string
	Category    *Category
	Price       *float64
	Quantity    *int
	Description *string
	ImageURL    *string
}

func (p SweetPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.Quantity != nil {
		cols["quantity"] = *p.Quantity
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.ImageURL != nil {
		cols["image_url"] = *p.ImageURL
	}
	return cols
}

type SweetFilter struct {
	Query    string
	Category Category
	MinPrice *float64
	MaxPrice *float64
	Offset   int
	Limit    int
}
