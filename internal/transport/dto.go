package transport

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/sweet_shop/internal/models"
)

type RegisterRequest struct {
	Name     string `json:"name"     validate:"required,min=2,max=50"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"     validate:"omitempty,oneof=user admin"`
}

func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type CreateSweetRequest struct {
	Name        string   `json:"name"        validate:"required,min=2,max=100"`
	Category    string   `json:"category"    validate:"required,oneof=chocolate candy gummy sweets lollipop cake cookie other"`
	Price       *float64 `json:"price"       validate:"required,gte=0"`
	Quantity    *int     `json:"quantity"    validate:"required,gte=0"`
	Description string   `json:"description" validate:"max=500"`
	ImageURL    string   `json:"imageUrl"    validate:"omitempty,url"`
}

func (r *CreateSweetRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.Description = strings.TrimSpace(r.Description)
	r.ImageURL = strings.TrimSpace(r.ImageURL)
}

type UpdateSweetRequest struct {
	Name        *string  `json:"name"        validate:"omitempty,min=2,max=100"`
	Category    *string  `json:"category"    validate:"omitempty,oneof=chocolate candy gummy sweets lollipop cake cookie other"`
	Price       *float64 `json:"price"       validate:"omitempty,gte=0"`
	Quantity    *int     `json:"quantity"    validate:"omitempty,gte=0"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	ImageURL    *string  `json:"imageUrl"    validate:"omitempty,url"`
}

func (r *UpdateSweetRequest) Normalize() {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(r.Name)
	trim(r.Description)
	trim(r.ImageURL)
	if r.Category != nil {
		*r.Category = strings.ToLower(strings.TrimSpace(*r.Category))
	}
}

// PurchaseRequest defaults to one unit when Quantity is omitted.
type PurchaseRequest struct {
	Quantity *int `json:"quantity"`
}

type RestockRequest struct {
	Quantity *int `json:"quantity"`
}

// Envelope wraps every JSON response body.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type UserView struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

func NewUserView(u *models.User) UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type AuthData struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserView  `json:"user"`
}

type UserData struct {
	User UserView `json:"user"`
}

type SweetData struct {
	Sweet models.Sweet `json:"sweet"`
}

type SweetsData struct {
	Sweets []models.Sweet `json:"sweets"`
	Count  int            `json:"count"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type SearchData struct {
	Sweets     []models.Sweet `json:"sweets"`
	Pagination Pagination     `json:"pagination"`
}

type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
