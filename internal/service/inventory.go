package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/sweet_shop/internal/events"
	"github.com/Skotchmaster/sweet_shop/internal/logging"
	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/Skotchmaster/sweet_shop/internal/repo"
	"github.com/Skotchmaster/sweet_shop/internal/search"
	"github.com/Skotchmaster/sweet_shop/internal/transport"
	"github.com/Skotchmaster/sweet_shop/internal/util"
)

type InventoryService struct {
	Repo   *repo.GormRepo
	Index  search.Index
	Events events.Publisher
}

type SearchQuery struct {
	Q        string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Page     int
	Limit    int
}

type SearchResult struct {
	Sweets []models.Sweet
	Page   int
	Limit  int
	Total  int64
	Pages  int64
}

func (s *InventoryService) List(ctx context.Context) ([]models.Sweet, error) {
	return s.Repo.ListSweets(ctx)
}

func (s *InventoryService) Get(ctx context.Context, id uuid.UUID) (*models.Sweet, error) {
	sweet, err := s.Repo.GetSweet(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return sweet, nil
}

func (s *InventoryService) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	l := logging.FromContext(ctx).With("svc", "inventory.search")

	filter, page, err := buildFilter(q)
	if err != nil {
		return nil, err
	}

	var (
		total int64
		items []models.Sweet
	)
	if s.Index != nil && filter.Query != "" {
		total, items, err = s.Index.Search(ctx, filter)
		if err != nil {
			l.Warn("search_index_failed", "reason", "falling back to database", "error", err)
		}
	}
	if s.Index == nil || filter.Query == "" || err != nil {
		total, items, err = s.Repo.SearchSweets(ctx, filter)
		if err != nil {
			return nil, err
		}
	}

	return &SearchResult{
		Sweets: items,
		Page:   page,
		Limit:  filter.Limit,
		Total:  total,
		Pages:  util.TotalPages(total, filter.Limit),
	}, nil
}

func (s *InventoryService) Create(ctx context.Context, req transport.CreateSweetRequest, actor *models.User) (*models.Sweet, error) {
	req.Normalize()
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	sweet := &models.Sweet{
		Name:        req.Name,
		Category:    models.Category(req.Category),
		Price:       *req.Price,
		Quantity:    *req.Quantity,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	created, err := s.Repo.CreateSweet(ctx, sweet)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, created, events.TypeSweetCreated, actor, 0)
	return created, nil
}

func (s *InventoryService) Update(ctx context.Context, id uuid.UUID, req transport.UpdateSweetRequest, actor *models.User) (*models.Sweet, error) {
	req.Normalize()
	patch, err := buildPatch(req)
	if err != nil {
		return nil, err
	}

	updated, err := s.Repo.UpdateSweet(ctx, id, patch)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	s.afterWrite(ctx, updated, events.TypeSweetUpdated, actor, 0)
	return updated, nil
}

func (s *InventoryService) Delete(ctx context.Context, id uuid.UUID, actor *models.User) error {
	l := logging.FromContext(ctx).With("svc", "inventory.delete")

	if err := s.Repo.DeleteSweet(ctx, id); err != nil {
		return mapRepoErr(err)
	}

	if s.Index != nil {
		if err := s.Index.DeleteSweet(ctx, id); err != nil {
			l.Warn("search_index_delete_failed", "sweet_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicSweetEvents, id.String(), events.Event{
		Type:    events.TypeSweetDeleted,
		UserID:  actorID(actor),
		SweetID: id.String(),
		At:      time.Now().UTC(),
	})
	return nil
}

// Purchase removes qty units from stock; a nil qty means one unit.
func (s *InventoryService) Purchase(ctx context.Context, id uuid.UUID, qty *int, actor *models.User) (*models.Sweet, error) {
	n := 1
	if qty != nil {
		n = *qty
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: quantity must be greater than 0", ErrValidation)
	}

	sweet, err := s.Repo.PurchaseSweet(ctx, id, n)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	s.afterWrite(ctx, sweet, events.TypeSweetPurchased, actor, n)
	return sweet, nil
}

func (s *InventoryService) Restock(ctx context.Context, id uuid.UUID, qty *int, actor *models.User) (*models.Sweet, error) {
	if qty == nil || *qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be greater than 0", ErrValidation)
	}
	if *qty > models.MaxQuantity {
		return nil, fmt.Errorf("%w: quantity must not exceed %d", ErrValidation, models.MaxQuantity)
	}

	sweet, err := s.Repo.RestockSweet(ctx, id, *qty)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	s.afterWrite(ctx, sweet, events.TypeSweetRestocked, actor, *qty)
	return sweet, nil
}

// Reindex copies the whole catalog into the search index.
func (s *InventoryService) Reindex(ctx context.Context) error {
	if s.Index == nil {
		return nil
	}
	all, err := s.Repo.ListSweets(ctx)
	if err != nil {
		return err
	}
	return s.Index.Reindex(ctx, all)
}

func (s *InventoryService) afterWrite(ctx context.Context, sweet *models.Sweet, typ string, actor *models.User, amount int) {
	if s.Index != nil {
		if err := s.Index.IndexSweet(ctx, *sweet); err != nil {
			logging.FromContext(ctx).Warn("search_index_failed", "sweet_id", sweet.ID, "type", typ, "error", err)
		}
	}

	qty := sweet.Quantity
	publish(ctx, s.Events, events.TopicSweetEvents, sweet.ID.String(), events.Event{
		Type:     typ,
		UserID:   actorID(actor),
		SweetID:  sweet.ID.String(),
		Name:     sweet.Name,
		Amount:   amount,
		Quantity: &qty,
		At:       time.Now().UTC(),
	})
}

func actorID(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.ID.String()
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: sweet not found", ErrNotFound)
	case errors.Is(err, repo.ErrInsufficientStock):
		return ErrInsufficientStock
	case errors.Is(err, repo.ErrStockLimit):
		return fmt.Errorf("%w: stock cannot exceed %d", ErrValidation, models.MaxQuantity)
	default:
		return err
	}
}

func buildFilter(q SearchQuery) (models.SweetFilter, int, error) {
	f := models.SweetFilter{
		Query:    strings.TrimSpace(q.Q),
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
	}

	if c := strings.ToLower(strings.TrimSpace(q.Category)); c != "" {
		if !models.Category(c).Valid() {
			return f, 0, fmt.Errorf("%w: unknown category %q", ErrValidation, c)
		}
		f.Category = models.Category(c)
	}
	if f.MinPrice != nil && *f.MinPrice < 0 {
		return f, 0, fmt.Errorf("%w: minPrice must not be negative", ErrValidation)
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		return f, 0, fmt.Errorf("%w: maxPrice must not be negative", ErrValidation)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return f, 0, fmt.Errorf("%w: minPrice must not exceed maxPrice", ErrValidation)
	}

	page := util.ClampPage(q.Page)
	f.Offset, f.Limit = util.Calculate(page, q.Limit)
	return f, page, nil
}

func validateCreate(req transport.CreateSweetRequest) error {
	if req.Price == nil {
		return fmt.Errorf("%w: price is required", ErrValidation)
	}
	if req.Quantity == nil {
		return fmt.Errorf("%w: quantity is required", ErrValidation)
	}
	return validateFields(&req.Name, &req.Category, req.Price, req.Quantity, &req.Description, &req.ImageURL)
}

func buildPatch(req transport.UpdateSweetRequest) (models.SweetPatch, error) {
	if err := validateFields(req.Name, req.Category, req.Price, req.Quantity, req.Description, req.ImageURL); err != nil {
		return models.SweetPatch{}, err
	}

	patch := models.SweetPatch{
		Name:        req.Name,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if req.Category != nil {
		c := models.Category(*req.Category)
		patch.Category = &c
	}
	return patch, nil
}

// validateFields checks every non-nil field against the catalog rules.
func validateFields(name, category *string, price *float64, quantity *int, description, imageURL *string) error {
	if name != nil {
		if n := utf8.RuneCountInString(*name); n < 2 || n > 100 {
			return fmt.Errorf("%w: name must be between 2 and 100 characters", ErrValidation)
		}
	}
	if category != nil && !models.Category(*category).Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, *category)
	}
	if price != nil && *price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if quantity != nil && *quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}
	if quantity != nil && *quantity > models.MaxQuantity {
		return fmt.Errorf("%w: quantity must not exceed %d", ErrValidation, models.MaxQuantity)
	}
	if description != nil && utf8.RuneCountInString(*description) > 500 {
		return fmt.Errorf("%w: description must be at most 500 characters", ErrValidation)
	}
	if imageURL != nil && *imageURL != "" {
		u, err := url.Parse(*imageURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: imageUrl must be a valid URL", ErrValidation)
		}
	}
	return nil
}
