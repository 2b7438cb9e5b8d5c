package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/sweet_shop/internal/models"
)

const newestFirst = "created_at DESC, id DESC"

// ftsMatchSQL must stay identical to the expression of idx_sweets_fts.
const ftsMatchSQL = `to_tsvector('english', name || ' ' || category || ' ' || coalesce(description, '')) @@ websearch_to_tsquery('english', ?)`

const likeMatchSQL = `LOWER(name) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *GormRepo) ListSweets(ctx context.Context) ([]models.Sweet, error) {
	items := []models.Sweet{}
	if err := r.DB.WithContext(ctx).Order(newestFirst).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetSweet(ctx context.Context, id uuid.UUID) (*models.Sweet, error) {
	var sweet models.Sweet
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&sweet).Error; err != nil {
		return nil, err
	}
	return &sweet, nil
}

func (r *GormRepo) CreateSweet(ctx context.Context, sweet *models.Sweet) (*models.Sweet, error) {
	if err := r.DB.WithContext(ctx).Create(sweet).Error; err != nil {
		return nil, err
	}
	return sweet, nil
}

func (r *GormRepo) UpdateSweet(ctx context.Context, id uuid.UUID, patch models.SweetPatch) (*models.Sweet, error) {
	var sweet models.Sweet
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&sweet).Error; err != nil {
			return err
		}

		cols := patch.Columns()
		if len(cols) == 0 {
			return nil
		}
		if err := tx.Model(&sweet).Updates(cols).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&sweet).Error
	})
	if err != nil {
		return nil, err
	}
	return &sweet, nil
}

func (r *GormRepo) DeleteSweet(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Sweet{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PurchaseSweet decrements stock with a single conditional update, so two
// concurrent purchases can never both pass the stock check.
func (r *GormRepo) PurchaseSweet(ctx context.Context, id uuid.UUID, qty int) (*models.Sweet, error) {
	var sweet models.Sweet
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Sweet{}).
			Where("id = ? AND quantity >= ?", id, qty).
			Update("quantity", gorm.Expr("quantity - ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Where("id = ?", id).First(&sweet).Error; err != nil {
				return err
			}
			return ErrInsufficientStock
		}
		return tx.Where("id = ?", id).First(&sweet).Error
	})
	if err != nil {
		return nil, err
	}
	return &sweet, nil
}

// RestockSweet adds qty units unless the result would exceed models.MaxQuantity.
func (r *GormRepo) RestockSweet(ctx context.Context, id uuid.UUID, qty int) (*models.Sweet, error) {
	if qty > models.MaxQuantity {
		return nil, ErrStockLimit
	}
	var sweet models.Sweet
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Sweet{}).
			Where("id = ? AND quantity <= ?", id, models.MaxQuantity-qty).
			Update("quantity", gorm.Expr("quantity + ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Where("id = ?", id).First(&sweet).Error; err != nil {
				return err
			}
			return ErrStockLimit
		}
		return tx.Where("id = ?", id).First(&sweet).Error
	})
	if err != nil {
		return nil, err
	}
	return &sweet, nil
}

func (r *GormRepo) SearchSweets(ctx context.Context, f models.SweetFilter) (int64, []models.Sweet, error) {
	var total int64
	if err := r.applyFilter(r.DB.WithContext(ctx).Model(&models.Sweet{}), f).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Sweet, 0, f.Limit)
	if err := r.applyFilter(r.DB.WithContext(ctx).Model(&models.Sweet{}), f).
		Order(newestFirst).
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) applyFilter(q *gorm.DB, f models.SweetFilter) *gorm.DB {
	if text := strings.TrimSpace(f.Query); text != "" {
		if r.DB.Dialector.Name() == "postgres" {
			q = q.Where(ftsMatchSQL, text)
		} else {
			pattern := "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
			q = q.Where(likeMatchSQL, pattern, pattern, pattern)
		}
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	return q
}
