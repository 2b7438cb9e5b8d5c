package repo

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrUserAlreadyExist  = errors.New("user already exist")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStockLimit        = errors.New("stock limit exceeded")
)

type GormRepo struct {
	DB *gorm.DB
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
