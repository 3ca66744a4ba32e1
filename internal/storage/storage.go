package storage

import (
	"context"
	"errors"

	"coffeeshop/internal/domain"
)

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")

// Store persists drinks. Write operations are transactional: when one returns
// an error the store is left as it was before the call.
type Store interface {
	ListDrinks(ctx context.Context) ([]domain.Drink, error)
	GetDrink(ctx context.Context, id int64) (domain.Drink, error)
	CreateDrink(ctx context.Context, drink domain.Drink) (domain.Drink, error)
	UpdateDrink(ctx context.Context, id int64, patch domain.DrinkPatch) (domain.Drink, error)
	DeleteDrink(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close()
}
