package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/storage"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS drinks (
	id     BIGSERIAL PRIMARY KEY,
	title  VARCHAR(80) NOT NULL UNIQUE,
	recipe JSONB NOT NULL
)`

type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

type Store struct {
	db db
}

func New(pool db) *Store {
	return &Store{db: pool}
}

func Open(ctx context.Context, opts Options) (*Store, error) {
	pool, err := NewPool(ctx, opts)
	if err != nil {
		return nil, err
	}
	return New(pool), nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create drinks table: %w", err)
	}
	return nil
}

// Reset drops every drink, recreates the table and inserts the sample drink.
func (s *Store) Reset(ctx context.Context) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS drinks`); err != nil {
			return fmt.Errorf("drop drinks table: %w", err)
		}
		if _, err := tx.Exec(ctx, schema); err != nil {
			return fmt.Errorf("create drinks table: %w", err)
		}
		_, err := insertDrink(ctx, tx, domain.SampleDrink())
		return err
	})
}

func (s *Store) ListDrinks(ctx context.Context) ([]domain.Drink, error) {
	rows, err := s.db.Query(ctx, `SELECT id, title, recipe FROM drinks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list drinks: %w", err)
	}
	defer rows.Close()

	drinks := []domain.Drink{}
	for rows.Next() {
		drink, err := scanDrink(rows)
		if err != nil {
			return nil, err
		}
		drinks = append(drinks, drink)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list drinks: %w", err)
	}
	return drinks, nil
}

func (s *Store) GetDrink(ctx context.Context, id int64) (domain.Drink, error) {
	row := s.db.QueryRow(ctx, `SELECT id, title, recipe FROM drinks WHERE id = $1`, id)
	return scanDrink(row)
}

func (s *Store) CreateDrink(ctx context.Context, drink domain.Drink) (domain.Drink, error) {
	var created domain.Drink
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		created, err = insertDrink(ctx, tx, drink)
		return err
	})
	if err != nil {
		return domain.Drink{}, err
	}
	return created, nil
}

func (s *Store) UpdateDrink(ctx context.Context, id int64, patch domain.DrinkPatch) (domain.Drink, error) {
	var updated domain.Drink
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT id, title, recipe FROM drinks WHERE id = $1 FOR UPDATE`, id)
		current, err := scanDrink(row)
		if err != nil {
			return err
		}
		updated = patch.Apply(current)
		recipe, err := json.Marshal(updated.Recipe)
		if err != nil {
			return fmt.Errorf("encode recipe: %w", err)
		}
		tag, err := tx.Exec(ctx, `UPDATE drinks SET title = $1, recipe = $2 WHERE id = $3`, updated.Title, recipe, id)
		if err != nil {
			return mapError("update drink", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return domain.Drink{}, err
	}
	return updated, nil
}

func (s *Store) DeleteDrink(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM drinks WHERE id = $1`, id)
		if err != nil {
			return mapError("delete drink", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

// withTx commits when fn succeeds and rolls back on any error from fn.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit tx", err)
	}
	return nil
}

func insertDrink(ctx context.Context, tx pgx.Tx, drink domain.Drink) (domain.Drink, error) {
	recipe, err := json.Marshal(drink.Recipe)
	if err != nil {
		return domain.Drink{}, fmt.Errorf("encode recipe: %w", err)
	}
	row := tx.QueryRow(ctx,
		`INSERT INTO drinks (title, recipe) VALUES ($1, $2) RETURNING id, title, recipe`,
		drink.Title, recipe,
	)
	created, err := scanDrink(row)
	if err != nil {
		return domain.Drink{}, mapError("insert drink", err)
	}
	return created, nil
}

func scanDrink(row pgx.Row) (domain.Drink, error) {
	var (
		drink  domain.Drink
		recipe []byte
	)
	if err := row.Scan(&drink.ID, &drink.Title, &recipe); err != nil {
		return domain.Drink{}, mapError("scan drink", err)
	}
	if err := json.Unmarshal(recipe, &drink.Recipe); err != nil {
		return domain.Drink{}, fmt.Errorf("decode recipe for drink %d: %w", drink.ID, err)
	}
	return drink, nil
}

func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrConflict) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
