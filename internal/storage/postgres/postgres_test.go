package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/storage"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		switch d := dest[i].(type) {
		case *int64:
			*d = r.values[i].(int64)
		case *string:
			*d = r.values[i].(string)
		case *[]byte:
			*d = r.values[i].([]byte)
		}
	}
	return nil
}

type fakeTx struct {
	pgx.Tx
	row        pgx.Row
	execTag    pgconn.CommandTag
	execErr    error
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return tx.row
}

func (tx *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return tx.execTag, tx.execErr
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	tx.rolledBack = true
	return nil
}

type fakeDB struct {
	tx *fakeTx
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) { return f.tx, nil }
func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row { return f.tx.row }
func (f *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return f.tx.execTag, f.tx.execErr
}
func (f *fakeDB) Ping(context.Context) error { return nil }
func (f *fakeDB) Close()                     {}

func latteRow(t *testing.T) fakeRow {
	t.Helper()
	recipe, err := json.Marshal(domain.Recipe{{Name: "milk", Color: "white", Parts: 1}})
	if err != nil {
		t.Fatalf("marshal recipe: %v", err)
	}
	return fakeRow{values: []any{int64(1), "Latte", recipe}}
}

func TestCreateCommits(t *testing.T) {
	tx := &fakeTx{row: latteRow(t)}
	store := New(&fakeDB{tx: tx})

	created, err := store.CreateDrink(context.Background(), domain.Drink{
		Title:  "Latte",
		Recipe: domain.Recipe{{Name: "milk", Color: "white", Parts: 1}},
	})
	if err != nil {
		t.Fatalf("create drink: %v", err)
	}
	if created.ID != 1 || created.Recipe[0].Name != "milk" {
		t.Fatalf("unexpected drink: %+v", created)
	}
	if !tx.committed || tx.rolledBack {
		t.Fatalf("expected commit without rollback")
	}
}

func TestCreateDuplicateTitleRollsBack(t *testing.T) {
	tx := &fakeTx{row: fakeRow{err: &pgconn.PgError{Code: uniqueViolation}}}
	store := New(&fakeDB{tx: tx})

	_, err := store.CreateDrink(context.Background(), domain.Drink{Title: "Latte"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("expected rollback without commit")
	}
}

func TestUpdateMissingRollsBack(t *testing.T) {
	tx := &fakeTx{row: fakeRow{err: pgx.ErrNoRows}}
	store := New(&fakeDB{tx: tx})

	title := "New Name"
	_, err := store.UpdateDrink(context.Background(), 9, domain.DrinkPatch{Title: &title})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("expected rollback without commit")
	}
}

func TestUpdateExecFailureRollsBack(t *testing.T) {
	boom := errors.New("connection reset")
	tx := &fakeTx{row: latteRow(t), execErr: boom}
	store := New(&fakeDB{tx: tx})

	title := "New Name"
	_, err := store.UpdateDrink(context.Background(), 1, domain.DrinkPatch{Title: &title})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("expected rollback without commit")
	}
}

func TestUpdateAppliesPatch(t *testing.T) {
	tx := &fakeTx{row: latteRow(t), execTag: pgconn.NewCommandTag("UPDATE 1")}
	store := New(&fakeDB{tx: tx})

	title := "New Name"
	updated, err := store.UpdateDrink(context.Background(), 1, domain.DrinkPatch{Title: &title})
	if err != nil {
		t.Fatalf("update drink: %v", err)
	}
	if updated.Title != "New Name" || updated.Recipe[0].Name != "milk" {
		t.Fatalf("unexpected drink: %+v", updated)
	}
	if !tx.committed {
		t.Fatalf("expected commit")
	}
}

func TestDeleteMissingRollsBack(t *testing.T) {
	tx := &fakeTx{execTag: pgconn.NewCommandTag("DELETE 0")}
	store := New(&fakeDB{tx: tx})

	if err := store.DeleteDrink(context.Background(), 5); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("expected rollback without commit")
	}
}
