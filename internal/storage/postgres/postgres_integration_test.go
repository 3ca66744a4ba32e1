//go:build integration

package postgres

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/storage"
)

// Run with: go test -tags=integration ./internal/storage/postgres/...
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("coffeeshop"),
		tcpostgres.WithUsername("barista"),
		tcpostgres.WithPassword("barista"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			log.Printf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	store, err := Open(ctx, Options{URL: connStr})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestPostgresDrinkLifecycle(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	created, err := store.CreateDrink(ctx, domain.Drink{
		Title:  "Latte",
		Recipe: domain.Recipe{{Name: "milk", Color: "white", Parts: 1}},
	})
	if err != nil {
		t.Fatalf("create drink: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected server assigned id")
	}

	title := "Flat White"
	updated, err := store.UpdateDrink(ctx, created.ID, domain.DrinkPatch{Title: &title})
	if err != nil {
		t.Fatalf("update drink: %v", err)
	}
	if updated.Title != "Flat White" || len(updated.Recipe) != 1 || updated.Recipe[0].Name != "milk" {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if err := store.DeleteDrink(ctx, created.ID); err != nil {
		t.Fatalf("delete drink: %v", err)
	}
	if _, err := store.GetDrink(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected drink gone, got %v", err)
	}
}

func TestPostgresDuplicateTitleLeavesStoreUnchanged(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := store.CreateDrink(ctx, domain.SampleDrink()); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	drinks, err := store.ListDrinks(ctx)
	if err != nil {
		t.Fatalf("list drinks: %v", err)
	}
	if len(drinks) != 1 || drinks[0].Title != "water" {
		t.Fatalf("expected only the seeded drink, got %+v", drinks)
	}
}
