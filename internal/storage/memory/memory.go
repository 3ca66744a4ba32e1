package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	drinks map[int64]domain.Drink

	// beforeCommit runs after a write is staged and before it becomes visible.
	beforeCommit func(op string) error
}

func New() *Store {
	return &Store{
		nextID: 1,
		drinks: map[int64]domain.Drink{},
	}
}

// Seed clears the store and inserts the sample drink.
func (s *Store) Seed(ctx context.Context) error {
	s.mu.Lock()
	s.drinks = map[int64]domain.Drink{}
	s.nextID = 1
	s.mu.Unlock()
	_, err := s.CreateDrink(ctx, domain.SampleDrink())
	return err
}

func (s *Store) ListDrinks(_ context.Context) ([]domain.Drink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drinks := make([]domain.Drink, 0, len(s.drinks))
	for _, drink := range s.drinks {
		drinks = append(drinks, copyDrink(drink))
	}
	sort.Slice(drinks, func(i, j int) bool { return drinks[i].ID < drinks[j].ID })
	return drinks, nil
}

func (s *Store) GetDrink(_ context.Context, id int64) (domain.Drink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drink, ok := s.drinks[id]
	if !ok {
		return domain.Drink{}, storage.ErrNotFound
	}
	return copyDrink(drink), nil
}

func (s *Store) CreateDrink(_ context.Context, drink domain.Drink) (domain.Drink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := copyDrink(drink)
	staged.Title = strings.TrimSpace(staged.Title)
	if s.titleTakenLocked(staged.Title, 0) {
		return domain.Drink{}, storage.ErrConflict
	}
	staged.ID = s.nextID
	if err := s.commitLocked("create"); err != nil {
		return domain.Drink{}, err
	}
	s.nextID++
	s.drinks[staged.ID] = staged
	return copyDrink(staged), nil
}

func (s *Store) UpdateDrink(_ context.Context, id int64, patch domain.DrinkPatch) (domain.Drink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.drinks[id]
	if !ok {
		return domain.Drink{}, storage.ErrNotFound
	}
	staged := patch.Apply(current)
	if s.titleTakenLocked(staged.Title, id) {
		return domain.Drink{}, storage.ErrConflict
	}
	if err := s.commitLocked("update"); err != nil {
		return domain.Drink{}, err
	}
	s.drinks[id] = staged
	return copyDrink(staged), nil
}

func (s *Store) DeleteDrink(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drinks[id]; !ok {
		return storage.ErrNotFound
	}
	if err := s.commitLocked("delete"); err != nil {
		return err
	}
	delete(s.drinks, id)
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) Close() {}

func (s *Store) titleTakenLocked(title string, except int64) bool {
	for id, drink := range s.drinks {
		if id != except && drink.Title == title {
			return true
		}
	}
	return false
}

func (s *Store) commitLocked(op string) error {
	if s.beforeCommit == nil {
		return nil
	}
	return s.beforeCommit(op)
}

func copyDrink(drink domain.Drink) domain.Drink {
	return domain.Drink{ID: drink.ID, Title: drink.Title, Recipe: drink.Recipe.Clone()}
}
