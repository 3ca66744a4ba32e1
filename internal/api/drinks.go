package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"coffeeshop/internal/auth"
	"coffeeshop/internal/domain"
	"coffeeshop/internal/logging"
	"coffeeshop/internal/storage"
)

type drinkRequest struct {
	Title  *string        `json:"title"`
	Recipe *domain.Recipe `json:"recipe"`
}

func (req drinkRequest) patch() domain.DrinkPatch {
	return domain.DrinkPatch{Title: req.Title, Recipe: req.Recipe}
}

type drinksResponse[T any] struct {
	Success bool `json:"success"`
	Count   *int `json:"count,omitempty"`
	Drinks  []T  `json:"drinks"`
}

func listResponse[T any](drinks []T) drinksResponse[T] {
	count := len(drinks)
	return drinksResponse[T]{Success: true, Count: &count, Drinks: drinks}
}

func (s *Server) handleListDrinks(w http.ResponseWriter, r *http.Request) {
	drinks, ok := s.loadDrinks(w, r)
	if !ok {
		return
	}
	short := make([]domain.ShortDrink, 0, len(drinks))
	for _, drink := range drinks {
		short = append(short, drink.Short())
	}
	writeJSON(w, http.StatusOK, listResponse(short))
}

func (s *Server) handleListDrinksDetail(w http.ResponseWriter, r *http.Request, _ auth.Claims) {
	drinks, ok := s.loadDrinks(w, r)
	if !ok {
		return
	}
	long := make([]domain.LongDrink, 0, len(drinks))
	for _, drink := range drinks {
		long = append(long, drink.Long())
	}
	writeJSON(w, http.StatusOK, listResponse(long))
}

// loadDrinks writes the 404 envelope itself when there is nothing to list.
func (s *Server) loadDrinks(w http.ResponseWriter, r *http.Request) ([]domain.Drink, bool) {
	drinks, err := s.store.ListDrinks(r.Context())
	if err != nil {
		s.logFailure(r, "list_failed", "", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if len(drinks) == 0 {
		writeNotFound(w)
		return nil, false
	}
	return drinks, true
}

func (s *Server) handleCreateDrink(w http.ResponseWriter, r *http.Request, claims auth.Claims) {
	var req drinkRequest
	if err := decodeJSON(w, r, &req, s.cfg.MaxBodyBytes); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Title == nil || req.Recipe == nil {
		writeUnprocessable(w, "title and recipe are required")
		return
	}
	drink := req.patch().Apply(domain.Drink{})
	if err := drink.Validate(); err != nil {
		writeUnprocessable(w, errorDetail(err))
		return
	}

	created, err := s.store.CreateDrink(r.Context(), drink)
	if err != nil {
		s.writeStoreFailure(w, r, "create_failed", "", err)
		return
	}
	s.metrics.IncDrinksCreated()
	s.logWrite(r, "drink_created", created.ID, claims)
	writeJSON(w, http.StatusOK, drinksResponse[domain.LongDrink]{Success: true, Drinks: []domain.LongDrink{created.Long()}})
}

func (s *Server) handleUpdateDrink(w http.ResponseWriter, r *http.Request, claims auth.Claims) {
	id, ok := drinkID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	if _, err := s.store.GetDrink(r.Context(), id); err != nil {
		s.writeStoreFailure(w, r, "update_failed", chi.URLParam(r, "id"), err)
		return
	}

	var req drinkRequest
	if err := decodeJSON(w, r, &req, s.cfg.MaxBodyBytes); err != nil {
		writeDecodeError(w, err)
		return
	}
	patch := req.patch()
	if err := patch.Validate(); err != nil {
		writeUnprocessable(w, errorDetail(err))
		return
	}

	updated, err := s.store.UpdateDrink(r.Context(), id, patch)
	if err != nil {
		s.writeStoreFailure(w, r, "update_failed", chi.URLParam(r, "id"), err)
		return
	}
	s.metrics.IncDrinksUpdated()
	s.logWrite(r, "drink_updated", updated.ID, claims)
	writeJSON(w, http.StatusOK, drinksResponse[domain.LongDrink]{Success: true, Drinks: []domain.LongDrink{updated.Long()}})
}

func (s *Server) handleDeleteDrink(w http.ResponseWriter, r *http.Request, claims auth.Claims) {
	id, ok := drinkID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	if err := s.store.DeleteDrink(r.Context(), id); err != nil {
		s.writeStoreFailure(w, r, "delete_failed", chi.URLParam(r, "id"), err)
		return
	}
	s.metrics.IncDrinksDeleted()
	s.logWrite(r, "drink_deleted", id, claims)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "delete": id})
}

// drinkID accepts only positive decimal ids.
func drinkID(r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func (s *Server) writeStoreFailure(w http.ResponseWriter, r *http.Request, event, rawID string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeNotFound(w)
	case errors.Is(err, storage.ErrConflict):
		s.metrics.IncWriteFailures()
		writeUnprocessable(w, "title already exists")
	default:
		s.metrics.IncWriteFailures()
		s.logFailure(r, event, rawID, err)
		writeUnprocessable(w, "write failed")
	}
}

func (s *Server) logWrite(r *http.Request, event string, id int64, claims auth.Claims) {
	logging.Allowlist(s.logger, map[string]string{
		"event":        event,
		"request_id":   middleware.GetReqID(r.Context()),
		"drink_id":     strconv.FormatInt(id, 10),
		"subject_hash": s.ipHash.hash(claims.Subject),
	})
}

func (s *Server) logFailure(r *http.Request, event, rawID string, err error) {
	logging.Allowlist(s.logger, map[string]string{
		"event":      event,
		"request_id": middleware.GetReqID(r.Context()),
		"drink_id":   rawID,
		"error":      err.Error(),
	})
}

// errorDetail strips the sentinel prefix so clients see only the field problem.
func errorDetail(err error) string {
	return strings.TrimPrefix(err.Error(), domain.ErrInvalidDrink.Error()+": ")
}
