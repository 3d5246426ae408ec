package store

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"
)

type categoryState struct {
	items        []models.Category
	clothTypes   []string
	visibleChild map[string]string
	status       LoadStatus
	err          string
}

type categoriesPayload struct {
	Categories []models.Category `json:"categories"`
	Total      int               `json:"total"`
}

// Categories returns a copy of the cached category tree.
func (s *Store) Categories() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Category(nil), s.categories.items...)
}

// LoadCategories fetches the category tree once; force refetches.
func (s *Store) LoadCategories(ctx context.Context, force bool) error {
	ctx, span := util.StartSpan(ctx, "Store.LoadCategories")
	defer span.End()

	s.mu.Lock()
	switch s.categories.status {
	case StatusLoading:
		s.mu.Unlock()
		return nil
	case StatusSuccess:
		if !force {
			s.mu.Unlock()
			util.StoreCacheHits.WithLabelValues("categories").Inc()
			return nil
		}
	}
	s.categories.status = StatusLoading
	s.mu.Unlock()

	util.StoreCacheMisses.WithLabelValues("categories").Inc()
	_, err := s.loadCategoriesPage(ctx, 1, s.cfg.BackendPageSize)
	return err
}

// loadCategoriesPage is the fetch shared with the categories
// pagination window.
func (s *Store) loadCategoriesPage(ctx context.Context, page, size int) (int, error) {
	path := fmt.Sprintf("/categories?page=%d&limit=%d", page, size)
	var payload categoriesPayload
	err := s.api.Get(ctx, path, &payload, apiAuth())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.categories.status = StatusError
		s.categories.err = err.Error()
		return 0, fmt.Errorf("failed to load categories: %w", err)
	}
	s.categories.items = payload.Categories
	s.categories.status = StatusSuccess
	s.categories.err = ""
	return payload.Total, nil
}

// ChildCategories returns the children of a parent category.
func (s *Store) ChildCategories(parentID string) []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Category, 0)
	for _, c := range s.categories.items {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out
}

// SetVisibleChild records which child category a parent shows by
// default.
func (s *Store) SetVisibleChild(parentID, childID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories.visibleChild[parentID] = childID
}

// VisibleChild resolves the child shown for a parent: the recorded
// choice when set, otherwise the first child.
func (s *Store) VisibleChild(parentID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.categories.visibleChild[parentID]; ok {
		return id, true
	}
	for _, c := range s.categories.items {
		if c.ParentID != nil && *c.ParentID == parentID {
			return c.ID, true
		}
	}
	return "", false
}

// LoadClothTypes fetches the cloth-type list used by the product form.
func (s *Store) LoadClothTypes(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "Store.LoadClothTypes")
	defer span.End()

	s.mu.Lock()
	if len(s.categories.clothTypes) > 0 {
		s.mu.Unlock()
		util.StoreCacheHits.WithLabelValues("clothTypes").Inc()
		return nil
	}
	s.mu.Unlock()

	util.StoreCacheMisses.WithLabelValues("clothTypes").Inc()
	var types []string
	if err := s.api.Get(ctx, "/cloth-type", &types, apiAuth()); err != nil {
		return fmt.Errorf("failed to load cloth types: %w", err)
	}

	s.mu.Lock()
	s.categories.clothTypes = types
	s.mu.Unlock()
	return nil
}

// ClothTypes returns a copy of the cloth-type list.
func (s *Store) ClothTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.categories.clothTypes...)
}
