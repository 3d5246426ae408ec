package store

import (
	"context"
	"fmt"

	"storefront-service/internal/util"
)

// PageTarget names a paginated slice. Loaders are registered per
// target at construction, so dispatch is typed rather than resolved
// by string name at call time.
type PageTarget string

const (
	PageProducts          PageTarget = "products"
	PageCategories        PageTarget = "categories"
	PageFulfilledOrders   PageTarget = "orders:fulfilled"
	PageUnfulfilledOrders PageTarget = "orders:unfulfilled"
)

// pageLoader fetches one backend batch and reports the new total.
type pageLoader func(ctx context.Context, backendPage, backendSize int) (total int, err error)

// PageWindow tracks a user-facing page/size pair, the backend batch
// that was last fetched, and the cache range [CacheStart, CacheEnd] of
// backend indices currently in memory. The two sizes differ because
// the backend fetches in larger batches than the UI displays.
type PageWindow struct {
	UserPage    int
	UserSize    int
	BackendPage int
	BackendSize int
	CacheStart  int
	CacheEnd    int
	Total       int
	Fetched     bool
	Loading     bool
}

// NeedsFetch reports whether showing the requested user page requires
// a backend fetch: true when nothing was ever fetched, or when the
// page's index range falls outside the cache window.
func (w *PageWindow) NeedsFetch(page int) bool {
	if !w.Fetched {
		return true
	}
	start := (page - 1) * w.UserSize
	end := start + w.UserSize - 1
	if w.Total > 0 && end > w.Total-1 {
		end = w.Total - 1
	}
	if end < start {
		// Page beyond the known total; nothing to fetch.
		return false
	}
	return start < w.CacheStart || end > w.CacheEnd
}

// Page returns a copy of a target's window.
func (s *Store) Page(target PageTarget) (PageWindow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.pages[target]
	if !ok {
		return PageWindow{}, false
	}
	return *w, true
}

// SetSize changes the user-facing page size. The cache window is kept;
// NeedsFetch recomputes against it.
func (s *Store) SetSize(target PageTarget, size int) error {
	if size <= 0 {
		return fmt.Errorf("invalid page size: %d", size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.pages[target]
	if !ok {
		return fmt.Errorf("unknown pagination target: %s", target)
	}
	w.UserSize = size
	w.UserPage = 1
	return nil
}

// SetPage navigates to a user page, fetching the covering backend
// batch only when the cache window does not already hold it.
func (s *Store) SetPage(ctx context.Context, target PageTarget, page int) error {
	ctx, span := util.StartSpan(ctx, "Store.SetPage")
	defer span.End()

	if page <= 0 {
		return fmt.Errorf("invalid page: %d", page)
	}

	s.mu.Lock()
	w, ok := s.pages[target]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown pagination target: %s", target)
	}

	start := (page - 1) * w.UserSize
	backendPage := start/w.BackendSize + 1

	// Same backend batch as last time, or already covered by cache.
	if w.Fetched && backendPage == w.BackendPage {
		w.UserPage = page
		s.mu.Unlock()
		util.StoreCacheHits.WithLabelValues("page:" + string(target)).Inc()
		return nil
	}
	if !w.NeedsFetch(page) {
		w.UserPage = page
		s.mu.Unlock()
		util.StoreCacheHits.WithLabelValues("page:" + string(target)).Inc()
		return nil
	}
	if w.Loading {
		s.mu.Unlock()
		return nil
	}
	w.Loading = true
	size := w.BackendSize
	loader := s.loaders[target]
	s.mu.Unlock()

	util.StoreCacheMisses.WithLabelValues("page:" + string(target)).Inc()
	total, err := loader(ctx, backendPage, size)

	s.mu.Lock()
	defer s.mu.Unlock()
	w.Loading = false
	if err != nil {
		return err
	}
	w.Fetched = true
	w.BackendPage = backendPage
	w.CacheStart = (backendPage - 1) * size
	w.CacheEnd = w.CacheStart + size - 1
	w.Total = total
	w.UserPage = page
	return nil
}

// resetPageWindowLocked clears a window after its slice was
// invalidated. Must be called with the mutex held.
func (s *Store) resetPageWindowLocked(target PageTarget) {
	if w, ok := s.pages[target]; ok {
		*w = PageWindow{
			UserSize:    w.UserSize,
			BackendSize: w.BackendSize,
		}
	}
}
