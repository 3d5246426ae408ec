package store

// uiState is the small modal/navigation slice the storefront chrome
// reads. It is never persisted.
type uiState struct {
	navOpen     bool
	activeModal string
}

// SetNavOpen flips the navigation curtain flag.
func (s *Store) SetNavOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui.navOpen = open
}

// NavOpen reports whether the navigation curtain is open.
func (s *Store) NavOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ui.navOpen
}

// OpenModal records the active modal by name; only one modal shows at
// a time.
func (s *Store) OpenModal(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui.activeModal = name
}

// CloseModal clears the active modal.
func (s *Store) CloseModal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui.activeModal = ""
}

// ActiveModal returns the active modal name, empty when none.
func (s *Store) ActiveModal() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ui.activeModal
}
