package annotations

import (
	"sync"

	"github.com/mkrasnov/pagemark/internal/models"
)

// Selection координатор выделения и редактирования.
// Инвариант: в любой момент выделено не более одной аннотации;
// редактирование — строгое под-состояние выделения.
type Selection struct {
	selected models.ID
	editing  models.ID
	mu       sync.Mutex
}

// NewSelection создает пустое выделение
func NewSelection() *Selection {
	return &Selection{}
}

// Select выделяет аннотацию, снимая выделение с любой другой.
// Если редактировалась другая аннотация, редактирование завершается.
func (s *Selection) Select(id models.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = id
	if s.editing != id {
		s.editing = models.ID{}
	}
}

// StartEdit выделяет аннотацию и включает режим редактирования
func (s *Selection) StartEdit(id models.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = id
	s.editing = id
}

// EndEdit завершает редактирование, оставляя выделение
func (s *Selection) EndEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = models.ID{}
}

// Clear снимает и выделение, и редактирование.
// Вызывается при клике вне всех аннотаций и открытых редакторов.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = models.ID{}
	s.editing = models.ID{}
}

// Selected возвращает выделенную аннотацию
func (s *Selection) Selected() (models.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, !s.selected.IsZero()
}

// Editing возвращает редактируемую аннотацию
func (s *Selection) Editing() (models.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing, !s.editing.IsZero()
}

// IsSelected сообщает, выделена ли аннотация
func (s *Selection) IsSelected(id models.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected == id
}

// IsEditing сообщает, редактируется ли аннотация
func (s *Selection) IsEditing(id models.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing == id
}

// Remap заменяет временный id на постоянный после reconcile,
// не теряя текущее выделение/редактирование
func (s *Selection) Remap(oldID, newID models.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == oldID {
		s.selected = newID
	}
	if s.editing == oldID {
		s.editing = newID
	}
}

// Drop снимает выделение с удаленной аннотации
func (s *Selection) Drop(id models.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == id {
		s.selected = models.ID{}
	}
	if s.editing == id {
		s.editing = models.ID{}
	}
}
