// Package annotations содержит клиентский движок аннотаций:
// постраничную коллекцию, single-selection координатор и сервис
// оптимистичных мутаций с откатом при сбое сети.
package annotations

import (
	"sync"

	"github.com/mkrasnov/pagemark/internal/models"
)

// Store постраничная in-memory коллекция аннотаций.
// Единственный источник правды для видимого состояния страницы:
// все мутации проходят через него, чтобы optimistic-update и rollback
// жили в одном месте.
type Store struct {
	pages map[int][]models.Annotation
	mu    sync.RWMutex
}

// NewStore создает пустую коллекцию
func NewStore() *Store {
	return &Store{pages: make(map[int][]models.Annotation)}
}

// Insert добавляет аннотацию в конец коллекции её страницы
func (s *Store) Insert(a models.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page := a.Base().PageNumber
	s.pages[page] = append(s.pages[page], a)
}

// InsertAt возвращает аннотацию на прежнюю позицию в коллекции.
// Используется при откате неудавшегося удаления.
func (s *Store) InsertAt(page, index int, a models.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.pages[page]
	if index < 0 || index > len(list) {
		index = len(list)
	}
	list = append(list, nil)
	copy(list[index+1:], list[index:])
	list[index] = a
	s.pages[page] = list
}

// Get возвращает копию аннотации по id
func (s *Store) Get(id models.ID) (models.Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a := s.find(id); a != nil {
		return a.Clone(), true
	}
	return nil, false
}

// Page возвращает копии аннотаций страницы в порядке коллекции
func (s *Store) Page(page int) []models.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.pages[page]
	out := make([]models.Annotation, 0, len(list))
	for _, a := range list {
		out = append(out, a.Clone())
	}
	return out
}

// Apply мутирует аннотацию под блокировкой коллекции.
// Если id уже отсутствует (гонка с удалением), это no-op, возвращает false.
func (s *Store) Apply(id models.ID, fn func(models.Annotation)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.find(id)
	if a == nil {
		return false
	}
	fn(a)
	return true
}

// Remove удаляет аннотацию и возвращает снапшот с её позицией
// в коллекции для возможного отката
func (s *Store) Remove(id models.ID) (models.Annotation, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for page, list := range s.pages {
		for i, a := range list {
			if a.Base().ID == id {
				snapshot := a.Clone()
				s.pages[page] = append(list[:i], list[i+1:]...)
				return snapshot, i, true
			}
		}
	}
	return nil, 0, false
}

// Replace заменяет аннотацию с oldID новой сущностью, сохраняя
// позицию в коллекции. Используется при reconcile временного id.
func (s *Store) Replace(oldID models.ID, a models.Annotation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, list := range s.pages {
		for i, existing := range list {
			if existing.Base().ID == oldID {
				list[i] = a
				return true
			}
		}
	}
	return false
}

// ResetPage заменяет коллекцию страницы целиком (загрузка с сервера)
func (s *Store) ResetPage(page int, list []models.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[page] = list
}

// Reset заменяет всю коллекцию (загрузка документа)
func (s *Store) Reset(byPage map[int][]models.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pages = make(map[int][]models.Annotation, len(byPage))
	for page, list := range byPage {
		s.pages[page] = list
	}
}

// All возвращает копии всех аннотаций документа.
// Порядок внутри страницы сохраняется, порядок страниц не определен.
func (s *Store) All() []models.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Annotation, 0, 16)
	for _, list := range s.pages {
		for _, a := range list {
			out = append(out, a.Clone())
		}
	}
	return out
}

// Len возвращает общее количество аннотаций
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, list := range s.pages {
		n += len(list)
	}
	return n
}

// find ищет живую сущность; вызывается только под блокировкой
func (s *Store) find(id models.ID) models.Annotation {
	for _, list := range s.pages {
		for _, a := range list {
			if a.Base().ID == id {
				return a
			}
		}
	}
	return nil
}
