// Package sched реализует отложенную запись изменений: classic debounce
// с ключом по аннотации. Новая мутация для того же ключа отменяет и
// заменяет ожидающий таймер, так что из N быстрых изменений на сеть
// уходит ровно одна запись с последними значениями.
package sched

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Классы задержек для разных типов мутаций.
// Непрерывные обновления позиции при drag генерируют десятки событий
// в секунду, и важна только финальная позиция, поэтому задержка длинная.
// Дискретные действия (resolve, rename, blur) это единичное намерение
// пользователя, пишутся без задержки.
const (
	DelayDrag      = 2 * time.Second
	DelayResize    = 800 * time.Millisecond
	DelayImmediate = 0
)

// Scheduler хранит по одному ожидающему таймеру на ключ.
// Инвариант: для ключа логически ожидает не более одной записи.
type Scheduler struct {
	logger *slog.Logger
	timers map[string]*time.Timer
	mu     sync.Mutex
	closed bool
}

// New создает новый Scheduler
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule отменяет ожидающий таймер для key (если есть) и ставит fn
// на выполнение через delay. Даже при delay=0 fn выполняется
// асинхронно, сохраняя порядок относительно уже запланированной
// работы для того же ключа.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if prev, ok := s.timers[key]; ok {
		prev.Stop()
		s.logger.Debug("superseded pending write", "key", key)
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		current, ok := s.timers[key]
		if !ok || current != timer {
			// Таймер был отменен или заменен после срабатывания
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()

		fn()
	})
	s.timers[key] = timer
}

// Cancel снимает ожидающую запись для ключа.
// Возвращает true, если запись действительно ожидала.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.timers[key]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.timers, key)
	return true
}

// CancelPrefix снимает все ожидающие записи, чьи ключи начинаются
// с prefix. Используется при выгрузке страницы: ключи имеют вид
// "<page>/<annotation id>".
func (s *Scheduler) CancelPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, timer := range s.timers {
		if strings.HasPrefix(key, prefix) {
			timer.Stop()
			delete(s.timers, key)
			n++
		}
	}
	return n
}

// CancelAll снимает все ожидающие записи
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

// Pending возвращает количество ожидающих записей
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close отменяет все таймеры и запрещает новые Schedule.
// Вызывается при закрытии контекста документа.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
	s.closed = true
}

// Key строит ключ таймера для аннотации страницы
func Key(pageNumber int, id string) string {
	return PagePrefix(pageNumber) + id
}

// PagePrefix строит префикс ключей одной страницы
func PagePrefix(pageNumber int) string {
	return strconv.Itoa(pageNumber) + "/"
}
