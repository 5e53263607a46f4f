package annotations

import (
	"sync"

	"github.com/mkrasnov/pagemark/internal/client/gesture"
	"github.com/mkrasnov/pagemark/internal/models"
)

// Tool активный инструмент панели документа
type Tool int

const (
	// ToolSelect обычный режим: клик выделяет, drag перемещает
	ToolSelect Tool = iota
	// ToolText клик по пустой области создает текстовый блок
	ToolText
)

// Interaction переводит распознанные жесты в мутации сервиса с учетом
// активного инструмента. Слой между gesture.Controller и Service:
// контроллер не знает про инструменты и выделение, сервис не знает
// про жесты.
type Interaction struct {
	service *Service

	mu   sync.Mutex
	tool Tool
}

var _ gesture.Actions = (*Interaction)(nil)

// NewInteraction создает адаптер жестов над сервисом аннотаций.
// Стартовый инструмент ToolSelect.
func NewInteraction(service *Service) *Interaction {
	return &Interaction{service: service}
}

// SetTool переключает активный инструмент
func (i *Interaction) SetTool(tool Tool) {
	i.mu.Lock()
	i.tool = tool
	i.mu.Unlock()
}

// ActiveTool возвращает текущий инструмент
func (i *Interaction) ActiveTool() Tool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tool
}

// Click выделяет аннотацию. Если редактировалась другая,
// редактирование сначала корректно завершается (пустой текстовый
// блок при этом удаляется).
func (i *Interaction) Click(id models.ID) {
	sel := i.service.Selection()
	if editing, ok := sel.Editing(); ok && editing != id {
		i.service.EndTextEdit(editing)
	}
	sel.Select(id)
	i.service.changed()
}

// CanvasClick обрабатывает клик по пустой области страницы.
// Инструмент text создает текстовый блок и сразу открывает его
// редактор одним действием; инструмент select завершает текущее
// редактирование и снимает выделение.
func (i *Interaction) CanvasClick(page int, x, y float64) {
	i.mu.Lock()
	tool := i.tool
	i.mu.Unlock()

	if tool == ToolText {
		i.service.CreateTextBox(page, x, y)
		return
	}

	sel := i.service.Selection()
	if editing, ok := sel.Editing(); ok {
		i.service.EndTextEdit(editing)
	}
	sel.Clear()
	i.service.changed()
}

// DragTo перемещает аннотацию вслед за указателем
func (i *Interaction) DragTo(id models.ID, x, y float64) {
	i.service.Move(id, x, y)
}

// ResizeTo меняет ширину текстового блока вслед за ручкой размера
func (i *Interaction) ResizeTo(id models.ID, width float64) {
	i.service.Resize(id, width)
}
