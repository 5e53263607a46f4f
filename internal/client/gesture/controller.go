// Package gesture различает жесты указателя над аннотациями:
// короткое нажатие без движения это клик, нажатие с перемещением
// дальше порога это drag, нажатие на ручке размера это resize.
// Контроллер не знает про рендер и сеть, он только переводит сырые
// события указателя в действия Actions.
package gesture

import (
	"log/slog"
	"math"
	"time"

	"github.com/mkrasnov/pagemark/internal/client/geometry"
	"github.com/mkrasnov/pagemark/internal/models"
)

// Пороги различения жестов
const (
	// DragThresholdPx минимальное перемещение, после которого нажатие
	// считается drag, а не кликом
	DragThresholdPx = 5.0

	// ClickMaxDuration максимальная длительность нажатия без движения,
	// которое трактуется как клик. Более долгое нажатие без движения
	// не дает ни клика, ни drag.
	ClickMaxDuration = 200 * time.Millisecond
)

// Region часть аннотации (или холста), в которую попало нажатие
type Region int

const (
	// RegionCanvas пустая область страницы
	RegionCanvas Region = iota
	// RegionBody тело аннотации
	RegionBody
	// RegionResize ручка изменения ширины текстового блока
	RegionResize
	// RegionAction интерактивный элемент внутри аннотации (кнопка,
	// поле ввода). Жесты здесь не начинаются, событие обрабатывает
	// сам элемент.
	RegionAction
)

// Target описывает, куда попало нажатие
type Target struct {
	ID     models.ID
	Region Region
	Page   int
}

// Actions действия, в которые контроллер переводит распознанные жесты.
// Координаты уже переведены в проценты страницы.
type Actions interface {
	// Click одиночный клик по телу аннотации
	Click(id models.ID)
	// CanvasClick клик по пустой области страницы
	CanvasClick(page int, x, y float64)
	// DragTo непрерывное перемещение аннотации
	DragTo(id models.ID, x, y float64)
	// ResizeTo непрерывное изменение ширины (px страницы без зума)
	ResizeTo(id models.ID, width float64)
}

// Layout отдает текущую геометрию рендера
type Layout interface {
	// PageRect прямоугольник страницы в экранных px с учетом зума
	PageRect(page int) (geometry.PageRect, error)
	// Scale текущий зум
	Scale() float64
}

type state int

const (
	stateIdle state = iota
	statePressed
	stateDragging
	stateResizing
)

// Controller конечный автомат жестов. Не потокобезопасен: события
// указателя приходят из одного UI-потока.
type Controller struct {
	actions Actions
	layout  Layout
	logger  *slog.Logger

	// для тестов
	now func() time.Time

	state  state
	target Target

	pressAt    time.Time
	pressX     float64
	pressY     float64
	startRelX  float64
	startRelY  float64
	startWidth float64
}

// New создает контроллер жестов
func New(actions Actions, layout Layout, logger *slog.Logger) *Controller {
	return &Controller{
		actions: actions,
		layout:  layout,
		logger:  logger,
		now:     time.Now,
	}
}

// PointerDown начало нажатия. target сообщает рендер по hit-test,
// startRel текущая позиция аннотации в процентах (для drag),
// startWidth текущая ширина блока (для resize).
func (c *Controller) PointerDown(target Target, px, py, startRelX, startRelY, startWidth float64) {
	if c.state != stateIdle {
		// Потерянный PointerUp (указатель ушел за окно). Сбрасываем.
		c.reset()
	}

	if target.Region == RegionAction {
		return
	}

	c.target = target
	c.pressAt = c.now()
	c.pressX = px
	c.pressY = py
	c.startRelX = startRelX
	c.startRelY = startRelY
	c.startWidth = startWidth

	if target.Region == RegionResize {
		c.state = stateResizing
		return
	}
	c.state = statePressed
}

// PointerMove перемещение при зажатом указателе
func (c *Controller) PointerMove(px, py float64) {
	switch c.state {
	case statePressed:
		if distance(c.pressX, c.pressY, px, py) < DragThresholdPx {
			return
		}
		if c.target.Region != RegionBody {
			// Движение с холста не drag, но и клик оно уже отменило
			c.reset()
			return
		}
		c.state = stateDragging
		c.drag(px, py)
	case stateDragging:
		c.drag(px, py)
	case stateResizing:
		c.resize(px)
	}
}

// PointerUp конец нажатия
func (c *Controller) PointerUp(px, py float64) {
	defer c.reset()

	switch c.state {
	case statePressed:
		if c.now().Sub(c.pressAt) > ClickMaxDuration {
			// Долгое нажатие без движения: ни клик, ни drag
			return
		}
		if c.target.Region == RegionCanvas {
			rect, err := c.layout.PageRect(c.target.Page)
			if err != nil {
				c.logger.Debug("canvas click on page without layout", "page", c.target.Page)
				return
			}
			x, y, err := geometry.ToRelative(px, py, rect, c.layout.Scale())
			if err != nil {
				return
			}
			c.actions.CanvasClick(c.target.Page, x, y)
			return
		}
		c.actions.Click(c.target.ID)
	case stateDragging, stateResizing:
		// Последняя позиция уже доставлена через move
	}
}

// Cancel прерывает текущий жест (потеря фокуса окна, esc)
func (c *Controller) Cancel() {
	c.reset()
}

func (c *Controller) drag(px, py float64) {
	rect, err := c.layout.PageRect(c.target.Page)
	if err != nil {
		return
	}
	dx, dy, err := geometry.DeltaToRelative(px-c.pressX, py-c.pressY, rect, c.layout.Scale())
	if err != nil {
		return
	}
	c.actions.DragTo(c.target.ID, c.startRelX+dx, c.startRelY+dy)
}

func (c *Controller) resize(px float64) {
	scale := c.layout.Scale()
	if scale <= 0 {
		return
	}
	// Смещение ручки в px страницы без зума
	dw := (px - c.pressX) / scale
	c.actions.ResizeTo(c.target.ID, c.startWidth+dw)
}

func (c *Controller) reset() {
	c.state = stateIdle
	c.target = Target{}
}

func distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}
