// Package geometry конвертирует координаты указателя между экранным
// пространством и процентными координатами страницы.
//
// Геометрия страницы читается из рендера уже после применения зума,
// а координаты аннотаций хранятся независимо от зума. Поэтому перед
// нормализацией экранное смещение делится на текущий scale.
package geometry

import "errors"

// ErrNotLaidOut возвращается, когда страница еще не имеет размеров.
// Вызывающий код пропускает взаимодействие вместо деления на ноль.
var ErrNotLaidOut = errors.New("page is not laid out yet")

// PageRect ограничивающий прямоугольник страницы в экранных px
// (уже с учетом зума)
type PageRect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// ToRelative переводит экранные координаты указателя в проценты
// от размеров страницы без зума
func ToRelative(pointerX, pointerY float64, rect PageRect, scale float64) (float64, float64, error) {
	if rect.Width <= 0 || rect.Height <= 0 || scale <= 0 {
		return 0, 0, ErrNotLaidOut
	}

	// Смещение внутри страницы в px без зума
	dx := (pointerX - rect.Left) / scale
	dy := (pointerY - rect.Top) / scale

	// Размеры страницы без зума
	w := rect.Width / scale
	h := rect.Height / scale

	return dx / w * 100, dy / h * 100, nil
}

// ToAbsolute переводит процентные координаты обратно в экранные px
func ToAbsolute(x, y float64, rect PageRect, scale float64) (float64, float64, error) {
	if rect.Width <= 0 || rect.Height <= 0 || scale <= 0 {
		return 0, 0, ErrNotLaidOut
	}

	px := rect.Left + x/100*rect.Width
	py := rect.Top + y/100*rect.Height
	return px, py, nil
}

// DeltaToRelative переводит экранное перемещение указателя (dx, dy в px)
// в дельту процентных координат. Используется при drag, когда известна
// только разница положений.
func DeltaToRelative(dx, dy float64, rect PageRect, scale float64) (float64, float64, error) {
	if rect.Width <= 0 || rect.Height <= 0 || scale <= 0 {
		return 0, 0, ErrNotLaidOut
	}
	return dx / rect.Width * 100, dy / rect.Height * 100, nil
}
