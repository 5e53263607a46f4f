package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mkrasnov/pagemark/internal/models"
)

// ColorPattern определяет допустимый формат цвета текста
// Hex-форма: #rgb или #rrggbb
var ColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

const (
	// MaxContentLen максимальная длина содержимого аннотации и ответа
	MaxContentLen = 10000
	// MaxOwnerNameLen максимальная длина имени владельца
	MaxOwnerNameLen = 64
)

// ValidateCommentContent проверяет текст комментария.
// Комментарий с пустым содержимым невалиден и не должен быть сохранен.
func ValidateCommentContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("comment content cannot be empty")
	}
	if len(content) > MaxContentLen {
		return fmt.Errorf("content must not exceed %d characters", MaxContentLen)
	}
	return nil
}

// ValidateTextContent проверяет текст текстового блока.
// Пустое содержимое допустимо во время набора — блок с пустым текстом
// удаляется при завершении редактирования, а не сохраняется.
func ValidateTextContent(content string) error {
	if len(content) > MaxContentLen {
		return fmt.Errorf("content must not exceed %d characters", MaxContentLen)
	}
	return nil
}

// ValidateColor проверяет hex-цвет текстового блока
func ValidateColor(color string) error {
	if color == "" {
		return fmt.Errorf("color cannot be empty")
	}
	if !ColorPattern.MatchString(color) {
		return fmt.Errorf("color must be a hex value like #333 or #1a2b3c")
	}
	return nil
}

// ValidateAlign проверяет значение выравнивания
func ValidateAlign(align models.Align) error {
	if !align.Valid() {
		return fmt.Errorf("text align must be one of left, center, right")
	}
	return nil
}

// ValidateOwnerName проверяет имя владельца сессии
func ValidateOwnerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > MaxOwnerNameLen {
		return fmt.Errorf("name must not exceed %d characters", MaxOwnerNameLen)
	}
	return nil
}
