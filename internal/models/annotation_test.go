package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampPosition(t *testing.T) {
	tests := []struct {
		name  string
		kind  string
		x, y  float64
		wantX float64
		wantY float64
	}{
		{name: "inside bounds", kind: KindComment, x: 50, y: 50, wantX: 50, wantY: 50},
		{name: "negative clamped to zero", kind: KindComment, x: -10, y: -0.5, wantX: 0, wantY: 0},
		{name: "comment clamped to 100", kind: KindComment, x: 150, y: 100.1, wantX: 100, wantY: 100},
		{name: "text clamped to 95", kind: KindText, x: 99, y: 96, wantX: 95, wantY: 95},
		{name: "text inside relaxed bound", kind: KindText, x: 94.9, y: 0, wantX: 94.9, wantY: 0},
		{name: "far outside page", kind: KindComment, x: 1e6, y: -1e6, wantX: 100, wantY: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := ClampPosition(tt.kind, tt.x, tt.y)
			assert.InDelta(t, tt.wantX, x, 1e-9)
			assert.InDelta(t, tt.wantY, y, 1e-9)
		})
	}
}

func TestClampWidth(t *testing.T) {
	assert.Equal(t, MinTextWidth, ClampWidth(10))
	assert.Equal(t, MinTextWidth, ClampWidth(-5))
	assert.Equal(t, 250.0, ClampWidth(250))
}

func TestID_TemporaryDurable(t *testing.T) {
	tmp := NewTemporaryID()
	assert.True(t, tmp.IsTemporary())
	assert.NotEmpty(t, tmp.String())

	// Два временных идентификатора не совпадают
	other := NewTemporaryID()
	assert.NotEqual(t, tmp.String(), other.String())

	durable := DurableID("srv-42")
	assert.False(t, durable.IsTemporary())
	assert.Equal(t, "srv-42", durable.String())

	var zero ID
	assert.True(t, zero.IsZero())
	assert.False(t, durable.IsZero())
}

func TestComment_Clone(t *testing.T) {
	c := &Comment{
		AnnotationBase: AnnotationBase{
			ID:         DurableID("a1"),
			DocumentID: "doc-1",
			PageNumber: 3,
			X:          10,
			Y:          20,
			CreatedAt:  time.Now(),
			Owner:      Owner{Name: "Alice"},
		},
		Content:  "original",
		Replies:  []Reply{{ID: DurableID("r1"), Content: "first"}},
		Resolved: false,
	}

	clone := c.Clone().(*Comment)
	require.Equal(t, c.Content, clone.Content)
	require.Len(t, clone.Replies, 1)

	// Мутация клона не затрагивает оригинал
	clone.Content = "changed"
	clone.Replies[0].Content = "changed reply"
	clone.Replies = append(clone.Replies, Reply{Content: "second"})

	assert.Equal(t, "original", c.Content)
	assert.Equal(t, "first", c.Replies[0].Content)
	assert.Len(t, c.Replies, 1)
}

func TestTextBox_Clone(t *testing.T) {
	tb := &TextBox{
		AnnotationBase: AnnotationBase{ID: NewTemporaryID(), PageNumber: 1, X: 5, Y: 5},
		Content:        "draft",
		Width:          DefaultTextWidth,
		FontSize:       DefaultFontSize,
		Color:          DefaultColor,
		TextAlign:      AlignLeft,
	}

	clone := tb.Clone().(*TextBox)
	clone.Content = "other"
	clone.Width = 300

	assert.Equal(t, "draft", tb.Content)
	assert.Equal(t, DefaultTextWidth, tb.Width)
	assert.Equal(t, KindText, tb.Kind())
	assert.Equal(t, KindComment, (&Comment{}).Kind())
}
