package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mkrasnov/pagemark/internal/models"
	"github.com/mkrasnov/pagemark/pkg/api"
)

func (c *Cli) runList(ctx context.Context, args []string) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	// Без аргумента выводим весь документ
	pageNumber := -1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid page number: %s", args[0])
		}
		pageNumber = n
	}

	annotations, err := c.apiClient.ListAnnotations(ctx, c.documentID, pageNumber)
	if err != nil {
		return fmt.Errorf("failed to list annotations: %w", err)
	}

	if len(annotations) == 0 {
		c.io.Println("No annotations found.")
		c.io.Println()
		c.io.Println("Use 'pagemark comment' or 'pagemark note' to add the first one.")
		return nil
	}

	c.io.Printf("Found %d annotation(s):\n", len(annotations))
	c.io.Println()

	for i, a := range annotations {
		c.io.Printf("%d. [%s] page %d at (%.1f%%, %.1f%%)\n", i+1, a.Kind, a.PageNumber, a.X, a.Y)
		c.io.Printf("   ID:      %s\n", a.ID)
		c.io.Printf("   Owner:   %s\n", a.Owner.Name)
		c.io.Printf("   Content: %s\n", a.Content)
		if a.Kind == api.KindComment {
			if a.Resolved {
				c.io.Println("   Status:  resolved")
			}
			for _, r := range a.Replies {
				c.io.Printf("   Reply by %s: %s\n", r.Owner.Name, r.Content)
			}
		}
		c.io.Println()
	}

	return nil
}

// parsePlacement разбирает общие аргументы comment и note:
// <page> <x> <y> <text...>
func parsePlacement(args []string) (page int, x, y float64, content string, err error) {
	if len(args) < 4 {
		return 0, 0, 0, "", fmt.Errorf("usage: <page> <x> <y> <text>")
	}
	page, err = strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, 0, "", fmt.Errorf("invalid page number: %s", args[0])
	}
	x, err = strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, 0, "", fmt.Errorf("invalid x coordinate: %s", args[1])
	}
	y, err = strconv.ParseFloat(args[2], 64)
	if err != nil {
		return 0, 0, 0, "", fmt.Errorf("invalid y coordinate: %s", args[2])
	}
	content = strings.Join(args[3:], " ")
	return page, x, y, content, nil
}

func (c *Cli) runComment(ctx context.Context, args []string) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	page, x, y, content, err := parsePlacement(args)
	if err != nil {
		return fmt.Errorf("comment: %w", err)
	}

	created, err := c.apiClient.CreateAnnotation(ctx, api.CreateAnnotationRequest{
		DocumentID: c.documentID,
		Kind:       api.KindComment,
		Content:    content,
		PageNumber: page,
		X:          x,
		Y:          y,
	})
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	c.io.Println("✓ Comment added!")
	c.io.Printf("ID: %s\n", created.ID)
	return nil
}

func (c *Cli) runNote(ctx context.Context, args []string) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	page, x, y, content, err := parsePlacement(args)
	if err != nil {
		return fmt.Errorf("note: %w", err)
	}

	created, err := c.apiClient.CreateAnnotation(ctx, api.CreateAnnotationRequest{
		DocumentID: c.documentID,
		Kind:       api.KindText,
		Content:    content,
		PageNumber: page,
		X:          x,
		Y:          y,
		Width:      models.DefaultTextWidth,
		FontSize:   models.DefaultFontSize,
		Color:      models.DefaultColor,
	})
	if err != nil {
		return fmt.Errorf("failed to create text box: %w", err)
	}

	c.io.Println("✓ Text box added!")
	c.io.Printf("ID: %s\n", created.ID)
	return nil
}

func (c *Cli) runReply(ctx context.Context, args []string) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	if len(args) < 2 {
		return fmt.Errorf("usage: pagemark reply <id> <text>")
	}
	id := args[0]
	content := strings.Join(args[1:], " ")

	reply, err := c.apiClient.CreateReply(ctx, id, content)
	if err != nil {
		return fmt.Errorf("failed to reply: %w", err)
	}

	c.io.Println("✓ Reply added!")
	c.io.Printf("ID: %s\n", reply.ID)
	return nil
}

func (c *Cli) runMove(ctx context.Context, args []string) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	if len(args) < 3 {
		return fmt.Errorf("usage: pagemark move <id> <x> <y>")
	}
	id := args[0]
	x, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid x coordinate: %s", args[1])
	}
	y, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid y coordinate: %s", args[2])
	}

	if err := c.apiClient.UpdateAnnotation(ctx, id, api.AnnotationPatch{X: &x, Y: &y}); err != nil {
		return fmt.Errorf("failed to move annotation: %w", err)
	}

	c.io.Printf("✓ Moved to (%.1f%%, %.1f%%).\n", x, y)
	return nil
}

func (c *Cli) runResolve(ctx context.Context, args []string) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	if len(args) < 1 {
		return fmt.Errorf("usage: pagemark resolve <id>")
	}
	id := args[0]

	// PATCH несет абсолютное значение, поэтому сначала читаем текущее
	annotations, err := c.apiClient.ListAnnotations(ctx, c.documentID, -1)
	if err != nil {
		return fmt.Errorf("failed to list annotations: %w", err)
	}

	var target *api.Annotation
	for i := range annotations {
		if annotations[i].ID == id {
			target = &annotations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("annotation not found: %s", id)
	}
	if target.Kind != api.KindComment {
		return fmt.Errorf("only comments can be resolved")
	}

	resolved := !target.Resolved
	if err := c.apiClient.UpdateAnnotation(ctx, id, api.AnnotationPatch{Resolved: &resolved}); err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}

	if resolved {
		c.io.Println("✓ Comment resolved.")
	} else {
		c.io.Println("✓ Comment reopened.")
	}
	return nil
}

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	if len(args) < 1 {
		return fmt.Errorf("usage: pagemark delete <id>")
	}

	if err := c.apiClient.DeleteAnnotation(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	c.io.Println("✓ Annotation deleted.")
	return nil
}
