package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mkrasnov/pagemark/internal/server/storage"
	"github.com/mkrasnov/pagemark/pkg/api"
)

// SaveAnnotation сохраняет новую аннотацию
func (s *Storage) SaveAnnotation(ctx context.Context, a *api.Annotation) error {
	query := `
		INSERT INTO annotations (id, document_id, kind, content, page_number, x, y,
			width, font_size, color, text_align, resolved, owner_name, owner_avatar_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID,
		a.DocumentID,
		a.Kind,
		a.Content,
		a.PageNumber,
		a.X,
		a.Y,
		a.Width,
		a.FontSize,
		a.Color,
		a.TextAlign,
		a.Resolved,
		a.Owner.Name,
		a.Owner.AvatarURL,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert annotation: %w", err)
	}

	return nil
}

// GetAnnotation возвращает аннотацию с ответами
func (s *Storage) GetAnnotation(ctx context.Context, id string) (*api.Annotation, error) {
	query := `
		SELECT id, document_id, kind, content, page_number, x, y,
			width, font_size, color, text_align, resolved, owner_name, owner_avatar_url, created_at
		FROM annotations
		WHERE id = ?
	`

	a := &api.Annotation{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.DocumentID, &a.Kind, &a.Content, &a.PageNumber, &a.X, &a.Y,
		&a.Width, &a.FontSize, &a.Color, &a.TextAlign, &a.Resolved,
		&a.Owner.Name, &a.Owner.AvatarURL, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrAnnotationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query annotation: %w", err)
	}

	if a.Kind == api.KindComment {
		replies, err := s.listReplies(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		a.Replies = replies
	}

	return a, nil
}

// ListAnnotations возвращает аннотации документа с ответами.
// pageNumber < 0 означает все страницы.
func (s *Storage) ListAnnotations(ctx context.Context, documentID string, pageNumber int) ([]api.Annotation, error) {
	query := `
		SELECT id, document_id, kind, content, page_number, x, y,
			width, font_size, color, text_align, resolved, owner_name, owner_avatar_url, created_at
		FROM annotations
		WHERE document_id = ?
	`
	args := []any{documentID}
	if pageNumber >= 0 {
		query += " AND page_number = ?"
		args = append(args, pageNumber)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotations: %w", err)
	}
	defer rows.Close()

	annotations := []api.Annotation{}
	for rows.Next() {
		var a api.Annotation
		if err := rows.Scan(
			&a.ID, &a.DocumentID, &a.Kind, &a.Content, &a.PageNumber, &a.X, &a.Y,
			&a.Width, &a.FontSize, &a.Color, &a.TextAlign, &a.Resolved,
			&a.Owner.Name, &a.Owner.AvatarURL, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		annotations = append(annotations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate annotations: %w", err)
	}

	for i := range annotations {
		if annotations[i].Kind != api.KindComment {
			continue
		}
		replies, err := s.listReplies(ctx, annotations[i].ID)
		if err != nil {
			return nil, err
		}
		annotations[i].Replies = replies
	}

	return annotations, nil
}

// UpdateAnnotation применяет частичное обновление и возвращает
// итоговое состояние
func (s *Storage) UpdateAnnotation(ctx context.Context, id string, patch api.AnnotationPatch) (*api.Annotation, error) {
	sets := []string{}
	args := []any{}

	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.X != nil {
		sets = append(sets, "x = ?")
		args = append(args, *patch.X)
	}
	if patch.Y != nil {
		sets = append(sets, "y = ?")
		args = append(args, *patch.Y)
	}
	if patch.Width != nil {
		sets = append(sets, "width = ?")
		args = append(args, *patch.Width)
	}
	if patch.FontSize != nil {
		sets = append(sets, "font_size = ?")
		args = append(args, *patch.FontSize)
	}
	if patch.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *patch.Color)
	}
	if patch.TextAlign != nil {
		sets = append(sets, "text_align = ?")
		args = append(args, *patch.TextAlign)
	}
	if patch.Resolved != nil {
		sets = append(sets, "resolved = ?")
		args = append(args, *patch.Resolved)
	}

	if len(sets) > 0 {
		query := "UPDATE annotations SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		args = append(args, id)

		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update annotation: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			return nil, storage.ErrAnnotationNotFound
		}
	}

	return s.GetAnnotation(ctx, id)
}

// DeleteAnnotation удаляет аннотацию; ответы каскадируются
func (s *Storage) DeleteAnnotation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM annotations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete annotation: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrAnnotationNotFound
	}

	return nil
}

// AddReply добавляет ответ в тред комментария
func (s *Storage) AddReply(ctx context.Context, annotationID string, reply *api.Reply) error {
	query := `
		INSERT INTO replies (id, annotation_id, content, owner_name, owner_avatar_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		reply.ID,
		annotationID,
		reply.Content,
		reply.Owner.Name,
		reply.Owner.AvatarURL,
		reply.CreatedAt,
	)
	if err != nil {
		// Нарушение FK означает отсутствие комментария
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return storage.ErrAnnotationNotFound
		}
		return fmt.Errorf("failed to insert reply: %w", err)
	}

	return nil
}

// listReplies возвращает ответы комментария в порядке добавления
func (s *Storage) listReplies(ctx context.Context, annotationID string) ([]api.Reply, error) {
	query := `
		SELECT id, content, owner_name, owner_avatar_url, created_at
		FROM replies
		WHERE annotation_id = ?
		ORDER BY created_at, id
	`

	rows, err := s.db.QueryContext(ctx, query, annotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query replies: %w", err)
	}
	defer rows.Close()

	var replies []api.Reply
	for rows.Next() {
		var r api.Reply
		if err := rows.Scan(&r.ID, &r.Content, &r.Owner.Name, &r.Owner.AvatarURL, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}
		replies = append(replies, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate replies: %w", err)
	}

	return replies, nil
}
