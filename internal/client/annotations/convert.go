package annotations

import (
	"github.com/mkrasnov/pagemark/internal/models"
	"github.com/mkrasnov/pagemark/pkg/api"
)

// fromAPI строит доменную сущность из канонического серверного
// представления. Идентификатор всегда durable.
func fromAPI(src api.Annotation) models.Annotation {
	base := models.AnnotationBase{
		ID:         models.DurableID(src.ID),
		DocumentID: src.DocumentID,
		PageNumber: src.PageNumber,
		X:          src.X,
		Y:          src.Y,
		CreatedAt:  src.CreatedAt,
		Owner:      models.Owner{Name: src.Owner.Name, AvatarURL: src.Owner.AvatarURL},
	}

	if src.Kind == api.KindText {
		return &models.TextBox{
			AnnotationBase: base,
			Content:        src.Content,
			Width:          src.Width,
			FontSize:       src.FontSize,
			Color:          src.Color,
			TextAlign:      models.Align(src.TextAlign),
		}
	}

	replies := make([]models.Reply, 0, len(src.Replies))
	for _, r := range src.Replies {
		replies = append(replies, models.Reply{
			ID:        models.DurableID(r.ID),
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
			Owner:     models.Owner{Name: r.Owner.Name, AvatarURL: r.Owner.AvatarURL},
		})
	}
	return &models.Comment{
		AnnotationBase: base,
		Content:        src.Content,
		Resolved:       src.Resolved,
		Replies:        replies,
	}
}

// toCreateRequest строит запрос создания из текущего локального состояния
func toCreateRequest(a models.Annotation) api.CreateAnnotationRequest {
	base := a.Base()
	req := api.CreateAnnotationRequest{
		DocumentID: base.DocumentID,
		Kind:       a.Kind(),
		PageNumber: base.PageNumber,
		X:          base.X,
		Y:          base.Y,
	}

	switch v := a.(type) {
	case *models.Comment:
		req.Content = v.Content
	case *models.TextBox:
		req.Content = v.Content
		req.Width = v.Width
		req.FontSize = v.FontSize
		req.Color = v.Color
		req.TextAlign = string(v.TextAlign)
	}
	return req
}

// toAPI строит серверное представление из доменной сущности
// (для локального кеша)
func toAPI(a models.Annotation) api.Annotation {
	base := a.Base()
	out := api.Annotation{
		ID:         base.ID.String(),
		DocumentID: base.DocumentID,
		Kind:       a.Kind(),
		PageNumber: base.PageNumber,
		X:          base.X,
		Y:          base.Y,
		CreatedAt:  base.CreatedAt,
		Owner:      api.Owner{Name: base.Owner.Name, AvatarURL: base.Owner.AvatarURL},
	}

	switch v := a.(type) {
	case *models.Comment:
		out.Content = v.Content
		out.Resolved = v.Resolved
		for _, r := range v.Replies {
			out.Replies = append(out.Replies, api.Reply{
				ID:        r.ID.String(),
				Content:   r.Content,
				CreatedAt: r.CreatedAt,
				Owner:     api.Owner{Name: r.Owner.Name, AvatarURL: r.Owner.AvatarURL},
			})
		}
	case *models.TextBox:
		out.Content = v.Content
		out.Width = v.Width
		out.FontSize = v.FontSize
		out.Color = v.Color
		out.TextAlign = string(v.TextAlign)
	}
	return out
}
