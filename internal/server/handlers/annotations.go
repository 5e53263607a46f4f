package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mkrasnov/pagemark/internal/models"
	"github.com/mkrasnov/pagemark/internal/server/storage"
	"github.com/mkrasnov/pagemark/internal/validation"
	"github.com/mkrasnov/pagemark/pkg/api"
)

// AnnotationsHandler обрабатывает CRUD аннотаций и ответы в тредах
type AnnotationsHandler struct {
	logger  *slog.Logger
	storage storage.AnnotationStorage
}

// NewAnnotationsHandler создает handler аннотаций
func NewAnnotationsHandler(logger *slog.Logger, storage storage.AnnotationStorage) *AnnotationsHandler {
	return &AnnotationsHandler{
		logger:  logger,
		storage: storage,
	}
}

// List обрабатывает GET /api/v1/annotations?document=id&page=n
func (h *AnnotationsHandler) List(w http.ResponseWriter, r *http.Request) {
	documentID := r.URL.Query().Get("document")
	if documentID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "document parameter is required")
		return
	}

	pageNumber := -1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		var err error
		pageNumber, err = strconv.Atoi(pageStr)
		if err != nil || pageNumber < 0 {
			writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid page parameter")
			return
		}
	}

	annotations, err := h.storage.ListAnnotations(r.Context(), documentID, pageNumber)
	if err != nil {
		h.logger.Error("failed to list annotations", "document_id", documentID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, api.ListAnnotationsResponse{Annotations: annotations})
}

// Create обрабатывает POST /api/v1/annotations
func (h *AnnotationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.CreateAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode create request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := h.validateCreate(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_annotation", err.Error())
		return
	}

	name, _ := GetUserName(r.Context())

	// Координаты нормализуются и здесь: клиент мог прислать значение
	// за пределами страницы
	x, y := models.ClampPosition(req.Kind, req.X, req.Y)

	a := &api.Annotation{
		ID:         uuid.NewString(),
		DocumentID: req.DocumentID,
		Kind:       req.Kind,
		Content:    req.Content,
		PageNumber: req.PageNumber,
		X:          x,
		Y:          y,
		Owner:      api.Owner{Name: name},
		CreatedAt:  time.Now().UTC(),
	}
	if req.Kind == api.KindText {
		a.Width = models.ClampWidth(req.Width)
		a.FontSize = req.FontSize
		a.Color = req.Color
		a.TextAlign = req.TextAlign
	}

	if err := h.storage.SaveAnnotation(r.Context(), a); err != nil {
		h.logger.Error("failed to save annotation", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	h.logger.Info("annotation created", "id", a.ID, "kind", a.Kind, "document_id", a.DocumentID)
	writeJSON(w, h.logger, http.StatusCreated, a)
}

// Update обрабатывает PATCH /api/v1/annotations/{id}
func (h *AnnotationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var patch api.AnnotationPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.logger.Warn("failed to decode patch", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := h.validatePatch(&patch); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_patch", err.Error())
		return
	}

	updated, err := h.storage.UpdateAnnotation(r.Context(), id, patch)
	if errors.Is(err, storage.ErrAnnotationNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "not_found", "annotation not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to update annotation", "id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, updated)
}

// Delete обрабатывает DELETE /api/v1/annotations/{id}
func (h *AnnotationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := h.storage.DeleteAnnotation(r.Context(), id)
	if errors.Is(err, storage.ErrAnnotationNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "not_found", "annotation not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete annotation", "id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	h.logger.Info("annotation deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// CreateReply обрабатывает POST /api/v1/annotations/{id}/replies
func (h *AnnotationsHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req api.CreateReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode reply request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := validation.ValidateCommentContent(req.Content); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_reply", err.Error())
		return
	}

	// Ответы живут только в тредах комментариев
	parent, err := h.storage.GetAnnotation(r.Context(), id)
	if errors.Is(err, storage.ErrAnnotationNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "not_found", "annotation not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load annotation", "id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal", "internal server error")
		return
	}
	if parent.Kind != api.KindComment {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_reply", "replies are only allowed on comments")
		return
	}

	name, _ := GetUserName(r.Context())
	reply := &api.Reply{
		ID:        uuid.NewString(),
		Content:   req.Content,
		Owner:     api.Owner{Name: name},
		CreatedAt: time.Now().UTC(),
	}

	if err := h.storage.AddReply(r.Context(), id, reply); err != nil {
		h.logger.Error("failed to add reply", "annotation_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, reply)
}

func (h *AnnotationsHandler) validateCreate(req *api.CreateAnnotationRequest) error {
	if req.DocumentID == "" {
		return errors.New("document_id is required")
	}
	if req.PageNumber < 1 {
		return errors.New("page_number must be positive")
	}

	switch req.Kind {
	case api.KindComment:
		return validation.ValidateCommentContent(req.Content)
	case api.KindText:
		if err := validation.ValidateTextContent(req.Content); err != nil {
			return err
		}
		if req.Color != "" {
			if err := validation.ValidateColor(req.Color); err != nil {
				return err
			}
		}
		if req.TextAlign != "" {
			if err := validation.ValidateAlign(models.Align(req.TextAlign)); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.New("kind must be comment or text")
	}
}

func (h *AnnotationsHandler) validatePatch(patch *api.AnnotationPatch) error {
	if patch.Color != nil {
		if err := validation.ValidateColor(*patch.Color); err != nil {
			return err
		}
	}
	if patch.TextAlign != nil {
		if err := validation.ValidateAlign(models.Align(*patch.TextAlign)); err != nil {
			return err
		}
	}
	if patch.Content != nil {
		if err := validation.ValidateTextContent(*patch.Content); err != nil {
			return err
		}
	}
	return nil
}
