package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mkrasnov/pagemark/pkg/api"
)

//go:generate moq -out client_mock.go . ClientAPI

// ClientAPI определяет интерфейс удаленного сервиса аннотаций и чата.
// Сервис рассматривается как черный ящик с HTTP семантикой.
type ClientAPI interface {
	// OpenSession обменивает access code на JWT и identity владельца
	OpenSession(ctx context.Context, req api.SessionRequest) (*api.SessionResponse, error)

	// ListAnnotations возвращает аннотации документа (опционально одной страницы)
	ListAnnotations(ctx context.Context, documentID string, pageNumber int) ([]api.Annotation, error)

	// CreateAnnotation создает аннотацию и возвращает каноническую сущность
	// с серверным id, createdAt и owner
	CreateAnnotation(ctx context.Context, req api.CreateAnnotationRequest) (*api.Annotation, error)

	// UpdateAnnotation применяет частичный patch по id
	UpdateAnnotation(ctx context.Context, id string, patch api.AnnotationPatch) error

	// DeleteAnnotation удаляет аннотацию. Повторное удаление уже
	// отсутствующего id не считается ошибкой.
	DeleteAnnotation(ctx context.Context, id string) error

	// CreateReply добавляет ответ к комментарию
	CreateReply(ctx context.Context, commentID, content string) (*api.Reply, error)

	// StreamChat отправляет ход чата и возвращает поток записей
	// "data: {json}\n". Закрыть поток обязан вызывающий.
	StreamChat(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error)

	// SetAccessToken устанавливает Bearer токен для последующих запросов
	SetAccessToken(token string)
}

// StatusError ошибка HTTP со статус кодом, доступным вызывающему
type StatusError struct {
	Body string
	Code int
}

// Error реализует error
func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Body)
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовок Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// SetAccessToken устанавливает Bearer токен для последующих запросов
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

// OpenSession обменивает access code на JWT
func (c *Client) OpenSession(ctx context.Context, req api.SessionRequest) (*api.SessionResponse, error) {
	var resp api.SessionResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/session", req, &resp); err != nil {
		return nil, fmt.Errorf("open session request failed: %w", err)
	}
	return &resp, nil
}

// ListAnnotations возвращает аннотации документа.
// pageNumber < 0 означает все страницы.
func (c *Client) ListAnnotations(ctx context.Context, documentID string, pageNumber int) ([]api.Annotation, error) {
	path := fmt.Sprintf("/api/v1/annotations?document=%s", documentID)
	if pageNumber >= 0 {
		path = fmt.Sprintf("%s&page=%d", path, pageNumber)
	}

	var resp api.ListAnnotationsResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list annotations request failed: %w", err)
	}
	return resp.Annotations, nil
}

// CreateAnnotation создает аннотацию
func (c *Client) CreateAnnotation(ctx context.Context, req api.CreateAnnotationRequest) (*api.Annotation, error) {
	var resp api.Annotation
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/annotations", req, &resp); err != nil {
		return nil, fmt.Errorf("create annotation request failed: %w", err)
	}
	return &resp, nil
}

// UpdateAnnotation применяет частичный patch
func (c *Client) UpdateAnnotation(ctx context.Context, id string, patch api.AnnotationPatch) error {
	path := "/api/v1/annotations/" + id
	if err := c.doRequest(ctx, http.MethodPatch, path, patch, nil); err != nil {
		return fmt.Errorf("update annotation request failed: %w", err)
	}
	return nil
}

// DeleteAnnotation удаляет аннотацию по id.
// 404 от сервера трактуется как успех: запись уже удалена.
func (c *Client) DeleteAnnotation(ctx context.Context, id string) error {
	path := "/api/v1/annotations/" + id
	err := c.doRequest(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("delete annotation request failed: %w", err)
	}
	return nil
}

// CreateReply добавляет ответ к комментарию
func (c *Client) CreateReply(ctx context.Context, commentID, content string) (*api.Reply, error) {
	path := fmt.Sprintf("/api/v1/annotations/%s/replies", commentID)
	var resp api.Reply
	if err := c.doRequest(ctx, http.MethodPost, path, api.CreateReplyRequest{Content: content}, &resp); err != nil {
		return nil, fmt.Errorf("create reply request failed: %w", err)
	}
	return &resp, nil
}

// StreamChat отправляет ход чата и возвращает тело потокового ответа
func (c *Client) StreamChat(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/chat", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	return resp.Body, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			return &StatusError{Code: resp.StatusCode, Body: errResp.Message}
		}
		return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
