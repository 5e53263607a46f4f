package annotations

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrasnov/pagemark/internal/client/sched"
	"github.com/mkrasnov/pagemark/internal/models"
	"github.com/mkrasnov/pagemark/pkg/api"
)

const eventually = 2 * time.Second

// fakeAPI ручная заглушка ClientAPI с записью вызовов
type fakeAPI struct {
	mu sync.Mutex

	createFn func(req api.CreateAnnotationRequest) (*api.Annotation, error)
	updateFn func(id string, patch api.AnnotationPatch) error
	deleteFn func(id string) error
	replyFn  func(commentID, content string) (*api.Reply, error)
	listFn   func(documentID string) ([]api.Annotation, error)

	creates []api.CreateAnnotationRequest
	updates []api.AnnotationPatch
	deletes []string
}

func (f *fakeAPI) OpenSession(ctx context.Context, req api.SessionRequest) (*api.SessionResponse, error) {
	return &api.SessionResponse{}, nil
}

func (f *fakeAPI) ListAnnotations(ctx context.Context, documentID string, pageNumber int) ([]api.Annotation, error) {
	if f.listFn != nil {
		return f.listFn(documentID)
	}
	return nil, nil
}

func (f *fakeAPI) CreateAnnotation(ctx context.Context, req api.CreateAnnotationRequest) (*api.Annotation, error) {
	f.mu.Lock()
	f.creates = append(f.creates, req)
	f.mu.Unlock()
	if f.createFn != nil {
		return f.createFn(req)
	}
	return echoCreate(req, "srv-1"), nil
}

func (f *fakeAPI) UpdateAnnotation(ctx context.Context, id string, patch api.AnnotationPatch) error {
	f.mu.Lock()
	f.updates = append(f.updates, patch)
	f.mu.Unlock()
	if f.updateFn != nil {
		return f.updateFn(id, patch)
	}
	return nil
}

func (f *fakeAPI) DeleteAnnotation(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deletes = append(f.deletes, id)
	f.mu.Unlock()
	if f.deleteFn != nil {
		return f.deleteFn(id)
	}
	return nil
}

func (f *fakeAPI) CreateReply(ctx context.Context, commentID, content string) (*api.Reply, error) {
	if f.replyFn != nil {
		return f.replyFn(commentID, content)
	}
	return &api.Reply{ID: "reply-1", Content: content, CreatedAt: time.Now()}, nil
}

func (f *fakeAPI) StreamChat(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
	panic("not used in annotation tests")
}

func (f *fakeAPI) SetAccessToken(token string) {}

func (f *fakeAPI) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}

func (f *fakeAPI) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func (f *fakeAPI) lastUpdate() api.AnnotationPatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[len(f.updates)-1]
}

func (f *fakeAPI) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deletes)
}

// echoCreate возвращает канонический ответ сервера на create
func echoCreate(req api.CreateAnnotationRequest, id string) *api.Annotation {
	return &api.Annotation{
		ID:         id,
		DocumentID: req.DocumentID,
		Kind:       req.Kind,
		Content:    req.Content,
		PageNumber: req.PageNumber,
		X:          req.X,
		Y:          req.Y,
		Width:      req.Width,
		FontSize:   req.FontSize,
		Color:      req.Color,
		TextAlign:  req.TextAlign,
		CreatedAt:  time.Now(),
		Owner:      api.Owner{Name: "Server Alice"},
	}
}

// notices потокобезопасный сборщик уведомлений
type notices struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notices) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *notices) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func (n *notices) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.msgs) == 0 {
		return ""
	}
	return n.msgs[len(n.msgs)-1]
}

// fakeCache запоминает последнее сохраненное состояние документа
type fakeCache struct {
	mu    sync.Mutex
	saved []api.Annotation
}

func (c *fakeCache) SaveAnnotations(ctx context.Context, documentID string, entries []api.Annotation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved = entries
	return nil
}

func (c *fakeCache) LoadAnnotations(ctx context.Context, documentID string) ([]api.Annotation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved, nil
}

func (c *fakeCache) snapshot() []api.Annotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved
}

func newTestService(t *testing.T, fake *fakeAPI) (*Service, *notices) {
	t.Helper()
	svc, n, _ := newTestServiceWithCache(t, fake, nil)
	return svc, n
}

func newTestServiceWithCache(t *testing.T, fake *fakeAPI, cache *fakeCache) (*Service, *notices, *fakeCache) {
	t.Helper()

	n := &notices{}
	scheduler := sched.New(slog.Default())
	var c Cache
	if cache != nil {
		c = cache
	}
	svc := NewService("doc-1", models.Owner{Name: "Local Alice"}, fake, scheduler, n, c, slog.Default())
	svc.dragDelay = 30 * time.Millisecond
	svc.resizeDelay = 20 * time.Millisecond
	t.Cleanup(svc.Close)
	return svc, n, cache
}

// loadOne наполняет сервис одной durable аннотацией
func loadOne(t *testing.T, svc *Service, fake *fakeAPI, a api.Annotation) models.ID {
	t.Helper()

	fake.listFn = func(string) ([]api.Annotation, error) {
		return []api.Annotation{a}, nil
	}
	require.NoError(t, svc.LoadDocument(context.Background()))
	return models.DurableID(a.ID)
}

func durableComment(id string, page int, content string) api.Annotation {
	return api.Annotation{
		ID: id, DocumentID: "doc-1", Kind: api.KindComment,
		Content: content, PageNumber: page, X: 30, Y: 40,
		CreatedAt: time.Now(), Owner: api.Owner{Name: "Server Alice"},
	}
}

func durableText(id string, page int, content string) api.Annotation {
	return api.Annotation{
		ID: id, DocumentID: "doc-1", Kind: api.KindText,
		Content: content, PageNumber: page, X: 30, Y: 40,
		Width: 200, FontSize: 14, Color: "#1a1a1a", TextAlign: "left",
		CreatedAt: time.Now(), Owner: api.Owner{Name: "Server Alice"},
	}
}

func TestCreateComment_ReconcilesToDurableID(t *testing.T) {
	fake := &fakeAPI{}
	svc, n := newTestService(t, fake)

	id, err := svc.CreateComment(1, 10, 20, "note")
	require.NoError(t, err)
	assert.True(t, id.IsTemporary())

	// Сущность видна сразу, до ответа сервера
	got, ok := svc.Store().Get(id)
	require.True(t, ok)
	assert.Equal(t, "Local Alice", got.Base().Owner.Name)
	assert.True(t, svc.Selection().IsSelected(id))

	durable := models.DurableID("srv-1")
	require.Eventually(t, func() bool {
		_, ok := svc.Store().Get(durable)
		return ok
	}, eventually, 5*time.Millisecond)

	// Временного id больше нет, серверные поля применены
	_, ok = svc.Store().Get(id)
	assert.False(t, ok)

	reconciled, _ := svc.Store().Get(durable)
	assert.Equal(t, "Server Alice", reconciled.Base().Owner.Name)
	assert.True(t, svc.Selection().IsSelected(durable))
	assert.Equal(t, 0, n.count())
}

func TestCreateComment_EmptyContentRejected(t *testing.T) {
	fake := &fakeAPI{}
	svc, _ := newTestService(t, fake)

	_, err := svc.CreateComment(1, 10, 20, "   ")
	require.Error(t, err)
	assert.Equal(t, 0, svc.Store().Len())
	assert.Equal(t, 0, fake.createCount())
}

func TestCreateComment_FailureRemovesEntity(t *testing.T) {
	fake := &fakeAPI{
		createFn: func(api.CreateAnnotationRequest) (*api.Annotation, error) {
			return nil, assert.AnError
		},
	}
	svc, n := newTestService(t, fake)

	id, err := svc.CreateComment(1, 10, 20, "note")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := svc.Store().Get(id)
		return !ok
	}, eventually, 5*time.Millisecond)

	assert.Equal(t, "failed to add comment", n.last())
}

func TestReconcile_TouchedContentWins(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeAPI{}
	fake.createFn = func(req api.CreateAnnotationRequest) (*api.Annotation, error) {
		<-release
		// Сервер еще не видел локальную правку: возвращает пустое содержимое
		resp := echoCreate(req, "srv-1")
		resp.Content = ""
		return resp, nil
	}
	svc, _ := newTestService(t, fake)

	id, err := svc.CreateComment(1, 10, 20, "orig")
	require.NoError(t, err)

	// Правка до завершения create
	require.NoError(t, svc.SetContent(id, "foo"))
	close(release)

	durable := models.DurableID("srv-1")
	require.Eventually(t, func() bool {
		a, ok := svc.Store().Get(durable)
		return ok && a.(*models.Comment).Content == "foo"
	}, eventually, 5*time.Millisecond)
}

func TestMove_DebounceCoalescing(t *testing.T) {
	fake := &fakeAPI{}
	svc, _ := newTestService(t, fake)
	id := loadOne(t, svc, fake, durableComment("srv-1", 1, "note"))

	// Десять быстрых перемещений, одна сетевая запись с последней позицией
	for i := 1; i <= 10; i++ {
		svc.Move(id, float64(i), float64(i*2))
	}

	require.Eventually(t, func() bool {
		return fake.updateCount() == 1
	}, eventually, 5*time.Millisecond)

	time.Sleep(80 * time.Millisecond)
	require.Equal(t, 1, fake.updateCount())

	patch := fake.lastUpdate()
	require.NotNil(t, patch.X)
	assert.Equal(t, 10.0, *patch.X)
	assert.Equal(t, 20.0, *patch.Y)
}

func TestMove_ClampsToPage(t *testing.T) {
	fake := &fakeAPI{}
	svc, _ := newTestService(t, fake)
	id := loadOne(t, svc, fake, durableComment("srv-1", 1, "note"))

	svc.Move(id, 500, -50)

	a, _ := svc.Store().Get(id)
	assert.Equal(t, 100.0, a.Base().X)
	assert.Equal(t, 0.0, a.Base().Y)
}

func TestMove_FailureKeepsPositionButNotifies(t *testing.T) {
	fake := &fakeAPI{
		updateFn: func(string, api.AnnotationPatch) error { return assert.AnError },
	}
	svc, n := newTestService(t, fake)
	id := loadOne(t, svc, fake, durableComment("srv-1", 1, "note"))

	svc.Move(id, 55, 66)

	require.Eventually(t, func() bool {
		return n.count() == 1
	}, eventually, 5*time.Millisecond)

	// Позиция намеренно не откатывается
	a, _ := svc.Store().Get(id)
	assert.Equal(t, 55.0, a.Base().X)
	assert.Equal(t, 66.0, a.Base().Y)
	assert.Contains(t, n.last(), "failed to save position")
}

func TestCommitContent_FailureRollsBack(t *testing.T) {
	fake := &fakeAPI{
		updateFn: func(string, api.AnnotationPatch) error { return assert.AnError },
	}
	svc, n := newTestService(t, fake)
	id := loadOne(t, svc, fake, durableComment("srv-1", 1, "orig"))

	require.NoError(t, svc.SetContent(id, "edited"))
	svc.CommitContent(id)

	require.Eventually(t, func() bool {
		a, _ := svc.Store().Get(id)
		return a.(*models.Comment).Content == "orig"
	}, eventually, 5*time.Millisecond)

	assert.Equal(t, "failed to save changes", n.last())
}

func TestResolveToggle_RollbackOnFailure(t *testing.T) {
	fake := &fakeAPI{
		updateFn: func(string, api.AnnotationPatch) error { return assert.AnError },
	}
	svc, n := newTestService(t, fake)
	id := loadOne(t, svc, fake, durableComment("srv-1", 1, "note"))

	svc.ResolveToggle(id)

	// Оптимистично переключено
	a, _ := svc.Store().Get(id)
	assert.True(t, a.(*models.Comment).Resolved)

	require.Eventually(t, func() bool {
		a, _ := svc.Store().Get(id)
		return !a.(*models.Comment).Resolved
	}, eventually, 5*time.Millisecond)
	assert.Equal(t, 1, n.count())
}

func TestResolveToggle_Success(t *testing.T) {
	fake := &fakeAPI{}
	svc, n := newTestService(t, fake)
	id := loadOne(t, svc, fake, durableComment("srv-1", 1, "note"))

	svc.ResolveToggle(id)

	require.Eventually(t, func() bool {
		return fake.updateCount() == 1
	}, eventually, 5*time.Millisecond)

	a, _ := svc.Store().Get(id)
	assert.True(t, a.(*models.Comment).Resolved)
	assert.Equal(t, 0, n.count())

	patch := fake.lastUpdate()
	require.NotNil(t, patch.Resolved)
	assert.True(t, *patch.Resolved)
}

func TestRemove_FailureReinsertsAtPriorPosition(t *testing.T) {
	fake := &fakeAPI{
		deleteFn: func(string) error { return assert.AnError },
	}
	svc, n := newTestService(t, fake)

	fake.listFn = func(string) ([]api.Annotation, error) {
		return []api.Annotation{
			durableComment("a", 1, "first"),
			durableComment("b", 1, "second"),
			durableComment("c", 1, "third"),
		}, nil
	}
	require.NoError(t, svc.LoadDocument(context.Background()))

	svc.Remove(models.DurableID("b"))
	assert.Equal(t, 2, svc.Store().Len())

	require.Eventually(t, func() bool {
		return svc.Store().Len() == 3
	}, eventually, 5*time.Millisecond)

	page := svc.Store().Page(1)
	assert.Equal(t, "b", page[1].Base().ID.String())
	assert.Equal(t, "failed to delete", n.last())
}

func TestRemove_TemporaryNeverCallsNetwork(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeAPI{}
	fake.createFn = func(req api.CreateAnnotationRequest) (*api.Annotation, error) {
		<-release
		return echoCreate(req, "srv-1"), nil
	}
	svc, _ := newTestService(t, fake)

	id, err := svc.CreateComment(1, 10, 20, "note")
	require.NoError(t, err)

	svc.Remove(id)
	close(release)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, svc.Store().Len())
	assert.Equal(t, 0, fake.deleteCount())
}

func TestRemove_CancelsPendingFieldWrites(t *testing.T) {
	fake := &fakeAPI{}
	svc, n := newTestService(t, fake)
	id := loadOne(t, svc, fake, durableComment("srv-1", 1, "note"))

	// Drag ставит отложенную запись позиции под ключом поля; удаление
	// до срабатывания таймера должно снять и её, иначе patch уйдет
	// на уже удаленную сущность
	svc.Move(id, 50, 50)
	svc.Remove(id)

	require.Eventually(t, func() bool {
		return fake.deleteCount() == 1
	}, eventually, 5*time.Millisecond)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, fake.updateCount())
	assert.Equal(t, 0, n.count())
}

func TestRemove_StaleIDIsNoOp(t *testing.T) {
	fake := &fakeAPI{}
	svc, n := newTestService(t, fake)

	svc.Remove(models.DurableID("ghost"))
	svc.Move(models.DurableID("ghost"), 10, 10)
	svc.ResolveToggle(models.DurableID("ghost"))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, fake.deleteCount())
	assert.Equal(t, 0, fake.updateCount())
	assert.Equal(t, 0, n.count())
}

func TestEndTextEdit_EmptyContentDeletesWithoutCreate(t *testing.T) {
	fake := &fakeAPI{}
	svc, _ := newTestService(t, fake)

	id := svc.CreateTextBox(1, 10, 20)
	assert.True(t, svc.Selection().IsEditing(id))

	svc.EndTextEdit(id)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, svc.Store().Len())
	// Create так и не был отправлен
	assert.Equal(t, 0, fake.createCount())
	_, editing := svc.Selection().Editing()
	assert.False(t, editing)
}

func TestEndTextEdit_WithContentIssuesCreate(t *testing.T) {
	fake := &fakeAPI{}
	svc, _ := newTestService(t, fake)

	id := svc.CreateTextBox(1, 10, 20)
	require.NoError(t, svc.SetContent(id, "hello"))
	svc.EndTextEdit(id)

	durable := models.DurableID("srv-1")
	require.Eventually(t, func() bool {
		a, ok := svc.Store().Get(durable)
		return ok && a.(*models.TextBox).Content == "hello"
	}, eventually, 5*time.Millisecond)

	assert.Equal(t, 1, fake.createCount())
}

func TestResize_EnforcesMinimumWidth(t *testing.T) {
	fake := &fakeAPI{}
	svc, _ := newTestService(t, fake)
	id := loadOne(t, svc, fake, durableText("srv-1", 1, "text"))

	svc.Resize(id, 10)

	a, _ := svc.Store().Get(id)
	assert.Equal(t, models.MinTextWidth, a.(*models.TextBox).Width)
}

func TestResize_RollbackOnFailure(t *testing.T) {
	fake := &fakeAPI{
		updateFn: func(string, api.AnnotationPatch) error { return assert.AnError },
	}
	svc, n := newTestService(t, fake)
	id := loadOne(t, svc, fake, durableText("srv-1", 1, "text"))

	svc.Resize(id, 300)

	require.Eventually(t, func() bool {
		a, _ := svc.Store().Get(id)
		return a.(*models.TextBox).Width == 200
	}, eventually, 5*time.Millisecond)
	assert.Equal(t, "failed to save size", n.last())
}

func TestSetStyle_ValidatesAndPersists(t *testing.T) {
	fake := &fakeAPI{}
	svc, _ := newTestService(t, fake)
	id := loadOne(t, svc, fake, durableText("srv-1", 1, "text"))

	bad := "not-a-color"
	require.Error(t, svc.SetStyle(id, StylePatch{Color: &bad}))

	good := "#ff0000"
	align := models.AlignCenter
	require.NoError(t, svc.SetStyle(id, StylePatch{Color: &good, TextAlign: &align}))

	require.Eventually(t, func() bool {
		return fake.updateCount() == 1
	}, eventually, 5*time.Millisecond)

	a, _ := svc.Store().Get(id)
	box := a.(*models.TextBox)
	assert.Equal(t, "#ff0000", box.Color)
	assert.Equal(t, models.AlignCenter, box.TextAlign)
}

func TestAddReply_OptimisticAppendAndReconcile(t *testing.T) {
	fake := &fakeAPI{}
	svc, _ := newTestService(t, fake)
	id := loadOne(t, svc, fake, durableComment("srv-1", 1, "note"))

	require.NoError(t, svc.AddReply(id, "agreed"))

	// Ответ виден сразу
	a, _ := svc.Store().Get(id)
	require.Len(t, a.(*models.Comment).Replies, 1)
	assert.True(t, a.(*models.Comment).Replies[0].ID.IsTemporary())

	require.Eventually(t, func() bool {
		a, _ := svc.Store().Get(id)
		replies := a.(*models.Comment).Replies
		return len(replies) == 1 && !replies[0].ID.IsTemporary()
	}, eventually, 5*time.Millisecond)
}

func TestAddReply_RollbackOnFailure(t *testing.T) {
	fake := &fakeAPI{
		replyFn: func(string, string) (*api.Reply, error) { return nil, assert.AnError },
	}
	svc, n := newTestService(t, fake)
	id := loadOne(t, svc, fake, durableComment("srv-1", 1, "note"))

	require.NoError(t, svc.AddReply(id, "agreed"))

	require.Eventually(t, func() bool {
		a, _ := svc.Store().Get(id)
		return len(a.(*models.Comment).Replies) == 0
	}, eventually, 5*time.Millisecond)
	assert.Equal(t, "failed to reply", n.last())
}

func TestReleasePage_CancelsPendingWrites(t *testing.T) {
	fake := &fakeAPI{}
	svc, _ := newTestService(t, fake)
	svc.dragDelay = 100 * time.Millisecond
	id := loadOne(t, svc, fake, durableComment("srv-1", 1, "note"))

	svc.Move(id, 50, 50)
	svc.ReleasePage(1)

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 0, fake.updateCount())
}

func TestLoadDocument_RemoteWins(t *testing.T) {
	fake := &fakeAPI{}
	svc, _ := newTestService(t, fake)

	fake.listFn = func(string) ([]api.Annotation, error) {
		return []api.Annotation{
			durableComment("a", 1, "one"),
			durableText("b", 2, "two"),
		}, nil
	}
	require.NoError(t, svc.LoadDocument(context.Background()))

	assert.Equal(t, 2, svc.Store().Len())
	assert.Len(t, svc.Store().Page(1), 1)
	assert.Len(t, svc.Store().Page(2), 1)
}

func TestLoadDocument_CacheServesFirstPaint(t *testing.T) {
	cache := &fakeCache{saved: []api.Annotation{durableComment("cached", 1, "stale")}}

	listed := make(chan struct{})
	fake := &fakeAPI{}
	fake.listFn = func(string) ([]api.Annotation, error) {
		<-listed
		return []api.Annotation{durableComment("fresh", 1, "current")}, nil
	}
	svc, _, _ := newTestServiceWithCache(t, fake, cache)

	var fromCache bool
	svc.SetOnChange(func() {
		// Первая отрисовка происходит из кеша, до ответа сервера
		if _, ok := svc.Store().Get(models.DurableID("cached")); ok {
			fromCache = true
		}
	})

	done := make(chan error, 1)
	go func() { done <- svc.LoadDocument(context.Background()) }()
	close(listed)
	require.NoError(t, <-done)

	assert.True(t, fromCache)
	_, ok := svc.Store().Get(models.DurableID("fresh"))
	assert.True(t, ok)
	_, ok = svc.Store().Get(models.DurableID("cached"))
	assert.False(t, ok)
}

func TestCache_ReflectsLocalStateAfterReconcile(t *testing.T) {
	fake := &fakeAPI{}
	svc, _, cache := newTestServiceWithCache(t, fake, &fakeCache{})

	require.NoError(t, svc.LoadDocument(context.Background()))
	require.Empty(t, cache.snapshot())

	_, err := svc.CreateComment(1, 10, 20, "note")
	require.NoError(t, err)

	// После подтверждения create кеш содержит durable сущность
	require.Eventually(t, func() bool {
		saved := cache.snapshot()
		return len(saved) == 1 && saved[0].ID == "srv-1"
	}, eventually, 5*time.Millisecond)

	saved := cache.snapshot()
	assert.Equal(t, api.KindComment, saved[0].Kind)
	assert.Equal(t, "note", saved[0].Content)
}
