package annotations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	httpclient "github.com/mkrasnov/pagemark/internal/client/api"
	"github.com/mkrasnov/pagemark/internal/client/sched"
	"github.com/mkrasnov/pagemark/internal/models"
	"github.com/mkrasnov/pagemark/internal/validation"
	"github.com/mkrasnov/pagemark/pkg/api"
)

// Notifier доставляет пользователю временное уведомление об ошибке
// действия. Реализация на стороне UI (toast и т.п.).
type Notifier interface {
	Notify(message string)
}

// NotifierFunc адаптер функции к интерфейсу Notifier
type NotifierFunc func(message string)

// Notify реализует Notifier
func (f NotifierFunc) Notify(message string) { f(message) }

// Cache хранит последнее известное состояние аннотаций документа
// для мгновенной первой отрисовки. Read-through: никогда не является
// источником правды.
type Cache interface {
	SaveAnnotations(ctx context.Context, documentID string, entries []api.Annotation) error
	LoadAnnotations(ctx context.Context, documentID string) ([]api.Annotation, error)
}

// touchedFields отмечает поля, измененные локально после
// оптимистичного создания, но до reconcile. Для таких полей при
// reconcile локальное значение выигрывает у серверного.
type touchedFields struct {
	content  bool
	position bool
	size     bool
	style    bool
}

// StylePatch частичное изменение оформления текстового блока
type StylePatch struct {
	FontSize  *float64
	Color     *string
	TextAlign *models.Align
}

// Service сервис оптимистичных мутаций аннотаций.
// Локальное состояние меняется синхронно, сетевая запись уходит
// отложенно через scheduler; при сбое записи состояние откатывается
// к последнему подтвержденному снапшоту (кроме позиции при drag).
type Service struct {
	store     *Store
	selection *Selection
	apiClient httpclient.ClientAPI
	sched     *sched.Scheduler
	notifier  Notifier
	cache     Cache
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// metaMu защищает touched и baseline: их трогают и UI-поток,
	// и сработавшие таймеры записи
	metaMu   sync.Mutex
	touched  map[models.ID]*touchedFields
	baseline map[models.ID]models.Annotation
	onChange func()

	// Классы задержек записи; поля, чтобы тесты могли их сжать
	dragDelay   time.Duration
	resizeDelay time.Duration
	commitDelay time.Duration

	owner      models.Owner
	documentID string
}

// NewService создает сервис аннотаций для одного открытого документа.
// cache может быть nil.
func NewService(documentID string, owner models.Owner, apiClient httpclient.ClientAPI, scheduler *sched.Scheduler, notifier Notifier, cache Cache, logger *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:      NewStore(),
		selection:  NewSelection(),
		apiClient:  apiClient,
		sched:      scheduler,
		notifier:   notifier,
		cache:      cache,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		touched:     make(map[models.ID]*touchedFields),
		baseline:    make(map[models.ID]models.Annotation),
		dragDelay:   sched.DelayDrag,
		resizeDelay: sched.DelayResize,
		commitDelay: sched.DelayImmediate,
		owner:       owner,
		documentID:  documentID,
	}
}

// Store возвращает коллекцию для чтения состояния страниц
func (s *Service) Store() *Store { return s.store }

// Selection возвращает координатор выделения
func (s *Service) Selection() *Selection { return s.selection }

// SetOnChange устанавливает хук перерисовки UI.
// Вызывается после каждой видимой мутации состояния.
func (s *Service) SetOnChange(fn func()) {
	s.onChange = fn
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// LoadDocument наполняет коллекцию аннотациями документа:
// сначала из локального кеша (мгновенная отрисовка), затем с сервера.
func (s *Service) LoadDocument(ctx context.Context) error {
	if s.cache != nil {
		if cached, err := s.cache.LoadAnnotations(ctx, s.documentID); err == nil && len(cached) > 0 {
			s.resetFrom(cached)
			s.changed()
		}
	}

	remote, err := s.apiClient.ListAnnotations(ctx, s.documentID, -1)
	if err != nil {
		return fmt.Errorf("failed to load annotations: %w", err)
	}

	s.resetFrom(remote)
	s.changed()

	s.persistCache(ctx)
	return nil
}

// persistCache сохраняет локальное состояние документа в кеш.
// Кеш отражает локальную правду, а не последний ответ сервера;
// сущности с временным id пропускаются, пока сервер их не подтвердил.
func (s *Service) persistCache(ctx context.Context) {
	if s.cache == nil {
		return
	}

	local := s.store.All()
	entries := make([]api.Annotation, 0, len(local))
	for _, a := range local {
		if a.Base().ID.IsTemporary() {
			continue
		}
		entries = append(entries, toAPI(a))
	}
	if err := s.cache.SaveAnnotations(ctx, s.documentID, entries); err != nil {
		s.logger.Warn("failed to update annotation cache", "error", err)
	}
}

func (s *Service) resetFrom(entries []api.Annotation) {
	byPage := make(map[int][]models.Annotation)
	baseline := make(map[models.ID]models.Annotation, len(entries))
	for _, e := range entries {
		a := fromAPI(e)
		byPage[a.Base().PageNumber] = append(byPage[a.Base().PageNumber], a)
		baseline[a.Base().ID] = a.Clone()
	}

	s.store.Reset(byPage)

	s.metaMu.Lock()
	s.baseline = baseline
	s.touched = make(map[models.ID]*touchedFields)
	s.metaMu.Unlock()
}

// CreateComment оптимистично создает комментарий-пин и сразу отправляет
// запись. Временный id возвращается синхронно, чтобы открывающийся
// редактор мог ссылаться на сущность до ответа сервера.
func (s *Service) CreateComment(page int, x, y float64, content string) (models.ID, error) {
	if err := validation.ValidateCommentContent(content); err != nil {
		return models.ID{}, err
	}

	x, y = models.ClampPosition(models.KindComment, x, y)
	id := models.NewTemporaryID()
	comment := &models.Comment{
		AnnotationBase: models.AnnotationBase{
			ID:         id,
			DocumentID: s.documentID,
			PageNumber: page,
			X:          x,
			Y:          y,
			CreatedAt:  time.Now(),
			Owner:      s.owner,
		},
		Content: content,
		Replies: []models.Reply{},
	}

	s.store.Insert(comment)
	s.selection.Select(id)
	s.changed()

	s.schedulePersistCreate(page, id, "failed to add comment")
	return id, nil
}

// CreateTextBox создает пустой текстовый блок и сразу переводит его
// в режим редактирования. Сетевой вызов не отправляется, пока блок
// не завершит редактирование с непустым содержимым.
func (s *Service) CreateTextBox(page int, x, y float64) models.ID {
	x, y = models.ClampPosition(models.KindText, x, y)
	id := models.NewTemporaryID()
	box := &models.TextBox{
		AnnotationBase: models.AnnotationBase{
			ID:         id,
			DocumentID: s.documentID,
			PageNumber: page,
			X:          x,
			Y:          y,
			CreatedAt:  time.Now(),
			Owner:      s.owner,
		},
		Width:     models.DefaultTextWidth,
		FontSize:  models.DefaultFontSize,
		Color:     models.DefaultColor,
		TextAlign: models.AlignLeft,
	}

	s.store.Insert(box)
	s.selection.StartEdit(id)
	s.changed()
	return id
}

// SetContent локально меняет содержимое (каждое нажатие клавиши).
// Запись на сервер уходит только при CommitContent/EndTextEdit.
func (s *Service) SetContent(id models.ID, content string) error {
	a, ok := s.store.Get(id)
	if !ok {
		return nil
	}

	if a.Kind() == models.KindComment {
		if err := validation.ValidateCommentContent(content); err != nil {
			return err
		}
	} else if err := validation.ValidateTextContent(content); err != nil {
		return err
	}

	applied := s.store.Apply(id, func(a models.Annotation) {
		switch v := a.(type) {
		case *models.Comment:
			v.Content = content
		case *models.TextBox:
			v.Content = content
		}
	})
	if !applied {
		return nil
	}

	s.markTouched(id, func(t *touchedFields) { t.content = true })
	s.changed()
	return nil
}

// CommitContent отправляет накопленное изменение содержимого
// (дискретное действие: blur, кнопка сохранения)
func (s *Service) CommitContent(id models.ID) {
	if id.IsTemporary() {
		// Содержимое уйдет вместе с create или при reconcile
		return
	}

	a, ok := s.store.Get(id)
	if !ok {
		return
	}
	content := contentOf(a)
	page := a.Base().PageNumber

	s.scheduleWrite(page, id, "content", s.commitDelay, api.AnnotationPatch{Content: &content}, "failed to save changes", rollbackContent)
}

// Move оптимистично перемещает аннотацию. Вызывается на каждом
// pointer-move при drag: визуальное обновление мгновенное, запись
// уходит после паузы. При сбое записи позиция намеренно сохраняется:
// откатывать то, что пользователь уже видит на месте, хуже, чем
// потерять персистентность.
func (s *Service) Move(id models.ID, x, y float64) {
	a, ok := s.store.Get(id)
	if !ok {
		return
	}
	x, y = models.ClampPosition(a.Kind(), x, y)

	s.store.Apply(id, func(a models.Annotation) {
		base := a.Base()
		base.X = x
		base.Y = y
	})
	s.markTouched(id, func(t *touchedFields) { t.position = true })
	s.changed()

	if id.IsTemporary() {
		return
	}

	page := a.Base().PageNumber
	s.scheduleWrite(page, id, "position", s.dragDelay, api.AnnotationPatch{X: &x, Y: &y}, "failed to save position, changes may be lost", rollbackNone)
}

// Resize оптимистично меняет ширину текстового блока
func (s *Service) Resize(id models.ID, width float64) {
	a, ok := s.store.Get(id)
	if !ok {
		return
	}
	if a.Kind() != models.KindText {
		return
	}
	width = models.ClampWidth(width)

	s.store.Apply(id, func(a models.Annotation) {
		if box, ok := a.(*models.TextBox); ok {
			box.Width = width
		}
	})
	s.markTouched(id, func(t *touchedFields) { t.size = true })
	s.changed()

	if id.IsTemporary() {
		return
	}

	page := a.Base().PageNumber
	s.scheduleWrite(page, id, "width", s.resizeDelay, api.AnnotationPatch{Width: &width}, "failed to save size", rollbackSize)
}

// SetStyle оптимистично меняет оформление текстового блока
func (s *Service) SetStyle(id models.ID, patch StylePatch) error {
	a, ok := s.store.Get(id)
	if !ok {
		return nil
	}
	if a.Kind() != models.KindText {
		return fmt.Errorf("style applies only to text annotations")
	}

	if patch.Color != nil {
		if err := validation.ValidateColor(*patch.Color); err != nil {
			return err
		}
	}
	if patch.TextAlign != nil {
		if err := validation.ValidateAlign(*patch.TextAlign); err != nil {
			return err
		}
	}

	s.store.Apply(id, func(a models.Annotation) {
		box, ok := a.(*models.TextBox)
		if !ok {
			return
		}
		if patch.FontSize != nil {
			box.FontSize = *patch.FontSize
		}
		if patch.Color != nil {
			box.Color = *patch.Color
		}
		if patch.TextAlign != nil {
			box.TextAlign = *patch.TextAlign
		}
	})
	s.markTouched(id, func(t *touchedFields) { t.style = true })
	s.changed()

	if id.IsTemporary() {
		return nil
	}

	apiPatch := api.AnnotationPatch{FontSize: patch.FontSize, Color: patch.Color}
	if patch.TextAlign != nil {
		align := string(*patch.TextAlign)
		apiPatch.TextAlign = &align
	}
	page := a.Base().PageNumber
	s.scheduleWrite(page, id, "style", s.commitDelay, apiPatch, "failed to save style", rollbackStyle)
	return nil
}

// ResolveToggle переключает resolved у комментария
func (s *Service) ResolveToggle(id models.ID) {
	var resolved bool
	applied := s.store.Apply(id, func(a models.Annotation) {
		if c, ok := a.(*models.Comment); ok {
			c.Resolved = !c.Resolved
			resolved = c.Resolved
		}
	})
	if !applied {
		return
	}
	s.changed()

	if id.IsTemporary() {
		return
	}

	a, ok := s.store.Get(id)
	if !ok {
		return
	}
	page := a.Base().PageNumber
	s.scheduleWrite(page, id, "resolved", s.commitDelay, api.AnnotationPatch{Resolved: &resolved}, "failed to update comment", rollbackResolved)
}

// Remove оптимистично удаляет аннотацию. При сбое сетевого удаления
// сущность возвращается на прежнюю позицию в коллекции.
func (s *Service) Remove(id models.ID) {
	snapshot, index, ok := s.store.Remove(id)
	if !ok {
		return
	}
	page := snapshot.Base().PageNumber

	// Ожидающие записи для удаленной сущности больше не нужны,
	// включая отложенные patch-и отдельных полей ("<key>#<field>")
	s.sched.CancelPrefix(sched.Key(page, id.String()))
	s.selection.Drop(id)
	s.changed()

	if id.IsTemporary() {
		// Сущность так и не попала на сервер
		s.clearMeta(id)
		return
	}

	s.sched.Schedule(sched.Key(page, id.String()), sched.DelayImmediate, func() {
		if err := s.apiClient.DeleteAnnotation(s.ctx, id.String()); err != nil {
			s.logger.Error("delete failed, restoring annotation", "id", id.String(), "error", err)
			s.store.InsertAt(page, index, snapshot)
			s.notifier.Notify("failed to delete")
			s.changed()
			return
		}
		s.clearMeta(id)
	})
}

// AddReply оптимистично добавляет ответ в тред комментария
func (s *Service) AddReply(commentID models.ID, content string) error {
	if err := validation.ValidateCommentContent(content); err != nil {
		return err
	}

	replyID := models.NewTemporaryID()
	applied := s.store.Apply(commentID, func(a models.Annotation) {
		if c, ok := a.(*models.Comment); ok {
			c.Replies = append(c.Replies, models.Reply{
				ID:        replyID,
				Content:   content,
				CreatedAt: time.Now(),
				Owner:     s.owner,
			})
		}
	})
	if !applied {
		return nil
	}
	s.changed()

	if commentID.IsTemporary() {
		// Тред уедет на сервер вместе с create комментария
		return nil
	}

	key := sched.Key(0, "reply-"+replyID.String())
	s.sched.Schedule(key, sched.DelayImmediate, func() {
		reply, err := s.apiClient.CreateReply(s.ctx, commentID.String(), content)
		if err != nil {
			s.logger.Error("reply failed, rolling back", "comment_id", commentID.String(), "error", err)
			s.store.Apply(commentID, func(a models.Annotation) {
				if c, ok := a.(*models.Comment); ok {
					c.Replies = removeReply(c.Replies, replyID)
				}
			})
			s.notifier.Notify("failed to reply")
			s.changed()
			return
		}

		s.store.Apply(commentID, func(a models.Annotation) {
			c, ok := a.(*models.Comment)
			if !ok {
				return
			}
			for i := range c.Replies {
				if c.Replies[i].ID == replyID {
					c.Replies[i].ID = models.DurableID(reply.ID)
					c.Replies[i].CreatedAt = reply.CreatedAt
					if reply.Owner.Name != "" {
						c.Replies[i].Owner = models.Owner{Name: reply.Owner.Name, AvatarURL: reply.Owner.AvatarURL}
					}
					break
				}
			}
		})
		s.changed()
	})
	return nil
}

// EndTextEdit завершает редактирование текстового блока.
// Пустое содержимое означает удаление блока вместо сохранения;
// для блока с временным id никакой create при этом не отправлялся.
func (s *Service) EndTextEdit(id models.ID) {
	s.selection.EndEdit()

	a, ok := s.store.Get(id)
	if !ok {
		return
	}
	box, ok := a.(*models.TextBox)
	if !ok {
		return
	}

	if strings.TrimSpace(box.Content) == "" {
		if id.IsTemporary() {
			s.store.Remove(id)
			s.selection.Drop(id)
			s.clearMeta(id)
			s.changed()
			return
		}
		s.Remove(id)
		return
	}

	if id.IsTemporary() {
		s.schedulePersistCreate(box.PageNumber, id, "failed to add text")
		return
	}
	s.CommitContent(id)
}

// ReleasePage снимает все ожидающие записи страницы.
// Вызывается при выгрузке страницы из видимого набора, чтобы таймер
// не выстрелил в уже уничтоженный контекст.
func (s *Service) ReleasePage(page int) {
	n := s.sched.CancelPrefix(sched.PagePrefix(page))
	if n > 0 {
		s.logger.Debug("cancelled pending writes", "page", page, "count", n)
	}
}

// Close отменяет все ожидающие записи и останавливает сервис
func (s *Service) Close() {
	s.sched.Close()
	s.cancel()
}

// schedulePersistCreate ставит отправку create в очередь.
// Запрос собирается в момент срабатывания, чтобы захватить изменения,
// сделанные между оптимистичным созданием и отправкой.
func (s *Service) schedulePersistCreate(page int, id models.ID, failMsg string) {
	s.sched.Schedule(sched.Key(page, id.String()), sched.DelayImmediate, func() {
		current, ok := s.store.Get(id)
		if !ok {
			// Сущность удалили до отправки
			s.clearMeta(id)
			return
		}

		created, err := s.apiClient.CreateAnnotation(s.ctx, toCreateRequest(current))
		if err != nil {
			s.logger.Error("create failed, removing optimistic entity", "id", id.String(), "error", err)
			s.store.Remove(id)
			s.selection.Drop(id)
			s.clearMeta(id)
			s.notifier.Notify(failMsg)
			s.changed()
			return
		}

		s.reconcile(id, *created)
	})
}

// reconcile заменяет сущность с временным id канонической серверной.
// Для полей, которые пользователь успел тронуть локально (содержимое,
// позиция, размер, оформление), выигрывает локальное значение; для
// id, createdAt и owner — серверное.
func (s *Service) reconcile(tempID models.ID, created api.Annotation) {
	entity := fromAPI(created)

	local, ok := s.store.Get(tempID)
	if !ok {
		// Гонка с удалением: сущности больше нет, сервер об этом
		// узнает через отдельный delete пользователя
		s.clearMeta(tempID)
		return
	}

	t := s.takeTouched(tempID)
	if t != nil {
		mergeTouched(entity, local, t)
	}
	if created.Owner.Name == "" {
		entity.Base().Owner = local.Base().Owner
	}

	newID := entity.Base().ID
	s.store.Replace(tempID, entity)
	s.selection.Remap(tempID, newID)

	s.metaMu.Lock()
	s.baseline[newID] = entity.Clone()
	s.metaMu.Unlock()
	s.logger.Debug("reconciled annotation", "temp_id", tempID.String(), "id", newID.String())
	s.changed()
	s.persistCache(s.ctx)
}

// rollbackClass определяет, какие поля восстанавливаются из baseline
// при сбое записи
type rollbackClass int

const (
	rollbackNone rollbackClass = iota // позиция при drag намеренно не откатывается
	rollbackContent
	rollbackSize
	rollbackStyle
	rollbackResolved
)

// scheduleWrite ставит отложенную запись patch для durable сущности.
// Новая мутация того же поля отменяет и заменяет ожидающую запись.
func (s *Service) scheduleWrite(page int, id models.ID, field string, delay time.Duration, patch api.AnnotationPatch, failMsg string, class rollbackClass) {
	key := sched.Key(page, id.String()) + "#" + field
	s.sched.Schedule(key, delay, func() {
		if err := s.apiClient.UpdateAnnotation(s.ctx, id.String(), patch); err != nil {
			s.logger.Error("write failed", "id", id.String(), "field", field, "error", err)
			s.rollback(id, class)
			s.notifier.Notify(failMsg)
			s.changed()
			return
		}
		s.commitBaseline(id, patch)
	})
}

// rollback восстанавливает поля класса из последнего подтвержденного
// состояния. Если сущности уже нет, это no-op.
func (s *Service) rollback(id models.ID, class rollbackClass) {
	if class == rollbackNone {
		return
	}

	s.metaMu.Lock()
	stored, ok := s.baseline[id]
	if !ok {
		s.metaMu.Unlock()
		return
	}
	base := stored.Clone()
	s.metaMu.Unlock()

	s.store.Apply(id, func(a models.Annotation) {
		switch class {
		case rollbackContent:
			switch v := a.(type) {
			case *models.Comment:
				v.Content = contentOf(base)
			case *models.TextBox:
				v.Content = contentOf(base)
			}
		case rollbackSize:
			if box, ok := a.(*models.TextBox); ok {
				if prev, ok := base.(*models.TextBox); ok {
					box.Width = prev.Width
				}
			}
		case rollbackStyle:
			if box, ok := a.(*models.TextBox); ok {
				if prev, ok := base.(*models.TextBox); ok {
					box.FontSize = prev.FontSize
					box.Color = prev.Color
					box.TextAlign = prev.TextAlign
				}
			}
		case rollbackResolved:
			if c, ok := a.(*models.Comment); ok {
				if prev, ok := base.(*models.Comment); ok {
					c.Resolved = prev.Resolved
				}
			}
		}
	})
}

// commitBaseline применяет подтвержденный сервером patch к baseline
func (s *Service) commitBaseline(id models.ID, patch api.AnnotationPatch) {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()

	base, ok := s.baseline[id]
	if !ok {
		return
	}

	b := base.Base()
	if patch.X != nil {
		b.X = *patch.X
	}
	if patch.Y != nil {
		b.Y = *patch.Y
	}
	switch v := base.(type) {
	case *models.Comment:
		if patch.Content != nil {
			v.Content = *patch.Content
		}
		if patch.Resolved != nil {
			v.Resolved = *patch.Resolved
		}
	case *models.TextBox:
		if patch.Content != nil {
			v.Content = *patch.Content
		}
		if patch.Width != nil {
			v.Width = *patch.Width
		}
		if patch.FontSize != nil {
			v.FontSize = *patch.FontSize
		}
		if patch.Color != nil {
			v.Color = *patch.Color
		}
		if patch.TextAlign != nil {
			v.TextAlign = models.Align(*patch.TextAlign)
		}
	}
}

func (s *Service) markTouched(id models.ID, fn func(*touchedFields)) {
	if !id.IsTemporary() {
		return
	}

	s.metaMu.Lock()
	defer s.metaMu.Unlock()

	t, ok := s.touched[id]
	if !ok {
		t = &touchedFields{}
		s.touched[id] = t
	}
	fn(t)
}

func (s *Service) takeTouched(id models.ID) *touchedFields {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()

	t, ok := s.touched[id]
	if !ok {
		return nil
	}
	delete(s.touched, id)
	return t
}

func (s *Service) clearMeta(id models.ID) {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()

	delete(s.touched, id)
	delete(s.baseline, id)
}

// mergeTouched переносит тронутые пользователем поля из локальной
// сущности в серверную
func mergeTouched(entity, local models.Annotation, t *touchedFields) {
	if t.position {
		entity.Base().X = local.Base().X
		entity.Base().Y = local.Base().Y
	}
	if t.content {
		switch v := entity.(type) {
		case *models.Comment:
			v.Content = contentOf(local)
		case *models.TextBox:
			v.Content = contentOf(local)
		}
	}
	localBox, localIsBox := local.(*models.TextBox)
	entityBox, entityIsBox := entity.(*models.TextBox)
	if localIsBox && entityIsBox {
		if t.size {
			entityBox.Width = localBox.Width
		}
		if t.style {
			entityBox.FontSize = localBox.FontSize
			entityBox.Color = localBox.Color
			entityBox.TextAlign = localBox.TextAlign
		}
	}
}

func contentOf(a models.Annotation) string {
	switch v := a.(type) {
	case *models.Comment:
		return v.Content
	case *models.TextBox:
		return v.Content
	}
	return ""
}

func removeReply(replies []models.Reply, id models.ID) []models.Reply {
	out := replies[:0]
	for _, r := range replies {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
