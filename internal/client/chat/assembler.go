// Package chat собирает потоковый ответ ассистента в сообщения диалога.
//
// Сервер отвечает построчным потоком записей "data: {json}\n".
// Каждая запись несет фрагмент текста; ассемблер накапливает фрагменты
// и целиком заменяет содержимое последнего сообщения ассистента, чтобы
// UI всегда видел консистентный префикс ответа.
package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/mkrasnov/pagemark/pkg/api"
)

// ErrBusy возвращается при попытке отправить ход, пока предыдущий
// ответ еще стримится
var ErrBusy = errors.New("previous chat turn is still streaming")

// FailureNotice текст, который показывается вместо ответа при обрыве
// потока
const FailureNotice = "Sorry, something went wrong. Please try again."

// Streamer открывает потоковый ответ сервера на ход чата
type Streamer interface {
	StreamChat(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error)
}

// Message одно сообщение в ленте диалога
type Message struct {
	Role    string
	Content string
	// Streaming true, пока содержимое еще дополняется
	Streaming bool
	// Failed true для синтезированного уведомления об ошибке
	Failed bool
}

// Assembler лента одного диалога с документом.
// Одновременно стримится не больше одного хода.
type Assembler struct {
	streamer   Streamer
	logger     *slog.Logger
	documentID string

	mu       sync.Mutex
	chatID   string
	messages []Message
	inFlight bool

	onChange func()
}

// New создает пустую ленту диалога для документа
func New(documentID string, streamer Streamer, logger *slog.Logger) *Assembler {
	return &Assembler{
		streamer:   streamer,
		logger:     logger,
		documentID: documentID,
	}
}

// SetOnChange устанавливает хук перерисовки. Вызывается на каждом
// дополнении ответа.
func (a *Assembler) SetOnChange(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onChange = fn
}

// Messages возвращает копию ленты
func (a *Assembler) Messages() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// ChatID идентификатор диалога, присвоенный сервером.
// Пустой, пока не пришла первая запись первого ответа.
func (a *Assembler) ChatID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chatID
}

// Busy true, пока стримится ответ на предыдущий ход
func (a *Assembler) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inFlight
}

// Send отправляет ход пользователя и запускает сборку ответа.
// Сообщение пользователя появляется в ленте сразу; ответ ассистента
// добавляется с первым фрагментом потока. Возвращает ErrBusy, если
// предыдущий ответ еще не завершен.
func (a *Assembler) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("message cannot be empty")
	}

	a.mu.Lock()
	if a.inFlight {
		a.mu.Unlock()
		return ErrBusy
	}
	a.inFlight = true
	a.messages = append(a.messages, Message{Role: api.RoleUser, Content: content})
	req := api.ChatRequest{
		DocumentID: a.documentID,
		ChatID:     a.chatID,
		Messages:   a.history(),
	}
	a.mu.Unlock()
	a.changed()

	body, err := a.streamer.StreamChat(ctx, req)
	if err != nil {
		a.logger.Error("failed to open chat stream", "error", err)
		a.finish(true)
		return nil
	}

	go a.consume(body)
	return nil
}

// history собирает историю для запроса. Вызывается под mu.
// Синтезированные уведомления об ошибках в историю не входят.
func (a *Assembler) history() []api.ChatMessage {
	out := make([]api.ChatMessage, 0, len(a.messages))
	for _, m := range a.messages {
		if m.Failed {
			continue
		}
		out = append(out, api.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// consume читает записи потока до done, обрыва или конца тела
func (a *Assembler) consume(body io.ReadCloser) {
	defer body.Close()

	var acc strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		payload, ok := strings.CutPrefix(line, api.StreamDataPrefix)
		if !ok {
			a.logger.Warn("skipping stream line without data prefix")
			continue
		}

		var rec api.StreamRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			// Битая запись не прерывает сборку
			a.logger.Warn("skipping malformed stream record", "error", err)
			continue
		}

		a.apply(rec, &acc)
		if rec.Done {
			a.finish(false)
			return
		}
	}

	if err := scanner.Err(); err != nil {
		a.logger.Error("chat stream broken", "error", err)
		a.finish(true)
		return
	}

	// Тело закрылось без done: трактуем как обрыв
	a.logger.Warn("chat stream ended without done record")
	a.finish(true)
}

// apply применяет одну запись потока к ленте
func (a *Assembler) apply(rec api.StreamRecord, acc *strings.Builder) {
	a.mu.Lock()

	// Идентификатор диалога фиксируется первой записью, которая его
	// принесла; последующие значения игнорируются
	if rec.ChatID != "" && a.chatID == "" {
		a.chatID = rec.ChatID
	}

	if rec.Content != "" {
		acc.WriteString(rec.Content)
		if m := a.lastStreaming(); m != nil {
			m.Content = acc.String()
		} else {
			a.messages = append(a.messages, Message{
				Role:      api.RoleAssistant,
				Content:   acc.String(),
				Streaming: true,
			})
		}
	}
	a.mu.Unlock()
	a.changed()
}

// finish завершает текущий ход: снимает флаг streaming и, при обрыве,
// подменяет частичный ответ уведомлением об ошибке
func (a *Assembler) finish(failed bool) {
	a.mu.Lock()
	a.inFlight = false

	if m := a.lastStreaming(); m != nil {
		m.Streaming = false
		if failed {
			m.Content = FailureNotice
			m.Failed = true
		}
	} else if failed {
		a.messages = append(a.messages, Message{
			Role:    api.RoleAssistant,
			Content: FailureNotice,
			Failed:  true,
		})
	}
	a.mu.Unlock()
	a.changed()
}

// lastStreaming возвращает указатель на стримящееся сообщение
// ассистента. Вызывается под mu.
func (a *Assembler) lastStreaming() *Message {
	if len(a.messages) == 0 {
		return nil
	}
	last := &a.messages[len(a.messages)-1]
	if last.Role == api.RoleAssistant && last.Streaming {
		return last
	}
	return nil
}

func (a *Assembler) changed() {
	a.mu.Lock()
	fn := a.onChange
	a.mu.Unlock()
	if fn != nil {
		fn()
	}
}
