package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mkrasnov/pagemark/internal/client/chat"
	"github.com/mkrasnov/pagemark/pkg/api"
)

// runChat интерактивный диалог с ассистентом документа.
// Ответ печатается по мере прихода фрагментов потока.
func (c *Cli) runChat(ctx context.Context) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	c.io.Println("=== Document Chat ===")
	c.io.Printf("Document: %s\n", c.documentID)
	c.io.Println("Type your question, or 'exit' to leave.")
	c.io.Println()

	assembler := chat.New(c.documentID, c.apiClient, c.logger)

	var mu sync.Mutex
	printedContent := ""
	turnDone := make(chan struct{}, 1)

	assembler.SetOnChange(func() {
		mu.Lock()
		messages := assembler.Messages()
		if len(messages) > 0 {
			last := messages[len(messages)-1]
			if last.Role == api.RoleAssistant && last.Content != printedContent {
				if strings.HasPrefix(last.Content, printedContent) {
					c.io.Printf("%s", last.Content[len(printedContent):])
				} else {
					// Частичный ответ заменен целиком, например
					// уведомлением об обрыве потока
					c.io.Printf("\n%s", last.Content)
				}
				printedContent = last.Content
			}
		}
		busy := assembler.Busy()
		mu.Unlock()

		if !busy {
			select {
			case turnDone <- struct{}{}:
			default:
			}
		}
	})

	for {
		question, err := c.io.ReadInput("You: ")
		if err != nil {
			// EOF завершает диалог как обычный выход
			return nil
		}
		question = strings.TrimSpace(question)
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			return nil
		}

		mu.Lock()
		printedContent = ""
		mu.Unlock()

		c.io.Printf("Assistant: ")
		if err := assembler.Send(ctx, question); err != nil {
			c.io.Println()
			return fmt.Errorf("failed to send message: %w", err)
		}

		select {
		case <-turnDone:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.io.Println()
		c.io.Println()
	}
}
