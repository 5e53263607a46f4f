// Package cli демонстрационный консольный клиент сервера аннотаций.
// Веб-клиент остается основным; CLI покрывает те же операции API
// для отладки и автоматизации.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	httpclient "github.com/mkrasnov/pagemark/internal/client/api"
	"github.com/mkrasnov/pagemark/internal/client/auth"
	"github.com/mkrasnov/pagemark/internal/client/iocli"
)

// Cli консольный клиент
type Cli struct {
	io          iocli.IO
	apiClient   httpclient.ClientAPI
	authService *auth.Service
	logger      *slog.Logger

	// documentID документ, с которым работают все команды
	documentID string
}

// New создает консольный клиент для одного документа
func New(io iocli.IO, apiClient httpclient.ClientAPI, authService *auth.Service, documentID string, logger *slog.Logger) *Cli {
	return &Cli{
		io:          io,
		apiClient:   apiClient,
		authService: authService,
		logger:      logger,
		documentID:  documentID,
	}
}

// Run выполняет команду с аргументами
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "list":
		return c.runList(ctx, args)
	case "comment":
		return c.runComment(ctx, args)
	case "note":
		return c.runNote(ctx, args)
	case "move":
		return c.runMove(ctx, args)
	case "reply":
		return c.runReply(ctx, args)
	case "resolve":
		return c.runResolve(ctx, args)
	case "delete":
		return c.runDelete(ctx, args)
	case "chat":
		return c.runChat(ctx)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// requireSession восстанавливает сессию и настраивает API клиент
func (c *Cli) requireSession(ctx context.Context) error {
	session, err := c.authService.Restore(ctx)
	if err != nil {
		if err == auth.ErrNotAuthenticated {
			return fmt.Errorf("not authenticated. Please run 'pagemark login' first")
		}
		return err
	}

	c.apiClient.SetAccessToken(session.AccessToken)
	return nil
}

// PrintUsage печатает справку по командам
func PrintUsage() {
	fmt.Println("Pagemark Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pagemark [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version        Show version information")
	fmt.Println("  --server URL     Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH        Path to local database (default: pagemark-client.db)")
	fmt.Println("  --document ID    Document to work with")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login                           Open a reader session")
	fmt.Println("  logout                          Drop the stored session")
	fmt.Println("  status                          Show session status")
	fmt.Println("  list [page]                     List annotations of the document")
	fmt.Println("  comment <page> <x> <y> <text>   Add a comment pin")
	fmt.Println("  note <page> <x> <y> <text>      Add a text box")
	fmt.Println("  move <id> <x> <y>               Move an annotation")
	fmt.Println("  reply <id> <text>               Reply to a comment thread")
	fmt.Println("  resolve <id>                    Toggle comment resolved state")
	fmt.Println("  delete <id>                     Delete an annotation")
	fmt.Println("  chat                            Talk to the document assistant")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pagemark --document doc-1 login")
	fmt.Println("  pagemark --document doc-1 list 3")
	fmt.Println("  pagemark --document doc-1 comment 3 25.0 40.0 'check this paragraph'")
	fmt.Println("  pagemark --document doc-1 chat")
}
