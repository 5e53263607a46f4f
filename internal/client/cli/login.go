package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/mkrasnov/pagemark/internal/client/auth"
)

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	// Запрашиваем имя читателя
	name, err := c.io.ReadInput("Your name: ")
	if err != nil {
		return fmt.Errorf("failed to read name: %w", err)
	}

	// Код доступа не обязателен, сервер может работать без него
	accessCode, err := c.io.ReadPassword("Access code (empty if none): ")
	if err != nil {
		return fmt.Errorf("failed to read access code: %w", err)
	}

	c.io.Println()
	c.io.Println("Opening session...")

	session, err := c.authService.Login(ctx, name, accessCode)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Session opened!")
	c.io.Printf("Name:    %s\n", session.Name)
	c.io.Printf("User ID: %s\n", session.UserID)
	c.io.Println()
	c.io.Println("Your session has been saved.")

	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.authService.Logout(ctx); err != nil {
		if err == auth.ErrNotAuthenticated {
			c.io.Println("No active session.")
			return nil
		}
		return err
	}

	c.io.Println("✓ Session closed.")
	return nil
}

func (c *Cli) runStatus(ctx context.Context) error {
	session, err := c.authService.Restore(ctx)
	if err != nil {
		if err == auth.ErrNotAuthenticated {
			c.io.Println("Not authenticated. Run 'pagemark login' first.")
			return nil
		}
		return err
	}

	c.io.Println("=== Session Status ===")
	c.io.Println()
	c.io.Printf("Name:     %s\n", session.Name)
	c.io.Printf("User ID:  %s\n", session.UserID)
	c.io.Printf("Saved at: %s\n", time.Unix(session.SavedAt, 0).Format(time.RFC3339))

	return nil
}
