package cli

import (
	"context"
	"strings"
)

// Prompt hooks; tests replace them.
var (
	askLine     = ReadLine
	askPassword = ReadPassword
)

// Login prompts for credentials and opens a session. The password buffer is
// wiped before returning.
func (a *App) Login(ctx context.Context) error {
	username, err := askLine(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := askPassword(a.out)
	if err != nil {
		return err
	}
	defer clear(password)

	u, err := a.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	a.printf("Logged in as %s (%s)\n", u.Username, joinRoles(u.Roles))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.printf("Logged out.\n")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u, ok := a.auth.Current()
	if !ok {
		a.printf("Not logged in.\n")
		return nil
	}
	a.printf("%s <%s> id=%d roles=%s\n", u.Username, u.Email, u.ID, joinRoles(u.Roles))
	return nil
}

func joinRoles[T ~string](roles []T) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}
