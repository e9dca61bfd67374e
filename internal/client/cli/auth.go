package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/services"
)

func (a *App) Register(ctx context.Context) error {
	var req models.RegisterRequest
	var err error

	if req.FirstName, err = GetSimpleText(a.reader, "-Enter first name", a.out); err != nil {
		return a.fail("register", err)
	}
	if req.LastName, err = GetSimpleText(a.reader, "-Enter last name", a.out); err != nil {
		return a.fail("register", err)
	}
	if req.Email, err = GetSimpleText(a.reader, "-Enter email", a.out); err != nil {
		return a.fail("register", err)
	}
	if req.Password, err = GetPassword(a.out); err != nil {
		return a.fail("register", err)
	}

	msg, err := a.authService.Register(ctx, req)
	if err != nil {
		return a.fail("register", err)
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "-Enter email", a.out)
	if err != nil {
		return a.fail("login", err)
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return a.fail("login", err)
	}

	s, err := a.authService.Login(ctx, email, password)
	if err != nil {
		return a.fail("login", err)
	}
	fmt.Fprintf(a.out, "Logged in as %s, session expires %s\n", s.User.Email, s.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func (a *App) Profile(ctx context.Context) error {
	p, err := a.authService.Profile(ctx)
	if err != nil {
		if client.IsUnauthorized(err) {
			fmt.Fprintln(a.out, "Session is no longer valid, please log in again")
		}
		return a.fail("profile", err)
	}

	fmt.Fprintf(a.out, "ID:         %s\n", p.ID)
	fmt.Fprintf(a.out, "Name:       %s %s\n", p.FirstName, p.LastName)
	fmt.Fprintf(a.out, "Email:      %s\n", p.Email)
	fmt.Fprintf(a.out, "Status:     %s\n", p.Status)
	fmt.Fprintf(a.out, "Created at: %s\n", p.CreatedAt.Local().Format(time.RFC1123))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	msg, err := a.authService.Logout(ctx)
	if err != nil {
		if client.IsUnauthorized(err) {
			fmt.Fprintln(a.out, "Session was already invalid, local token removed")
			return nil
		}
		return a.fail("logout", err)
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st, err := a.authService.Status(ctx)
	if err != nil {
		if errors.Is(err, services.ErrNotLoggedIn) {
			fmt.Fprintln(a.out, "Not logged in")
			return nil
		}
		return a.fail("status", err)
	}
	fmt.Fprintf(a.out, "Logged in as %s until %s\n", st.Email, st.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func (a *App) fail(op string, err error) error {
	fmt.Fprintf(a.out, "%s failed: %v\n", op, err)
	return err
}
