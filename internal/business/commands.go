package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openkcm/session-client/internal/config"
	"github.com/openkcm/session-client/pkg/gateway"
	"github.com/openkcm/session-client/pkg/session"
)

var ErrNotSignedIn = errors.New("not signed in")

// StatusReport is what the status command prints.
type StatusReport struct {
	Status      string        `json:"status"`
	User        *session.User `json:"user,omitempty"`
	TokenExpiry *time.Time    `json:"tokenExpiry,omitempty"`
}

func LoginMain(out io.Writer, email, password string) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		engine, closeFn, err := initEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := engine.Login(ctx, email, password); err != nil {
			return err
		}

		return printUser(out, engine.User())
	}
}

func SignupMain(out io.Writer, s session.Signup) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		engine, closeFn, err := initEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := engine.Signup(ctx, s); err != nil {
			return err
		}

		return printUser(out, engine.User())
	}
}

func LogoutMain(out io.Writer) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		engine, closeFn, err := initEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		engine.Logout()

		_, err = fmt.Fprintln(out, "Signed out")
		return err
	}
}

func StatusMain(out io.Writer) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		engine, closeFn, err := initEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		s := engine.Restore(ctx)
		report := StatusReport{
			Status: s.Status.String(),
			User:   s.User,
		}
		if s.Status == session.StatusAuthenticated {
			if exp, ok := engine.AccessTokenExpiry(); ok {
				report.TokenExpiry = &exp
			}
		}

		return printJSON(out, report)
	}
}

func TokenMain(out io.Writer) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		engine, closeFn, err := initEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		if s := engine.Restore(ctx); s.Status != session.StatusAuthenticated {
			return ErrNotSignedIn
		}

		_, err = fmt.Fprintln(out, engine.Token())
		return err
	}
}

func ForgotMain(out io.Writer, email string) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		engine, closeFn, err := initEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := engine.RequestPasswordReset(ctx, email); err != nil {
			return err
		}

		_, err = fmt.Fprintln(out, "If the address is registered, a reset link is on its way")
		return err
	}
}

// FetchMain issues an authenticated GET and prints the JSON response.
func FetchMain(out io.Writer, path string) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		engine, closeFn, err := initEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		if s := engine.Restore(ctx); s.Status != session.StatusAuthenticated {
			return ErrNotSignedIn
		}

		resp, err := session.Send[json.RawMessage](ctx, engine, gateway.Request{
			Method: http.MethodGet,
			Path:   path,
			Auth:   true,
		})
		if err != nil {
			return err
		}
		if resp == nil {
			return nil
		}

		return printJSON(out, *resp)
	}
}

func printUser(out io.Writer, u *session.User) error {
	if u == nil {
		return nil
	}

	_, err := fmt.Fprintf(out, "Signed in as %s <%s>\n", u.Name, u.Email)
	return err
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	return nil
}
