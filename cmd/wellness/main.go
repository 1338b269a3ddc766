package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"wellness-hub/internal/config"
	"wellness-hub/internal/domain"
	"wellness-hub/internal/gateway"
	"wellness-hub/internal/logging"
	"wellness-hub/internal/service"
	"wellness-hub/internal/session"
)

const usage = `usage: wellness <command> [flags]

commands:
  login     --email E --password P
  register  --username U --email E --password P [--image FILE]
  logout
  me
  status
  get       <endpoint>
  post      <endpoint> <json>
  resources
`

var errUsage = errors.New("invalid usage")

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		logrus.Fatalf("setup logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	cmd, args := args[0], args[1:]
	switch cmd {
	case "login":
		return loginCmd(ctx, a, args, out)
	case "register":
		return registerCmd(ctx, a, args, out)
	case "logout":
		if err := a.session.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "logged out")
		return nil
	case "me":
		if err := a.session.Bootstrap(ctx); err != nil {
			return err
		}
		st := a.session.State()
		if !st.Authenticated() {
			return errors.New("not logged in")
		}
		return printJSON(out, st.User)
	case "status":
		// a failed bootstrap is still a status worth printing
		if err := a.session.Bootstrap(ctx); err != nil {
			logger.WithError(err).Debug("bootstrap")
		}
		return printJSON(out, statusView(a.session.State()))
	case "get":
		if len(args) != 1 {
			return errUsage
		}
		res, err := a.client.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(out, res)
	case "post":
		if len(args) != 2 {
			return errUsage
		}
		body := json.RawMessage(args[1])
		if !json.Valid(body) {
			return fmt.Errorf("post body is not valid JSON")
		}
		res, err := a.client.Request(ctx, args[0], gateway.Request{Method: http.MethodPost, Body: body})
		if err != nil {
			return err
		}
		return printResult(out, res)
	case "resources":
		resources, err := service.NewStudentService(a.client).Resources(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, resources)
	default:
		return errUsage
	}
}

func loginCmd(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil || *email == "" || *password == "" {
		return errUsage
	}

	if err := a.session.Login(ctx, domain.Credentials{Email: *email, Password: *password}); err != nil {
		return err
	}
	fmt.Fprintf(out, "logged in as %s\n", a.session.State().User.Username)
	return nil
}

func registerCmd(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("username", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	imagePath := fs.String("image", "", "optional profile image file")
	if err := fs.Parse(args); err != nil || *username == "" || *email == "" || *password == "" {
		return errUsage
	}

	var image *domain.ProfileImage
	if *imagePath != "" {
		mtype, err := mimetype.DetectFile(*imagePath)
		if err != nil {
			return fmt.Errorf("read profile image: %w", err)
		}
		f, err := os.Open(*imagePath)
		if err != nil {
			return fmt.Errorf("open profile image: %w", err)
		}
		defer f.Close()
		image = &domain.ProfileImage{
			Filename:    filepath.Base(*imagePath),
			ContentType: mtype.String(),
			Data:        f,
		}
	}

	reg := domain.Registration{Username: *username, Email: *email, Password: *password}
	if err := a.session.Register(ctx, reg, image); err != nil {
		return err
	}
	fmt.Fprintf(out, "registered %s\n", a.session.State().User.Username)
	return nil
}

type sessionView struct {
	Status session.Status `json:"status"`
	User   *domain.User   `json:"user,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func statusView(st session.State) sessionView {
	return sessionView{Status: st.Status, User: st.User, Error: st.Error}
}

func printResult(out io.Writer, res *gateway.Result) error {
	defer res.Close()
	if !res.IsJSON() {
		_, err := io.Copy(out, res.Raw().Body)
		return err
	}
	v, err := res.Value()
	if err != nil {
		return err
	}
	return printJSON(out, v)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
