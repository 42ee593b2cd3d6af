package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-session/auth"
	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/credentials/securestore/sqlite"
	"github.com/jrsteele09/go-auth-session/entitlement"
	"github.com/jrsteele09/go-auth-session/injection"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/logging"
	"github.com/jrsteele09/go-auth-session/oauthmodel"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/rs/zerolog"
)

const usage = `usage: sessionctl <command> [args]

commands:
  status                      show the session and entitlement
  login                       interactive login
  login-platform              login through the platform identity provider
  register <first> <last> <email> <password>
  magic-link <token>          sign in with a magic link token
  refresh                     refresh the session now
  logout                      revoke and remove the session
  inject <url>                print the scripts a web view at url would receive
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	quiet := flag.Bool("q", false, "do not print the banner")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(flag.Args(), *quiet); err != nil {
		fmt.Fprintf(os.Stderr, "sessionctl: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string, quiet bool) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	if !quiet {
		displayAppname(c.GetAppName())
	}
	logger := logging.New(c.GetAppName(), c.GetEnv(), c.GetLogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, c, logger)
	if err != nil {
		return err
	}
	defer app.close()

	return app.dispatch(ctx, args)
}

type app struct {
	cfg       config.Config
	logger    zerolog.Logger
	storage   *sqlite.Storage
	authority *session.Authority
}

func newApp(ctx context.Context, c config.Config, logger zerolog.Logger) (*app, error) {
	storage, err := sqlite.Open(c.GetStorageDSN())
	if err != nil {
		return nil, err
	}

	sealer, err := credentials.NewSealer(c.GetMasterKey())
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	store, err := credentials.NewStore(storage, sealer,
		credentials.WithKey(c.GetCredentialKey()),
		credentials.WithWebData(credentials.DirWebData{Root: c.GetWebDataDir()}),
		credentials.WithLogger(logger),
	)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	orchestrator, err := auth.NewOrchestrator(c, auth.WithLogger(logger))
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	ledger := entitlement.NewReceiptLedger(
		entitlement.StaticReceipts(c.GetActiveProductIDs()),
		c.GetMonthlyProductID(),
		c.GetYearlyProductID(),
	)
	resolver := entitlement.NewResolver(ledger, entitlement.WithLogger(logger))

	authority, err := session.New(store, orchestrator, resolver,
		session.WithLogger(logger),
		session.WithLogoutTimeout(c.GetLogoutTimeout()),
		session.WithLogoutNotifier(terminalNotifier{}),
	)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	authority.Subscribe(func(e session.Event) {
		logger.Debug().Str("event", string(e.Kind)).Uint64("seq", e.Seq).Msg("session event")
	})

	// A session that cannot be restored leaves the app logged out; login and
	// logout still work.
	if err := authority.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to restore the persisted session")
	}

	return &app{cfg: c, logger: logger, storage: storage, authority: authority}, nil
}

func (a *app) close() {
	a.authority.Close()
	if err := a.storage.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close secure storage")
	}
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	command, rest := args[0], args[1:]
	switch command {
	case "status":
		return a.status(ctx)
	case "login":
		if err := a.authority.Login(ctx, terminalPresenter{}); err != nil {
			return err
		}
		return a.status(ctx)
	case "login-platform":
		if err := a.authority.LoginWithPlatformIdentity(ctx, terminalPresenter{}); err != nil {
			return err
		}
		return a.status(ctx)
	case "register":
		if len(rest) != 4 {
			return errors.New("register needs <first> <last> <email> <password>")
		}
		registration := oauthmodel.Registration{FirstName: rest[0], LastName: rest[1], Email: rest[2], Password: rest[3]}
		if err := a.authority.Register(ctx, registration); err != nil {
			return err
		}
		return a.status(ctx)
	case "magic-link":
		if len(rest) != 1 {
			return errors.New("magic-link needs <token>")
		}
		if err := a.authority.AutoLogin(ctx, rest[0]); err != nil {
			return err
		}
		return a.status(ctx)
	case "refresh":
		if err := a.authority.Refresh(ctx); err != nil {
			return err
		}
		return a.status(ctx)
	case "logout":
		return a.authority.Logout(ctx)
	case "inject":
		if len(rest) != 1 {
			return errors.New("inject needs <url>")
		}
		return a.inject(ctx, rest[0])
	}
	flag.Usage()
	return fmt.Errorf("unknown command %q", command)
}

func (a *app) status(ctx context.Context) error {
	state := a.authority.State()
	fmt.Printf("phase:     %s\n", state.Phase)
	if state.Phase == session.PhaseActive {
		fmt.Printf("expires:   %s\n", state.Deadline.Local().Format("2006-01-02 15:04:05"))
	}
	if c := a.authority.DecodedClaims(); c != nil {
		fmt.Printf("verified:  %t\n", c.EmailVerified)
	}
	userType := a.authority.UserType(ctx)
	fmt.Printf("user type: %s (premium: %t)\n", userType, userType.HasPremium())
	return nil
}

func (a *app) inject(ctx context.Context, rawURL string) error {
	bridge, err := injection.NewBridge(a.cfg.GetAppDomain(), injection.WithLogger(a.logger))
	if err != nil {
		return err
	}
	coordinator, err := injection.NewCoordinator(bridge, a.authority, injection.WithCoordinatorLogger(a.logger))
	if err != nil {
		return err
	}
	defer coordinator.Close()

	surface := injection.NewScriptSurface(printingWebView{url: rawURL})
	if !bridge.Allowed(rawURL) {
		fmt.Printf("%s is not on %s over https, nothing is injected\n", rawURL, a.cfg.GetAppDomain())
	}
	return coordinator.Register(ctx, surface)
}

// printingWebView prints scripts instead of running them.
type printingWebView struct {
	url string
}

func (w printingWebView) CurrentURL() string {
	return w.url
}

func (w printingWebView) EvaluateScript(_ context.Context, script string) error {
	fmt.Println(script)
	return nil
}

// terminalPresenter prints the authorization URL and reads the redirect URL
// the browser ended on.
type terminalPresenter struct{}

func (terminalPresenter) Present(ctx context.Context, authURL string) (string, error) {
	fmt.Printf("Open this URL in a browser and sign in:\n\n  %s\n\nPaste the URL you were redirected to: ", authURL)

	lines := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			errs <- err
			return
		}
		lines <- strings.TrimSpace(line)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errs:
		return "", err
	case line := <-lines:
		if line == "" {
			return "", errors.New("no redirect URL entered")
		}
		return line, nil
	}
}

type terminalNotifier struct{}

func (terminalNotifier) ShowLoggedOutNotice() {
	fmt.Fprintln(os.Stderr, "You've been logged out, please log back in.")
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
