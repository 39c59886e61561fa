package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	_ "modernc.org/sqlite"

	"github.com/nicolasssh/cosplaiii/internal/client/api"
	"github.com/nicolasssh/cosplaiii/internal/client/capture"
	"github.com/nicolasssh/cosplaiii/internal/client/config"
	"github.com/nicolasssh/cosplaiii/internal/client/device"
	"github.com/nicolasssh/cosplaiii/internal/client/menu"
	"github.com/nicolasssh/cosplaiii/internal/client/models"
	"github.com/nicolasssh/cosplaiii/internal/client/repositories/prefs"
	"github.com/nicolasssh/cosplaiii/internal/client/services"
	"github.com/nicolasssh/cosplaiii/internal/client/session"
	"github.com/nicolasssh/cosplaiii/internal/logging"
)

// printlnFn is a test seam for user-facing output. In tests, replace it
// with a stub.
var printlnFn = fmt.Println

// App wires the shared state (session, menu) and the per-screen
// controllers together and runs the screen loop. Screens receive their
// collaborators through the App rather than any ambient lookup.
type App struct {
	config *config.Config
	log    logging.Logger

	db       *sql.DB
	prefs    prefs.Repository
	session  *session.Manager
	menu     *menu.Controller
	gate     device.Gate
	pipeline *capture.Pipeline
	feed     *services.Feed
	dex      *services.Dex
	account  *services.Account

	reader *bufio.Reader
	out    io.Writer

	lastError string
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, store, err := prefs.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	a := &App{
		config: c,
		log:    log,
		db:     db,
		prefs:  store,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	identity := api.NewIdentityClient(c.IdentityURL, c.IdentityKey, c.RequestTimeout)
	a.session = session.NewManager(identity, store, log)

	docs := api.NewDocStoreClient(c.DocStoreURL, a.session.Token, c.RequestTimeout)
	recognizer := api.NewRecognizerClient(c.RecognizerURL, c.RequestTimeout)

	images, err := newImageHost(ctx, c)
	if err != nil {
		db.Close()
		return nil, err
	}

	a.menu = menu.NewController(c.MenuAnimation)
	a.gate = device.NewPrefsGate(store, func(question string) (bool, error) {
		return Confirm(a.reader, question, a.out)
	})
	a.pipeline = capture.NewPipeline(recognizer, docs, a.session, a.gate, log)
	a.feed = services.NewFeed(docs, images, a.session, log)
	a.dex = services.NewDex(recognizer, docs, a.session, log)
	a.account = services.NewAccount(identity, docs, a.session, log)

	return a, nil
}

func newImageHost(ctx context.Context, c *config.Config) (api.ImageHost, error) {
	switch c.ImageHost {
	case config.ImageHostS3:
		return api.NewS3ImageHost(ctx, api.S3Options{
			Region:    c.S3Region,
			Bucket:    c.S3Bucket,
			PublicURL: c.S3PublicURL,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
		})
	case config.ImageHostHTTP, "":
		return api.NewHTTPImageHost(c.ImageHostURL, c.ImageHostClient, c.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unknown image host kind %q", c.ImageHost)
	}
}

// Run executes the screen loop until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.db.Close()
	defer a.menu.Close()

	unsubscribe := a.session.Subscribe(func(user *models.UserSession) {
		if user == nil {
			a.log.Info(ctx, "signed out")
			return
		}
		a.log.Info(ctx, "signed in", "uid", user.UID)
	})
	defer unsubscribe()

	if err := a.session.Restore(ctx); err != nil {
		a.log.Warn(ctx, "failed to restore session", "error", err)
	}

	current := a.initialScreen(ctx)
	for current != screenExit {
		if err := ctx.Err(); err != nil {
			return err
		}
		current = a.runScreen(ctx, current)
	}
	printlnFn("Bye!")
	return nil
}

// initialScreen applies the first-run rule: without the persisted launch
// flag the app starts on onboarding, afterwards straight on the camera.
func (a *App) initialScreen(ctx context.Context) screen {
	_, err := a.prefs.Get(ctx, prefs.KeyHasLaunched)
	if errors.Is(err, prefs.ErrNoValue) {
		return screenOnboarding
	}
	if err != nil {
		a.log.Warn(ctx, "failed to read launch flag", "error", err)
	}
	return screenCamera
}

// alert surfaces a blocking, human-readable message; the error taxonomy
// stays inside the services, only text reaches the user.
func (a *App) alert(msg string) {
	printlnFn("[!] " + msg)
}

func (a *App) say(msg string) {
	printlnFn(msg)
}
