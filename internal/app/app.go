// Package app wires configuration, storage, the account API and the
// terminal wizard into the onboard command.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/accountapi"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/cli"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/config"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/filex"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/logging"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/media"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/storage/memory"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/storage/postgres"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/storage/sqlite"
)

// Test seams.
var (
	openSQLite   = sqlite.Open
	openPostgres = postgres.Open
	dialAccounts = func(cfg *config.Config, log logging.Logger) (accountClient, error) {
		return accountapi.New(cfg.APIAddr, accountapi.WithTimeout(cfg.APITimeout), accountapi.WithLogger(log))
	}
)

// accountClient is everything the account API client provides to the
// controller.
type accountClient interface {
	onboarding.AccountAPI
	onboarding.PaymentAuthorization
	onboarding.AuthSession
	Close() error
}

type sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)
}

// App owns the session store and the resources behind it.
type App struct {
	cfg   *config.Config
	log   logging.Logger
	slot  onboarding.Slot
	store *onboarding.DurableStore
	db    *sql.DB
	now   func() time.Time
}

// New opens the configured slot backend and binds the session store to
// the configured origin.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Nop{}
	}
	a := &App{cfg: cfg, log: log, now: time.Now}

	if err := a.openSlot(ctx); err != nil {
		return nil, err
	}

	opts := []onboarding.StoreOption{
		onboarding.WithTTL(cfg.SessionTTL),
		onboarding.WithStoreLogger(log),
	}
	if cfg.LastWriteWins {
		opts = append(opts, onboarding.WithLastWriteWins())
	}
	a.store = onboarding.NewDurableStore(a.slot, cfg.Origin, opts...)
	return a, nil
}

func (a *App) openSlot(ctx context.Context) error {
	var err error
	switch a.cfg.Store {
	case config.StoreMemory:
		a.slot = memory.NewSlot()
		return nil
	case config.StoreSQLite:
		if err := filex.EnsureParentDir(a.cfg.SQLitePath); err != nil {
			return err
		}
		if a.db, err = openSQLite(ctx, a.cfg.SQLitePath); err != nil {
			return fmt.Errorf("%s: %w", a.cfg.Store, err)
		}
		a.slot = sqlite.NewSlot(a.db)
	case config.StorePostgres:
		if a.db, err = openPostgres(ctx, a.cfg.PostgresDSN); err != nil {
			return fmt.Errorf("%s: %w", a.cfg.Store, err)
		}
		a.slot = postgres.NewSlot(a.db)
	default:
		return fmt.Errorf("unknown store %q", a.cfg.Store)
	}

	// tombstones only matter while a stale writer could still be around
	if sw, ok := a.slot.(sweeper); ok {
		n, err := sw.Sweep(ctx, a.now().Add(-a.cfg.SessionTTL))
		if err != nil {
			a.log.Warn(ctx, "failed to sweep session tombstones", "error", err)
		} else if n > 0 {
			a.log.Debug(ctx, "swept session tombstones", "count", n)
		}
	}
	return nil
}

// Close releases the store backend.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Status prints the stored session of the configured origin.
func (a *App) Status(ctx context.Context, w io.Writer) error {
	sess, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Fprintln(w, "No resumable onboarding session.")
		return nil
	}
	left := a.store.TTL() - a.now().Sub(sess.SavedAt)
	fmt.Fprintf(w, "Session:  %s\n", sess.ID)
	fmt.Fprintf(w, "Role:     %s\n", sess.Role)
	fmt.Fprintf(w, "Offer:    %s\n", sess.PurchaseContext)
	fmt.Fprintf(w, "Step:     %d (%s), resumes at %s\n", sess.Step, sess.Step, sess.Step.ResumePoint())
	fmt.Fprintf(w, "Saved:    %s (expires in %s)\n", sess.SavedAt.Format(time.RFC3339), left.Round(time.Minute))
	return nil
}

// Reset discards the stored session.
func (a *App) Reset(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	a.log.Info(ctx, "onboarding session reset", "origin", a.cfg.Origin)
	return nil
}

// Run drives the interactive wizard with entry until it reaches a terminal
// state or the user quits.
func (a *App) Run(ctx context.Context, entry models.EntryContext, in io.Reader, out io.Writer) (onboarding.View, error) {
	api, err := dialAccounts(a.cfg, a.log)
	if err != nil {
		return onboarding.View{}, fmt.Errorf("connect account api: %w", err)
	}
	defer api.Close()

	var images onboarding.ImageUploader
	if a.cfg.S3Bucket != "" {
		images = media.NewUploader(media.Config{
			Bucket:        a.cfg.S3Bucket,
			Region:        a.cfg.S3Region,
			BaseEndpoint:  a.cfg.S3Endpoint,
			AccessKey:     a.cfg.S3AccessKey,
			SecretKey:     a.cfg.S3SecretKey,
			PublicBaseURL: a.cfg.S3PublicURL,
		}, &http.Client{Timeout: a.cfg.APITimeout}, a.log)
	}

	ctrl := onboarding.NewController(onboarding.ControllerDeps{
		Store:     a.store,
		Accounts:  api,
		Payments:  api,
		Auth:      api,
		Images:    images,
		Validator: onboarding.DefaultValidator{},
		Notifier:  cli.NewPrinter(out),
		Logger:    a.log,
	})
	defer ctrl.Close()

	v, err := cli.NewWizard(ctrl, in, out).Run(ctx, entry)
	if errors.Is(err, cli.ErrQuit) {
		fmt.Fprintln(out, "Your progress is saved. Run onboard again to continue.")
		return v, nil
	}
	return v, err
}
