// Package cli wires the ledger service together and dispatches the
// command-line verbs. Sync cadence is the user's: on-connect, on-interval or
// on-demand, the engine below does not care.
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/yorutsuke/ledgersync/internal/assets"
	"github.com/yorutsuke/ledgersync/internal/config"
	"github.com/yorutsuke/ledgersync/internal/flagx"
	"github.com/yorutsuke/ledgersync/internal/logging"
	"github.com/yorutsuke/ledgersync/internal/models"
	"github.com/yorutsuke/ledgersync/internal/remote"
	"github.com/yorutsuke/ledgersync/internal/service"
	"github.com/yorutsuke/ledgersync/internal/store"
)

const dateLayout = "2006-01-02"

// App holds the wired-up dependencies for one CLI invocation.
type App struct {
	cfg    *config.Config
	ledger *service.Ledger
	db     *sql.DB
	log    logging.Logger

	logFile *os.File
}

// NewApp opens the local database, runs migrations and builds the service
// stack from cfg.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{cfg: cfg}

	if cfg.LogDir != "" {
		l, f, err := logging.NewDailyFile(cfg.LogDir)
		if err != nil {
			return nil, err
		}
		app.log = logging.NewSlogLogger(l)
		app.logFile = f
		if _, err := logging.Cleanup(cfg.LogDir, cfg.LogRetentionDays); err != nil {
			app.log.Warn(ctx, "log cleanup failed", "error", err)
		}
	} else {
		app.log = logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}

	if cfg.APIToken == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		token, err := promptToken()
		if err != nil {
			return nil, err
		}
		cfg.APIToken = token
	}

	db, err := store.Open(ctx, cfg.LocalDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	app.db = db

	client := remote.New(remote.Config{
		BaseURL:          cfg.RemoteBaseURL,
		APIToken:         cfg.APIToken,
		FetchTimeout:     cfg.FetchTimeout,
		FullFetchTimeout: cfg.FullFetchTimeout,
		PageLimit:        cfg.PageLimit,
	}, app.log)

	var as *assets.Store
	if cfg.S3Bucket != "" {
		as = assets.New(assets.Config{
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
	}

	app.ledger = service.New(store.NewSQLiteRepository(db), client, as, app.log)
	return app, nil
}

// Close releases the database and log file handles.
func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// promptToken reads the API token without echoing it.
func promptToken() (string, error) {
	fmt.Fprint(os.Stdout, "API token: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stdout)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return string(b), nil
}

// Run dispatches the command verb.
func (a *App) Run(ctx context.Context, command string) error {
	owner := a.cfg.OwnerID
	if owner == "" {
		return fmt.Errorf("owner id is required (-u)")
	}

	switch command {
	case "sync-down":
		opts, err := fetchOptionsFromFlags()
		if err != nil {
			return err
		}
		res, err := a.ledger.SyncDown(ctx, owner, opts)
		if res != nil {
			fmt.Printf("synced: %d, conflicts: %d, errors: %d\n", res.Synced, res.Conflicts, len(res.Errors))
			for _, e := range res.Errors {
				fmt.Printf("  %s\n", e)
			}
		}
		return err

	case "sync-up":
		res, err := a.ledger.SyncUp(ctx, owner)
		if err != nil {
			return err
		}
		fmt.Printf("pushed: %d, rejected: %d\n", res.Succeeded, len(res.FailedIDs))
		return nil

	case "restore":
		n, err := a.ledger.Restore(ctx, owner)
		if err != nil {
			return err
		}
		fmt.Printf("restored %d records\n", n)
		return nil

	case "list":
		records, err := a.ledger.List(ctx, owner, store.Filter{})
		if err != nil {
			return err
		}
		for _, r := range records {
			mark := " "
			if r.Dirty {
				mark = "*"
			}
			fmt.Printf("%s%s  %s  %6d %s  %-10s  %s\n",
				mark, r.ID, r.OccurredOn.Format(dateLayout), r.Amount, r.Currency, r.Category, r.Description)
		}
		return nil

	case "add":
		return a.runAdd(ctx, owner)

	case "confirm":
		id, err := idArg()
		if err != nil {
			return err
		}
		return a.ledger.Confirm(ctx, id)

	case "delete":
		id, err := idArg()
		if err != nil {
			return err
		}
		return a.ledger.Delete(ctx, id)

	default:
		return fmt.Errorf("unknown command %q (expected sync-down, sync-up, restore, list, add, confirm, delete)", command)
	}
}

func (a *App) runAdd(ctx context.Context, owner string) error {
	args := flagx.FilterArgs(os.Args[2:], []string{"-amount", "-currency", "-kind", "-category", "-desc", "-on"})
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	amount := fs.String("amount", "", "amount in minor units")
	currency := fs.String("currency", "JPY", "currency code")
	kind := fs.String("kind", string(models.KindDebit), "credit|debit")
	category := fs.String("category", string(models.CategoryOther), "category")
	desc := fs.String("desc", "", "description")
	on := fs.String("on", time.Now().UTC().Format(dateLayout), "occurred date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	amt, err := strconv.ParseInt(*amount, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid -amount: %w", err)
	}
	occurredOn, err := time.Parse(dateLayout, *on)
	if err != nil {
		return fmt.Errorf("invalid -on date: %w", err)
	}

	r, err := a.ledger.Add(ctx, service.AddParams{
		OwnerID:     owner,
		Kind:        models.Kind(*kind),
		Category:    models.Category(*category),
		Amount:      amt,
		Currency:    *currency,
		Description: *desc,
		OccurredOn:  occurredOn,
	})
	if err != nil {
		return err
	}
	fmt.Printf("added %s\n", r.ID)
	return nil
}

// fetchOptionsFromFlags reads the optional -from/-to date window.
func fetchOptionsFromFlags() (remote.FetchOptions, error) {
	args := flagx.FilterArgs(os.Args[2:], []string{"-from", "-to"})
	fs := flag.NewFlagSet("sync-down", flag.ContinueOnError)
	from := fs.String("from", "", "window start (YYYY-MM-DD)")
	to := fs.String("to", "", "window end (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return remote.FetchOptions{}, err
	}

	var opts remote.FetchOptions
	var err error
	if *from != "" {
		if opts.From, err = time.Parse(dateLayout, *from); err != nil {
			return opts, fmt.Errorf("invalid -from date: %w", err)
		}
	}
	if *to != "" {
		if opts.To, err = time.Parse(dateLayout, *to); err != nil {
			return opts, fmt.Errorf("invalid -to date: %w", err)
		}
	}
	return opts, nil
}

// idArg returns the record id following the command verb, skipping flags and
// their values.
func idArg() (string, error) {
	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		return args[i], nil
	}
	return "", fmt.Errorf("record id argument is required")
}
