package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/checklist/internal/model"
	"github.com/dukerupert/checklist/internal/store"
)

// DefaultTimeout bounds the fetch when Options.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// Inserter is the slice of the item repository the importer writes through.
type Inserter interface {
	InsertImported(ctx context.Context, in store.ItemInput, bought bool) (*model.GroceryItem, error)
}

// Result counts what happened to each fetched record.
type Result struct {
	Fetched    int `json:"fetched"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

// ImportError aborts an import. Rows inserted before the failure are kept.
type ImportError struct {
	Stage    string
	Inserted int
	Err      error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s: %v (%d rows kept)", e.Stage, e.Err, e.Inserted)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

type Options struct {
	// Timeout bounds the fetch. Negative disables it.
	Timeout time.Duration
	Logger  *slog.Logger
}

type Importer struct {
	repo    Inserter
	timeout time.Duration
	logger  *slog.Logger
}

func New(repo Inserter, opts Options) *Importer {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Importer{repo: repo, timeout: opts.Timeout, logger: opts.Logger}
}

// Run fetches src and inserts every record whose name is not already in
// existing. Names are compared case-sensitively after trimming whitespace;
// existing is the snapshot taken when the import started, so two records
// with the same new name are both inserted. Inserts are sequential and stop
// at the first failure or when ctx is cancelled.
func (im *Importer) Run(ctx context.Context, src Source, existing []string) (Result, error) {
	var res Result

	records, err := im.fetch(ctx, src)
	if err != nil {
		return res, &ImportError{Stage: "fetch", Err: err}
	}
	res.Fetched = len(records)

	seen := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		seen[strings.TrimSpace(name)] = struct{}{}
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, &ImportError{Stage: "insert", Inserted: res.Inserted, Err: err}
		}

		name := strings.TrimSpace(rec.Name)
		if name == "" {
			res.Invalid++
			im.logger.Warn("skipping import record without name", "source", src.String())
			continue
		}
		if _, dup := seen[name]; dup {
			res.Duplicates++
			continue
		}

		in := store.ItemInput{Name: name, Quantity: string(rec.Quantity)}
		if rec.Category != nil {
			in.Category = *rec.Category
		}
		if _, err := im.repo.InsertImported(ctx, in, bool(rec.Completed)); err != nil {
			if errors.Is(err, store.ErrValidation) {
				res.Invalid++
				continue
			}
			return res, &ImportError{Stage: "insert", Inserted: res.Inserted, Err: err}
		}
		res.Inserted++
	}

	im.logger.Info("import finished",
		"source", src.String(),
		"fetched", res.Fetched,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
		"invalid", res.Invalid,
	)
	return res, nil
}

func (im *Importer) fetch(ctx context.Context, src Source) ([]Record, error) {
	if im.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, im.timeout)
		defer cancel()
	}
	return src.Fetch(ctx)
}
