package grocery

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukerupert/checklist/internal/importer"
	"github.com/dukerupert/checklist/internal/model"
	"github.com/dukerupert/checklist/internal/store"
)

// ImportFailedMessage is the user-visible error after a failed import.
const ImportFailedMessage = "import failed"

// Repository is the item store the controller reads and mutates.
type Repository interface {
	ListAll(ctx context.Context) ([]model.GroceryItem, error)
	Insert(ctx context.Context, in store.ItemInput) (*model.GroceryItem, error)
	InsertImported(ctx context.Context, in store.ItemInput, bought bool) (*model.GroceryItem, error)
	Update(ctx context.Context, id int64, in store.ItemInput) (*model.GroceryItem, error)
	ToggleBought(ctx context.Context, id int64) (*model.GroceryItem, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ClearBought(ctx context.Context) (int64, error)
	CountUnbought(ctx context.Context) (int, error)
}

type Options struct {
	// AutoCategorize fills a missing category on Add from the item name.
	AutoCategorize bool
	Importer       *importer.Importer
	Logger         *slog.Logger
}

// Controller owns the in-memory snapshot of the list. Every mutation goes
// through the repository and is followed by a full re-read; the snapshot is
// never patched in place.
type Controller struct {
	repo           Repository
	importer       *importer.Importer
	autoCategorize bool
	logger         *slog.Logger

	// importMu runs imports one at a time so each dedups against the
	// snapshot the previous one refreshed.
	importMu sync.Mutex

	mu       sync.RWMutex
	items    []model.GroceryItem
	unbought int
	imports  int // running or waiting imports; loading while > 0
	lastErr  string
}

func NewController(repo Repository, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Importer == nil {
		opts.Importer = importer.New(repo, importer.Options{Logger: opts.Logger})
	}
	return &Controller{
		repo:           repo,
		importer:       opts.Importer,
		autoCategorize: opts.AutoCategorize,
		logger:         opts.Logger,
		items:          []model.GroceryItem{},
	}
}

// Refresh replaces the snapshot with a fresh read of every row. When two
// refreshes overlap, whichever finishes last wins.
func (c *Controller) Refresh(ctx context.Context) error {
	c.clearErr()
	if err := c.refresh(ctx); err != nil {
		return c.fail("refresh", err)
	}
	return nil
}

func (c *Controller) refresh(ctx context.Context) error {
	items, err := c.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	unbought, err := c.repo.CountUnbought(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items = items
	c.unbought = unbought
	c.mu.Unlock()
	return nil
}

// Add validates and inserts a new item, then refreshes.
func (c *Controller) Add(ctx context.Context, in store.ItemInput) (*model.GroceryItem, error) {
	c.clearErr()
	if err := in.Validate(); err != nil {
		return nil, c.fail("add item", err)
	}
	if c.autoCategorize && strings.TrimSpace(in.Category) == "" {
		in.Category = Categorize(in.Name)
	}

	item, err := c.repo.Insert(ctx, in)
	if err != nil {
		return nil, c.fail("add item", err)
	}
	return item, c.afterMutation(ctx)
}

// Edit overwrites name, quantity and category of an existing item.
func (c *Controller) Edit(ctx context.Context, id int64, in store.ItemInput) (*model.GroceryItem, error) {
	c.clearErr()
	if err := in.Validate(); err != nil {
		return nil, c.fail("edit item", err)
	}

	item, err := c.repo.Update(ctx, id, in)
	if err != nil {
		return nil, c.fail("edit item", err)
	}
	return item, c.afterMutation(ctx)
}

// Toggle flips the bought flag of an item.
func (c *Controller) Toggle(ctx context.Context, id int64) (*model.GroceryItem, error) {
	c.clearErr()
	item, err := c.repo.ToggleBought(ctx, id)
	if err != nil {
		return nil, c.fail("toggle item", err)
	}
	return item, c.afterMutation(ctx)
}

// Delete removes an item. A missing id reports false and is not an error.
func (c *Controller) Delete(ctx context.Context, id int64) (bool, error) {
	c.clearErr()
	deleted, err := c.repo.Delete(ctx, id)
	if err != nil {
		return false, c.fail("delete item", err)
	}
	if !deleted {
		c.logger.Debug("delete of missing item", "id", id)
	}
	return deleted, c.afterMutation(ctx)
}

// ClearBought removes every bought item.
func (c *Controller) ClearBought(ctx context.Context) (int64, error) {
	c.clearErr()
	n, err := c.repo.ClearBought(ctx)
	if err != nil {
		return 0, c.fail("clear bought", err)
	}
	return n, c.afterMutation(ctx)
}

// Import merges src into the store, skipping names already present in the
// snapshot. Imports run one at a time; a second import waits for the first
// and dedups against the list it left behind. Rows inserted before a failure
// are kept and the snapshot is refreshed either way.
func (c *Controller) Import(ctx context.Context, src importer.Source) (importer.Result, error) {
	c.mu.Lock()
	c.imports++
	c.lastErr = ""
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.imports--
		c.mu.Unlock()
	}()

	c.importMu.Lock()
	defer c.importMu.Unlock()

	c.mu.RLock()
	existing := make([]string, len(c.items))
	for i, item := range c.items {
		existing[i] = item.Name
	}
	c.mu.RUnlock()

	res, runErr := c.importer.Run(ctx, src, existing)

	// Use a fresh context so a cancelled import still shows its kept rows.
	if err := c.refresh(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error("refresh after import", "error", err)
	}

	if runErr != nil {
		c.logger.Error("import failed", "source", src.String(), "error", runErr)
		c.setErr(ImportFailedMessage)
		return res, runErr
	}
	return res, nil
}

// Search filters the current snapshot by case-insensitive substring match on
// name. It never reads from or writes to the repository. A blank term
// returns the whole snapshot; otherwise the term is matched as given,
// surrounding spaces included.
func (c *Controller) Search(term string) []model.GroceryItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := strings.TrimSpace(term) == ""
	term = strings.ToLower(term)
	out := make([]model.GroceryItem, 0, len(c.items))
	for _, item := range c.items {
		if all || strings.Contains(strings.ToLower(item.Name), term) {
			out = append(out, item)
		}
	}
	return out
}

// Items returns a copy of the snapshot.
func (c *Controller) Items() []model.GroceryItem {
	return c.Search("")
}

func (c *Controller) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.imports > 0
}

// Err returns the message of the last failed operation, or "".
func (c *Controller) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Controller) State() model.ListState {
	items := c.Items()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.ListState{Items: items, Unbought: c.unbought, Loading: c.imports > 0, Error: c.lastErr}
}

func (c *Controller) afterMutation(ctx context.Context) error {
	if err := c.refresh(ctx); err != nil {
		return c.fail("refresh", err)
	}
	return nil
}

func (c *Controller) clearErr() {
	c.setErr("")
}

func (c *Controller) setErr(msg string) {
	c.mu.Lock()
	c.lastErr = msg
	c.mu.Unlock()
}

// fail records a user-facing message for err and returns err unchanged.
func (c *Controller) fail(op string, err error) error {
	var msg string
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		msg = verr.Error()
	case errors.Is(err, store.ErrNotFound):
		msg = store.ErrNotFound.Error()
	default:
		msg = op + " failed"
		c.logger.Error(op, "error", err)
	}
	c.setErr(msg)
	return err
}
