package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dukerupert/checklist/internal/model"
)

// ItemStore is the only reader and writer of the grocery_items table.
// Every statement is parameterised.
type ItemStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewItemStore(db *sqlx.DB) *ItemStore {
	return &ItemStore{db: db, now: time.Now}
}

// ItemInput carries the user-editable fields of an item.
type ItemInput struct {
	Name     string
	Quantity string
	Category string
}

// normalize trims every field, defaults the quantity and rejects blank names.
func (in ItemInput) normalize() (name, quantity string, category *string, err error) {
	name = strings.TrimSpace(in.Name)
	if name == "" {
		return "", "", nil, &ValidationError{Field: "name", Message: "is required"}
	}
	quantity = strings.TrimSpace(in.Quantity)
	if quantity == "" {
		quantity = model.DefaultQuantity
	}
	if !quantityStorable(quantity) {
		return "", "", nil, &ValidationError{Field: "quantity", Message: "is not a storable number"}
	}
	if c := strings.TrimSpace(in.Category); c != "" {
		category = &c
	}
	return name, quantity, category, nil
}

// Validate reports whether the input would be accepted by Insert or Update.
func (in ItemInput) Validate() error {
	_, _, _, err := in.normalize()
	return err
}

const itemCols = `id, name, COALESCE(quantity, '1') AS quantity, category, COALESCE(bought, 0) AS bought, COALESCE(created_at, 0) AS created_at`

// ListAll returns every item in insertion order.
func (s *ItemStore) ListAll(ctx context.Context) ([]model.GroceryItem, error) {
	items := []model.GroceryItem{}
	if err := s.db.SelectContext(ctx, &items, `SELECT `+itemCols+` FROM grocery_items ORDER BY id ASC`); err != nil {
		return nil, storeErr("list items", err)
	}
	return items, nil
}

// Get returns nil, nil when no row has the id.
func (s *ItemStore) Get(ctx context.Context, id int64) (*model.GroceryItem, error) {
	var item model.GroceryItem
	err := s.db.GetContext(ctx, &item, `SELECT `+itemCols+` FROM grocery_items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get item", err)
	}
	return &item, nil
}

// Insert adds an unbought item stamped with the current time.
func (s *ItemStore) Insert(ctx context.Context, in ItemInput) (*model.GroceryItem, error) {
	return s.insert(ctx, in, false)
}

// InsertImported is Insert with the bought flag taken from the import record.
func (s *ItemStore) InsertImported(ctx context.Context, in ItemInput, bought bool) (*model.GroceryItem, error) {
	return s.insert(ctx, in, bought)
}

func (s *ItemStore) insert(ctx context.Context, in ItemInput, bought bool) (*model.GroceryItem, error) {
	name, quantity, category, err := in.normalize()
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO grocery_items (name, quantity, category, bought, created_at) VALUES (?, ?, ?, ?, ?)`,
		name, quantity, category, boolToInt(bought), s.now().UnixMilli(),
	)
	if err != nil {
		return nil, storeErr("insert item", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, storeErr("last insert id", err)
	}
	return s.Get(ctx, id)
}

// Update overwrites name, quantity and category. id, bought and created_at
// are left untouched. Returns ErrNotFound when no row matched.
func (s *ItemStore) Update(ctx context.Context, id int64, in ItemInput) (*model.GroceryItem, error) {
	name, quantity, category, err := in.normalize()
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE grocery_items SET name = ?, quantity = ?, category = ? WHERE id = ?`,
		name, quantity, category, id,
	)
	if err != nil {
		return nil, storeErr("update item", err)
	}
	if err := requireRow(result, "update item"); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// ToggleBought flips bought in a single statement. Two concurrent toggles of
// the same id are applied in whatever order SQLite serialises them; there is
// no version check.
func (s *ItemStore) ToggleBought(ctx context.Context, id int64) (*model.GroceryItem, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE grocery_items SET bought = CASE WHEN bought = 1 THEN 0 ELSE 1 END WHERE id = ?`,
		id,
	)
	if err != nil {
		return nil, storeErr("toggle bought", err)
	}
	if err := requireRow(result, "toggle bought"); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete hard-removes the row. Deleting a missing id reports false, nil.
func (s *ItemStore) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM grocery_items WHERE id = ?`, id)
	if err != nil {
		return false, storeErr("delete item", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storeErr("rows affected", err)
	}
	return n > 0, nil
}

// ClearBought deletes every bought item and returns how many were removed.
func (s *ItemStore) ClearBought(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM grocery_items WHERE bought = 1`)
	if err != nil {
		return 0, storeErr("clear bought", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, storeErr("rows affected", err)
	}
	return count, nil
}

func (s *ItemStore) CountUnbought(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM grocery_items WHERE bought = 0`); err != nil {
		return 0, storeErr("count unbought", err)
	}
	return count, nil
}

// quantityStorable reports whether quantity survives the column's INTEGER
// affinity in a readable form. SQLite rewrites numeric-looking text: "02"
// becomes 2 and "1.0" becomes 1, which is accepted. Values that would only
// come back in exponent notation ("1e-7", "99999999999999999999") are not.
func quantityStorable(quantity string) bool {
	if strings.Trim(quantity, "0123456789+-.eE") != "" {
		return true // plain text, stored as written
	}
	if _, err := strconv.ParseInt(quantity, 10, 64); err == nil {
		return true
	}
	f, err := strconv.ParseFloat(quantity, 64)
	if err != nil {
		return true // not numeric to SQLite either
	}
	if f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
		return true
	}
	return !strings.ContainsAny(strconv.FormatFloat(f, 'g', -1, 64), "eE")
}

func requireRow(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return storeErr(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
