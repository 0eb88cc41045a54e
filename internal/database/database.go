package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quaynav/quay/internal/model"
	_ "modernc.org/sqlite"
)

type DB struct {
	db *sql.DB
}

// InitDB opens (and if necessary creates) the sqlite database at dbPath
func InitDB(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Retry logic for handling concurrent initialization
	var db *sql.DB
	var err error
	maxRetries := 5
	baseDelay := 100 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			time.Sleep(delay)
		}

		db, err = sql.Open("sqlite", dbPath)
		if err != nil {
			if attempt == maxRetries-1 {
				return nil, fmt.Errorf("failed to open database after %d attempts: %w", maxRetries, err)
			}
			continue
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Minute * 5)

		// Configure SQLite pragmas for better concurrency and performance
		pragmas := []string{
			"PRAGMA busy_timeout = 10000", // set this FIRST
			"PRAGMA journal_mode = WAL",
			"PRAGMA foreign_keys = ON",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA temp_store = MEMORY",
		}

		pragmaFailed := false
		for _, pragma := range pragmas {
			if _, err = db.Exec(pragma); err != nil {
				db.Close()
				if attempt == maxRetries-1 {
					return nil, fmt.Errorf("failed to set pragma %q after %d attempts: %w", pragma, maxRetries, err)
				}
				pragmaFailed = true
				break
			}
		}

		if pragmaFailed {
			continue
		}

		if err = createSchema(db); err != nil {
			db.Close()
			if attempt == maxRetries-1 {
				return nil, fmt.Errorf("failed to create schema after %d attempts: %w", maxRetries, err)
			}
			continue
		}

		return &DB{db: db}, nil
	}

	if db != nil {
		db.Close()
	}
	return nil, fmt.Errorf("failed to initialize database after %d attempts: %w", maxRetries, err)
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS menus (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		icon TEXT,
		sort_order INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS cards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		menu_id INTEGER NOT NULL REFERENCES menus(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		description TEXT,
		icon TEXT,
		sort_order INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_cards_menu_id ON cards(menu_id);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		color TEXT
	);

	CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		level TEXT NOT NULL,
		component TEXT,
		archive TEXT,
		message TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_logs_component ON logs(component);
	CREATE INDEX IF NOT EXISTS idx_logs_level ON logs(level);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// GetDB returns the underlying *sql.DB for use by other packages (e.g., logger)
func (d *DB) GetDB() *sql.DB {
	return d.db
}

// --- menus ---

func (d *DB) ListMenus(ctx context.Context) ([]model.Menu, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT id, name, COALESCE(icon, ''), sort_order FROM menus ORDER BY sort_order, id")
	if err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	defer rows.Close()

	menus := make([]model.Menu, 0)
	for rows.Next() {
		var m model.Menu
		if err := rows.Scan(&m.ID, &m.Name, &m.Icon, &m.SortOrder); err != nil {
			return nil, fmt.Errorf("scan menu: %w", err)
		}
		menus = append(menus, m)
	}
	return menus, rows.Err()
}

func (d *DB) CreateMenu(ctx context.Context, m model.Menu) (int64, error) {
	res, err := d.db.ExecContext(ctx, "INSERT INTO menus (name, icon, sort_order) VALUES (?, ?, ?)", m.Name, m.Icon, m.SortOrder)
	if err != nil {
		return 0, fmt.Errorf("create menu: %w", err)
	}
	return res.LastInsertId()
}

func (d *DB) UpdateMenu(ctx context.Context, m model.Menu) error {
	res, err := d.db.ExecContext(ctx, "UPDATE menus SET name = ?, icon = ?, sort_order = ? WHERE id = ?", m.Name, m.Icon, m.SortOrder, m.ID)
	if err != nil {
		return fmt.Errorf("update menu: %w", err)
	}
	return requireRow(res)
}

func (d *DB) DeleteMenu(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM menus WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete menu: %w", err)
	}
	return requireRow(res)
}

// --- cards ---

func (d *DB) ListCards(ctx context.Context, menuID int64) ([]model.Card, error) {
	query := "SELECT id, menu_id, title, url, COALESCE(description, ''), COALESCE(icon, ''), sort_order FROM cards"
	args := []any{}
	if menuID > 0 {
		query += " WHERE menu_id = ?"
		args = append(args, menuID)
	}
	query += " ORDER BY sort_order, id"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	cards := make([]model.Card, 0)
	for rows.Next() {
		var c model.Card
		if err := rows.Scan(&c.ID, &c.MenuID, &c.Title, &c.URL, &c.Description, &c.Icon, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (d *DB) CreateCard(ctx context.Context, c model.Card) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		"INSERT INTO cards (menu_id, title, url, description, icon, sort_order) VALUES (?, ?, ?, ?, ?, ?)",
		c.MenuID, c.Title, c.URL, c.Description, c.Icon, c.SortOrder)
	if err != nil {
		return 0, fmt.Errorf("create card: %w", err)
	}
	return res.LastInsertId()
}

func (d *DB) UpdateCard(ctx context.Context, c model.Card) error {
	res, err := d.db.ExecContext(ctx,
		"UPDATE cards SET menu_id = ?, title = ?, url = ?, description = ?, icon = ?, sort_order = ? WHERE id = ?",
		c.MenuID, c.Title, c.URL, c.Description, c.Icon, c.SortOrder, c.ID)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return requireRow(res)
}

func (d *DB) DeleteCard(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM cards WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return requireRow(res)
}

// --- tags ---

func (d *DB) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT id, name, COALESCE(color, '') FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0)
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (d *DB) CreateTag(ctx context.Context, t model.Tag) (int64, error) {
	res, err := d.db.ExecContext(ctx, "INSERT INTO tags (name, color) VALUES (?, ?)", t.Name, t.Color)
	if err != nil {
		return 0, fmt.Errorf("create tag: %w", err)
	}
	return res.LastInsertId()
}

func (d *DB) UpdateTag(ctx context.Context, t model.Tag) error {
	res, err := d.db.ExecContext(ctx, "UPDATE tags SET name = ?, color = ? WHERE id = ?", t.Name, t.Color, t.ID)
	if err != nil {
		return fmt.Errorf("update tag: %w", err)
	}
	return requireRow(res)
}

func (d *DB) DeleteTag(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return requireRow(res)
}

// ErrNotFound is returned when a row targeted by an update or delete does not exist
var ErrNotFound = sql.ErrNoRows

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
