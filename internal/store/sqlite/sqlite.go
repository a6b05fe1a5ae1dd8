// Package sqlite implements the store against a local SQLite file.
// It is the default driver for development and single-node setups.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/mnemocard/mnemocard/internal/model"
	"github.com/mnemocard/mnemocard/internal/store"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Open opens (or creates) a SQLite database at the given path and
// enables WAL journal mode.
func Open(path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies pending schema migrations.
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// NewWithDB constructs a SQLite store backed by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &liteStore{db: db} }

type liteStore struct{ db *sql.DB }

// HealthPing reports database connectivity.
func (s *liteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *liteStore) Users() store.Users             { return &users{db: s.db} }
func (s *liteStore) Collections() store.Collections { return &collections{db: s.db} }
func (s *liteStore) Cards() store.Cards             { return &cards{db: s.db} }

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) error {
	_, err := u.db.ExecContext(ctx, `
        INSERT INTO users (user_id, username, locale, collections, cards, menu_id, page_level, session)
        VALUES (?,?,?,?,?,?,?,?)
    `, m.UserID, m.Username, m.Locale, m.Collections, m.Cards, m.MenuID, m.PageLevel, m.Session)
	return err
}

func (u *users) Get(ctx context.Context, userID int64) (*model.User, error) {
	var out model.User
	row := u.db.QueryRowContext(ctx, `
        SELECT user_id, username, locale, collections, cards, menu_id, page_level, session
        FROM users WHERE user_id=?
    `, userID)
	err := row.Scan(&out.UserID, &out.Username, &out.Locale, &out.Collections, &out.Cards, &out.MenuID, &out.PageLevel, &out.Session)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *users) SetLocale(ctx context.Context, userID int64, locale string) error {
	return u.exec(ctx, `UPDATE users SET locale=? WHERE user_id=?`, locale, userID)
}

func (u *users) SetSession(ctx context.Context, userID int64, session *string) error {
	return u.exec(ctx, `UPDATE users SET session=? WHERE user_id=?`, session, userID)
}

func (u *users) SetMenuID(ctx context.Context, userID, menuID int64) error {
	return u.exec(ctx, `UPDATE users SET menu_id=? WHERE user_id=?`, menuID, userID)
}

func (u *users) SetPageLevel(ctx context.Context, userID int64, level int) error {
	return u.exec(ctx, `UPDATE users SET page_level=? WHERE user_id=?`, level, userID)
}

func (u *users) AddCounts(ctx context.Context, userID int64, collections, cards int) error {
	return u.exec(ctx, `
        UPDATE users SET collections = collections + ?, cards = cards + ? WHERE user_id=?
    `, collections, cards, userID)
}

func (u *users) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := u.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return notFoundIfZero(res)
}

type collections struct{ db *sql.DB }

func (c *collections) Create(ctx context.Context, m *model.Collection) error {
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO collections (user_id, key, name, description, cards, page_level)
        VALUES (?,?,?,?,?,?)
    `, m.UserID, m.Key, m.Name, m.Description, m.Cards, m.PageLevel)
	return err
}

func (c *collections) Get(ctx context.Context, userID int64, key string) (*model.Collection, error) {
	return c.get(ctx, `
        SELECT user_id, key, name, description, cards, page_level
        FROM collections WHERE user_id=? AND key=?
    `, userID, key)
}

func (c *collections) FindByKey(ctx context.Context, key string) (*model.Collection, error) {
	return c.get(ctx, `
        SELECT user_id, key, name, description, cards, page_level
        FROM collections WHERE key=? LIMIT 1
    `, key)
}

func (c *collections) get(ctx context.Context, query string, args ...interface{}) (*model.Collection, error) {
	var out model.Collection
	row := c.db.QueryRowContext(ctx, query, args...)
	err := row.Scan(&out.UserID, &out.Key, &out.Name, &out.Description, &out.Cards, &out.PageLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *collections) List(ctx context.Context, userID int64) ([]*model.Collection, error) {
	rows, err := c.db.QueryContext(ctx, `
        SELECT user_id, key, name, description, cards, page_level
        FROM collections WHERE user_id=? ORDER BY id
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Collection
	for rows.Next() {
		var m model.Collection
		if err := rows.Scan(&m.UserID, &m.Key, &m.Name, &m.Description, &m.Cards, &m.PageLevel); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (c *collections) SetName(ctx context.Context, userID int64, key, name string) error {
	return c.exec(ctx, `UPDATE collections SET name=? WHERE user_id=? AND key=?`, name, userID, key)
}

func (c *collections) SetDescription(ctx context.Context, userID int64, key, description string) error {
	return c.exec(ctx, `UPDATE collections SET description=? WHERE user_id=? AND key=?`, description, userID, key)
}

func (c *collections) SetPageLevel(ctx context.Context, userID int64, key string, level int) error {
	return c.exec(ctx, `UPDATE collections SET page_level=? WHERE user_id=? AND key=?`, level, userID, key)
}

func (c *collections) AddCards(ctx context.Context, userID int64, key string, delta int) error {
	return c.exec(ctx, `UPDATE collections SET cards = cards + ? WHERE user_id=? AND key=?`, delta, userID, key)
}

func (c *collections) Delete(ctx context.Context, userID int64, key string) (int, error) {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE user_id=? AND key=?`, userID, key)
	if err != nil {
		return 0, err
	}
	cardsDeleted, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM collections WHERE user_id=? AND key=?`, userID, key)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, model.ErrNotFound
	}
	return int(cardsDeleted), tx.Commit()
}

func (c *collections) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return notFoundIfZero(res)
}

type cards struct{ db *sql.DB }

func (c *cards) Create(ctx context.Context, m *model.Card) error {
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO cards (user_id, key, card_key, name, description, repetition, difficulty, next_repetition_date, easy_factor)
        VALUES (?,?,?,?,?,?,?,?,?)
    `, m.UserID, m.Key, m.CardKey, m.Name, m.Description, m.Repetition, m.Difficulty, m.NextRepetitionDate, m.EasyFactor)
	return err
}

func (c *cards) Get(ctx context.Context, userID int64, key, cardKey string) (*model.Card, error) {
	var out model.Card
	row := c.db.QueryRowContext(ctx, `
        SELECT user_id, key, card_key, name, description, repetition, difficulty, next_repetition_date, easy_factor
        FROM cards WHERE user_id=? AND key=? AND card_key=?
    `, userID, key, cardKey)
	err := row.Scan(&out.UserID, &out.Key, &out.CardKey, &out.Name, &out.Description, &out.Repetition, &out.Difficulty, &out.NextRepetitionDate, &out.EasyFactor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *cards) List(ctx context.Context, userID int64, key string) ([]*model.Card, error) {
	rows, err := c.db.QueryContext(ctx, `
        SELECT user_id, key, card_key, name, description, repetition, difficulty, next_repetition_date, easy_factor
        FROM cards WHERE user_id=? AND key=? ORDER BY id
    `, userID, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Card
	for rows.Next() {
		var m model.Card
		if err := rows.Scan(&m.UserID, &m.Key, &m.CardKey, &m.Name, &m.Description, &m.Repetition, &m.Difficulty, &m.NextRepetitionDate, &m.EasyFactor); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (c *cards) SetName(ctx context.Context, userID int64, key, cardKey, name string) error {
	return c.exec(ctx, `UPDATE cards SET name=? WHERE user_id=? AND key=? AND card_key=?`, name, userID, key, cardKey)
}

func (c *cards) SetDescription(ctx context.Context, userID int64, key, cardKey, description string) error {
	return c.exec(ctx, `UPDATE cards SET description=? WHERE user_id=? AND key=? AND card_key=?`, description, userID, key, cardKey)
}

func (c *cards) SetReview(ctx context.Context, userID int64, key, cardKey string, repetition, difficulty int, nextRepetitionDate int64, easyFactor float64) error {
	return c.exec(ctx, `
        UPDATE cards SET repetition=?, difficulty=?, next_repetition_date=?, easy_factor=?
        WHERE user_id=? AND key=? AND card_key=?
    `, repetition, difficulty, nextRepetitionDate, easyFactor, userID, key, cardKey)
}

func (c *cards) Delete(ctx context.Context, userID int64, key, cardKey string) error {
	return c.exec(ctx, `DELETE FROM cards WHERE user_id=? AND key=? AND card_key=?`, userID, key, cardKey)
}

func (c *cards) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return notFoundIfZero(res)
}

func notFoundIfZero(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
