// Package postgres implements the store against PostgreSQL using the
// pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mnemocard/mnemocard/internal/model"
	"github.com/mnemocard/mnemocard/internal/store"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Open opens a PostgreSQL connection and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
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
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// NewWithDB constructs a Postgres store backed by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Users() store.Users             { return &users{db: s.db} }
func (s *pgStore) Collections() store.Collections { return &collections{db: s.db} }
func (s *pgStore) Cards() store.Cards             { return &cards{db: s.db} }

// HealthPing reports database connectivity.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) error {
	_, err := u.db.ExecContext(ctx, `
        INSERT INTO users (user_id, username, locale, collections, cards, menu_id, page_level, session)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    `, m.UserID, m.Username, m.Locale, m.Collections, m.Cards, m.MenuID, m.PageLevel, m.Session)
	return err
}

func (u *users) Get(ctx context.Context, userID int64) (*model.User, error) {
	var out model.User
	row := u.db.QueryRowContext(ctx, `
        SELECT user_id, username, locale, collections, cards, menu_id, page_level, session
        FROM users WHERE user_id=$1
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
	return u.exec(ctx, `UPDATE users SET locale=$1 WHERE user_id=$2`, locale, userID)
}

func (u *users) SetSession(ctx context.Context, userID int64, session *string) error {
	return u.exec(ctx, `UPDATE users SET session=$1 WHERE user_id=$2`, session, userID)
}

func (u *users) SetMenuID(ctx context.Context, userID, menuID int64) error {
	return u.exec(ctx, `UPDATE users SET menu_id=$1 WHERE user_id=$2`, menuID, userID)
}

func (u *users) SetPageLevel(ctx context.Context, userID int64, level int) error {
	return u.exec(ctx, `UPDATE users SET page_level=$1 WHERE user_id=$2`, level, userID)
}

func (u *users) AddCounts(ctx context.Context, userID int64, collections, cards int) error {
	return u.exec(ctx, `
        UPDATE users SET collections = collections + $1, cards = cards + $2 WHERE user_id=$3
    `, collections, cards, userID)
}

func (u *users) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := u.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return notFoundIfZero(res)
}

// --- Collections ---

type collections struct{ db *sql.DB }

func (c *collections) Create(ctx context.Context, m *model.Collection) error {
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO collections (user_id, key, name, description, cards, page_level)
        VALUES ($1,$2,$3,$4,$5,$6)
    `, m.UserID, m.Key, m.Name, m.Description, m.Cards, m.PageLevel)
	return err
}

func (c *collections) Get(ctx context.Context, userID int64, key string) (*model.Collection, error) {
	return c.get(ctx, `
        SELECT user_id, key, name, description, cards, page_level
        FROM collections WHERE user_id=$1 AND key=$2
    `, userID, key)
}

func (c *collections) FindByKey(ctx context.Context, key string) (*model.Collection, error) {
	return c.get(ctx, `
        SELECT user_id, key, name, description, cards, page_level
        FROM collections WHERE key=$1 LIMIT 1
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
        FROM collections WHERE user_id=$1 ORDER BY id
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
	return c.exec(ctx, `UPDATE collections SET name=$1 WHERE user_id=$2 AND key=$3`, name, userID, key)
}

func (c *collections) SetDescription(ctx context.Context, userID int64, key, description string) error {
	return c.exec(ctx, `UPDATE collections SET description=$1 WHERE user_id=$2 AND key=$3`, description, userID, key)
}

func (c *collections) SetPageLevel(ctx context.Context, userID int64, key string, level int) error {
	return c.exec(ctx, `UPDATE collections SET page_level=$1 WHERE user_id=$2 AND key=$3`, level, userID, key)
}

func (c *collections) AddCards(ctx context.Context, userID int64, key string, delta int) error {
	return c.exec(ctx, `UPDATE collections SET cards = cards + $1 WHERE user_id=$2 AND key=$3`, delta, userID, key)
}

func (c *collections) Delete(ctx context.Context, userID int64, key string) (int, error) {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE user_id=$1 AND key=$2`, userID, key)
	if err != nil {
		return 0, err
	}
	cardsDeleted, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM collections WHERE user_id=$1 AND key=$2`, userID, key)
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

// --- Cards ---

type cards struct{ db *sql.DB }

func (c *cards) Create(ctx context.Context, m *model.Card) error {
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO cards (user_id, key, card_key, name, description, repetition, difficulty, next_repetition_date, easy_factor)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, m.UserID, m.Key, m.CardKey, m.Name, m.Description, m.Repetition, m.Difficulty, m.NextRepetitionDate, m.EasyFactor)
	return err
}

func (c *cards) Get(ctx context.Context, userID int64, key, cardKey string) (*model.Card, error) {
	var out model.Card
	row := c.db.QueryRowContext(ctx, `
        SELECT user_id, key, card_key, name, description, repetition, difficulty, next_repetition_date, easy_factor
        FROM cards WHERE user_id=$1 AND key=$2 AND card_key=$3
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
        FROM cards WHERE user_id=$1 AND key=$2 ORDER BY id
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
	return c.exec(ctx, `UPDATE cards SET name=$1 WHERE user_id=$2 AND key=$3 AND card_key=$4`, name, userID, key, cardKey)
}

func (c *cards) SetDescription(ctx context.Context, userID int64, key, cardKey, description string) error {
	return c.exec(ctx, `UPDATE cards SET description=$1 WHERE user_id=$2 AND key=$3 AND card_key=$4`, description, userID, key, cardKey)
}

func (c *cards) SetReview(ctx context.Context, userID int64, key, cardKey string, repetition, difficulty int, nextRepetitionDate int64, easyFactor float64) error {
	return c.exec(ctx, `
        UPDATE cards SET repetition=$1, difficulty=$2, next_repetition_date=$3, easy_factor=$4
        WHERE user_id=$5 AND key=$6 AND card_key=$7
    `, repetition, difficulty, nextRepetitionDate, easyFactor, userID, key, cardKey)
}

func (c *cards) Delete(ctx context.Context, userID int64, key, cardKey string) error {
	return c.exec(ctx, `DELETE FROM cards WHERE user_id=$1 AND key=$2 AND card_key=$3`, userID, key, cardKey)
}

func (c *cards) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return notFoundIfZero(res)
}

// notFoundIfZero maps an update that touched no rows to ErrNotFound so
// guard failures surface uniformly across drivers.
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
