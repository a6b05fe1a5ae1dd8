package store

import (
	"context"

	"github.com/mnemocard/mnemocard/internal/model"
)

// Store exposes persistence operations required by the dispatcher.
// Implementations live under internal/store/<driver>/ (postgres,
// sqlite) and must map a missing row to model.ErrNotFound.
type Store interface {
	Users() Users
	Collections() Collections
	Cards() Cards
	// HealthPing reports whether the backing database is reachable.
	HealthPing(ctx context.Context) error
}

type Users interface {
	Create(ctx context.Context, u *model.User) error
	Get(ctx context.Context, userID int64) (*model.User, error)
	SetLocale(ctx context.Context, userID int64, locale string) error
	// SetSession persists the durable session; nil clears it.
	SetSession(ctx context.Context, userID int64, session *string) error
	SetMenuID(ctx context.Context, userID, menuID int64) error
	SetPageLevel(ctx context.Context, userID int64, level int) error
	// AddCounts adjusts the denormalized owned-collection/card counters
	// by the given deltas.
	AddCounts(ctx context.Context, userID int64, collections, cards int) error
}

type Collections interface {
	Create(ctx context.Context, c *model.Collection) error
	Get(ctx context.Context, userID int64, key string) (*model.Collection, error)
	// FindByKey looks a collection up by public key without user
	// binding, for the copy-by-key flow.
	FindByKey(ctx context.Context, key string) (*model.Collection, error)
	List(ctx context.Context, userID int64) ([]*model.Collection, error)
	SetName(ctx context.Context, userID int64, key, name string) error
	SetDescription(ctx context.Context, userID int64, key, description string) error
	SetPageLevel(ctx context.Context, userID int64, key string, level int) error
	AddCards(ctx context.Context, userID int64, key string, delta int) error
	// Delete removes the collection and all of its cards in one
	// transaction and reports how many cards went with it.
	Delete(ctx context.Context, userID int64, key string) (cardsDeleted int, err error)
}

type Cards interface {
	Create(ctx context.Context, c *model.Card) error
	Get(ctx context.Context, userID int64, key, cardKey string) (*model.Card, error)
	// List returns the collection's cards in insertion order, so that
	// weakest-card ties resolve deterministically.
	List(ctx context.Context, userID int64, key string) ([]*model.Card, error)
	SetName(ctx context.Context, userID int64, key, cardKey, name string) error
	SetDescription(ctx context.Context, userID int64, key, cardKey, description string) error
	// SetReview writes back the spaced-repetition state after a drill.
	SetReview(ctx context.Context, userID int64, key, cardKey string, repetition, difficulty int, nextRepetitionDate int64, easyFactor float64) error
	Delete(ctx context.Context, userID int64, key, cardKey string) error
}
