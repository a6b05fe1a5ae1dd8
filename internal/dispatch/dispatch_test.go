package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemocard/mnemocard/internal/i18n"
	"github.com/mnemocard/mnemocard/internal/menu"
	"github.com/mnemocard/mnemocard/internal/model"
	"github.com/mnemocard/mnemocard/internal/store"
	"github.com/mnemocard/mnemocard/internal/telegram"
)

var testNow = time.Unix(1700000000, 0)

// --- fakes ---

type fakeStore struct {
	users       map[int64]*model.User
	collections []*model.Collection
	cards       []*model.Card
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*model.User)}
}

func (f *fakeStore) HealthPing(context.Context) error { return nil }

func (f *fakeStore) Users() store.Users             { return &fakeUsers{f} }
func (f *fakeStore) Collections() store.Collections { return &fakeCollections{f} }
func (f *fakeStore) Cards() store.Cards             { return &fakeCards{f} }

type fakeUsers struct{ f *fakeStore }

func (u *fakeUsers) Create(_ context.Context, m *model.User) error {
	cp := *m
	u.f.users[m.UserID] = &cp
	return nil
}

func (u *fakeUsers) Get(_ context.Context, userID int64) (*model.User, error) {
	if m, ok := u.f.users[userID]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, model.ErrNotFound
}

func (u *fakeUsers) SetLocale(_ context.Context, userID int64, locale string) error {
	return u.mutate(userID, func(m *model.User) { m.Locale = locale })
}

func (u *fakeUsers) SetSession(_ context.Context, userID int64, session *string) error {
	return u.mutate(userID, func(m *model.User) { m.Session = session })
}

func (u *fakeUsers) SetMenuID(_ context.Context, userID, menuID int64) error {
	return u.mutate(userID, func(m *model.User) { m.MenuID = menuID })
}

func (u *fakeUsers) SetPageLevel(_ context.Context, userID int64, level int) error {
	return u.mutate(userID, func(m *model.User) { m.PageLevel = level })
}

func (u *fakeUsers) AddCounts(_ context.Context, userID int64, collections, cards int) error {
	return u.mutate(userID, func(m *model.User) {
		m.Collections += collections
		m.Cards += cards
	})
}

func (u *fakeUsers) mutate(userID int64, fn func(*model.User)) error {
	m, ok := u.f.users[userID]
	if !ok {
		return model.ErrNotFound
	}
	fn(m)
	return nil
}

type fakeCollections struct{ f *fakeStore }

func (c *fakeCollections) Create(_ context.Context, m *model.Collection) error {
	cp := *m
	c.f.collections = append(c.f.collections, &cp)
	return nil
}

func (c *fakeCollections) Get(_ context.Context, userID int64, key string) (*model.Collection, error) {
	for _, m := range c.f.collections {
		if m.UserID == userID && m.Key == key {
			cp := *m
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (c *fakeCollections) FindByKey(_ context.Context, key string) (*model.Collection, error) {
	for _, m := range c.f.collections {
		if m.Key == key {
			cp := *m
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (c *fakeCollections) List(_ context.Context, userID int64) ([]*model.Collection, error) {
	var out []*model.Collection
	for _, m := range c.f.collections {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (c *fakeCollections) SetName(_ context.Context, userID int64, key, name string) error {
	return c.mutate(userID, key, func(m *model.Collection) { m.Name = name })
}

func (c *fakeCollections) SetDescription(_ context.Context, userID int64, key, description string) error {
	return c.mutate(userID, key, func(m *model.Collection) { m.Description = description })
}

func (c *fakeCollections) SetPageLevel(_ context.Context, userID int64, key string, level int) error {
	return c.mutate(userID, key, func(m *model.Collection) { m.PageLevel = level })
}

func (c *fakeCollections) AddCards(_ context.Context, userID int64, key string, delta int) error {
	return c.mutate(userID, key, func(m *model.Collection) { m.Cards += delta })
}

func (c *fakeCollections) Delete(_ context.Context, userID int64, key string) (int, error) {
	var kept []*model.Collection
	found := false
	for _, m := range c.f.collections {
		if m.UserID == userID && m.Key == key {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return 0, model.ErrNotFound
	}
	c.f.collections = kept

	var cards []*model.Card
	deleted := 0
	for _, card := range c.f.cards {
		if card.UserID == userID && card.Key == key {
			deleted++
			continue
		}
		cards = append(cards, card)
	}
	c.f.cards = cards
	return deleted, nil
}

func (c *fakeCollections) mutate(userID int64, key string, fn func(*model.Collection)) error {
	for _, m := range c.f.collections {
		if m.UserID == userID && m.Key == key {
			fn(m)
			return nil
		}
	}
	return model.ErrNotFound
}

type fakeCards struct{ f *fakeStore }

func (c *fakeCards) Create(_ context.Context, m *model.Card) error {
	cp := *m
	c.f.cards = append(c.f.cards, &cp)
	return nil
}

func (c *fakeCards) Get(_ context.Context, userID int64, key, cardKey string) (*model.Card, error) {
	for _, m := range c.f.cards {
		if m.UserID == userID && m.Key == key && m.CardKey == cardKey {
			cp := *m
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (c *fakeCards) List(_ context.Context, userID int64, key string) ([]*model.Card, error) {
	var out []*model.Card
	for _, m := range c.f.cards {
		if m.UserID == userID && m.Key == key {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (c *fakeCards) SetName(_ context.Context, userID int64, key, cardKey, name string) error {
	return c.mutate(userID, key, cardKey, func(m *model.Card) { m.Name = name })
}

func (c *fakeCards) SetDescription(_ context.Context, userID int64, key, cardKey, description string) error {
	return c.mutate(userID, key, cardKey, func(m *model.Card) { m.Description = description })
}

func (c *fakeCards) SetReview(_ context.Context, userID int64, key, cardKey string, repetition, difficulty int, nextRepetitionDate int64, easyFactor float64) error {
	return c.mutate(userID, key, cardKey, func(m *model.Card) {
		m.Repetition = repetition
		m.Difficulty = difficulty
		m.NextRepetitionDate = nextRepetitionDate
		m.EasyFactor = easyFactor
	})
}

func (c *fakeCards) Delete(_ context.Context, userID int64, key, cardKey string) error {
	var kept []*model.Card
	found := false
	for _, m := range c.f.cards {
		if m.UserID == userID && m.Key == key && m.CardKey == cardKey {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return model.ErrNotFound
	}
	c.f.cards = kept
	return nil
}

func (c *fakeCards) mutate(userID int64, key, cardKey string, fn func(*model.Card)) error {
	for _, m := range c.f.cards {
		if m.UserID == userID && m.Key == key && m.CardKey == cardKey {
			fn(m)
			return nil
		}
	}
	return model.ErrNotFound
}

type editCall struct {
	chatID    int64
	messageID int64
	render    menu.Render
}

type answerCall struct {
	callbackID string
	text       string
	alert      bool
}

type fakeSender struct {
	sent    []menu.Render
	edits   []editCall
	answers []answerCall
}

func (s *fakeSender) SendMenu(_ context.Context, _ int64, r menu.Render) (int64, error) {
	s.sent = append(s.sent, r)
	return int64(1000 + len(s.sent)), nil
}

func (s *fakeSender) EditMenu(_ context.Context, chatID, messageID int64, r menu.Render) error {
	s.edits = append(s.edits, editCall{chatID: chatID, messageID: messageID, render: r})
	return nil
}

func (s *fakeSender) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	s.answers = append(s.answers, answerCall{callbackID: callbackID, text: text, alert: alert})
	return nil
}

// --- harness ---

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeStore, *fakeSender) {
	t.Helper()
	catalog, err := i18n.Load()
	require.NoError(t, err)

	st := newFakeStore()
	sender := &fakeSender{}
	d := New(st, sender, catalog, zerolog.Nop(), 0)
	d.now = func() time.Time { return testNow }
	d.newKey = func(kind keyKind) string { return "K-fixed-z-" + string(kind) }
	return d, st, sender
}

func seedUser(st *fakeStore, userID int64) *model.User {
	user := &model.User{UserID: userID, Locale: "en"}
	st.users[userID] = user
	return user
}

func callback(userID, messageID int64, data string) *telegram.Update {
	return &telegram.Update{
		CallbackQuery: &telegram.CallbackQuery{
			ID:      "cb-1",
			From:    telegram.User{ID: userID},
			Message: &telegram.Message{MessageID: messageID, Chat: telegram.Chat{ID: userID}},
			Data:    data,
		},
	}
}

func textMessage(userID int64, text string) *telegram.Update {
	return &telegram.Update{
		Message: &telegram.Message{
			MessageID: 5,
			Chat:      telegram.Chat{ID: userID},
			From:      &telegram.User{ID: userID, Username: "learner", LanguageCode: "ru"},
			Text:      text,
		},
	}
}

func buttonData(r menu.Render) []string {
	var out []string
	for _, row := range r.Buttons {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

// --- tests ---

func TestStartBootstrapsUser(t *testing.T) {
	d, st, sender := newTestDispatcher(t)

	d.HandleUpdate(context.Background(), textMessage(7, "/start"))

	user, ok := st.users[7]
	require.True(t, ok)
	assert.Equal(t, "learner", user.Username)
	assert.Equal(t, "ru", user.Locale)

	require.Len(t, sender.sent, 2)
	assert.Contains(t, buttonData(sender.sent[1]), "CoLSe/collections")
	assert.Contains(t, buttonData(sender.sent[1]), "MnSe/settings")
}

func TestStartKeepsExistingUser(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	seedUser(st, 7)

	d.HandleUpdate(context.Background(), textMessage(7, "/start"))

	// locale from the platform code must not overwrite the stored choice
	assert.Equal(t, "en", st.users[7].Locale)
	assert.Len(t, sender.sent, 2)
}

func TestGuardMissingCollectionIsIdempotent(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	seedUser(st, 7)

	for i := 0; i < 2; i++ {
		d.HandleUpdate(context.Background(), callback(7, 42, "CoLSe/info/K-gone-a-CL"))
	}

	require.Len(t, sender.answers, 2)
	for _, a := range sender.answers {
		assert.True(t, a.alert)
		assert.Contains(t, a.text, "no longer exists")
	}
	assert.Empty(t, sender.edits)
	assert.Empty(t, st.collections)
	assert.Nil(t, st.users[7].Session)
}

func TestCardGuardRequiresCollection(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	seedUser(st, 7)
	// card row exists but its parent collection is gone
	st.cards = append(st.cards, &model.Card{UserID: 7, Key: "K-a-a-CL", CardKey: "K-b-b-CR", Name: "orphan"})

	d.HandleUpdate(context.Background(), callback(7, 42, "CaRSe/info/K-a-a-CL/K-b-b-CR"))

	require.Len(t, sender.answers, 1)
	assert.True(t, sender.answers[0].alert)
	assert.Empty(t, sender.edits)
}

func TestDrillIssuesWeakestCard(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	seedUser(st, 7)
	st.collections = append(st.collections, &model.Collection{UserID: 7, Key: "K-c-c-CL", Name: "Verbs", Cards: 3})
	st.cards = append(st.cards,
		&model.Card{UserID: 7, Key: "K-c-c-CL", CardKey: "c1", Name: "hablar", NextRepetitionDate: 300},
		&model.Card{UserID: 7, Key: "K-c-c-CL", CardKey: "c2", Name: "comer", NextRepetitionDate: 100},
		&model.Card{UserID: 7, Key: "K-c-c-CL", CardKey: "c3", Name: "vivir", NextRepetitionDate: 100},
	)

	d.HandleUpdate(context.Background(), callback(7, 42, "CaRSe/collection_learning/K-c-c-CL"))

	require.Len(t, sender.edits, 1)
	// c2 wins the tie with c3 by insertion order
	assert.Equal(t, "comer", sender.edits[0].render.Title)
	assert.Contains(t, buttonData(sender.edits[0].render), "CaRSe/show_answer/K-c-c-CL/c2")
}

func TestDrillGradingUpdatesReviewState(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	seedUser(st, 7)
	st.collections = append(st.collections, &model.Collection{UserID: 7, Key: "K-c-c-CL", Name: "Verbs", Cards: 2})
	st.cards = append(st.cards,
		&model.Card{UserID: 7, Key: "K-c-c-CL", CardKey: "c1", Name: "hablar", Difficulty: 4, Repetition: 2, EasyFactor: 2.5, NextRepetitionDate: 100},
		&model.Card{UserID: 7, Key: "K-c-c-CL", CardKey: "c2", Name: "comer", Difficulty: 0, Repetition: 0, EasyFactor: 2.5, NextRepetitionDate: 200},
	)

	d.HandleUpdate(context.Background(), callback(7, 42, "CaRSe/correct_answer/K-c-c-CL/c1"))

	var c1 *model.Card
	for _, c := range st.cards {
		if c.CardKey == "c1" {
			c1 = c
		}
	}
	require.NotNil(t, c1)
	assert.Equal(t, 5, c1.Difficulty)
	assert.Equal(t, 3, c1.Repetition)
	assert.InDelta(t, 2.6, c1.EasyFactor, 1e-9)
	assert.LessOrEqual(t, c1.NextRepetitionDate, testNow.Unix()+172800)
	assert.Greater(t, c1.NextRepetitionDate, testNow.Unix())

	// the next drill card is re-issued in the same turn
	require.Len(t, sender.edits, 1)
	assert.Equal(t, "comer", sender.edits[0].render.Title)
}

func TestLearningEmptyCollectionAlerts(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	seedUser(st, 7)
	st.collections = append(st.collections, &model.Collection{UserID: 7, Key: "K-c-c-CL", Name: "Empty"})

	d.HandleUpdate(context.Background(), callback(7, 42, "CaRSe/collection_learning/K-c-c-CL"))

	require.Len(t, sender.answers, 1)
	assert.True(t, sender.answers[0].alert)
	assert.Contains(t, sender.answers[0].text, "no cards")
	assert.Empty(t, sender.edits)
}

func TestCollectionDeleteCascadesAndClamps(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	user := seedUser(st, 7)
	user.Collections = 9
	user.Cards = 4
	user.PageLevel = 1

	st.collections = append(st.collections, &model.Collection{UserID: 7, Key: "K-c-c-CL", Name: "Verbs", Cards: 4})
	for i := 0; i < 8; i++ {
		st.collections = append(st.collections, &model.Collection{UserID: 7, Key: "other", Name: "x"})
	}
	st.cards = append(st.cards,
		&model.Card{UserID: 7, Key: "K-c-c-CL", CardKey: "c1"},
		&model.Card{UserID: 7, Key: "K-c-c-CL", CardKey: "c2"},
		&model.Card{UserID: 7, Key: "K-c-c-CL", CardKey: "c3"},
		&model.Card{UserID: 7, Key: "K-c-c-CL", CardKey: "c4"},
	)

	d.HandleUpdate(context.Background(), callback(7, 42, "CoLSe/confirm_delete/K-c-c-CL"))

	assert.Equal(t, 8, st.users[7].Collections)
	assert.Equal(t, 0, st.users[7].Cards)
	// 8 collections fit one page, so level 1 is out of range now
	assert.Equal(t, 0, st.users[7].PageLevel)

	require.Len(t, sender.edits, 1)
	assert.Contains(t, sender.edits[0].render.Title, "deleted")
}

func TestCardDeleteReclampsCollectionPageLevel(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	user := seedUser(st, 7)
	user.Cards = 1

	st.collections = append(st.collections, &model.Collection{UserID: 7, Key: "K-c-c-CL", Name: "Verbs", Cards: 1, PageLevel: 2})
	st.cards = append(st.cards, &model.Card{UserID: 7, Key: "K-c-c-CL", CardKey: "c1", Name: "last"})

	d.HandleUpdate(context.Background(), callback(7, 42, "CaRSe/confirm_delete/K-c-c-CL/c1"))

	assert.Empty(t, st.cards)
	assert.Equal(t, 0, st.users[7].Cards)
	require.Len(t, st.collections, 1)
	assert.Equal(t, 0, st.collections[0].Cards)
	assert.Equal(t, 0, st.collections[0].PageLevel)
	require.Len(t, sender.edits, 1)
}

func TestAddCollectionOpensPendingSession(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	seedUser(st, 7)

	d.HandleUpdate(context.Background(), callback(7, 42, "CoLSe/add_collection"))

	require.NotNil(t, st.users[7].Session)
	assert.Equal(t, "UsrCoLSe/create/K-fixed-z-CL", *st.users[7].Session)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Title, "collection name")
}

func TestPendingCreateCollection(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	sess := "UsrCoLSe/create/K-fresh-a-CL"
	seedUser(st, 7).Session = &sess

	d.HandleUpdate(context.Background(), textMessage(7, "Spanish Verbs"))

	require.Len(t, st.collections, 1)
	assert.Equal(t, "K-fresh-a-CL", st.collections[0].Key)
	assert.Equal(t, "Spanish Verbs", st.collections[0].Name)
	assert.Equal(t, 1, st.users[7].Collections)
	assert.Nil(t, st.users[7].Session)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, buttonData(sender.sent[0]), "CoLSe/info/K-fresh-a-CL")
}

func TestPendingCreateCopiesByPublicKey(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	sess := "UsrCoLSe/create/K-fresh-a-CL"
	seedUser(st, 7).Session = &sess

	st.collections = append(st.collections, &model.Collection{UserID: 99, Key: "K-src-b-CL", Name: "Espanol", Cards: 2})
	st.cards = append(st.cards,
		&model.Card{UserID: 99, Key: "K-src-b-CL", CardKey: "c1", Name: "gato", Description: "cat", Repetition: 4, Difficulty: 5, EasyFactor: 2.1, NextRepetitionDate: testNow.Unix() + 3600},
		&model.Card{UserID: 99, Key: "K-src-b-CL", CardKey: "c2", Name: "perro"},
	)

	d.HandleUpdate(context.Background(), textMessage(7, "K-src-b-CL"))

	var copied *model.Collection
	for _, c := range st.collections {
		if c.UserID == 7 {
			copied = c
		}
	}
	require.NotNil(t, copied)
	assert.Equal(t, "K-fixed-z-CL", copied.Key)
	assert.Equal(t, "Espanol - Copy", copied.Name)
	assert.Equal(t, 2, copied.Cards)

	ownCards := 0
	for _, c := range st.cards {
		if c.UserID == 7 && c.Key == copied.Key {
			ownCards++
			if c.CardKey == "c1" {
				// content and due date travel, review state does not
				assert.Equal(t, "gato", c.Name)
				assert.Equal(t, "cat", c.Description)
				assert.Equal(t, testNow.Unix()+3600, c.NextRepetitionDate)
				assert.Equal(t, 0, c.Repetition)
				assert.Equal(t, 0, c.Difficulty)
				assert.Equal(t, 2.5, c.EasyFactor)
			}
		}
	}
	assert.Equal(t, 2, ownCards)
	assert.Equal(t, 1, st.users[7].Collections)
	assert.Equal(t, 2, st.users[7].Cards)
	assert.Nil(t, st.users[7].Session)
	require.Len(t, sender.sent, 1)
}

func TestPendingCreateCardSetsReviewDefaults(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	sess := "UsrCaRSe/create/K-c-c-CL/K-new-d-CR"
	seedUser(st, 7).Session = &sess
	st.collections = append(st.collections, &model.Collection{UserID: 7, Key: "K-c-c-CL", Name: "Verbs"})

	d.HandleUpdate(context.Background(), textMessage(7, "hablar"))

	require.Len(t, st.cards, 1)
	card := st.cards[0]
	assert.Equal(t, "K-new-d-CR", card.CardKey)
	assert.Equal(t, "hablar", card.Name)
	assert.Equal(t, newCardDescription, card.Description)
	assert.Equal(t, testNow.Unix(), card.NextRepetitionDate)
	assert.InDelta(t, 2.5, card.EasyFactor, 1e-9)

	assert.Equal(t, 1, st.users[7].Cards)
	assert.Equal(t, 1, st.collections[0].Cards)
	assert.Nil(t, st.users[7].Session)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, buttonData(sender.sent[0]), "CaRSe/info/K-c-c-CL/K-new-d-CR")
}

func TestEditNameFlowEditsPinnedMenu(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	seedUser(st, 7)
	st.collections = append(st.collections, &model.Collection{UserID: 7, Key: "K-c-c-CL", Name: "Old", Description: "d"})

	d.HandleUpdate(context.Background(), callback(7, 42, "CoLSe/edit_name/K-c-c-CL"))

	require.NotNil(t, st.users[7].Session)
	assert.Equal(t, "UsrCoLSe/edit_name/K-c-c-CL", *st.users[7].Session)
	assert.Equal(t, int64(42), st.users[7].MenuID)

	d.HandleUpdate(context.Background(), textMessage(7, "New Name"))

	assert.Equal(t, "New Name", st.collections[0].Name)
	assert.Nil(t, st.users[7].Session)

	// confirmation message plus the pinned menu rewritten in place
	require.Len(t, sender.sent, 2)
	require.Len(t, sender.edits, 1)
	assert.Equal(t, int64(42), sender.edits[0].messageID)
	assert.Contains(t, sender.edits[0].render.Title, "New Name")
}

func TestDurableSessionWinsOverButtonPayload(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	sess := "UsrCoLSe/create/K-fresh-a-CL"
	seedUser(st, 7).Session = &sess
	st.collections = append(st.collections, &model.Collection{UserID: 7, Key: "K-c-c-CL", Name: "Verbs"})

	d.HandleUpdate(context.Background(), callback(7, 42, "CoLSe/info/K-c-c-CL"))

	// pending session swallows the press: acknowledged, nothing else
	require.Len(t, sender.answers, 1)
	assert.Empty(t, sender.edits)
	assert.Equal(t, sess, *st.users[7].Session)
}

func TestUnknownHeaderAndActionNoOp(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	seedUser(st, 7)

	d.HandleUpdate(context.Background(), callback(7, 42, "ZzSe/whatever"))
	d.HandleUpdate(context.Background(), callback(7, 42, "MnSe/definitely_not_an_action"))

	assert.Len(t, sender.answers, 2)
	assert.Empty(t, sender.edits)
	assert.Empty(t, sender.sent)
	assert.Empty(t, st.collections)
}

func TestLocaleSwitch(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	seedUser(st, 7)

	d.HandleUpdate(context.Background(), callback(7, 42, "MnSe/change_language_to_ru"))

	assert.Equal(t, "ru", st.users[7].Locale)
	require.Len(t, sender.edits, 1)
	assert.Contains(t, sender.edits[0].render.Title, "Русский")
}

func TestCancelCommandClearsSession(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	sess := "UsrCoLSe/create/K-fresh-a-CL"
	seedUser(st, 7).Session = &sess

	d.HandleUpdate(context.Background(), textMessage(7, "/cancel"))

	assert.Nil(t, st.users[7].Session)
	require.Len(t, sender.sent, 1)
}

func TestCollectionsListPaginates(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	user := seedUser(st, 7)
	user.PageLevel = 1
	for i := 0; i < 20; i++ {
		st.collections = append(st.collections, &model.Collection{UserID: 7, Key: "K-x", Name: "deck"})
	}

	d.HandleUpdate(context.Background(), callback(7, 42, "CoLSe/collections"))

	require.Len(t, sender.edits, 1)
	data := buttonData(sender.edits[0].render)
	assert.Contains(t, data, "CoLSe/level_00")
	assert.Contains(t, data, "CoLSe/add_collection")

	selected := 0
	for _, row := range sender.edits[0].render.Buttons {
		for _, b := range row {
			if strings.HasPrefix(b.Text, "• ") {
				selected++
				assert.Equal(t, "• 2 •", b.Text)
			}
		}
	}
	assert.Equal(t, 1, selected)
}

func TestLevelChangePersistsAndRerenders(t *testing.T) {
	d, st, sender := newTestDispatcher(t)
	seedUser(st, 7)
	for i := 0; i < 20; i++ {
		st.collections = append(st.collections, &model.Collection{UserID: 7, Key: "K-x", Name: "deck"})
	}

	d.HandleUpdate(context.Background(), callback(7, 42, "CoLSe/level_02"))

	assert.Equal(t, 2, st.users[7].PageLevel)
	require.Len(t, sender.edits, 1)
}
