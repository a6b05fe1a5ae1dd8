// Package dispatch routes inbound updates through the session state
// machine: decode the session, run the existence guards, execute the
// operation and emit a render instruction for the sender.
package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mnemocard/mnemocard/internal/i18n"
	"github.com/mnemocard/mnemocard/internal/menu"
	"github.com/mnemocard/mnemocard/internal/model"
	"github.com/mnemocard/mnemocard/internal/session"
	"github.com/mnemocard/mnemocard/internal/store"
	"github.com/mnemocard/mnemocard/internal/telegram"
)

// Sender delivers render instructions back to the chat. The concrete
// implementation lives in internal/telegram.
type Sender interface {
	SendMenu(ctx context.Context, chatID int64, r menu.Render) (int64, error)
	EditMenu(ctx context.Context, chatID, messageID int64, r menu.Render) error
	AnswerCallback(ctx context.Context, callbackID, text string, showAlert bool) error
}

// Dispatcher is the menu state machine. It is stateless between
// updates; all mutable state lives in the store.
type Dispatcher struct {
	store   store.Store
	sender  Sender
	catalog *i18n.Catalog
	log     zerolog.Logger
	perPage int

	now    func() time.Time
	newKey func(kind keyKind) string
}

// New builds a dispatcher. perPage bounds list pages; zero or negative
// selects the default.
func New(s store.Store, sender Sender, catalog *i18n.Catalog, log zerolog.Logger, perPage int) *Dispatcher {
	if perPage <= 0 {
		perPage = menu.DefaultPerPage
	}
	return &Dispatcher{
		store:   s,
		sender:  sender,
		catalog: catalog,
		log:     log,
		perPage: perPage,
		now:     time.Now,
		newKey:  generateKey,
	}
}

// event carries everything a handler needs about one inbound update.
type event struct {
	user       *model.User
	sess       session.Session
	messageID  int64 // menu message for edits, zero on plain messages
	callbackID string
	text       string // free-text payload, empty on button presses
}

// HandleUpdate is the single entry point for inbound updates. Routing
// failures are logged no-ops: a chat interface has no place to surface
// a malformed payload.
func (d *Dispatcher) HandleUpdate(ctx context.Context, u *telegram.Update) {
	switch {
	case u.Message != nil && strings.HasPrefix(u.Message.Text, "/"):
		d.handleCommand(ctx, u.Message)
	case u.Message != nil:
		d.handleText(ctx, u.Message)
	case u.CallbackQuery != nil:
		d.handleCallback(ctx, u.CallbackQuery)
	default:
		d.log.Debug().Int64("update_id", u.UpdateID).Msg("update carries no message or callback")
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, m *telegram.Message) {
	switch command(m.Text) {
	case "/start":
		d.startCommand(ctx, m)
	case "/settings":
		if user := d.loadUser(ctx, m.Chat.ID); user != nil {
			d.send(ctx, user.UserID, d.settingsRender(user.Locale))
		}
	case "/collections":
		if user := d.loadUser(ctx, m.Chat.ID); user != nil {
			d.send(ctx, user.UserID, d.collectionsRender(ctx, user))
		}
	case "/cancel":
		d.cancelCommand(ctx, m.Chat.ID)
	default:
		d.log.Debug().Str("command", command(m.Text)).Msg("unknown command")
	}
}

// handleText consumes a free-text reply for the durable session, if one
// is open. Text without a pending session is ignored.
func (d *Dispatcher) handleText(ctx context.Context, m *telegram.Message) {
	user := d.loadUser(ctx, m.Chat.ID)
	if user == nil || user.Session == nil {
		return
	}
	sess, err := session.Decode(*user.Session)
	if err != nil {
		d.log.Warn().Int64("user_id", m.Chat.ID).Msg("malformed durable session")
		return
	}

	ev := &event{user: user, sess: sess, text: m.Text}
	switch sess.Header {
	case session.HeaderPendingCollection:
		d.pendingCollection(ctx, ev)
	case session.HeaderPendingCard:
		d.pendingCard(ctx, ev)
	default:
		d.log.Debug().Str("header", string(sess.Header)).Msg("durable session with non-pending header")
	}
}

// handleCallback routes a button press. A durable session, when
// present, wins over the button payload; pending sessions expect a
// text reply, so a press during one only acknowledges the callback.
func (d *Dispatcher) handleCallback(ctx context.Context, q *telegram.CallbackQuery) {
	user := d.loadUser(ctx, q.From.ID)
	if user == nil {
		d.answer(ctx, q.ID, "", false)
		return
	}

	raw := q.Data
	if user.Session != nil {
		raw = *user.Session
	}
	sess, err := session.Decode(raw)
	if err != nil {
		d.log.Warn().Int64("user_id", user.UserID).Msg("malformed session payload")
		d.answer(ctx, q.ID, "", false)
		return
	}

	ev := &event{user: user, sess: sess, callbackID: q.ID}
	if q.Message != nil {
		ev.messageID = q.Message.MessageID
	}

	switch sess.Header {
	case session.HeaderMenu:
		d.menuAction(ctx, ev)
	case session.HeaderCollection:
		d.collectionAction(ctx, ev)
	case session.HeaderCard:
		d.cardAction(ctx, ev)
	case session.HeaderPendingCollection, session.HeaderPendingCard:
		d.answer(ctx, q.ID, "", false)
	default:
		d.log.Debug().Str("header", string(sess.Header)).Msg("unknown session header")
		d.answer(ctx, q.ID, "", false)
	}
}

// startCommand bootstraps the user on first contact and opens the
// private office.
func (d *Dispatcher) startCommand(ctx context.Context, m *telegram.Message) {
	user, err := d.store.Users().Get(ctx, m.Chat.ID)
	switch {
	case err == nil:
	case model.IsNotFound(err):
		user = &model.User{
			UserID: m.Chat.ID,
			Locale: i18n.DefaultLocale,
			MenuID: m.MessageID,
		}
		if m.From != nil {
			user.Username = m.From.Username
			user.Locale = i18n.DefineLocale(m.From.LanguageCode)
		}
		if err := d.store.Users().Create(ctx, user); err != nil {
			d.log.Error().Err(err).Int64("user_id", m.Chat.ID).Msg("create user")
			return
		}
	default:
		d.log.Error().Err(err).Int64("user_id", m.Chat.ID).Msg("load user")
		return
	}

	d.send(ctx, user.UserID, menu.Render{
		Title: d.catalog.Text(user.Locale, "start"),
	})
	d.send(ctx, user.UserID, d.privateOfficeRender(user.Locale))
}

func (d *Dispatcher) cancelCommand(ctx context.Context, userID int64) {
	user := d.loadUser(ctx, userID)
	if user == nil {
		return
	}
	if user.Session != nil {
		if err := d.store.Users().SetSession(ctx, userID, nil); err != nil {
			d.log.Error().Err(err).Int64("user_id", userID).Msg("clear session")
			return
		}
	}
	d.send(ctx, userID, menu.Render{Title: d.catalog.Text(user.Locale, "cancel")})
}

func (d *Dispatcher) loadUser(ctx context.Context, userID int64) *model.User {
	user, err := d.store.Users().Get(ctx, userID)
	if err != nil {
		if !model.IsNotFound(err) {
			d.log.Error().Err(err).Int64("user_id", userID).Msg("load user")
		}
		return nil
	}
	return user
}

// send delivers a new message and remembers nothing: menu_id tracking
// is the explicit job of the edit-session handlers.
func (d *Dispatcher) send(ctx context.Context, chatID int64, r menu.Render) {
	if _, err := d.sender.SendMenu(ctx, chatID, r); err != nil {
		d.log.Error().Err(err).Int64("chat_id", chatID).Msg("send menu")
	}
}

func (d *Dispatcher) edit(ctx context.Context, ev *event, r menu.Render) {
	if err := d.sender.EditMenu(ctx, ev.user.UserID, ev.messageID, r); err != nil {
		d.log.Error().Err(err).Int64("chat_id", ev.user.UserID).Msg("edit menu")
	}
}

func (d *Dispatcher) answer(ctx context.Context, callbackID, text string, alert bool) {
	if callbackID == "" {
		return
	}
	if err := d.sender.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		d.log.Error().Err(err).Msg("answer callback")
	}
}

// switchTo edits the menu message in place and acknowledges the press.
func (d *Dispatcher) switchTo(ctx context.Context, ev *event, r menu.Render) {
	d.edit(ctx, ev, r)
	d.answer(ctx, ev.callbackID, "", false)
}

func command(text string) string {
	cmd := strings.Fields(text)[0]
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	return cmd
}
