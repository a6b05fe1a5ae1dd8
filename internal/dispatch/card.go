package dispatch

import (
	"context"
	"sort"
	"strings"

	"github.com/mnemocard/mnemocard/internal/menu"
	"github.com/mnemocard/mnemocard/internal/model"
	"github.com/mnemocard/mnemocard/internal/session"
	"github.com/mnemocard/mnemocard/internal/srs"
)

// newCardDescription is the placeholder a fresh card carries until the
// user edits it.
const newCardDescription = "🚫"

// defaultEasyFactor is the scheduler starting point for a card with no
// review history.
const defaultEasyFactor = 2.5

// cardAction routes button presses in the card menus, including the
// drill cycle.
func (d *Dispatcher) cardAction(ctx context.Context, ev *event) {
	action := ev.sess.Action
	switch {
	case action == "collection_cards":
		if col := d.guardCollection(ctx, ev); col != nil {
			d.switchTo(ctx, ev, d.cardsRender(ctx, ev.user.Locale, col))
		}

	case action == "collection_learning":
		if col := d.guardCollection(ctx, ev); col != nil {
			d.issueCard(ctx, ev, col)
		}

	case action == "show_answer":
		if card := d.guardCard(ctx, ev); card != nil {
			d.switchTo(ctx, ev, d.answerRender(ev.user.Locale, card))
		}

	case action == "correct_answer" || action == "wrong_answer":
		d.gradeCard(ctx, ev, action == "correct_answer")

	case action == "add_card":
		d.openCardCreation(ctx, ev)

	case action == "info":
		if card := d.guardCard(ctx, ev); card != nil {
			d.switchTo(ctx, ev, d.cardInfoRender(ev.user.Locale, card))
		}

	case action == "edit_name" || action == "edit_desc":
		d.openCardEdit(ctx, ev, editAttribute(action))

	case action == "delete":
		if card := d.guardCard(ctx, ev); card != nil {
			d.switchTo(ctx, ev, d.cardDeleteRender(ev.user.Locale, card))
		}

	case action == "confirm_delete":
		d.deleteCard(ctx, ev)

	case strings.HasPrefix(action, "level_"):
		d.changeCardsLevel(ctx, ev)

	default:
		d.log.Debug().Str("action", action).Msg("unknown card action")
		d.answer(ctx, ev.callbackID, "", false)
	}
}

// guardCard confirms both the card and its parent collection still
// exist before anything reads or writes them.
func (d *Dispatcher) guardCard(ctx context.Context, ev *event) *model.Card {
	if col := d.guardCollection(ctx, ev); col == nil {
		return nil
	}
	card, err := d.store.Cards().Get(ctx, ev.user.UserID, ev.sess.Key, ev.sess.CardKey)
	if err == nil {
		return card
	}
	if !model.IsNotFound(err) {
		d.log.Error().Err(err).Str("card_key", ev.sess.CardKey).Msg("load card")
	}
	d.answer(ctx, ev.callbackID, d.catalog.Text(ev.user.Locale, "does_not_exist"), true)
	return nil
}

// issueCard picks the weakest card of the collection and presents its
// front side.
func (d *Dispatcher) issueCard(ctx context.Context, ev *event, col *model.Collection) {
	cards, err := d.store.Cards().List(ctx, ev.user.UserID, col.Key)
	if err != nil {
		d.log.Error().Err(err).Str("key", col.Key).Msg("list cards")
		d.answer(ctx, ev.callbackID, "", false)
		return
	}
	if len(cards) == 0 {
		d.answer(ctx, ev.callbackID, d.catalog.Text(ev.user.Locale, "empty_collection"), true)
		return
	}

	card := weakestCard(cards)
	d.switchTo(ctx, ev, menu.Render{
		Title:  card.Name,
		Format: menu.FormatMarkdown,
		Buttons: []menu.Row{
			{cardButton("CaRSe", "show_answer", card.Key, card.CardKey, d.catalog.Text(ev.user.Locale, "show_answer"))},
			{keyButton("CoLSe", "info", col.Key, d.catalog.Text(ev.user.Locale, "return_to_collection"))},
		},
	})
}

// weakestCard returns the card with the earliest next review date.
// sort.SliceStable keeps insertion order for ties, which makes the next
// drill card deterministic.
func weakestCard(cards []*model.Card) *model.Card {
	sorted := make([]*model.Card, len(cards))
	copy(sorted, cards)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NextRepetitionDate < sorted[j].NextRepetitionDate
	})
	return sorted[0]
}

func (d *Dispatcher) answerRender(locale string, card *model.Card) menu.Render {
	return menu.Render{
		Title:  menu.EscapeMarkdown(card.Description),
		Format: menu.FormatMarkdown,
		Buttons: []menu.Row{{
			cardButton("CaRSe", "correct_answer", card.Key, card.CardKey, d.catalog.Text(locale, "correct_answer")),
			cardButton("CaRSe", "wrong_answer", card.Key, card.CardKey, d.catalog.Text(locale, "wrong_answer")),
		}},
	}
}

// gradeCard applies the review outcome to the card's spaced-repetition
// state and issues the next card.
func (d *Dispatcher) gradeCard(ctx context.Context, ev *event, correct bool) {
	card := d.guardCard(ctx, ev)
	if card == nil {
		return
	}

	res := srs.Review(card.Repetition, card.Difficulty, card.EasyFactor, correct, d.now())
	err := d.store.Cards().SetReview(ctx, ev.user.UserID, card.Key, card.CardKey,
		res.Repetition, res.Difficulty, res.NextRepetitionDate, res.EasyFactor)
	if err != nil {
		d.log.Error().Err(err).Str("card_key", card.CardKey).Msg("store review")
		d.answer(ctx, ev.callbackID, "", false)
		return
	}

	if col := d.guardCollection(ctx, ev); col != nil {
		d.issueCard(ctx, ev, col)
	}
}

func (d *Dispatcher) openCardCreation(ctx context.Context, ev *event) {
	col := d.guardCollection(ctx, ev)
	if col == nil {
		return
	}
	sess := session.Session{
		Header:  session.HeaderPendingCard,
		Action:  "create",
		Key:     col.Key,
		CardKey: d.newKey(cardKey),
	}
	if !d.storeSession(ctx, ev.user.UserID, sess) {
		d.answer(ctx, ev.callbackID, "", false)
		return
	}
	d.send(ctx, ev.user.UserID, menu.Render{Title: d.catalog.Text(ev.user.Locale, "create_card")})
	d.answer(ctx, ev.callbackID, "", false)
}

func (d *Dispatcher) openCardEdit(ctx context.Context, ev *event, attribute string) {
	card := d.guardCard(ctx, ev)
	if card == nil {
		return
	}
	sess := session.Session{
		Header:  session.HeaderPendingCard,
		Action:  "edit_" + attribute,
		Key:     card.Key,
		CardKey: card.CardKey,
	}
	if !d.storeSession(ctx, ev.user.UserID, sess) {
		d.answer(ctx, ev.callbackID, "", false)
		return
	}
	if err := d.store.Users().SetMenuID(ctx, ev.user.UserID, ev.messageID); err != nil {
		d.log.Error().Err(err).Int64("user_id", ev.user.UserID).Msg("pin menu message")
	}
	d.send(ctx, ev.user.UserID, menu.Render{
		Title: d.catalog.Text(ev.user.Locale, "edit_card_"+attribute),
	})
	d.answer(ctx, ev.callbackID, "", false)
}

// deleteCard removes the card, fixes the counters on the owner and the
// collection, and re-clamps the card list page level.
func (d *Dispatcher) deleteCard(ctx context.Context, ev *event) {
	card := d.guardCard(ctx, ev)
	if card == nil {
		return
	}
	if err := d.store.Cards().Delete(ctx, ev.user.UserID, card.Key, card.CardKey); err != nil {
		d.log.Error().Err(err).Str("card_key", card.CardKey).Msg("delete card")
		d.answer(ctx, ev.callbackID, d.catalog.Text(ev.user.Locale, "does_not_exist"), true)
		return
	}
	if err := d.store.Users().AddCounts(ctx, ev.user.UserID, 0, -1); err != nil {
		d.log.Error().Err(err).Int64("user_id", ev.user.UserID).Msg("update counters")
	}
	if err := d.store.Collections().AddCards(ctx, ev.user.UserID, card.Key, -1); err != nil {
		d.log.Error().Err(err).Str("key", card.Key).Msg("update collection counter")
	}

	col, err := d.store.Collections().Get(ctx, ev.user.UserID, card.Key)
	if err == nil {
		if level := clampPageLevel(col.PageLevel, col.Cards, d.perPage); level != col.PageLevel {
			if err := d.store.Collections().SetPageLevel(ctx, ev.user.UserID, col.Key, level); err != nil {
				d.log.Error().Err(err).Str("key", col.Key).Msg("clamp page level")
			}
		}
	}

	d.switchTo(ctx, ev, menu.Render{
		Title: d.catalog.Text(ev.user.Locale, "card_deleted"),
		Buttons: []menu.Row{{
			keyButton("CaRSe", "collection_cards", card.Key, d.catalog.Text(ev.user.Locale, "collection_cards")),
		}},
	})
}

func (d *Dispatcher) changeCardsLevel(ctx context.Context, ev *event) {
	col := d.guardCollection(ctx, ev)
	if col == nil {
		return
	}
	level, ok := parseLevel(ev.sess.Action)
	if !ok {
		d.log.Debug().Str("action", ev.sess.Action).Msg("malformed level payload")
		d.answer(ctx, ev.callbackID, "", false)
		return
	}
	if err := d.store.Collections().SetPageLevel(ctx, ev.user.UserID, col.Key, level); err != nil {
		d.log.Error().Err(err).Str("key", col.Key).Msg("set page level")
		d.answer(ctx, ev.callbackID, "", false)
		return
	}
	col.PageLevel = level
	d.switchTo(ctx, ev, d.cardsRender(ctx, ev.user.Locale, col))
}

// cardsRender builds the paginated card list of one collection.
func (d *Dispatcher) cardsRender(ctx context.Context, locale string, col *model.Collection) menu.Render {
	cards, err := d.store.Cards().List(ctx, col.UserID, col.Key)
	if err != nil {
		d.log.Error().Err(err).Str("key", col.Key).Msg("list cards")
		return menu.Render{Title: d.catalog.Textf(locale, "cards", col.Name)}
	}

	level := clampPageLevel(col.PageLevel, len(cards), d.perPage)
	nav := menu.Navigation("CaRSe", len(cards), level, col.Key, d.perPage)

	items := make([]menu.Row, 0)
	for _, row := range cardPageSlice(cards, level, d.perPage) {
		items = append(items, cardButtons(row))
	}

	bottom := []menu.Row{{
		keyButton("CaRSe", "add_card", col.Key, d.catalog.Text(locale, "add_card")),
		keyButton("CoLSe", "info", col.Key, d.catalog.Text(locale, "back")),
	}}

	return menu.Render{
		Title:   d.catalog.Textf(locale, "cards", col.Name),
		Buttons: menu.Rows(nav, items, bottom),
	}
}

func (d *Dispatcher) cardInfoRender(locale string, card *model.Card) menu.Render {
	title := d.catalog.Textf(locale, "description_info",
		menu.EscapeMarkdown(card.Name), menu.EscapeMarkdown(card.Description))
	return menu.Render{
		Title:  title,
		Format: menu.FormatMarkdownV2,
		Buttons: []menu.Row{
			{
				cardButton("CaRSe", "edit_name", card.Key, card.CardKey, d.catalog.Text(locale, "edit_name")),
				cardButton("CaRSe", "edit_desc", card.Key, card.CardKey, d.catalog.Text(locale, "edit_description")),
			},
			{
				cardButton("CaRSe", "delete", card.Key, card.CardKey, d.catalog.Text(locale, "delete_card")),
			},
			{
				menu.NewButton("MnSe", "private_office", d.catalog.Text(locale, "main")),
				keyButton("CaRSe", "collection_cards", card.Key, d.catalog.Text(locale, "back")),
			},
		},
	}
}

func (d *Dispatcher) cardDeleteRender(locale string, card *model.Card) menu.Render {
	return menu.Render{
		Title: d.catalog.Text(locale, "card_delete_confirm"),
		Buttons: []menu.Row{{
			cardButton("CaRSe", "confirm_delete", card.Key, card.CardKey, d.catalog.Text(locale, "confirm_deletion")),
			cardButton("CaRSe", "info", card.Key, card.CardKey, d.catalog.Text(locale, "undo_delete")),
		}},
	}
}

func cardPageSlice(cards []*model.Card, level, perPage int) [][]*model.Card {
	lo := level * perPage
	if lo > len(cards) {
		return nil
	}
	hi := lo + perPage
	if hi > len(cards) {
		hi = len(cards)
	}
	page := cards[lo:hi]

	var out [][]*model.Card
	for len(page) > 0 {
		n := 2
		if len(page) < n {
			n = len(page)
		}
		out = append(out, page[:n])
		page = page[n:]
	}
	return out
}

func cardButtons(row []*model.Card) menu.Row {
	buttons := make(menu.Row, 0, len(row))
	for _, c := range row {
		buttons = append(buttons, cardButton("CaRSe", "info", c.Key, c.CardKey, c.Name))
	}
	return buttons
}

// cardButton builds a button whose payload addresses one card.
func cardButton(header, action, key, cardKey, text string) menu.Button {
	return menu.Button{Text: text, Data: header + "/" + action + "/" + key + "/" + cardKey}
}
