package dispatch

import (
	"context"

	"github.com/mnemocard/mnemocard/internal/menu"
	"github.com/mnemocard/mnemocard/internal/model"
)

// pendingCollection consumes the free-text reply of an open collection
// session: creation (including copy by public key) or an attribute
// edit.
func (d *Dispatcher) pendingCollection(ctx context.Context, ev *event) {
	switch ev.sess.Action {
	case "create":
		if source, err := d.store.Collections().FindByKey(ctx, ev.text); err == nil {
			d.copyCollection(ctx, ev, source)
			return
		} else if !model.IsNotFound(err) {
			d.log.Error().Err(err).Msg("search collection by key")
			return
		}
		d.createCollection(ctx, ev)

	case "edit_name", "edit_description":
		d.changeCollectionAttribute(ctx, ev)

	default:
		d.log.Debug().Str("action", ev.sess.Action).Msg("unknown pending collection action")
	}
}

func (d *Dispatcher) createCollection(ctx context.Context, ev *event) {
	col := &model.Collection{
		UserID: ev.user.UserID,
		Key:    ev.sess.Key,
		Name:   ev.text,
	}
	if err := d.store.Collections().Create(ctx, col); err != nil {
		d.log.Error().Err(err).Str("key", col.Key).Msg("create collection")
		return
	}
	if err := d.store.Users().AddCounts(ctx, ev.user.UserID, 1, 0); err != nil {
		d.log.Error().Err(err).Int64("user_id", ev.user.UserID).Msg("update counters")
	}
	d.clearSession(ctx, ev.user.UserID)

	d.send(ctx, ev.user.UserID, menu.Render{
		Title: d.catalog.Text(ev.user.Locale, "new_collection"),
		Buttons: []menu.Row{{
			keyButton("CoLSe", "info", col.Key, col.Name),
		}},
	})
}

// copyCollection clones another user's collection, cards included,
// under a fresh key owned by the acting user.
func (d *Dispatcher) copyCollection(ctx context.Context, ev *event, source *model.Collection) {
	cards, err := d.store.Cards().List(ctx, source.UserID, source.Key)
	if err != nil {
		d.log.Error().Err(err).Str("key", source.Key).Msg("list source cards")
		return
	}

	col := &model.Collection{
		UserID:      ev.user.UserID,
		Key:         d.newKey(collectionKey),
		Name:        source.Name + " - Copy",
		Description: source.Description,
		Cards:       len(cards),
	}
	if err := d.store.Collections().Create(ctx, col); err != nil {
		d.log.Error().Err(err).Str("key", col.Key).Msg("copy collection")
		return
	}
	// Only content and the due date travel; the copy starts with fresh
	// review state.
	for _, card := range cards {
		clone := &model.Card{
			UserID:             ev.user.UserID,
			Key:                col.Key,
			CardKey:            card.CardKey,
			Name:               card.Name,
			Description:        card.Description,
			NextRepetitionDate: card.NextRepetitionDate,
			EasyFactor:         defaultEasyFactor,
		}
		if err := d.store.Cards().Create(ctx, clone); err != nil {
			d.log.Error().Err(err).Str("card_key", clone.CardKey).Msg("copy card")
			return
		}
	}
	if err := d.store.Users().AddCounts(ctx, ev.user.UserID, 1, len(cards)); err != nil {
		d.log.Error().Err(err).Int64("user_id", ev.user.UserID).Msg("update counters")
	}
	d.clearSession(ctx, ev.user.UserID)

	d.send(ctx, ev.user.UserID, menu.Render{
		Title: d.catalog.Text(ev.user.Locale, "copy_collection"),
		Buttons: []menu.Row{{
			keyButton("CoLSe", "info", col.Key, col.Name),
		}},
	})
}

// changeCollectionAttribute applies the typed text to the collection
// and refreshes the pinned edit menu.
func (d *Dispatcher) changeCollectionAttribute(ctx context.Context, ev *event) {
	col := d.textGuardCollection(ctx, ev)
	if col == nil {
		return
	}

	var err error
	if ev.sess.Action == "edit_name" {
		err = d.store.Collections().SetName(ctx, ev.user.UserID, col.Key, ev.text)
		col.Name = ev.text
	} else {
		err = d.store.Collections().SetDescription(ctx, ev.user.UserID, col.Key, ev.text)
		col.Description = ev.text
	}
	if err != nil {
		d.log.Error().Err(err).Str("key", col.Key).Msg("change collection attribute")
		return
	}
	d.clearSession(ctx, ev.user.UserID)

	confirmation := "collection_name_changed"
	if ev.sess.Action == "edit_description" {
		confirmation = "collection_description_changed"
	}
	d.send(ctx, ev.user.UserID, menu.Render{Title: d.catalog.Text(ev.user.Locale, confirmation)})
	d.editPinnedMenu(ctx, ev.user, d.collectionEditRender(ev.user.Locale, col))
}

// pendingCard consumes the free-text reply of an open card session.
func (d *Dispatcher) pendingCard(ctx context.Context, ev *event) {
	switch ev.sess.Action {
	case "create":
		d.createCard(ctx, ev)
	case "edit_name", "edit_description":
		d.changeCardAttribute(ctx, ev)
	default:
		d.log.Debug().Str("action", ev.sess.Action).Msg("unknown pending card action")
	}
}

func (d *Dispatcher) createCard(ctx context.Context, ev *event) {
	if col := d.textGuardCollection(ctx, ev); col == nil {
		return
	}
	card := &model.Card{
		UserID:             ev.user.UserID,
		Key:                ev.sess.Key,
		CardKey:            ev.sess.CardKey,
		Name:               ev.text,
		Description:        newCardDescription,
		NextRepetitionDate: d.now().Unix(),
		EasyFactor:         defaultEasyFactor,
	}
	if err := d.store.Cards().Create(ctx, card); err != nil {
		d.log.Error().Err(err).Str("card_key", card.CardKey).Msg("create card")
		return
	}
	if err := d.store.Users().AddCounts(ctx, ev.user.UserID, 0, 1); err != nil {
		d.log.Error().Err(err).Int64("user_id", ev.user.UserID).Msg("update counters")
	}
	if err := d.store.Collections().AddCards(ctx, ev.user.UserID, card.Key, 1); err != nil {
		d.log.Error().Err(err).Str("key", card.Key).Msg("update collection counter")
	}
	d.clearSession(ctx, ev.user.UserID)

	d.send(ctx, ev.user.UserID, menu.Render{
		Title: d.catalog.Text(ev.user.Locale, "new_card"),
		Buttons: []menu.Row{{
			cardButton("CaRSe", "info", card.Key, card.CardKey, card.Name),
		}},
	})
}

func (d *Dispatcher) changeCardAttribute(ctx context.Context, ev *event) {
	card := d.textGuardCard(ctx, ev)
	if card == nil {
		return
	}

	var err error
	if ev.sess.Action == "edit_name" {
		err = d.store.Cards().SetName(ctx, ev.user.UserID, card.Key, card.CardKey, ev.text)
		card.Name = ev.text
	} else {
		err = d.store.Cards().SetDescription(ctx, ev.user.UserID, card.Key, card.CardKey, ev.text)
		card.Description = ev.text
	}
	if err != nil {
		d.log.Error().Err(err).Str("card_key", card.CardKey).Msg("change card attribute")
		return
	}
	d.clearSession(ctx, ev.user.UserID)

	confirmation := "card_name_changed"
	if ev.sess.Action == "edit_description" {
		confirmation = "card_description_changed"
	}
	d.send(ctx, ev.user.UserID, menu.Render{Title: d.catalog.Text(ev.user.Locale, confirmation)})
	d.editPinnedMenu(ctx, ev.user, d.cardInfoRender(ev.user.Locale, card))
}

// textGuardCollection is the existence guard for free-text flows, where
// there is no callback to answer: the notice goes out as a message and
// the session stays untouched.
func (d *Dispatcher) textGuardCollection(ctx context.Context, ev *event) *model.Collection {
	col, err := d.store.Collections().Get(ctx, ev.user.UserID, ev.sess.Key)
	if err == nil {
		return col
	}
	if !model.IsNotFound(err) {
		d.log.Error().Err(err).Str("key", ev.sess.Key).Msg("load collection")
	}
	d.send(ctx, ev.user.UserID, menu.Render{Title: d.catalog.Text(ev.user.Locale, "does_not_exist")})
	return nil
}

func (d *Dispatcher) textGuardCard(ctx context.Context, ev *event) *model.Card {
	if col := d.textGuardCollection(ctx, ev); col == nil {
		return nil
	}
	card, err := d.store.Cards().Get(ctx, ev.user.UserID, ev.sess.Key, ev.sess.CardKey)
	if err == nil {
		return card
	}
	if !model.IsNotFound(err) {
		d.log.Error().Err(err).Str("card_key", ev.sess.CardKey).Msg("load card")
	}
	d.send(ctx, ev.user.UserID, menu.Render{Title: d.catalog.Text(ev.user.Locale, "does_not_exist")})
	return nil
}

func (d *Dispatcher) clearSession(ctx context.Context, userID int64) {
	if err := d.store.Users().SetSession(ctx, userID, nil); err != nil {
		d.log.Error().Err(err).Int64("user_id", userID).Msg("clear session")
	}
}

// editPinnedMenu rewrites the menu message recorded when the edit
// session was opened.
func (d *Dispatcher) editPinnedMenu(ctx context.Context, user *model.User, r menu.Render) {
	if user.MenuID == 0 {
		return
	}
	if err := d.sender.EditMenu(ctx, user.UserID, user.MenuID, r); err != nil {
		d.log.Error().Err(err).Int64("user_id", user.UserID).Msg("edit pinned menu")
	}
}
