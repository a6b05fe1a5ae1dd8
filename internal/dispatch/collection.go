package dispatch

import (
	"context"
	"strconv"
	"strings"

	"github.com/mnemocard/mnemocard/internal/menu"
	"github.com/mnemocard/mnemocard/internal/model"
	"github.com/mnemocard/mnemocard/internal/session"
)

// collectionAction routes button presses in the collection menus.
func (d *Dispatcher) collectionAction(ctx context.Context, ev *event) {
	action := ev.sess.Action
	switch {
	case action == "collections":
		d.switchTo(ctx, ev, d.collectionsRender(ctx, ev.user))

	case action == "add_collection":
		d.openCollectionCreation(ctx, ev)

	case action == "info":
		if col := d.guardCollection(ctx, ev); col != nil {
			d.switchTo(ctx, ev, d.collectionInfoRender(ev.user.Locale, col))
		}

	case action == "public_key":
		if col := d.guardCollection(ctx, ev); col != nil {
			d.switchTo(ctx, ev, d.publicKeyRender(ev.user.Locale, col))
		}

	case action == "edit":
		if col := d.guardCollection(ctx, ev); col != nil {
			d.switchTo(ctx, ev, d.collectionEditRender(ev.user.Locale, col))
		}

	case action == "edit_name" || action == "edit_desc":
		d.openCollectionEdit(ctx, ev, editAttribute(action))

	case action == "delete":
		if col := d.guardCollection(ctx, ev); col != nil {
			d.switchTo(ctx, ev, d.collectionDeleteRender(ev.user.Locale, col.Key))
		}

	case action == "confirm_delete":
		d.deleteCollection(ctx, ev)

	case strings.HasPrefix(action, "level_"):
		d.changeCollectionsLevel(ctx, ev)

	default:
		d.log.Debug().Str("action", action).Msg("unknown collection action")
		d.answer(ctx, ev.callbackID, "", false)
	}
}

// guardCollection loads the addressed collection, short-circuiting to a
// localized alert when it no longer exists. No mutation happens after a
// failed guard.
func (d *Dispatcher) guardCollection(ctx context.Context, ev *event) *model.Collection {
	col, err := d.store.Collections().Get(ctx, ev.user.UserID, ev.sess.Key)
	if err == nil {
		return col
	}
	if !model.IsNotFound(err) {
		d.log.Error().Err(err).Str("key", ev.sess.Key).Msg("load collection")
	}
	d.answer(ctx, ev.callbackID, d.catalog.Text(ev.user.Locale, "does_not_exist"), true)
	return nil
}

func (d *Dispatcher) openCollectionCreation(ctx context.Context, ev *event) {
	sess := session.Session{
		Header: session.HeaderPendingCollection,
		Action: "create",
		Key:    d.newKey(collectionKey),
	}
	if !d.storeSession(ctx, ev.user.UserID, sess) {
		d.answer(ctx, ev.callbackID, "", false)
		return
	}
	d.send(ctx, ev.user.UserID, menu.Render{Title: d.catalog.Text(ev.user.Locale, "create_collection")})
	d.answer(ctx, ev.callbackID, "", false)
}

// openCollectionEdit opens a durable rename/re-describe session and
// pins the current menu message so the confirmation can edit it later.
func (d *Dispatcher) openCollectionEdit(ctx context.Context, ev *event, attribute string) {
	col := d.guardCollection(ctx, ev)
	if col == nil {
		return
	}
	sess := session.Session{
		Header: session.HeaderPendingCollection,
		Action: "edit_" + attribute,
		Key:    col.Key,
	}
	if !d.storeSession(ctx, ev.user.UserID, sess) {
		d.answer(ctx, ev.callbackID, "", false)
		return
	}
	if err := d.store.Users().SetMenuID(ctx, ev.user.UserID, ev.messageID); err != nil {
		d.log.Error().Err(err).Int64("user_id", ev.user.UserID).Msg("pin menu message")
	}
	d.send(ctx, ev.user.UserID, menu.Render{
		Title: d.catalog.Text(ev.user.Locale, "edit_collection_"+attribute),
	})
	d.answer(ctx, ev.callbackID, "", false)
}

// deleteCollection cascades to the collection's cards, fixes the
// owner's counters and re-clamps the list page level.
func (d *Dispatcher) deleteCollection(ctx context.Context, ev *event) {
	if col := d.guardCollection(ctx, ev); col == nil {
		return
	}
	cardsDeleted, err := d.store.Collections().Delete(ctx, ev.user.UserID, ev.sess.Key)
	if err != nil {
		d.log.Error().Err(err).Str("key", ev.sess.Key).Msg("delete collection")
		d.answer(ctx, ev.callbackID, d.catalog.Text(ev.user.Locale, "does_not_exist"), true)
		return
	}
	if err := d.store.Users().AddCounts(ctx, ev.user.UserID, -1, -cardsDeleted); err != nil {
		d.log.Error().Err(err).Int64("user_id", ev.user.UserID).Msg("update counters")
	}

	remaining := ev.user.Collections - 1
	if level := clampPageLevel(ev.user.PageLevel, remaining, d.perPage); level != ev.user.PageLevel {
		if err := d.store.Users().SetPageLevel(ctx, ev.user.UserID, level); err != nil {
			d.log.Error().Err(err).Int64("user_id", ev.user.UserID).Msg("clamp page level")
		}
		ev.user.PageLevel = level
	}

	d.switchTo(ctx, ev, menu.Render{
		Title: d.catalog.Text(ev.user.Locale, "collection_deleted"),
		Buttons: []menu.Row{{
			menu.NewButton("CoLSe", "collections", d.catalog.Text(ev.user.Locale, "collections")),
		}},
	})
}

func (d *Dispatcher) changeCollectionsLevel(ctx context.Context, ev *event) {
	level, ok := parseLevel(ev.sess.Action)
	if !ok {
		d.log.Debug().Str("action", ev.sess.Action).Msg("malformed level payload")
		d.answer(ctx, ev.callbackID, "", false)
		return
	}
	if err := d.store.Users().SetPageLevel(ctx, ev.user.UserID, level); err != nil {
		d.log.Error().Err(err).Int64("user_id", ev.user.UserID).Msg("set page level")
		d.answer(ctx, ev.callbackID, "", false)
		return
	}
	ev.user.PageLevel = level
	d.switchTo(ctx, ev, d.collectionsRender(ctx, ev.user))
}

func (d *Dispatcher) collectionInfoRender(locale string, col *model.Collection) menu.Render {
	name := menu.EscapeMarkdown(col.Name)
	var title string
	if col.Description != "" {
		title = d.catalog.Textf(locale, "description_info", name, menu.EscapeMarkdown(col.Description))
	} else {
		title = d.catalog.Textf(locale, "collection_info", name)
	}
	key := col.Key
	return menu.Render{
		Title:  title,
		Format: menu.FormatMarkdownV2,
		Buttons: []menu.Row{
			{
				keyButton("CaRSe", "collection_learning", key, d.catalog.Text(locale, "collection_learning")),
				keyButton("CaRSe", "collection_cards", key, d.catalog.Text(locale, "collection_cards")),
			},
			{
				keyButton("CoLSe", "public_key", key, d.catalog.Text(locale, "public_key")),
				keyButton("CoLSe", "edit", key, d.catalog.Text(locale, "settings")),
			},
			{
				menu.NewButton("MnSe", "private_office", d.catalog.Text(locale, "main")),
				menu.NewButton("CoLSe", "collections", d.catalog.Text(locale, "back")),
			},
		},
	}
}

func (d *Dispatcher) publicKeyRender(locale string, col *model.Collection) menu.Render {
	return menu.Render{
		Title:  d.catalog.Textf(locale, "public_key_text", col.Key),
		Format: menu.FormatMarkdownV2,
		Buttons: []menu.Row{{
			keyButton("CoLSe", "info", col.Key, d.catalog.Text(locale, "back")),
		}},
	}
}

func (d *Dispatcher) collectionEditRender(locale string, col *model.Collection) menu.Render {
	title := d.catalog.Textf(locale, "description_info",
		menu.EscapeMarkdown(col.Name), menu.EscapeMarkdown(col.Description))
	key := col.Key
	return menu.Render{
		Title:  title,
		Format: menu.FormatMarkdownV2,
		Buttons: []menu.Row{
			{
				keyButton("CoLSe", "edit_name", key, d.catalog.Text(locale, "edit_name")),
				keyButton("CoLSe", "edit_desc", key, d.catalog.Text(locale, "edit_description")),
			},
			{
				keyButton("CoLSe", "delete", key, d.catalog.Text(locale, "delete_collection")),
			},
			{
				menu.NewButton("MnSe", "private_office", d.catalog.Text(locale, "main")),
				keyButton("CoLSe", "info", key, d.catalog.Text(locale, "back")),
			},
		},
	}
}

func (d *Dispatcher) collectionDeleteRender(locale, key string) menu.Render {
	return menu.Render{
		Title: d.catalog.Text(locale, "delete_confirmation"),
		Buttons: []menu.Row{{
			keyButton("CoLSe", "confirm_delete", key, d.catalog.Text(locale, "confirm_deletion")),
			keyButton("CoLSe", "edit", key, d.catalog.Text(locale, "undo_delete")),
		}},
	}
}

func (d *Dispatcher) storeSession(ctx context.Context, userID int64, sess session.Session) bool {
	encoded := sess.Encode()
	if err := d.store.Users().SetSession(ctx, userID, &encoded); err != nil {
		d.log.Error().Err(err).Int64("user_id", userID).Msg("store session")
		return false
	}
	return true
}

// keyButton builds a button whose payload addresses one collection.
func keyButton(header, action, key, text string) menu.Button {
	return menu.Button{Text: text, Data: header + "/" + action + "/" + key}
}

// editAttribute maps the short button action onto the stored attribute
// name.
func editAttribute(action string) string {
	if action == "edit_desc" {
		return "description"
	}
	return "name"
}

// parseLevel reads the two fixed-width digits off a level_DD payload.
func parseLevel(action string) (int, bool) {
	if len(action) < 2 {
		return 0, false
	}
	level, err := strconv.Atoi(action[len(action)-2:])
	if err != nil || level < 0 {
		return 0, false
	}
	return level, true
}
