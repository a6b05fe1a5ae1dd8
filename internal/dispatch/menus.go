package dispatch

import (
	"context"
	"strings"

	"github.com/mnemocard/mnemocard/internal/i18n"
	"github.com/mnemocard/mnemocard/internal/menu"
	"github.com/mnemocard/mnemocard/internal/model"
	"github.com/mnemocard/mnemocard/internal/session"
)

// menuAction covers the generic menus: private office, settings and
// language switching.
func (d *Dispatcher) menuAction(ctx context.Context, ev *event) {
	action := ev.sess.Action
	switch {
	case action == "private_office" || action == "main":
		d.switchTo(ctx, ev, d.privateOfficeRender(ev.user.Locale))

	case action == "settings":
		d.switchTo(ctx, ev, d.settingsRender(ev.user.Locale))

	case action == "locale_settings":
		d.switchTo(ctx, ev, d.localeSettingsRender(ev.user.Locale))

	case strings.HasPrefix(action, "change_language_to_"):
		locale := i18n.DefineLocale(strings.TrimPrefix(action, "change_language_to_"))
		if err := d.store.Users().SetLocale(ctx, ev.user.UserID, locale); err != nil {
			d.log.Error().Err(err).Int64("user_id", ev.user.UserID).Msg("set locale")
			d.answer(ctx, ev.callbackID, "", false)
			return
		}
		d.switchTo(ctx, ev, d.localeSettingsRender(locale))

	case action == "collections":
		d.switchTo(ctx, ev, d.collectionsRender(ctx, ev.user))

	case action == "cancel":
		if ev.user.Session != nil {
			if err := d.store.Users().SetSession(ctx, ev.user.UserID, nil); err != nil {
				d.log.Error().Err(err).Int64("user_id", ev.user.UserID).Msg("clear session")
			}
		}
		d.switchTo(ctx, ev, d.privateOfficeRender(ev.user.Locale))

	default:
		d.log.Debug().Str("action", action).Msg("unknown menu action")
		d.answer(ctx, ev.callbackID, "", false)
	}
}

func (d *Dispatcher) privateOfficeRender(locale string) menu.Render {
	return menu.Render{
		Title: d.catalog.Text(locale, "private_office"),
		Buttons: []menu.Row{{
			menu.NewButton("CoLSe", "collections", d.catalog.Text(locale, "collections")),
			menu.NewButton("MnSe", "settings", d.catalog.Text(locale, "settings")),
		}},
	}
}

func (d *Dispatcher) settingsRender(locale string) menu.Render {
	return menu.Render{
		Title: d.catalog.Text(locale, "settings"),
		Buttons: []menu.Row{
			{menu.NewButton("MnSe", "locale_settings", d.catalog.Text(locale, "locale_settings"))},
			{menu.NewButton("MnSe", "private_office", d.catalog.Text(locale, "main"))},
		},
	}
}

func (d *Dispatcher) localeSettingsRender(locale string) menu.Render {
	return menu.Render{
		Title:  d.catalog.Textf(locale, "current_language", d.catalog.LanguageName(locale)),
		Format: menu.FormatMarkdownV2,
		Buttons: []menu.Row{
			{
				menu.NewButton("MnSe", "change_language_to_en", d.catalog.Text(locale, "change_language_to_en")),
				menu.NewButton("MnSe", "change_language_to_ru", d.catalog.Text(locale, "change_language_to_ru")),
			},
			{
				menu.NewButton("MnSe", "private_office", d.catalog.Text(locale, "main")),
				menu.NewButton("MnSe", "settings", d.catalog.Text(locale, "back")),
			},
		},
	}
}

// collectionsRender builds the paginated collection list.
func (d *Dispatcher) collectionsRender(ctx context.Context, user *model.User) menu.Render {
	locale := user.Locale
	list, err := d.store.Collections().List(ctx, user.UserID)
	if err != nil {
		d.log.Error().Err(err).Int64("user_id", user.UserID).Msg("list collections")
		return menu.Render{Title: d.catalog.Text(locale, "collections")}
	}

	level := clampPageLevel(user.PageLevel, len(list), d.perPage)
	nav := menu.Navigation("CoLSe", len(list), level, "", d.perPage)

	items := make([]menu.Row, 0)
	for _, row := range pageSlice(list, level, d.perPage) {
		items = append(items, collectionButtons(row))
	}

	bottom := []menu.Row{{
		menu.NewButton("CoLSe", "add_collection", d.catalog.Text(locale, "add_collection")),
		menu.NewButton("MnSe", "private_office", d.catalog.Text(locale, "main")),
	}}

	return menu.Render{
		Title:   d.catalog.Text(locale, "collections"),
		Buttons: menu.Rows(nav, items, bottom),
	}
}

// pageSlice cuts one page out of the collection list and groups it two
// per button row.
func pageSlice(list []*model.Collection, level, perPage int) [][]*model.Collection {
	lo := level * perPage
	if lo > len(list) {
		return nil
	}
	hi := lo + perPage
	if hi > len(list) {
		hi = len(list)
	}
	page := list[lo:hi]

	var out [][]*model.Collection
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

func collectionButtons(row []*model.Collection) menu.Row {
	buttons := make(menu.Row, 0, len(row))
	for _, c := range row {
		data := session.Session{Header: session.HeaderCollection, Action: "info", Key: c.Key}
		buttons = append(buttons, menu.Button{Text: c.Name, Data: data.Encode()})
	}
	return buttons
}
