package menu

import (
	"fmt"
	"strconv"
)

// DefaultPerPage is the number of items shown on one page of a
// collection or card list.
const DefaultPerPage = 8

// defaultNavButtons is the width of the sliding navigation window.
const defaultNavButtons = 5

// Navigation builds the page-switching row for a list of count items.
//
// With one page there is no row at all. While one button per page fits
// within the window budget, every page gets its own button. Beyond that
// a five-button sliding window is rendered, with distinct layouts near
// the start, near the end, and in the middle of the page range.
//
// Each button's payload carries the destination page as a two-digit,
// zero-padded index (`level_03`), plus the owning collection key when
// one is supplied, so pagination state can be restored from the button
// alone.
func Navigation(header string, count, level int, key string, perPage int) []Row {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	pages := count/perPage + boolToInt(count%perPage != 0)

	if count < perPage+1 {
		return []Row{{}}
	}
	if count < defaultNavButtons*perPage+1 {
		return smallNavigation(header, pages, level, key)
	}
	return fullNavigation(header, pages, level, key, defaultNavButtons)
}

// smallNavigation renders one button per page, the current page marked
// with the selected glyph.
func smallNavigation(header string, pages, level int, key string) []Row {
	row := make(Row, 0, pages)
	for page := 0; page < pages; page++ {
		name := strconv.Itoa(page + 1)
		if page == level {
			name = "• " + name + " •"
		}
		row = append(row, Button{Text: name, Data: levelData(header, page, key)})
	}
	return []Row{row}
}

// fullNavigation renders exactly budget buttons using a sliding window
// with three zones: near the start, near the end, and the middle.
func fullNavigation(header string, pages, level int, key string, budget int) []Row {
	row := make(Row, 0, budget)
	for slot := 0; slot < budget; slot++ {
		var page int // 1-based destination page
		var style string

		switch {
		case level == 0 || level == 1:
			// [1, 2, 3, next ›, last »] with the current page selected.
			if slot == budget-1 {
				page = pages
			} else {
				page = slot + 1
			}
			switch {
			case slot == level:
				style = "• %d •"
			case slot == budget-2:
				style = "%d ›"
			case slot == budget-1:
				style = "%d »"
			default:
				style = "%d"
			}

		case level == pages-1 || level == pages-2:
			// Mirror of the start case: [« first, ‹ prev, n-2, n-1, n].
			if slot == 0 {
				page = 1
			} else {
				page = pages + slot - (budget - 1)
			}
			switch {
			case slot == level-pages+budget:
				style = "• %d •"
			case slot == 0:
				style = "« %d"
			case slot == 1:
				style = "‹ %d"
			default:
				style = "%d"
			}

		default:
			// [« first, ‹ prev, current, next ›, last »].
			switch slot {
			case 0:
				page = 1
				style = "« %d"
			case 1:
				page = level
				style = "‹ %d"
			case budget - 2:
				page = level + 2
				style = "%d ›"
			case budget - 1:
				page = pages
				style = "%d »"
			default:
				page = level + 1
				style = "• %d •"
			}
		}

		name := fmt.Sprintf(style, page)
		row = append(row, Button{Text: name, Data: levelData(header, page-1, key)})
	}
	return []Row{row}
}

// levelData encodes a page destination as header/level_DD[/key]. The
// index is zero-left-padded to two digits; downstream decoding assumes
// the fixed width.
func levelData(header string, index int, key string) string {
	data := header + "/level_" + padLevel(index)
	if key != "" {
		data += "/" + key
	}
	return data
}

// padLevel reproduces the original `'0'*(1 - index//10) + index`
// convention: a single leading zero below ten, none otherwise.
func padLevel(index int) string {
	if index < 10 {
		return "0" + strconv.Itoa(index)
	}
	return strconv.Itoa(index)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
