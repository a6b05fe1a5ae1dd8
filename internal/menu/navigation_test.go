package menu

import (
	"strings"
	"testing"
)

func TestNavigationSinglePage(t *testing.T) {
	rows := Navigation("CoLSe", 5, 0, "", 8)
	if len(rows) != 1 || len(rows[0]) != 0 {
		t.Fatalf("want one empty row, got %v", rows)
	}
}

func TestNavigationSmall(t *testing.T) {
	rows := Navigation("CoLSe", 20, 1, "", 8)
	if len(rows) != 1 {
		t.Fatalf("want one row, got %d", len(rows))
	}
	row := rows[0]
	if len(row) != 3 {
		t.Fatalf("want 3 page buttons, got %d: %v", len(row), row)
	}
	wantText := []string{"1", "• 2 •", "3"}
	wantData := []string{"CoLSe/level_00", "CoLSe/level_01", "CoLSe/level_02"}
	for i, b := range row {
		if b.Text != wantText[i] {
			t.Errorf("button %d text = %q, want %q", i, b.Text, wantText[i])
		}
		if b.Data != wantData[i] {
			t.Errorf("button %d data = %q, want %q", i, b.Data, wantData[i])
		}
	}
}

func TestNavigationFullNearStart(t *testing.T) {
	rows := Navigation("CaRSe", 100, 0, "K-1-a-CL", 8)
	row := rows[0]
	if len(row) != 5 {
		t.Fatalf("want 5 buttons, got %d", len(row))
	}
	wantText := []string{"• 1 •", "2", "3", "4 ›", "13 »"}
	wantData := []string{
		"CaRSe/level_00/K-1-a-CL",
		"CaRSe/level_01/K-1-a-CL",
		"CaRSe/level_02/K-1-a-CL",
		"CaRSe/level_03/K-1-a-CL",
		"CaRSe/level_12/K-1-a-CL",
	}
	for i, b := range row {
		if b.Text != wantText[i] || b.Data != wantData[i] {
			t.Errorf("button %d = %+v, want {%q %q}", i, b, wantText[i], wantData[i])
		}
	}
}

func TestNavigationFullNearEnd(t *testing.T) {
	// 100 items, 8 per page -> 13 pages, last page has level 12.
	rows := Navigation("CoLSe", 100, 12, "", 8)
	row := rows[0]
	wantText := []string{"« 1", "‹ 10", "11", "12", "• 13 •"}
	wantData := []string{
		"CoLSe/level_00", "CoLSe/level_09", "CoLSe/level_10",
		"CoLSe/level_11", "CoLSe/level_12",
	}
	for i, b := range row {
		if b.Text != wantText[i] || b.Data != wantData[i] {
			t.Errorf("button %d = %+v, want {%q %q}", i, b, wantText[i], wantData[i])
		}
	}
}

func TestNavigationFullMiddle(t *testing.T) {
	rows := Navigation("CoLSe", 100, 6, "", 8)
	row := rows[0]
	wantText := []string{"« 1", "‹ 6", "• 7 •", "8 ›", "13 »"}
	wantData := []string{
		"CoLSe/level_00", "CoLSe/level_05", "CoLSe/level_06",
		"CoLSe/level_07", "CoLSe/level_12",
	}
	for i, b := range row {
		if b.Text != wantText[i] || b.Data != wantData[i] {
			t.Errorf("button %d = %+v, want {%q %q}", i, b, wantText[i], wantData[i])
		}
	}
}

func TestNavigationBounds(t *testing.T) {
	for count := 0; count <= 200; count += 7 {
		pages := count / 8
		if count%8 != 0 {
			pages++
		}
		for level := 0; level < pages; level++ {
			row := Navigation("CoLSe", count, level, "", 8)[0]
			switch {
			case count <= 8:
				if len(row) != 0 {
					t.Fatalf("count=%d level=%d: want empty row, got %d buttons", count, level, len(row))
				}
			case count <= 40:
				if len(row) != pages {
					t.Fatalf("count=%d level=%d: want %d buttons, got %d", count, level, pages, len(row))
				}
			default:
				if len(row) != 5 {
					t.Fatalf("count=%d level=%d: want 5 buttons, got %d", count, level, len(row))
				}
			}
		}
	}
}

func TestNavigationSelectionUnique(t *testing.T) {
	for _, count := range []int{20, 40, 41, 100, 200} {
		pages := count / 8
		if count%8 != 0 {
			pages++
		}
		for level := 0; level < pages; level++ {
			row := Navigation("CoLSe", count, level, "", 8)[0]
			selected := 0
			for _, b := range row {
				if strings.HasPrefix(b.Text, "• ") {
					selected++
					want := "CoLSe/level_" + padLevel(level)
					if b.Data != want {
						t.Fatalf("count=%d level=%d: selected data %q, want %q", count, level, b.Data, want)
					}
				}
			}
			if selected != 1 {
				t.Fatalf("count=%d level=%d: %d selected buttons, want 1", count, level, selected)
			}
		}
	}
}

func TestPadLevel(t *testing.T) {
	if got := padLevel(3); got != "03" {
		t.Fatalf("padLevel(3) = %q", got)
	}
	if got := padLevel(12); got != "12" {
		t.Fatalf("padLevel(12) = %q", got)
	}
}
