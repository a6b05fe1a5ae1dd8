// Package menu builds inline-keyboard layouts and the render
// instructions consumed by the outbound send/edit collaborator.
package menu

import "strings"

// Format hints how the title text should be parsed by the platform.
type Format int

const (
	FormatPlain Format = iota
	FormatMarkdown
	FormatMarkdownV2
)

// Button is a single inline button: visible label plus the raw session
// string delivered back when it is pressed.
type Button struct {
	Text string
	Data string
}

// Row is one horizontal layer of buttons.
type Row []Button

// Render is the instruction handed to the sender: a title and the
// button layout that should accompany it.
type Render struct {
	Title          string
	Buttons        []Row
	Format         Format
	DisablePreview bool
}

// NewButton builds a button whose payload is header/data.
func NewButton(header, data, text string) Button {
	return Button{Text: text, Data: header + "/" + data}
}

// Rows concatenates button layers into a single layout, skipping empty
// layers so navigation stubs do not render as blank lines.
func Rows(layers ...[]Row) []Row {
	var out []Row
	for _, layer := range layers {
		for _, row := range layer {
			if len(row) > 0 {
				out = append(out, row)
			}
		}
	}
	return out
}

// EscapeMarkdown escapes characters that are markup in MarkdownV2 so
// user-supplied names survive inside formatted titles.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
	"(", "\\(", ")", "\\)", "~", "\\~", "`", "\\`",
	">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}",
	".", "\\.", "!", "\\!",
)
