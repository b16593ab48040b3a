package advice

import (
	"regexp"
	"strings"
)

// Bullet is the canonical list marker in sanitized text.
const Bullet = "• "

var (
	bulletPrefix = regexp.MustCompile(`(?m)^[ \t]*[•*\-][ \t]+`)
	headingMark  = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	markupTag    = regexp.MustCompile(`</?[a-zA-Z][^<>]*>`)
	trailingWS   = regexp.MustCompile(`(?m)[ \t]+$`)
	lineBreaks   = regexp.MustCompile(`\n+`)
	emphasis     = strings.NewReplacer("**", "", "__", "", "*", "", "`", "")

	// _word_ only when the underscores are not inside a word, so snake_case survives
	underscored = regexp.MustCompile(`(^|[^\p{L}\p{N}_])_([^_\n]+)_([^\p{L}\p{N}_]|$)`)
)

// Sanitize turns model output into plain chat text:
//
//	"* save more\n- spend less"   -> "• save more\n\n• spend less"
//	"**Bold** and *italic*"       -> "Bold and italic"
//	"_italic_ but snake_case"     -> "italic but snake_case"
//	"## CPF\nTop up <b>now</b>"   -> "CPF\n\nTop up now"
//	"a\n\n\n\nb"                  -> "a\n\nb"
//
// List markers are normalized before emphasis is stripped so that "* item"
// keeps its bullet. Every run of line breaks becomes exactly one paragraph break.
func Sanitize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = bulletPrefix.ReplaceAllString(text, Bullet)
	text = headingMark.ReplaceAllString(text, "")
	text = emphasis.Replace(text)
	text = stripUnderscored(text)
	text = markupTag.ReplaceAllString(text, "")
	text = trailingWS.ReplaceAllString(text, "")
	text = lineBreaks.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// stripUnderscored repeats until stable because neighbouring matches such as
// "_a_ _b_" share the space between them.
func stripUnderscored(text string) string {
	for {
		next := underscored.ReplaceAllString(text, "${1}${2}${3}")
		if next == text {
			return text
		}
		text = next
	}
}
