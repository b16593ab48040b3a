package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/sg_finance_bot/internal/model"
)

func inlineKeyboard(rows [][]model.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var r []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			r = append(r, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(r...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(buttons...), true
}

func parseMode(f model.Format) string {
	if f == model.FormatMarkdown {
		return tgbotapi.ModeMarkdown
	}
	return ""
}

// render builds the telegram request for msg. A photo carries the text as
// its caption.
func render(msg model.Message) tgbotapi.Chattable {
	markup, hasMarkup := inlineKeyboard(msg.Keyboard)

	if p := msg.Photo; p != nil {
		var file tgbotapi.RequestFileData
		if len(p.Data) > 0 {
			name := p.Name
			if name == "" {
				name = "image.png"
			}
			file = tgbotapi.FileBytes{Name: name, Bytes: p.Data}
		} else {
			file = tgbotapi.FilePath(p.Path)
		}
		photo := tgbotapi.NewPhoto(msg.ChatID, file)
		photo.Caption = msg.Text
		photo.ParseMode = parseMode(msg.Format)
		if hasMarkup {
			photo.ReplyMarkup = markup
		}
		return photo
	}

	out := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	out.ParseMode = parseMode(msg.Format)
	if hasMarkup {
		out.ReplyMarkup = markup
	}
	return out
}
