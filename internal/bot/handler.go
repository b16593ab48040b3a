package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ivanoskov/sg_finance_bot/internal/logger"
	"github.com/ivanoskov/sg_finance_bot/internal/model"
	"github.com/ivanoskov/sg_finance_bot/internal/worker"
)

const busyText = "I'm still working on your previous messages, please wait a moment."

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.acknowledge(update.CallbackQuery)
	}

	ev, ok := eventFromUpdate(update)
	if !ok {
		return
	}

	err := b.pool.Submit(ctx, ev.ChatID, func(jobCtx context.Context) {
		for _, msg := range b.handler.Handle(jobCtx, ev) {
			if err := b.Send(jobCtx, msg); err != nil {
				logger.Get().Error("failed to deliver reply", zap.Int64("chat_id", ev.ChatID), zap.Error(err))
			}
		}
	})
	if err == nil {
		return
	}
	logger.Get().Warn("update dropped", zap.Int64("chat_id", ev.ChatID), zap.Error(err))
	if errors.Is(err, worker.ErrQueueFull) {
		// off the polling loop so a slow send cannot hold up other chats
		go b.notifyBusy(ctx, ev.ChatID)
	}
}

func (b *Bot) notifyBusy(ctx context.Context, chatID int64) {
	if err := b.Send(ctx, model.Message{ChatID: chatID, Text: busyText}); err != nil {
		logger.Get().Warn("failed to send busy notice", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// acknowledge stops the client-side spinner of an inline button.
func (b *Bot) acknowledge(cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		logger.Get().Warn("failed to answer callback", zap.String("callback_id", cq.ID), zap.Error(err))
	}
}

// eventFromUpdate maps a telegram update onto a router event. Updates the
// router has no use for (edits, stickers, channel posts) report false.
func eventFromUpdate(update tgbotapi.Update) (model.Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.Message == nil || cq.Message.Chat == nil {
			return model.Event{}, false
		}
		return model.Event{ChatID: cq.Message.Chat.ID, Kind: model.EventSelection, Payload: cq.Data}, true
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return model.Event{}, false
	}
	if msg.IsCommand() {
		if msg.Command() == "start" {
			return model.Event{ChatID: msg.Chat.ID, Kind: model.EventStart}, true
		}
		return model.Event{ChatID: msg.Chat.ID, Kind: model.EventCommand, Payload: msg.Command()}, true
	}
	if msg.Text == "" {
		return model.Event{}, false
	}
	return model.Event{ChatID: msg.Chat.ID, Kind: model.EventText, Payload: msg.Text}, true
}
