package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ivanoskov/sg_finance_bot/internal/logger"
	"github.com/ivanoskov/sg_finance_bot/internal/model"
	"github.com/ivanoskov/sg_finance_bot/internal/worker"
)

// Handler turns one inbound event into replies.
type Handler interface {
	Handle(ctx context.Context, ev model.Event) []model.Message
}

// Pool runs jobs serialized per key. Submit must not block.
type Pool interface {
	Submit(ctx context.Context, key int64, job worker.Job) error
}

// telegramAPI is the subset of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api     telegramAPI
	handler Handler
	pool    Pool
}

func NewBot(token string, handler Handler, pool Pool) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	logger.Get().Info("Authorized on telegram", zap.String("username", api.Self.UserName))
	return newBot(api, handler, pool), nil
}

func newBot(api telegramAPI, handler Handler, pool Pool) *Bot {
	return &Bot{api: api, handler: handler, pool: pool}
}

// Start long-polls telegram until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// Send delivers msg. Markdown that telegram refuses to parse is resent as
// plain text.
func (b *Bot) Send(ctx context.Context, msg model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.api.Send(render(msg))
	if err != nil && msg.Format == model.FormatMarkdown {
		logger.Get().Warn("markdown rejected, resending as plain text",
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err))
		msg.Format = model.FormatPlain
		_, err = b.api.Send(render(msg))
	}
	if err != nil {
		return fmt.Errorf("failed to send to chat %d: %w", msg.ChatID, err)
	}
	return nil
}
