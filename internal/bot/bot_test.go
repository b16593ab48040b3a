package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/sg_finance_bot/internal/model"
	"github.com/ivanoskov/sg_finance_bot/internal/worker"
)

type fakeAPI struct {
	mu             sync.Mutex
	updates        chan tgbotapi.Update
	sent           []tgbotapi.Chattable
	requests       []tgbotapi.Chattable
	rejectMarkdown bool
	stopped        bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok && f.rejectMarkdown && m.ParseMode != "" {
		return tgbotapi.Message{}, errors.New("bad request: can't parse entities")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// inlinePool runs jobs synchronously.
type inlinePool struct{}

func (inlinePool) Submit(ctx context.Context, _ int64, job worker.Job) error {
	job(ctx)
	return nil
}

// rejectingPool refuses every job with err.
type rejectingPool struct{ err error }

func (p rejectingPool) Submit(context.Context, int64, worker.Job) error {
	return p.err
}

type echoHandler struct {
	mu     sync.Mutex
	events []model.Event
}

func (h *echoHandler) Handle(_ context.Context, ev model.Event) []model.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return []model.Message{{ChatID: ev.ChatID, Text: "echo: " + ev.Payload}}
}

func commandMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func TestEventFromUpdate(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
		want   model.Event
		ok     bool
	}{
		{
			name:   "start command",
			update: tgbotapi.Update{Message: commandMessage(1, "/start")},
			want:   model.Event{ChatID: 1, Kind: model.EventStart},
			ok:     true,
		},
		{
			name:   "start addressed to the bot",
			update: tgbotapi.Update{Message: commandMessage(1, "/start@sg_finance_bot")},
			want:   model.Event{ChatID: 1, Kind: model.EventStart},
			ok:     true,
		},
		{
			name:   "other command",
			update: tgbotapi.Update{Message: commandMessage(2, "/help")},
			want:   model.Event{ChatID: 2, Kind: model.EventCommand, Payload: "help"},
			ok:     true,
		},
		{
			name:   "text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 3}, Text: "12.50"}},
			want:   model.Event{ChatID: 3, Kind: model.EventText, Payload: "12.50"},
			ok:     true,
		},
		{
			name: "callback",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "cb",
				Data:    "add_expense",
				Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 4}},
			}},
			want: model.Event{ChatID: 4, Kind: model.EventSelection, Payload: "add_expense"},
			ok:   true,
		},
		{
			name:   "sticker",
			update: tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 5}}},
		},
		{
			name:   "callback without message",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "cb", Data: "feedback"}},
		},
		{
			name:   "edited message",
			update: tgbotapi.Update{EditedMessage: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 6}, Text: "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := eventFromUpdate(tt.update)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("eventFromUpdate() = %+v, %v, want %+v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRenderMessage(t *testing.T) {
	c := render(model.Message{
		ChatID: 9,
		Text:   "*Summary*",
		Format: model.FormatMarkdown,
		Keyboard: [][]model.Button{
			model.Row(model.Button{Label: "A", Data: "a"}, model.Button{Label: "B", Data: "b"}),
			model.Row(model.Button{Label: "Back", Data: "main_menu"}),
		},
	})

	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("expected MessageConfig, got %T", c)
	}
	if msg.ChatID != 9 || msg.Text != "*Summary*" || msg.ParseMode != tgbotapi.ModeMarkdown {
		t.Fatalf("unexpected message %+v", msg)
	}
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard, got %T", msg.ReplyMarkup)
	}
	if len(markup.InlineKeyboard) != 2 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("unexpected layout %+v", markup.InlineKeyboard)
	}
	if data := markup.InlineKeyboard[1][0].CallbackData; data == nil || *data != "main_menu" {
		t.Fatalf("unexpected callback data %v", data)
	}
}

func TestRenderPlainWithoutKeyboard(t *testing.T) {
	msg := render(model.Message{ChatID: 1, Text: "hi"}).(tgbotapi.MessageConfig)
	if msg.ParseMode != "" || msg.ReplyMarkup != nil {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestRenderPhoto(t *testing.T) {
	withData := render(model.Message{
		ChatID: 1,
		Text:   "chart",
		Photo:  &model.Photo{Name: "expenses.png", Data: []byte{1, 2, 3}},
	})
	photo, ok := withData.(tgbotapi.PhotoConfig)
	if !ok {
		t.Fatalf("expected PhotoConfig, got %T", withData)
	}
	if photo.Caption != "chart" {
		t.Fatalf("caption = %q", photo.Caption)
	}
	if fb, ok := photo.File.(tgbotapi.FileBytes); !ok || fb.Name != "expenses.png" || len(fb.Bytes) != 3 {
		t.Fatalf("unexpected file %#v", photo.File)
	}

	fromPath := render(model.Message{ChatID: 1, Photo: &model.Photo{Path: "menu.jpg"}}).(tgbotapi.PhotoConfig)
	if fp, ok := fromPath.File.(tgbotapi.FilePath); !ok || string(fp) != "menu.jpg" {
		t.Fatalf("unexpected file %#v", fromPath.File)
	}
}

func TestSendFallsBackToPlain(t *testing.T) {
	api := newFakeAPI()
	api.rejectMarkdown = true
	b := newBot(api, &echoHandler{}, inlinePool{})

	err := b.Send(context.Background(), model.Message{ChatID: 1, Text: "goal *unbalanced", Format: model.FormatMarkdown})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("expected one delivered message, got %d", len(api.sent))
	}
	if m := api.sent[0].(tgbotapi.MessageConfig); m.ParseMode != "" {
		t.Fatalf("retry should be plain, got %q", m.ParseMode)
	}
}

func TestHandleUpdate(t *testing.T) {
	api := newFakeAPI()
	handler := &echoHandler{}
	b := newBot(api, handler, inlinePool{})

	b.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    "view_expenses",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 77}},
	}})

	if len(api.requests) != 1 {
		t.Fatalf("callback not acknowledged")
	}
	if cb, ok := api.requests[0].(tgbotapi.CallbackConfig); !ok || cb.CallbackQueryID != "cb-1" {
		t.Fatalf("unexpected request %#v", api.requests[0])
	}
	if len(handler.events) != 1 || handler.events[0].Payload != "view_expenses" {
		t.Fatalf("unexpected events %+v", handler.events)
	}
	if len(api.sent) != 1 || api.sent[0].(tgbotapi.MessageConfig).Text != "echo: view_expenses" {
		t.Fatalf("unexpected replies %+v", api.sent)
	}
}

func TestStartProcessesUpdatesUntilCancelled(t *testing.T) {
	api := newFakeAPI()
	pool := worker.NewWorkerPool(10, time.Minute)
	pool.Start()
	b := newBot(api, &echoHandler{}, pool)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "hello"}}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 2}, Text: "world"}}

	deadline := time.Now().Add(2 * time.Second)
	for api.sentCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 replies, got %d", api.sentCount())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start: %v", err)
	}
	pool.Stop()

	api.mu.Lock()
	defer api.mu.Unlock()
	if !api.stopped {
		t.Fatal("update polling was not stopped")
	}
}

func TestHandleUpdateRejected(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantBusy bool
	}{
		{"queue full", worker.ErrQueueFull, true},
		{"pool stopped", worker.ErrStopped, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			handler := &echoHandler{}
			b := newBot(api, handler, rejectingPool{err: tt.err})

			b.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 4}, Text: "5"}})

			if len(handler.events) != 0 {
				t.Fatalf("rejected update reached the handler: %+v", handler.events)
			}
			if !tt.wantBusy {
				time.Sleep(20 * time.Millisecond)
				if api.sentCount() != 0 {
					t.Fatalf("unexpected replies %+v", api.sent)
				}
				return
			}

			deadline := time.Now().Add(2 * time.Second)
			for api.sentCount() < 1 {
				if time.Now().After(deadline) {
					t.Fatal("busy notice was not sent")
				}
				time.Sleep(5 * time.Millisecond)
			}
			api.mu.Lock()
			defer api.mu.Unlock()
			if m := api.sent[0].(tgbotapi.MessageConfig); m.ChatID != 4 || m.Text != busyText {
				t.Fatalf("unexpected notice %#v", m)
			}
		})
	}
}
