package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ivanoskov/sg_finance_bot/internal/advice"
	"github.com/ivanoskov/sg_finance_bot/internal/logger"
	"github.com/ivanoskov/sg_finance_bot/internal/model"
	"github.com/ivanoskov/sg_finance_bot/internal/repository"
	"github.com/ivanoskov/sg_finance_bot/internal/service"
)

// Advisor answers free-text prompts. It never fails; errors are replaced by
// a fallback answer.
type Advisor interface {
	Advise(ctx context.Context, prompt string) string
}

// ChartRenderer draws the category breakdown of a summary as an image.
type ChartRenderer interface {
	CategoryPie(summary service.Summary) ([]byte, error)
}

type Options struct {
	// MaxTextLength bounds free-text input in runes. Zero disables the check.
	MaxTextLength int
	// MenuImagePath is sent as a photo before the main menu when set.
	MenuImagePath string
}

type selectionHandler func(ctx context.Context, chatID int64) ([]model.Message, error)

// Router is the conversation state machine. It turns one inbound event into
// the replies for that chat. Callers must not run two events of the same
// chat concurrently.
type Router struct {
	sessions repository.SessionRepository
	tracker  *service.ExpenseTracker
	advisor  Advisor
	feedback repository.FeedbackRepository
	charts   ChartRenderer
	opts     Options

	selections map[string]selectionHandler
}

func New(
	sessions repository.SessionRepository,
	tracker *service.ExpenseTracker,
	advisor Advisor,
	feedback repository.FeedbackRepository,
	charts ChartRenderer,
	opts Options,
) *Router {
	r := &Router{
		sessions: sessions,
		tracker:  tracker,
		advisor:  advisor,
		feedback: feedback,
		charts:   charts,
		opts:     opts,
	}
	r.selections = map[string]selectionHandler{
		SelectExpenseMenu:     r.expenseMenu,
		SelectGoalMenu:        r.goalMenu,
		SelectGeneralEnquiry:  r.startEnquiry,
		SelectFeedback:        r.startFeedback,
		SelectAddExpense:      r.chooseCategory,
		SelectViewExpenses:    r.viewSummary,
		SelectViewAllExpenses: r.viewAllExpenses,
		SelectClearExpenses:   r.clearExpenses,
		SelectExpenseChart:    r.expenseChart,
		SelectSetGoal:         r.startGoal,
		SelectViewGoal:        r.viewGoal,
		SelectMainMenu:        r.mainMenu,
	}
	for _, c := range model.Categories() {
		r.selections[SelectCategory(c)] = r.selectCategory(c)
	}
	return r
}

// Handle processes one event. Unknown selections, stray text and commands
// other than start produce no replies and leave all state untouched.
func (r *Router) Handle(ctx context.Context, ev model.Event) []model.Message {
	var (
		msgs []model.Message
		err  error
	)

	switch ev.Kind {
	case model.EventStart:
		msgs, err = r.start(ctx, ev.ChatID)
	case model.EventCommand:
		if ev.Payload == "start" {
			msgs, err = r.start(ctx, ev.ChatID)
		}
	case model.EventSelection:
		handler, ok := r.selections[ev.Payload]
		if !ok {
			logger.Get().Debug("ignoring unknown selection",
				zap.Int64("chat_id", ev.ChatID),
				zap.String("selection", ev.Payload))
			return nil
		}
		msgs, err = handler(ctx, ev.ChatID)
	case model.EventText:
		msgs, err = r.handleText(ctx, ev.ChatID, ev.Payload)
	}

	if err != nil {
		logger.Get().Error("failed to handle event",
			zap.Int64("chat_id", ev.ChatID),
			zap.Int("kind", int(ev.Kind)),
			zap.String("payload", ev.Payload),
			zap.Error(err))
		return []model.Message{plain(ev.ChatID, textGenericError, single(mainMenuButton))}
	}
	return msgs
}

// Selections lists every selection id the router reacts to.
func (r *Router) Selections() []string {
	out := make([]string, 0, len(r.selections))
	for id := range r.selections {
		out = append(out, id)
	}
	return out
}

func plain(chatID int64, text string, keyboard [][]model.Button) model.Message {
	return model.Message{ChatID: chatID, Text: text, Format: model.FormatPlain, Keyboard: keyboard}
}

func markdown(chatID int64, text string, keyboard [][]model.Button) model.Message {
	return model.Message{ChatID: chatID, Text: text, Format: model.FormatMarkdown, Keyboard: keyboard}
}

func (r *Router) setState(ctx context.Context, chatID int64, s model.Session) error {
	if err := r.sessions.SaveSession(ctx, chatID, s); err != nil {
		return fmt.Errorf("failed to save session %s: %w", s, err)
	}
	return nil
}

func (r *Router) menuPhoto(chatID int64, caption string) []model.Message {
	if r.opts.MenuImagePath == "" {
		return nil
	}
	return []model.Message{{
		ChatID: chatID,
		Text:   caption,
		Photo:  &model.Photo{Path: r.opts.MenuImagePath},
	}}
}

func (r *Router) start(ctx context.Context, chatID int64) ([]model.Message, error) {
	if err := r.setState(ctx, chatID, model.Idle()); err != nil {
		return nil, err
	}
	msgs := r.menuPhoto(chatID, textWelcome)
	return append(msgs, plain(chatID, textStartMenu, mainMenuKeyboard())), nil
}

func (r *Router) mainMenu(ctx context.Context, chatID int64) ([]model.Message, error) {
	if err := r.setState(ctx, chatID, model.Idle()); err != nil {
		return nil, err
	}
	msgs := r.menuPhoto(chatID, textWelcomeBack)
	return append(msgs, plain(chatID, textMainMenu, mainMenuKeyboard())), nil
}

func (r *Router) expenseMenu(_ context.Context, chatID int64) ([]model.Message, error) {
	return []model.Message{plain(chatID, textExpenseMenu, expenseMenuKeyboard())}, nil
}

func (r *Router) goalMenu(_ context.Context, chatID int64) ([]model.Message, error) {
	return []model.Message{plain(chatID, textGoalMenu, goalMenuKeyboard())}, nil
}

func (r *Router) chooseCategory(_ context.Context, chatID int64) ([]model.Message, error) {
	return []model.Message{plain(chatID, textChooseCategory, categoryKeyboard())}, nil
}

func (r *Router) selectCategory(c model.Category) selectionHandler {
	return func(ctx context.Context, chatID int64) ([]model.Message, error) {
		if err := r.setState(ctx, chatID, model.AwaitingAmount(c)); err != nil {
			return nil, err
		}
		text := fmt.Sprintf("Selected category: %s\nPlease enter the expense amount in SGD (e.g., 15.50):", c.Label())
		return []model.Message{plain(chatID, text, nil)}, nil
	}
}

func (r *Router) startGoal(ctx context.Context, chatID int64) ([]model.Message, error) {
	if err := r.setState(ctx, chatID, model.AwaitingGoalText()); err != nil {
		return nil, err
	}
	return []model.Message{plain(chatID, textGoalPrompt, nil)}, nil
}

func (r *Router) startFeedback(ctx context.Context, chatID int64) ([]model.Message, error) {
	if err := r.setState(ctx, chatID, model.AwaitingFeedback()); err != nil {
		return nil, err
	}
	return []model.Message{plain(chatID, textFeedbackPrompt, single(backToMainButton))}, nil
}

func (r *Router) startEnquiry(ctx context.Context, chatID int64) ([]model.Message, error) {
	if err := r.setState(ctx, chatID, model.AwaitingEnquiry()); err != nil {
		return nil, err
	}
	return []model.Message{plain(chatID, textEnquiryPrompt, single(backToMainButton))}, nil
}

// viewSummary replies with the category breakdown and, for a non-empty
// ledger, a tip on the top category. The reply waits for the tip.
func (r *Router) viewSummary(ctx context.Context, chatID int64) ([]model.Message, error) {
	summary, err := r.tracker.GetSummary(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if summary.Empty() {
		return []model.Message{plain(chatID, textNoExpenses, single(backToExpenseButton))}, nil
	}

	text := summaryText(summary)
	top := summary.TopCategory
	tip := r.advisor.Advise(ctx, advice.TipPrompt(string(top)))
	text += fmt.Sprintf("\n\n💡 *Tip:* Your highest spending is in %s. %s", top.Label(), tip)
	return []model.Message{markdown(chatID, text, summaryKeyboard())}, nil
}

func (r *Router) viewAllExpenses(ctx context.Context, chatID int64) ([]model.Message, error) {
	expenses, err := r.tracker.ListExpenses(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return []model.Message{plain(chatID, textNoExpenses, single(backToExpenseButton))}, nil
	}
	back := button("🔙 Back", SelectViewExpenses)
	return []model.Message{markdown(chatID, expenseListText(expenses), single(back))}, nil
}

func (r *Router) clearExpenses(ctx context.Context, chatID int64) ([]model.Message, error) {
	n, err := r.tracker.ClearExpenses(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []model.Message{plain(chatID, textNothingToClear, single(backToExpenseButton))}, nil
	}
	logger.Get().Info("expenses cleared", zap.Int64("chat_id", chatID), zap.Int("count", n))
	back := button("🔙 Back to Expense Tracking", SelectExpenseMenu)
	return []model.Message{plain(chatID, textCleared, single(back))}, nil
}

func (r *Router) expenseChart(ctx context.Context, chatID int64) ([]model.Message, error) {
	summary, err := r.tracker.GetSummary(ctx, chatID)
	if err != nil {
		return nil, err
	}
	back := single(button("🔙 Back", SelectViewExpenses))
	if summary.Empty() {
		return []model.Message{plain(chatID, textNoExpenses, single(backToExpenseButton))}, nil
	}

	png, err := r.charts.CategoryPie(summary)
	if err != nil {
		logger.Get().Error("failed to render expense chart", zap.Int64("chat_id", chatID), zap.Error(err))
		return []model.Message{plain(chatID, textChartFailed, back)}, nil
	}
	return []model.Message{{
		ChatID:   chatID,
		Text:     textChartCaption,
		Keyboard: back,
		Photo:    &model.Photo{Name: "expenses.png", Data: png},
	}}, nil
}

func (r *Router) viewGoal(ctx context.Context, chatID int64) ([]model.Message, error) {
	goal, ok, err := r.tracker.GetGoal(ctx, chatID)
	if err != nil {
		return nil, err
	}
	back := single(button("🔙 Back", SelectGoalMenu))
	if !ok {
		return []model.Message{plain(chatID, textNoGoal, back)}, nil
	}
	return []model.Message{markdown(chatID, fmt.Sprintf("🎯 *Your current goal:* %s", goal), back)}, nil
}

func (r *Router) handleText(ctx context.Context, chatID int64, text string) ([]model.Message, error) {
	if text == "" || strings.HasPrefix(text, "/") {
		return nil, nil
	}

	session, err := r.sessions.GetSession(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !session.Expecting() {
		return nil, nil
	}

	if r.opts.MaxTextLength > 0 && utf8.RuneCountInString(text) > r.opts.MaxTextLength {
		reply := fmt.Sprintf("That message is too long. Please keep it under %d characters.", r.opts.MaxTextLength)
		return []model.Message{plain(chatID, reply, nil)}, nil
	}

	switch session.Kind() {
	case model.StateAwaitingAmount:
		c, _ := session.Category()
		return r.enterAmount(ctx, chatID, c, text)
	case model.StateAwaitingGoalText:
		return r.enterGoal(ctx, chatID, text)
	case model.StateAwaitingFeedback:
		return r.enterFeedback(ctx, chatID, text)
	case model.StateAwaitingEnquiry:
		return r.enterEnquiry(ctx, chatID, text)
	}
	return nil, nil
}

func (r *Router) enterAmount(ctx context.Context, chatID int64, c model.Category, text string) ([]model.Message, error) {
	amount, err := model.ParseAmount(text)
	if err != nil {
		return []model.Message{plain(chatID, textInvalidAmount, nil)}, nil
	}

	expense, err := r.tracker.AddExpense(ctx, chatID, c, amount)
	if errors.Is(err, model.ErrInvalidAmount) {
		return []model.Message{plain(chatID, textInvalidAmount, nil)}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.setState(ctx, chatID, model.Idle()); err != nil {
		return nil, err
	}

	logger.Get().Info("expense added",
		zap.Int64("chat_id", chatID),
		zap.String("category", string(c)),
		zap.String("amount", expense.Amount.StringFixed(2)))
	reply := fmt.Sprintf("✅ Expense added: %s for %s", model.FormatMoney(expense.Amount), c.Label())
	return []model.Message{plain(chatID, reply, afterExpenseKeyboard())}, nil
}

func (r *Router) enterGoal(ctx context.Context, chatID int64, text string) ([]model.Message, error) {
	if err := r.tracker.SetGoal(ctx, chatID, text); err != nil {
		return nil, err
	}
	if err := r.setState(ctx, chatID, model.Idle()); err != nil {
		return nil, err
	}
	reply := fmt.Sprintf("✅ Financial goal set: *%s*\n\nI'll send you daily reminders to help you stay on track!", text)
	return []model.Message{markdown(chatID, reply, single(mainMenuButton))}, nil
}

// enterFeedback only leaves the feedback state once the sink accepted the text.
func (r *Router) enterFeedback(ctx context.Context, chatID int64, text string) ([]model.Message, error) {
	fb := model.NewFeedback(chatID, text, r.tracker.Now())
	if err := r.feedback.SaveFeedback(ctx, fb); err != nil {
		logger.Get().Error("failed to save feedback", zap.Int64("chat_id", chatID), zap.Error(err))
		return []model.Message{plain(chatID, textFeedbackFailed, nil)}, nil
	}
	if err := r.setState(ctx, chatID, model.Idle()); err != nil {
		return nil, err
	}
	return []model.Message{plain(chatID, textFeedbackThanks, single(mainMenuButton))}, nil
}

func (r *Router) enterEnquiry(ctx context.Context, chatID int64, text string) ([]model.Message, error) {
	reply := r.advisor.Advise(ctx, text)
	if err := r.setState(ctx, chatID, model.Idle()); err != nil {
		return nil, err
	}
	return []model.Message{plain(chatID, reply, enquiryReplyKeyboard())}, nil
}
