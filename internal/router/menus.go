package router

import (
	"fmt"
	"strings"

	"github.com/ivanoskov/sg_finance_bot/internal/model"
	"github.com/ivanoskov/sg_finance_bot/internal/service"
)

// Selection ids carried in inline button data.
const (
	SelectExpenseMenu     = "expense_tracking"
	SelectGoalMenu        = "financial_goals"
	SelectGeneralEnquiry  = "general_enquiries"
	SelectFeedback        = "feedback"
	SelectAddExpense      = "add_expense"
	SelectViewExpenses    = "view_expenses"
	SelectViewAllExpenses = "view_all_expenses"
	SelectClearExpenses   = "clear_expenses"
	SelectExpenseChart    = "expense_chart"
	SelectSetGoal         = "set_goal"
	SelectViewGoal        = "view_goal"
	SelectMainMenu        = "main_menu"

	categoryPrefix = "category_"
)

// SelectCategory is the selection id of a category button.
func SelectCategory(c model.Category) string {
	return categoryPrefix + string(c)
}

const (
	textWelcome        = "Welcome to your Singapore Finance Assistant 🇸🇬"
	textWelcomeBack    = "Welcome back to your Singapore Finance Assistant 🇸🇬"
	textStartMenu      = "I can help you manage your finances in Singapore. What would you like to do?"
	textMainMenu       = "Main Menu - What would you like to do?"
	textExpenseMenu    = "Expense Tracking Options:"
	textGoalMenu       = "Financial Goals Options:"
	textChooseCategory = "Please select a category for your expense:"
	textEnquiryPrompt  = "Hello! How are you doing today? What can I help you with regarding finances in Singapore?"
	textFeedbackPrompt = "Please share your feedback or questions about the bot. We appreciate your input!"
	textGoalPrompt     = "Please set your financial goal in this format:\n\n'amount in SGD + target date + purpose'\n\nExample: '500 by December 2025 for emergency fund'"
	textInvalidAmount  = "Please enter a valid expense amount (a positive number)."
	textNoExpenses     = "You haven't tracked any expenses yet."
	textNoGoal         = "You haven't set a financial goal yet."
	textCleared        = "✅ Your expenses have been cleared!"
	textNothingToClear = "You have no expenses to clear."
	textFeedbackThanks = "Thank you for your feedback! We appreciate your input."
	textFeedbackFailed = "There was an issue saving your feedback. Please try again later."
	textChartFailed    = "Sorry, I couldn't draw your spending chart right now."
	textGenericError   = "Something went wrong on our side. Please try again later."
	textChartCaption   = "📈 Your spending by category"
)

func button(label, data string) model.Button {
	return model.Button{Label: label, Data: data}
}

var (
	backToMainButton    = button("🔙 Back to Main Menu", SelectMainMenu)
	mainMenuButton      = button("🔙 Main Menu", SelectMainMenu)
	backToExpenseButton = button("🔙 Back", SelectExpenseMenu)
)

func mainMenuKeyboard() [][]model.Button {
	return [][]model.Button{
		model.Row(button("📊 Expense Tracking", SelectExpenseMenu)),
		model.Row(button("💰 Financial Goals", SelectGoalMenu)),
		model.Row(button("ℹ️ General Enquiries", SelectGeneralEnquiry)),
		model.Row(button("📩 Feedback & Support", SelectFeedback)),
	}
}

func expenseMenuKeyboard() [][]model.Button {
	return [][]model.Button{
		model.Row(
			button("📝 Add New Expense", SelectAddExpense),
			button("📊 View Expenses", SelectViewExpenses),
		),
		model.Row(backToMainButton),
	}
}

func goalMenuKeyboard() [][]model.Button {
	return [][]model.Button{
		model.Row(button("🎯 Set Financial Goal", SelectSetGoal)),
		model.Row(button("👀 View Current Goal", SelectViewGoal)),
		model.Row(backToMainButton),
	}
}

// categoryKeyboard lays the categories out two per row followed by a back button.
func categoryKeyboard() [][]model.Button {
	const perRow = 2
	cats := model.Categories()
	var rows [][]model.Button
	for i := 0; i < len(cats); i += perRow {
		var row []model.Button
		for j := i; j < i+perRow && j < len(cats); j++ {
			row = append(row, button(cats[j].Label(), SelectCategory(cats[j])))
		}
		rows = append(rows, row)
	}
	return append(rows, model.Row(backToExpenseButton))
}

func afterExpenseKeyboard() [][]model.Button {
	return [][]model.Button{
		model.Row(
			button("Add Another Expense", SelectAddExpense),
			button("View Expenses", SelectViewExpenses),
		),
		model.Row(mainMenuButton),
	}
}

func summaryKeyboard() [][]model.Button {
	return [][]model.Button{
		model.Row(
			button("See All Expenses", SelectViewAllExpenses),
			button("Clear Expenses", SelectClearExpenses),
		),
		model.Row(button("📈 Spending Chart", SelectExpenseChart)),
		model.Row(backToExpenseButton),
	}
}

func enquiryReplyKeyboard() [][]model.Button {
	return [][]model.Button{
		model.Row(button("Ask Another Question", SelectGeneralEnquiry)),
		model.Row(mainMenuButton),
	}
}

func single(b model.Button) [][]model.Button {
	return [][]model.Button{model.Row(b)}
}

func summaryText(s service.Summary) string {
	var b strings.Builder
	b.WriteString("*Your Expenses Summary*\n\n")
	b.WriteString("*Category Breakdown:*\n")
	for _, c := range s.Categories {
		fmt.Fprintf(&b, "%s: %s (%s%%)\n", c.Category.Label(), model.FormatMoney(c.Amount), c.Share.StringFixed(1))
	}
	fmt.Fprintf(&b, "\n*Total Expenses: %s*", model.FormatMoney(s.Total))
	return b.String()
}

func expenseListText(expenses []model.Expense) string {
	var b strings.Builder
	b.WriteString("*All Expenses*\n\n")
	for i, e := range expenses {
		fmt.Fprintf(&b, "%d. %s - %s (%s)\n", i+1, model.FormatMoney(e.Amount), e.Category.Label(), e.DateString())
	}
	return b.String()
}
