package model

// StateKind names the input a conversation is currently waiting for.
type StateKind int

const (
	StateIdle StateKind = iota
	StateAwaitingAmount
	StateAwaitingGoalText
	StateAwaitingFeedback
	StateAwaitingEnquiry
)

var stateNames = map[StateKind]string{
	StateIdle:             "idle",
	StateAwaitingAmount:   "awaiting_amount",
	StateAwaitingGoalText: "awaiting_goal_text",
	StateAwaitingFeedback: "awaiting_feedback",
	StateAwaitingEnquiry:  "awaiting_enquiry",
}

func (k StateKind) String() string {
	if name, ok := stateNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseStateKind is the inverse of String. Unknown names map to StateIdle.
func ParseStateKind(name string) StateKind {
	for kind, n := range stateNames {
		if n == name {
			return kind
		}
	}
	return StateIdle
}

// Session is the per-conversation state. Fields are unexported so that a
// category can only ever be attached to StateAwaitingAmount.
type Session struct {
	kind     StateKind
	category Category
}

// Idle is the initial state of every conversation.
func Idle() Session { return Session{kind: StateIdle} }

// AwaitingAmount waits for the amount of an expense in category c.
func AwaitingAmount(c Category) Session {
	return Session{kind: StateAwaitingAmount, category: c}
}

func AwaitingGoalText() Session { return Session{kind: StateAwaitingGoalText} }

func AwaitingFeedback() Session { return Session{kind: StateAwaitingFeedback} }

func AwaitingEnquiry() Session { return Session{kind: StateAwaitingEnquiry} }

// RestoreSession rebuilds a session from its stored parts. The category is
// dropped for every state other than StateAwaitingAmount, and an amount
// state without a valid category falls back to idle.
func RestoreSession(kind StateKind, category string) Session {
	switch kind {
	case StateAwaitingAmount:
		c, ok := ParseCategory(category)
		if !ok {
			return Idle()
		}
		return AwaitingAmount(c)
	case StateAwaitingGoalText, StateAwaitingFeedback, StateAwaitingEnquiry:
		return Session{kind: kind}
	default:
		return Idle()
	}
}

func (s Session) Kind() StateKind { return s.kind }

// Category returns the pending category when awaiting an amount.
func (s Session) Category() (Category, bool) {
	if s.kind != StateAwaitingAmount {
		return "", false
	}
	return s.category, true
}

// Expecting reports whether free text is currently solicited.
func (s Session) Expecting() bool { return s.kind != StateIdle }

func (s Session) String() string {
	if s.kind == StateAwaitingAmount {
		return s.kind.String() + "(" + string(s.category) + ")"
	}
	return s.kind.String()
}
