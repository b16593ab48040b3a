package model

// EventKind classifies inbound transport events.
type EventKind int

const (
	EventStart EventKind = iota
	EventCommand
	EventSelection
	EventText
)

// Event is an inbound transport event for one conversation.
type Event struct {
	ChatID  int64
	Kind    EventKind
	Payload string
}

// Format selects how the transport renders message text.
type Format int

const (
	FormatPlain Format = iota
	FormatMarkdown
)

// Button is one inline control. Data is the selection id sent back when pressed.
type Button struct {
	Label string
	Data  string
}

// Photo is an image attached to an outbound message. Exactly one of Path or
// Data is set; the message text becomes the caption.
type Photo struct {
	Name string
	Path string
	Data []byte
}

// Message is an outbound content descriptor produced by the router and the
// reminder routine and rendered by the transport.
type Message struct {
	ChatID   int64
	Text     string
	Format   Format
	Keyboard [][]Button
	Photo    *Photo
}

// Row is a convenience constructor for a keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}
