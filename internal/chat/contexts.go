// Package chat is a console chat loop built entirely from contexts and
// behaviors.
//
// Contexts:
//   - Console: the latest submitted line and whether the user quit
//   - Transcript: every line shown to the user
//   - Session: the user's nick
//   - Mailbox: lines waiting for the bot
//
// Behaviors:
//   - Bootstrap: needs nothing, creates the four contexts
//   - Responder: interprets console input (commands and plain lines)
//   - Bot: replies to mailbox lines; present only while a mailbox exists
//   - Greeter: announces nick changes
//   - Display: writes new transcript lines to the output
//
// Muting the bot withdraws the mailbox, which destroys the Bot instance.
// Unmuting contextualizes a fresh mailbox and a new Bot is assembled from
// it and the freed transcript and session.
package chat

import "github.com/roach88/sdb/internal/state"

// Input is one submitted line. N makes repeated identical lines distinct.
type Input struct {
	N    int
	Text string
}

// Console holds user input.
type Console struct {
	Line   state.Cell[Input]
	Closed state.Cell[bool]
}

// Transcript holds the lines shown to the user, oldest first.
type Transcript struct {
	Lines state.ListCell[string]

	limit  int
	posted int
}

// NewTranscript creates a transcript keeping at most limit lines.
// A limit of 0 keeps everything.
func NewTranscript(limit int) *Transcript {
	return &Transcript{limit: limit}
}

// Post appends lines, dropping the oldest ones past the limit.
func (t *Transcript) Post(lines ...string) {
	if len(lines) == 0 {
		return
	}
	t.posted += len(lines)
	if t.limit == 0 || t.Lines.Len()+len(lines) <= t.limit {
		t.Lines.Append(lines...)
		return
	}
	all := append(t.Lines.Items(), lines...)
	t.Lines.Set(all[len(all)-t.limit:])
}

// Posted returns how many lines were ever posted, including dropped ones.
func (t *Transcript) Posted() int {
	return t.posted
}

// Session holds the local user's identity.
type Session struct {
	User state.Cell[string]
}

// Mailbox holds lines addressed to the bot.
type Mailbox struct {
	Pending state.ListCell[string]
}
