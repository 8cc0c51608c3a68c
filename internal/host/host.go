// Package host abstracts the threaded forum the game is played on.
// The engine consumes this interface; a concrete driver for a given
// site implements it.
package host

import "context"

// OriginKind says where an event came from.
type OriginKind int

const (
	// OriginComment is a reply in a thread.
	OriginComment OriginKind = iota
	// OriginMessage is a private message.
	OriginMessage
)

// Event is one observed command-bearing message.
type Event struct {
	ID        string // stable message id
	Author    string
	AuthorUID string // forum account id, for team assignment
	Body      string
	Kind      OriginKind
	ParentID  string // parent comment id, comments only
	LinkID    string // containing thread id, comments only
	Permalink string
}

// Comment is one node of a battle thread's flattened forest.
type Comment struct {
	ID       string
	ParentID string
	Author   string
	Body     string
}

// Host is the forum driver. All calls are best-effort from the
// engine's point of view; failures are logged and, except where a
// command explicitly compensates, do not touch persisted state.
type Host interface {
	// ObserveRecruitmentPosts yields new comments on recruitment
	// threads in the headquarters board.
	ObserveRecruitmentPosts(ctx context.Context) ([]Event, error)
	// ObserveInbox yields unread private messages and mention replies.
	ObserveInbox(ctx context.Context) ([]Event, error)
	// FetchBattleThread returns the flattened comment forest of a
	// battle thread.
	FetchBattleThread(ctx context.Context, submissionID string) ([]Comment, error)
	// FetchComment retrieves one comment by id, or nil when deleted.
	FetchComment(ctx context.Context, id string) (*Comment, error)

	SubmitPost(ctx context.Context, board, title, body string) (string, error)
	EditPost(ctx context.Context, id, body string) error
	Reply(ctx context.Context, parentID, body string) (string, error)
	SendPrivateMessage(ctx context.Context, user, subject, body string) error
	MarkRead(ctx context.Context, eventID string) error

	// BotName is the account the driver posts as, used to recognize
	// the bot's own summary comments.
	BotName() string
}

// ActionKind distinguishes reply actions.
type ActionKind int

const (
	ActionPM ActionKind = iota
	ActionReply
	ActionEdit
)

// ReplyAction is a fire-and-forget host call produced by command
// handling: a player-facing answer or a summary refresh, where the
// engine never needs the created id back.
type ReplyAction struct {
	Kind    ActionKind
	To      string // user for PM, parent id for Reply, post id for Edit
	Subject string // PM subject
	Body    string
}

// PM builds a private-message action.
func PM(user, subject, body string) ReplyAction {
	return ReplyAction{Kind: ActionPM, To: user, Subject: subject, Body: body}
}

// ReplyTo builds a comment-reply action.
func ReplyTo(parentID, body string) ReplyAction {
	return ReplyAction{Kind: ActionReply, To: parentID, Body: body}
}

// Edit builds a post-edit action.
func Edit(postID, body string) ReplyAction {
	return ReplyAction{Kind: ActionEdit, To: postID, Body: body}
}

// Execute runs one action against a host.
func Execute(ctx context.Context, h Host, a ReplyAction) error {
	switch a.Kind {
	case ActionPM:
		return h.SendPrivateMessage(ctx, a.To, a.Subject, a.Body)
	case ActionReply:
		_, err := h.Reply(ctx, a.To, a.Body)
		return err
	case ActionEdit:
		return h.EditPost(ctx, a.To, a.Body)
	}
	return nil
}
