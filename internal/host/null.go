package host

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// NullHost is a forum driver that observes nothing and logs every
// outbound action. It stands in when no real driver is wired, so the
// engine can run ticks and serve the status API on its own.
type NullHost struct {
	name string
	seq  atomic.Int64
}

// NewNullHost creates a NullHost posting under name.
func NewNullHost(name string) *NullHost {
	return &NullHost{name: name}
}

func (h *NullHost) ObserveRecruitmentPosts(ctx context.Context) ([]Event, error) {
	return nil, nil
}

func (h *NullHost) ObserveInbox(ctx context.Context) ([]Event, error) {
	return nil, nil
}

func (h *NullHost) FetchBattleThread(ctx context.Context, submissionID string) ([]Comment, error) {
	return nil, nil
}

func (h *NullHost) FetchComment(ctx context.Context, id string) (*Comment, error) {
	return nil, nil
}

func (h *NullHost) SubmitPost(ctx context.Context, board, title, body string) (string, error) {
	id := fmt.Sprintf("null-post-%d", h.seq.Add(1))
	log.Info().Str("board", board).Str("title", title).Str("id", id).Msg("Would submit post")
	return id, nil
}

func (h *NullHost) EditPost(ctx context.Context, id, body string) error {
	log.Info().Str("id", id).Msg("Would edit post")
	return nil
}

func (h *NullHost) Reply(ctx context.Context, parentID, body string) (string, error) {
	id := fmt.Sprintf("null-reply-%d", h.seq.Add(1))
	log.Info().Str("parent", parentID).Str("id", id).Msg("Would reply")
	return id, nil
}

func (h *NullHost) SendPrivateMessage(ctx context.Context, user, subject, body string) error {
	log.Info().Str("user", user).Str("subject", subject).Msg("Would send private message")
	return nil
}

func (h *NullHost) MarkRead(ctx context.Context, eventID string) error { return nil }

func (h *NullHost) BotName() string { return h.name }
