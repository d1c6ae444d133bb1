// Package chat shows customer conversations and their messages.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/store-dashboard/internal/apiclient"
	"github.com/wolfman30/store-dashboard/internal/notify"
	"github.com/wolfman30/store-dashboard/internal/session"
	"github.com/wolfman30/store-dashboard/internal/web"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

// ID accepts both JSON strings and numbers; the API is not consistent.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("chat: decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("chat: decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

type Message struct {
	ID       ID        `json:"id"`
	SenderID ID        `json:"sender_id"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
	IsRead   bool      `json:"is_read"`
}

type LastMessage struct {
	Content  string    `json:"content"`
	SendAt   time.Time `json:"send_at"`
	SenderID ID        `json:"sender_id"`
}

type Conversation struct {
	ID           ID           `json:"id"`
	Participants []ID         `json:"participants"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Messages     []Message    `json:"messages"`
	LastMessage  *LastMessage `json:"last_message"`
}

// OtherParticipant is the first participant that is not userID.
func (c Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if string(p) != userID {
			return string(p)
		}
	}
	return ""
}

// ListConversations fetches the signed-in user's conversations.
func ListConversations(ctx context.Context, c *apiclient.Client) ([]Conversation, error) {
	convs, err := apiclient.Get[[]Conversation](ctx, c, "/users/conversations/", nil)
	if err != nil {
		return nil, fmt.Errorf("chat: list conversations: %w", err)
	}
	return convs, nil
}

// ListMessages fetches the messages of one conversation.
func ListMessages(ctx context.Context, c *apiclient.Client, conversationID string) ([]Message, error) {
	msgs, err := apiclient.Get[[]Message](ctx, c, "/users/messages", url.Values{"conversation_id": {conversationID}})
	if err != nil {
		return nil, fmt.Errorf("chat: list messages: %w", err)
	}
	return msgs, nil
}

// ConversationView is one row of the conversation list.
type ConversationView struct {
	ID       string
	With     string
	Preview  string
	When     time.Time
	Selected bool
}

// MessageView is one message bubble.
type MessageView struct {
	Content string
	SentAt  time.Time
	Mine    bool
	Unread  bool
}

// Page is the data for the conversations template.
type Page struct {
	Conversations []ConversationView
	Selected      string
	With          string
	Messages      []MessageView
}

type Handler struct {
	api      *apiclient.Client
	renderer *web.Renderer
	relay    *notify.Relay
	logger   *logging.Logger
}

func NewHandler(api *apiclient.Client, renderer *web.Renderer, relay *notify.Relay, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{api: api, renderer: renderer, relay: relay, logger: logger}
}

// Routes is mounted at /conversations.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.show)
	return r
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	client := sess.Client(h.api)
	userID := sess.UserID()
	selected := r.URL.Query().Get("conversation_id")

	convs, err := ListConversations(ctx, client)
	if err != nil {
		h.logger.Error("chat: list conversations failed", "error", err)
		h.relay.Error(ctx, apiclient.Message(err, "Failed to fetch conversations"))
	}

	page := Page{Selected: selected}
	for _, c := range convs {
		view := ConversationView{
			ID:       string(c.ID),
			With:     c.OtherParticipant(userID),
			When:     c.UpdatedAt,
			Selected: string(c.ID) == selected,
		}
		if c.LastMessage != nil {
			view.Preview = c.LastMessage.Content
			view.When = c.LastMessage.SendAt
		}
		if view.Selected {
			page.With = view.With
		}
		page.Conversations = append(page.Conversations, view)
	}

	if selected != "" {
		msgs, err := ListMessages(ctx, client, selected)
		if err != nil {
			h.logger.Error("chat: list messages failed", "conversation_id", selected, "error", err)
			h.relay.Error(ctx, apiclient.Message(err, "Failed to fetch messages"))
		}
		for _, m := range msgs {
			page.Messages = append(page.Messages, MessageView{
				Content: m.Content,
				SentAt:  m.SentAt,
				Mine:    string(m.SenderID) == userID,
				Unread:  !m.IsRead,
			})
		}
	}
	h.renderer.Render(w, r, http.StatusOK, "conversations", "Conversations", page)
}
