package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/resto-order/api/internal/database"
)

// Stage is where a conversation currently is.
type Stage string

const (
	StageOrdering Stage = "ordering"
	StageContact  Stage = "awaiting_contact"
)

// BasketLine is a matched product waiting in the conversation basket.
// Price is for display only; the order is priced again when placed.
type BasketLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Quantity  int32     `json:"quantity"`
}

// Session is the persisted state of one sender's conversation.
type Session struct {
	Stage    Stage        `json:"stage"`
	BranchID string       `json:"branch_id,omitempty"`
	Basket   []BasketLine `json:"basket"`
}

func newSession() *Session {
	return &Session{Stage: StageOrdering, Basket: []BasketLine{}}
}

// add merges qty of a product into the basket.
func (s *Session) add(line BasketLine) {
	for i := range s.Basket {
		if s.Basket[i].ProductID == line.ProductID {
			s.Basket[i].Quantity += line.Quantity
			return
		}
	}
	s.Basket = append(s.Basket, line)
}

// SessionStore defines the DB methods for conversation state.
// Satisfied by *database.Queries.
type SessionStore interface {
	GetChatbotSession(ctx context.Context, sender string) (database.ChatbotSession, error)
	UpsertChatbotSession(ctx context.Context, arg database.UpsertChatbotSessionParams) error
	DeleteChatbotSession(ctx context.Context, sender string) error
}

// Sessions loads and saves conversations. Every save pushes the expiry
// ttl into the future; expired rows read as absent and are purged by the
// reconciler.
type Sessions struct {
	store SessionStore
	ttl   time.Duration
	now   func() time.Time
}

// NewSessions creates a Sessions store with the given idle TTL.
func NewSessions(store SessionStore, ttl time.Duration) *Sessions {
	return &Sessions{store: store, ttl: ttl, now: time.Now}
}

// Load returns the sender's conversation, or a fresh one when none is live.
func (s *Sessions) Load(ctx context.Context, sender string) (*Session, error) {
	row, err := s.store.GetChatbotSession(ctx, sender)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return newSession(), nil
		}
		return nil, fmt.Errorf("get chatbot session: %w", err)
	}

	sess := newSession()
	if err := json.Unmarshal(row.State, sess); err != nil {
		log.Printf("WARN: discarding unreadable chatbot session for %s: %v", sender, err)
		return newSession(), nil
	}
	if sess.Stage == "" {
		sess.Stage = StageOrdering
	}
	return sess, nil
}

// Save persists the conversation and renews its expiry.
func (s *Sessions) Save(ctx context.Context, sender string, sess *Session) error {
	state, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal chatbot session: %w", err)
	}
	err = s.store.UpsertChatbotSession(ctx, database.UpsertChatbotSessionParams{
		Sender:    sender,
		State:     state,
		ExpiresAt: s.now().Add(s.ttl),
	})
	if err != nil {
		return fmt.Errorf("save chatbot session: %w", err)
	}
	return nil
}

// Clear ends the sender's conversation.
func (s *Sessions) Clear(ctx context.Context, sender string) error {
	if err := s.store.DeleteChatbotSession(ctx, sender); err != nil {
		return fmt.Errorf("delete chatbot session: %w", err)
	}
	return nil
}
