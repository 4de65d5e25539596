package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/resto-order/api/internal/chatbot"
)

// WebhookSecretHeader carries the shared secret of the chat gateway.
const WebhookSecretHeader = "X-Webhook-Secret"

// ChatBot runs one conversational turn. Satisfied by *chatbot.Bot.
type ChatBot interface {
	Handle(ctx context.Context, msg chatbot.Message) (*chatbot.Reply, error)
}

// ChatbotHandler handles the chat ordering webhook.
type ChatbotHandler struct {
	bot    ChatBot
	secret string
}

// NewChatbotHandler creates a new ChatbotHandler. An empty secret rejects
// every request.
func NewChatbotHandler(bot ChatBot, secret string) *ChatbotHandler {
	return &ChatbotHandler{bot: bot, secret: secret}
}

// --- Request / Response types ---

type chatbotRequest struct {
	Sender   string `json:"sender"`
	Message  string `json:"message"`
	BranchID string `json:"branch_id"`
}

type basketLineResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Quantity  int32     `json:"quantity"`
}

type chatbotResponse struct {
	ReplyMessage   string               `json:"reply_message"`
	Stage          string               `json:"stage"`
	Basket         []basketLineResponse `json:"basket"`
	OrderID        *uuid.UUID           `json:"order_id"`
	ItemsMatched   int                  `json:"items_matched"`
	ItemsAmbiguous int                  `json:"items_ambiguous"`
	ItemsUnmatched int                  `json:"items_unmatched"`
}

// --- Handler method ---

// Webhook handles POST /chatbot/webhook.
func (h *ChatbotHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeMessage(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	var req chatbotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Validate required fields
	if strings.TrimSpace(req.Sender) == "" {
		writeFieldError(w, http.StatusBadRequest, "sender", "sender is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeFieldError(w, http.StatusBadRequest, "message", "message is required")
		return
	}

	reply, err := h.bot.Handle(r.Context(), chatbot.Message{
		Sender:   req.Sender,
		Text:     req.Message,
		BranchID: req.BranchID,
	})
	if err != nil {
		if errors.Is(err, chatbot.ErrInvalidBranch) {
			writeFieldError(w, http.StatusBadRequest, "branch_id", err.Error())
			return
		}
		log.Printf("ERROR: chatbot turn for %s: %v", req.Sender, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message":       "internal server error",
			"reply_message": "⚠️ Maaf, sedang ada gangguan. Silakan coba lagi.",
		})
		return
	}

	basket := make([]basketLineResponse, len(reply.Basket))
	for i, l := range reply.Basket {
		basket[i] = basketLineResponse{ProductID: l.ProductID, Name: l.Name, Price: l.Price, Quantity: l.Quantity}
	}

	writeJSON(w, http.StatusOK, chatbotResponse{
		ReplyMessage:   reply.Message,
		Stage:          string(reply.Stage),
		Basket:         basket,
		OrderID:        reply.OrderID,
		ItemsMatched:   reply.Matched,
		ItemsAmbiguous: reply.Ambiguous,
		ItemsUnmatched: reply.Unmatched,
	})
}

func (h *ChatbotHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return false
	}
	got := r.Header.Get(WebhookSecretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}
