package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/resto-order/api/internal/chatbot/matcher"
	"github.com/resto-order/api/internal/chatbot/parser"
	"github.com/resto-order/api/internal/enum"
	"github.com/resto-order/api/internal/service"
	"github.com/shopspring/decimal"
)

// ErrInvalidBranch is returned when a message names a malformed branch id.
var ErrInvalidBranch = errors.New("branch_id is not a valid id")

// Catalog lists orderable products. Satisfied by *service.CatalogService.
type Catalog interface {
	ListProducts(ctx context.Context, branchID, categoryID *uuid.UUID) ([]service.ProductDetail, error)
}

// OrderPlacer places the finished basket. Satisfied by *service.OrderService.
type OrderPlacer interface {
	PlaceChatbotOrder(ctx context.Context, items []service.DirectItem, fields service.OrderFields) (*service.OrderResult, error)
}

// Message is one inbound chat message.
type Message struct {
	Sender   string
	Text     string
	BranchID string
}

// Reply is what the bot answers, plus counters for the webhook caller.
type Reply struct {
	Message   string
	Stage     Stage
	Basket    []BasketLine
	OrderID   *uuid.UUID
	Matched   int
	Ambiguous int
	Unmatched int
}

// Bot runs the ordering conversation. It holds no per-sender state in
// memory; everything lives in Sessions.
type Bot struct {
	sessions *Sessions
	catalog  Catalog
	gate     service.Gate
	orders   OrderPlacer
}

// NewBot creates a new Bot.
func NewBot(sessions *Sessions, catalog Catalog, gate service.Gate, orders OrderPlacer) *Bot {
	return &Bot{sessions: sessions, catalog: catalog, gate: gate, orders: orders}
}

const (
	helpText = "Ketik pesanan per baris, contoh:\n2 nasi goreng\nes teh x3\n\n" +
		"Perintah: menu, keranjang, checkout, reset"
	contactPrompt = "Kirim data pengiriman dengan format:\nnama | telepon | alamat\n\n" +
		"Kosongkan alamat untuk ambil sendiri, contoh: Budi | 0812345678"
)

// Handle processes one message and persists the resulting state.
func (b *Bot) Handle(ctx context.Context, msg Message) (*Reply, error) {
	sess, err := b.sessions.Load(ctx, msg.Sender)
	if err != nil {
		return nil, err
	}
	if msg.BranchID != "" {
		if _, err := uuid.Parse(msg.BranchID); err != nil {
			return nil, ErrInvalidBranch
		}
		sess.BranchID = msg.BranchID
	}

	text := strings.TrimSpace(msg.Text)
	switch strings.ToLower(text) {
	case "reset", "batal":
		if err := b.sessions.Clear(ctx, msg.Sender); err != nil {
			return nil, err
		}
		fresh := newSession()
		return &Reply{Message: "🗑️ Pesanan dibatalkan. " + helpText, Stage: fresh.Stage, Basket: fresh.Basket}, nil
	case "menu":
		return b.menu(ctx, msg.Sender, sess)
	case "keranjang":
		return b.save(ctx, msg.Sender, sess, &Reply{Message: basketText(sess.Basket)})
	case "checkout", "pesan":
		return b.checkout(ctx, msg.Sender, sess)
	}

	if sess.Stage == StageContact {
		return b.placeOrder(ctx, msg.Sender, sess, text)
	}
	return b.addItems(ctx, msg.Sender, sess, text)
}

func (b *Bot) save(ctx context.Context, sender string, sess *Session, reply *Reply) (*Reply, error) {
	if err := b.sessions.Save(ctx, sender, sess); err != nil {
		return nil, err
	}
	reply.Stage = sess.Stage
	reply.Basket = sess.Basket
	return reply, nil
}

func (b *Bot) products(ctx context.Context, sess *Session) ([]service.ProductDetail, error) {
	products, err := b.catalog.ListProducts(ctx, branchPtr(sess.BranchID), nil)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (b *Bot) menu(ctx context.Context, sender string, sess *Session) (*Reply, error) {
	products, err := b.products(ctx, sess)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("📋 Menu:\n")
	for _, p := range products {
		price := service.NumericToDecimal(p.Product.Price).Sub(service.NumericToDecimal(p.Product.Discount))
		sb.WriteString(fmt.Sprintf("• %s - %s\n", p.Product.Name, formatRupiah(price)))
	}
	if len(products) == 0 {
		sb.WriteString("(belum ada menu)\n")
	}
	sb.WriteString("\n")
	sb.WriteString(helpText)
	return b.save(ctx, sender, sess, &Reply{Message: sb.String()})
}

func (b *Bot) addItems(ctx context.Context, sender string, sess *Session, text string) (*Reply, error) {
	parsed, err := parser.ParseMessage(text)
	if err != nil {
		return b.save(ctx, sender, sess, &Reply{Message: "❌ Pesanan tidak terbaca.\n\n" + helpText})
	}

	products, err := b.products(ctx, sess)
	if err != nil {
		return nil, err
	}
	items := make([]matcher.Item, len(products))
	prices := make(map[uuid.UUID]decimal.Decimal, len(products))
	for i, p := range products {
		items[i] = matcher.Item{ID: p.Product.ID, Name: p.Product.Name}
		prices[p.Product.ID] = service.NumericToDecimal(p.Product.Price).Sub(service.NumericToDecimal(p.Product.Discount))
	}
	m := matcher.New(items)

	reply := &Reply{}
	var matched, ambiguous, unmatched []string
	for _, item := range parsed.Items {
		result := m.Match(item.Description)
		switch result.Status {
		case matcher.Matched:
			sess.add(BasketLine{
				ProductID: result.Item.ID,
				Name:      result.Item.Name,
				Price:     prices[result.Item.ID].StringFixed(2),
				Quantity:  item.Qty,
			})
			matched = append(matched, fmt.Sprintf("• %dx %s", item.Qty, result.Item.Name))
		case matcher.Ambiguous:
			ambiguous = append(ambiguous, fmt.Sprintf("• %s\n  Mungkin: %s", item.Description, candidateNames(result.Candidates)))
		case matcher.Unmatched:
			unmatched = append(unmatched, fmt.Sprintf("• %s", item.Description))
		}
	}
	reply.Matched, reply.Ambiguous, reply.Unmatched = len(matched), len(ambiguous), len(unmatched)

	var sb strings.Builder
	if len(matched) > 0 {
		sb.WriteString("✔️ Ditambahkan:\n" + strings.Join(matched, "\n") + "\n\n")
	}
	if len(ambiguous) > 0 {
		sb.WriteString("⚠️ Kurang jelas:\n" + strings.Join(ambiguous, "\n") + "\n\n")
	}
	if len(unmatched) > 0 {
		sb.WriteString("❌ Tidak ada di menu:\n" + strings.Join(unmatched, "\n") + "\n\n")
	}
	sb.WriteString(basketText(sess.Basket))
	if len(sess.Basket) > 0 {
		sb.WriteString("\n\nKetik checkout untuk memesan.")
	}
	reply.Message = sb.String()
	return b.save(ctx, sender, sess, reply)
}

func (b *Bot) checkout(ctx context.Context, sender string, sess *Session) (*Reply, error) {
	if len(sess.Basket) == 0 {
		return b.save(ctx, sender, sess, &Reply{Message: "🛒 Keranjang masih kosong.\n\n" + helpText})
	}

	decision, err := b.gate.CanPlaceOrder(ctx, branchPtr(sess.BranchID))
	if err != nil {
		return nil, fmt.Errorf("check pause gate: %w", err)
	}
	if !decision.Allowed {
		return b.save(ctx, sender, sess, &Reply{Message: "⏸️ Maaf, pesanan belum bisa diterima: " + decision.Reason})
	}

	sess.Stage = StageContact
	return b.save(ctx, sender, sess, &Reply{Message: basketText(sess.Basket) + "\n\n" + contactPrompt})
}

func (b *Bot) placeOrder(ctx context.Context, sender string, sess *Session, text string) (*Reply, error) {
	fields, ok := parseContact(text)
	if !ok {
		return b.save(ctx, sender, sess, &Reply{Message: "❌ Format salah.\n\n" + contactPrompt})
	}
	fields.BranchID = sess.BranchID

	items := make([]service.DirectItem, len(sess.Basket))
	for i, line := range sess.Basket {
		items[i] = service.DirectItem{ProductID: line.ProductID.String(), Quantity: line.Quantity}
	}

	result, err := b.orders.PlaceChatbotOrder(ctx, items, fields)
	if err != nil {
		var se *service.Error
		if !errors.As(err, &se) {
			return nil, err
		}
		// Recoverable: back to ordering so the customer can fix the basket.
		sess.Stage = StageOrdering
		return b.save(ctx, sender, sess, &Reply{Message: "❌ Pesanan gagal: " + se.Error()})
	}

	if err := b.sessions.Clear(ctx, sender); err != nil {
		return nil, err
	}

	total := service.NumericToDecimal(result.Order.TotalAmount)
	id := result.Order.ID
	msg := fmt.Sprintf("✅ Pesanan diterima!\nNo: %s\nTotal: %s\nAtas nama: %s",
		shortID(id), formatRupiah(total), result.Order.CustomerName)
	return &Reply{Message: msg, Stage: StageOrdering, Basket: []BasketLine{}, OrderID: &id}, nil
}

// parseContact reads "name | phone | address". Without an address the
// order is a pickup.
func parseContact(text string) (service.OrderFields, bool) {
	parts := strings.Split(text, "|")
	if len(parts) < 2 || len(parts) > 3 {
		return service.OrderFields{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" || parts[1] == "" {
		return service.OrderFields{}, false
	}

	fields := service.OrderFields{
		CustomerName:  parts[0],
		CustomerPhone: parts[1],
		DeliveryType:  enum.DeliveryTypePickup,
	}
	if len(parts) == 3 && parts[2] != "" {
		fields.Location = parts[2]
		fields.DeliveryType = enum.DeliveryTypeDelivery
	}
	return fields, true
}

func branchPtr(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func basketText(basket []BasketLine) string {
	if len(basket) == 0 {
		return "🛒 Keranjang kosong."
	}
	var sb strings.Builder
	sb.WriteString("🛒 Keranjang:\n")
	total := decimal.Zero
	for _, l := range basket {
		price, _ := decimal.NewFromString(l.Price)
		total = total.Add(price.Mul(decimal.NewFromInt32(l.Quantity)))
		sb.WriteString(fmt.Sprintf("• %dx %s\n", l.Quantity, l.Name))
	}
	sb.WriteString(fmt.Sprintf("Perkiraan total: %s", formatRupiah(total)))
	return sb.String()
}

func candidateNames(items []matcher.Item) string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return strings.Join(names, ", ")
}

// formatRupiah renders whole rupiah with dot thousand separators: Rp25.000.
func formatRupiah(d decimal.Decimal) string {
	digits := d.Round(0).Abs().String()
	var sb strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(r)
	}
	if d.IsNegative() {
		return "-Rp" + sb.String()
	}
	return "Rp" + sb.String()
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}
