// Package workflow drives the multi-step admin product authoring
// conversation. The machine is transport-free: it consumes plain inputs and
// produces plain replies, so it is testable without any network dependency.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// State enumerates the positions of an authoring or editing conversation.
type State int

const (
	StateIdle State = iota
	StateAwaitingPhoto
	StateAwaitingName
	StateAwaitingPrice
	StateAwaitingDescription
	StateAwaitingSizes
	StateCommitting
	StateAwaitingField
	StateAwaitingValue
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPhoto:
		return "awaiting_photo"
	case StateAwaitingName:
		return "awaiting_name"
	case StateAwaitingPrice:
		return "awaiting_price"
	case StateAwaitingDescription:
		return "awaiting_description"
	case StateAwaitingSizes:
		return "awaiting_sizes"
	case StateCommitting:
		return "committing"
	case StateAwaitingField:
		return "awaiting_field"
	case StateAwaitingValue:
		return "awaiting_value"
	}
	return "unknown"
}

// Draft is the in-progress product record assembled during a conversation.
// It lives in the session store between the first authoring message and a
// successful or abandoned commit, and is never persisted.
type Draft struct {
	AdminID     int64
	PhotoFileID string
	Name        string
	Price       int64
	Description string
	Sizes       map[string]int

	// ImageURL caches a successful relay so a commit retry after a create
	// failure does not upload the photo twice.
	ImageURL string

	State State

	// Edit flow target.
	EditProductID int64
	EditField     string

	LastActive time.Time
}

// Input is one inbound admin message.
type Input struct {
	AdminID     int64
	Text        string
	PhotoFileID string
}

// Reply is the machine's answer to an input.
type Reply struct {
	Text string
}

// Sessions holds at most one draft per administrator. Do serializes work for
// one administrator without blocking the others.
type Sessions interface {
	Get(adminID int64) (*Draft, bool)
	Put(adminID int64, draft *Draft)
	Clear(adminID int64)
	Do(adminID int64, fn func())
}

// Relay moves a chat platform file into durable storage, returning its URL.
type Relay interface {
	Relay(ctx context.Context, fileID string) (string, error)
}

// Catalog is the slice of the persistence service the machine commits to.
type Catalog interface {
	CreateProduct(ctx context.Context, spec ProductSpec) (ProductInfo, error)
	GetProduct(ctx context.Context, id int64) (ProductInfo, error)
	UpdateProduct(ctx context.Context, id int64, spec ProductSpec) (ProductInfo, error)
}

// ProductSpec is the complete desired state of a product.
type ProductSpec struct {
	Name        string
	Price       int64
	Description string
	ImageURL    string
	Sizes       map[string]int
}

// ProductInfo is a product as reported by the persistence service.
type ProductInfo struct {
	ID          int64
	Name        string
	Price       int64
	Description string
	ImageURL    string
	Sizes       map[string]int
}

// Machine runs admin conversations against the session store, the media
// relay and the catalog.
type Machine struct {
	logger   *slog.Logger
	sessions Sessions
	relay    Relay
	catalog  Catalog
	admins   map[int64]struct{}
}

func NewMachine(logger *slog.Logger, sessions Sessions, relay Relay, catalog Catalog, adminIDs []int64) *Machine {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Machine{
		logger:   logger,
		sessions: sessions,
		relay:    relay,
		catalog:  catalog,
		admins:   admins,
	}
}

// IsAdmin reports whether the identity is on the allow-list.
func (m *Machine) IsAdmin(id int64) bool {
	_, ok := m.admins[id]
	return ok
}

// Active reports whether the administrator has a conversation in progress.
func (m *Machine) Active(adminID int64) bool {
	active := false
	m.sessions.Do(adminID, func() {
		d, ok := m.sessions.Get(adminID)
		active = ok && d.State != StateIdle
	})
	return active
}

// Begin starts a fresh authoring conversation. A stale draft for the same
// administrator is overwritten without warning.
func (m *Machine) Begin(adminID int64) Reply {
	if !m.IsAdmin(adminID) {
		return Reply{Text: "❌ You don't have access to the admin panel"}
	}
	m.sessions.Do(adminID, func() {
		m.sessions.Put(adminID, &Draft{
			AdminID: adminID,
			State:   StateAwaitingPhoto,
		})
	})
	return Reply{Text: "📸 Send a photo of the product"}
}

// Handle advances the conversation with one inbound message. The second
// return value reports whether the machine consumed the input; it is false
// when no conversation is in progress.
func (m *Machine) Handle(ctx context.Context, in Input) (Reply, bool) {
	if !m.IsAdmin(in.AdminID) {
		return Reply{}, false
	}
	var (
		reply   Reply
		handled bool
	)
	m.sessions.Do(in.AdminID, func() {
		d, ok := m.sessions.Get(in.AdminID)
		if !ok || d.State == StateIdle {
			return
		}
		handled = true
		reply = m.step(ctx, d, in)
	})
	return reply, handled
}

func (m *Machine) step(ctx context.Context, d *Draft, in Input) Reply {
	switch d.State {
	case StateAwaitingPhoto:
		if in.PhotoFileID == "" {
			return Reply{Text: "❌ Please send a photo"}
		}
		d.PhotoFileID = in.PhotoFileID
		d.State = StateAwaitingName
		m.sessions.Put(d.AdminID, d)
		return Reply{Text: "✅ Photo received!\n\nEnter the product name:"}

	case StateAwaitingName:
		if in.Text == "" {
			return Reply{Text: "❌ Please enter the product name"}
		}
		d.Name = in.Text
		d.State = StateAwaitingPrice
		m.sessions.Put(d.AdminID, d)
		return Reply{Text: "💰 Enter the price (number only):"}

	case StateAwaitingPrice:
		price, err := strconv.ParseInt(strings.TrimSpace(in.Text), 10, 64)
		if err != nil {
			return Reply{Text: "❌ The price must be a number. Try again:"}
		}
		d.Price = price
		d.State = StateAwaitingDescription
		m.sessions.Put(d.AdminID, d)
		return Reply{Text: "📄 Enter the product description:"}

	case StateAwaitingDescription:
		d.Description = in.Text
		d.Sizes = map[string]int{}
		d.State = StateAwaitingSizes
		m.sessions.Put(d.AdminID, d)
		return Reply{Text: "📏 Enter stock per size.\nFormat: S: 5 (one size per message)\nSend 'done' when finished"}

	case StateAwaitingSizes:
		if isDoneToken(in.Text) {
			d.State = StateCommitting
			m.sessions.Put(d.AdminID, d)
			return m.commit(ctx, d)
		}
		label, qty, err := parseSizeEntry(in.Text)
		if err != nil {
			return Reply{Text: "❌ Wrong format. Use: S: 5"}
		}
		d.Sizes[label] = qty
		m.sessions.Put(d.AdminID, d)
		return Reply{Text: fmt.Sprintf("✅ Size %s: %d saved\n\nSend the next size or 'done'", label, qty)}

	case StateCommitting:
		if !isDoneToken(in.Text) {
			return Reply{Text: "Send 'done' to retry saving the product"}
		}
		return m.commit(ctx, d)

	case StateAwaitingField:
		return m.stepEditField(d, in)

	case StateAwaitingValue:
		return m.stepEditValue(ctx, d, in)
	}
	return Reply{Text: "❌ Something went wrong, send /admin to start over"}
}

// commit relays the photo and creates the product. On any failure the draft
// is preserved and the conversation stays in Committing so the admin can
// resend the done token to retry without re-entering data.
func (m *Machine) commit(ctx context.Context, d *Draft) Reply {
	if d.ImageURL == "" {
		url, err := m.relay.Relay(ctx, d.PhotoFileID)
		if err != nil {
			m.logger.Error("relay photo", slog.Any("error", err), slog.Int64("admin_id", d.AdminID))
			return Reply{Text: "❌ Photo upload failed. Send 'done' to retry."}
		}
		d.ImageURL = url
		m.sessions.Put(d.AdminID, d)
	}

	_, err := m.catalog.CreateProduct(ctx, ProductSpec{
		Name:        d.Name,
		Price:       d.Price,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		Sizes:       d.Sizes,
	})
	if err != nil {
		m.logger.Error("create product", slog.Any("error", err), slog.Int64("admin_id", d.AdminID))
		return Reply{Text: "❌ Saving the product failed. Send 'done' to retry."}
	}

	m.sessions.Clear(d.AdminID)
	return Reply{Text: "✅ Product added!"}
}

func isDoneToken(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "done", "готово":
		return true
	}
	return false
}

func parseSizeEntry(text string) (string, int, error) {
	parts := strings.SplitN(text, ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("workflow: malformed size entry %q", text)
	}
	label := strings.ToUpper(strings.TrimSpace(parts[0]))
	if label == "" {
		return "", 0, fmt.Errorf("workflow: empty size label")
	}
	qty, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", 0, fmt.Errorf("workflow: malformed quantity: %w", err)
	}
	return label, qty, nil
}
