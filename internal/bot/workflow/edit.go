package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Editable fields of an existing product.
const (
	FieldPhoto       = "photo"
	FieldName        = "name"
	FieldPrice       = "price"
	FieldDescription = "description"
	FieldSizes       = "sizes"
)

var editFields = []string{FieldPhoto, FieldName, FieldPrice, FieldDescription, FieldSizes}

// BeginEdit starts a field-edit conversation for an existing product. The
// product is fetched first so a bad id fails here instead of at apply time.
func (m *Machine) BeginEdit(ctx context.Context, adminID, productID int64) Reply {
	if !m.IsAdmin(adminID) {
		return Reply{Text: "❌ You don't have access to the admin panel"}
	}

	product, err := m.catalog.GetProduct(ctx, productID)
	if err != nil {
		m.logger.Error("get product for edit", slog.Any("error", err), slog.Int64("product_id", productID))
		return Reply{Text: "❌ Product not found"}
	}

	m.sessions.Do(adminID, func() {
		m.sessions.Put(adminID, &Draft{
			AdminID:       adminID,
			State:         StateAwaitingField,
			EditProductID: productID,
		})
	})
	return Reply{Text: fmt.Sprintf("Editing %q (price %d)\n\nWhich field do you want to change? (%s)",
		product.Name, product.Price, strings.Join(editFields, ", "))}
}

// ChooseField picks the attribute to edit, usually from a button press.
func (m *Machine) ChooseField(adminID int64, field string) Reply {
	var reply Reply
	m.sessions.Do(adminID, func() {
		d, ok := m.sessions.Get(adminID)
		if !ok || d.State != StateAwaitingField {
			reply = Reply{Text: "❌ No product selected, send /admin to start over"}
			return
		}
		reply = m.chooseField(d, field)
	})
	return reply
}

func (m *Machine) stepEditField(d *Draft, in Input) Reply {
	return m.chooseField(d, strings.ToLower(strings.TrimSpace(in.Text)))
}

func (m *Machine) chooseField(d *Draft, field string) Reply {
	if !validEditField(field) {
		return Reply{Text: fmt.Sprintf("❌ Unknown field. Choose one of: %s", strings.Join(editFields, ", "))}
	}
	d.EditField = field
	d.State = StateAwaitingValue
	m.sessions.Put(d.AdminID, d)

	switch field {
	case FieldPhoto:
		return Reply{Text: "📸 Send the new photo"}
	case FieldPrice:
		return Reply{Text: "💰 Enter the new price (number only):"}
	case FieldSizes:
		return Reply{Text: "📏 Enter the new stock, e.g. S: 5, M: 3 (replaces all sizes)"}
	default:
		return Reply{Text: fmt.Sprintf("Enter the new %s:", field)}
	}
}

// stepEditValue parses the value per the chosen field's type and applies one
// full-replace update. A malformed value re-prompts; an update failure is
// reported and the conversation returns to idle with nothing applied.
func (m *Machine) stepEditValue(ctx context.Context, d *Draft, in Input) Reply {
	current, err := m.catalog.GetProduct(ctx, d.EditProductID)
	if err != nil {
		m.logger.Error("get product for update", slog.Any("error", err), slog.Int64("product_id", d.EditProductID))
		m.sessions.Clear(d.AdminID)
		return Reply{Text: "❌ Product update failed"}
	}

	spec := ProductSpec{
		Name:        current.Name,
		Price:       current.Price,
		Description: current.Description,
		ImageURL:    current.ImageURL,
		Sizes:       current.Sizes,
	}

	switch d.EditField {
	case FieldPhoto:
		if in.PhotoFileID == "" {
			return Reply{Text: "❌ Please send a photo"}
		}
		url, err := m.relay.Relay(ctx, in.PhotoFileID)
		if err != nil {
			m.logger.Error("relay photo", slog.Any("error", err), slog.Int64("admin_id", d.AdminID))
			m.sessions.Clear(d.AdminID)
			return Reply{Text: "❌ Photo upload failed"}
		}
		spec.ImageURL = url
	case FieldName:
		if in.Text == "" {
			return Reply{Text: "❌ Please enter the new name"}
		}
		spec.Name = in.Text
	case FieldPrice:
		price, err := strconv.ParseInt(strings.TrimSpace(in.Text), 10, 64)
		if err != nil {
			return Reply{Text: "❌ The price must be a number. Try again:"}
		}
		spec.Price = price
	case FieldDescription:
		spec.Description = in.Text
	case FieldSizes:
		sizes, err := parseSizeList(in.Text)
		if err != nil {
			return Reply{Text: "❌ Wrong format. Use: S: 5, M: 3"}
		}
		spec.Sizes = sizes
	}

	if _, err := m.catalog.UpdateProduct(ctx, d.EditProductID, spec); err != nil {
		m.logger.Error("update product", slog.Any("error", err), slog.Int64("product_id", d.EditProductID))
		m.sessions.Clear(d.AdminID)
		return Reply{Text: "❌ Product update failed"}
	}

	m.sessions.Clear(d.AdminID)
	return Reply{Text: "✅ Product updated!"}
}

func validEditField(field string) bool {
	for _, f := range editFields {
		if f == field {
			return true
		}
	}
	return false
}

// parseSizeList parses a comma separated list of label:quantity pairs with
// last-write-wins semantics per label.
func parseSizeList(text string) (map[string]int, error) {
	entries := strings.Split(text, ",")
	sizes := make(map[string]int, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		label, qty, err := parseSizeEntry(entry)
		if err != nil {
			return nil, err
		}
		sizes[label] = qty
	}
	if len(sizes) == 0 {
		return nil, errors.New("workflow: no size entries")
	}
	return sizes, nil
}
