package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/broshop/broshop/internal/bot/shopapi"
	"github.com/broshop/broshop/internal/bot/workflow"
)

const editMenuLimit = 10

func (b *Bot) adminKeyboard() models.ReplyMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "➕ Add product", CallbackData: "admin_add_product"}},
			{{Text: "✏️ Edit product", CallbackData: "admin_edit_product"}},
			{{Text: "📊 Statistics", CallbackData: "admin_stats"}},
			{{Text: "❓ Help", CallbackData: "admin_help"}},
		},
	}
}

func (b *Bot) onAdmin(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.machine.IsAdmin(msg.From.ID) {
		b.send(ctx, msg.Chat.ID, "❌ You don't have access to the admin panel", nil)
		return
	}
	text := "🛠️ " + b.cfg.ShopName + " admin panel"
	if b.machine.Active(msg.From.ID) {
		text += "\n\n✍️ You have an unfinished draft; starting a new product discards it"
	}
	b.send(ctx, msg.Chat.ID, text, b.adminKeyboard())
}

func (b *Bot) onAdminCallback(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}
	defer b.answerCallback(ctx, cb.ID)

	chatID := callbackChatID(cb)
	if !b.machine.IsAdmin(cb.From.ID) {
		b.send(ctx, chatID, "❌ You don't have access to the admin panel", nil)
		return
	}

	switch cb.Data {
	case "admin_add_product":
		reply := b.machine.Begin(cb.From.ID)
		b.send(ctx, chatID, reply.Text, nil)
	case "admin_edit_product":
		b.showEditMenu(ctx, chatID)
	case "admin_stats":
		b.showStats(ctx, chatID)
	case "admin_help":
		b.send(ctx, chatID, adminHelpText, nil)
	case "admin_back":
		b.send(ctx, chatID, "🛠️ "+b.cfg.ShopName+" admin panel", b.adminKeyboard())
	}
}

func (b *Bot) onEditCallback(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}
	defer b.answerCallback(ctx, cb.ID)

	chatID := callbackChatID(cb)
	if !b.machine.IsAdmin(cb.From.ID) {
		b.send(ctx, chatID, "❌ You don't have access to the admin panel", nil)
		return
	}

	switch {
	case strings.HasPrefix(cb.Data, "edit_product_"):
		id, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, "edit_product_"), 10, 64)
		if err != nil {
			return
		}
		reply := b.machine.BeginEdit(ctx, cb.From.ID, id)
		b.send(ctx, chatID, reply.Text, b.editFieldKeyboard(id))
	case strings.HasPrefix(cb.Data, "edit_field_"):
		// Data shape: edit_field_{productID}_{field}.
		parts := strings.SplitN(cb.Data, "_", 4)
		if len(parts) != 4 {
			return
		}
		reply := b.machine.ChooseField(cb.From.ID, parts[3])
		b.send(ctx, chatID, reply.Text, nil)
	}
}

func (b *Bot) editFieldKeyboard(productID int64) models.ReplyMarkup {
	row := func(label, field string) []models.InlineKeyboardButton {
		return []models.InlineKeyboardButton{{
			Text:         label,
			CallbackData: fmt.Sprintf("edit_field_%d_%s", productID, field),
		}}
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			row("🖼 Photo", workflow.FieldPhoto),
			row("🔤 Name", workflow.FieldName),
			row("💰 Price", workflow.FieldPrice),
			row("📄 Description", workflow.FieldDescription),
			row("📏 Stock per size", workflow.FieldSizes),
			{{Text: "↩️ Back", CallbackData: "admin_back"}},
		},
	}
}

func (b *Bot) showEditMenu(ctx context.Context, chatID int64) {
	products, err := b.shop.ListProducts(ctx)
	if err != nil {
		b.logger.Error("list products", slog.Any("error", err))
		b.send(ctx, chatID, "❌ Could not load the product list", nil)
		return
	}
	if len(products) == 0 {
		b.send(ctx, chatID, "📦 No products found", nil)
		return
	}
	if len(products) > editMenuLimit {
		products = products[:editMenuLimit]
	}

	var rows [][]models.InlineKeyboardButton
	for _, p := range products {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         p.Name,
			CallbackData: fmt.Sprintf("edit_product_%d", p.ID),
		}})
	}
	rows = append(rows, []models.InlineKeyboardButton{{Text: "↩️ Back", CallbackData: "admin_back"}})

	b.send(ctx, chatID, "Pick a product to edit:", &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (b *Bot) showStats(ctx context.Context, chatID int64) {
	stats, err := b.shop.Stats(ctx)
	if err != nil {
		b.logger.Error("fetch stats", slog.Any("error", err))
		b.send(ctx, chatID, "❌ Could not load statistics", nil)
		return
	}
	b.send(ctx, chatID, formatStats(stats), nil)
}

func formatStats(stats shopapi.Stats) string {
	var sb strings.Builder
	sb.WriteString("📊 Statistics:\n\n")
	fmt.Fprintf(&sb, "Total products: %d\n\n", stats.TotalProducts)
	sb.WriteString("Top 5 viewed:\n")
	for i, p := range stats.TopViewed {
		fmt.Fprintf(&sb, "%d. %s - %d views\n", i+1, p.Name, p.Views)
	}
	sb.WriteString("\nLast 3 products:\n")
	for _, p := range stats.RecentlyAdded {
		fmt.Fprintf(&sb, "• %s\n", p.Name)
	}
	return sb.String()
}

const adminHelpText = `❓ Admin panel help:

➕ Add product:
1. Press "Add product"
2. Send a photo
3. Enter the name, price and description
4. Enter stock per size (S: 5, M: 3, ...)
5. Send "done"

✏️ Edit product:
1. Pick a product from the list
2. Pick a field to change
3. Enter the new value

📊 Statistics:
Total product count, top 5 viewed and the latest additions.`
