package bot

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (b *Bot) webAppKeyboard() models.ReplyMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "🛍️ Open the shop", WebApp: &models.WebAppInfo{URL: b.cfg.WebAppURL}},
		}},
	}
}

func (b *Bot) onStart(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	text := fmt.Sprintf("Hi! This is the official %s bot 👕\n\nBrowse the catalog, opening hours and promos here!", b.cfg.ShopName)
	b.send(ctx, update.Message.Chat.ID, text, b.webAppKeyboard())
}

func (b *Bot) onCatalog(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	b.send(ctx, update.Message.Chat.ID, "📦 Opening the catalog...", b.webAppKeyboard())
}

func (b *Bot) onHours(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	b.send(ctx, update.Message.Chat.ID, "🕐 Opening hours:\n\n"+b.cfg.ShopHours, nil)
}

func (b *Bot) onLocation(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	var markup models.ReplyMarkup
	if b.cfg.ShopLocationURL != "" {
		markup = &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "📍 On the map", URL: b.cfg.ShopLocationURL},
			}},
		}
	}
	b.send(ctx, update.Message.Chat.ID, "📍 Shop address:\n\n"+b.cfg.ShopAddress, markup)
}

func (b *Bot) onPromo(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	b.send(ctx, update.Message.Chat.ID, "🎉 Promos and discounts live in the catalog!", b.webAppKeyboard())
}
