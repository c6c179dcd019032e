// Package bot wires the Telegram transport to the storefront commands and
// the admin workflow machine.
package bot

import (
	"context"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/broshop/broshop/internal/app"
	"github.com/broshop/broshop/internal/bot/relay"
	"github.com/broshop/broshop/internal/bot/session"
	"github.com/broshop/broshop/internal/bot/shopapi"
	"github.com/broshop/broshop/internal/bot/workflow"
)

// Bot runs the Telegram side of the shop.
type Bot struct {
	api      *tgbot.Bot
	logger   *slog.Logger
	cfg      *app.Config
	shop     *shopapi.Client
	machine  *workflow.Machine
	sessions *session.Store
}

// New constructs the bot, its media relay and its workflow machine.
func New(cfg *app.Config, logger *slog.Logger, sessions *session.Store, shop *shopapi.Client) (*Bot, error) {
	b := &Bot{
		logger:   logger,
		cfg:      cfg,
		shop:     shop,
		sessions: sessions,
	}

	api, err := tgbot.New(cfg.BotToken, tgbot.WithDefaultHandler(b.onUpdate))
	if err != nil {
		return nil, err
	}
	b.api = api

	rel := relay.New(telegramFiles{api: api}, shop, cfg.APITimeout)
	b.machine = workflow.NewMachine(logger, sessions, rel, shop, cfg.AdminIDs)

	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerHandlers() {
	b.api.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypePrefix, b.onStart)
	b.api.RegisterHandler(tgbot.HandlerTypeMessageText, "/catalog", tgbot.MatchTypePrefix, b.onCatalog)
	b.api.RegisterHandler(tgbot.HandlerTypeMessageText, "/hours", tgbot.MatchTypePrefix, b.onHours)
	b.api.RegisterHandler(tgbot.HandlerTypeMessageText, "/location", tgbot.MatchTypePrefix, b.onLocation)
	b.api.RegisterHandler(tgbot.HandlerTypeMessageText, "/promo", tgbot.MatchTypePrefix, b.onPromo)
	b.api.RegisterHandler(tgbot.HandlerTypeMessageText, "/admin", tgbot.MatchTypePrefix, b.onAdmin)
	b.api.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, "admin_", tgbot.MatchTypePrefix, b.onAdminCallback)
	b.api.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, "edit_", tgbot.MatchTypePrefix, b.onEditCallback)
}

// Run starts long polling until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("starting bot long polling")
	b.api.Start(ctx)
	return ctx.Err()
}

// onUpdate handles every message not matched by a command handler. Free text
// and photos belong to whatever admin conversation is in progress.
func (b *Bot) onUpdate(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	in := workflow.Input{AdminID: msg.From.ID, Text: msg.Text}
	if len(msg.Photo) > 0 {
		// Telegram lists photo renditions smallest first.
		in.PhotoFileID = msg.Photo[len(msg.Photo)-1].FileID
		if in.Text == "" {
			in.Text = msg.Caption
		}
	}

	reply, handled := b.machine.Handle(ctx, in)
	if !handled {
		return
	}
	b.send(ctx, msg.Chat.ID, reply.Text, nil)
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	params := &tgbot.SendMessageParams{ChatID: chatID, Text: text}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := b.api.SendMessage(ctx, params); err != nil {
		b.logger.Error("send message", slog.Any("error", err), slog.Int64("chat_id", chatID))
	}
}

func (b *Bot) answerCallback(ctx context.Context, id string) {
	if _, err := b.api.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{CallbackQueryID: id}); err != nil {
		b.logger.Warn("answer callback", slog.Any("error", err))
	}
}

// callbackChatID picks where to reply: the originating chat when Telegram
// still exposes it, the user's private chat otherwise.
func callbackChatID(cb *models.CallbackQuery) int64 {
	if cb.Message.Message != nil {
		return cb.Message.Message.Chat.ID
	}
	return cb.From.ID
}

// telegramFiles resolves Telegram file ids to download URLs for the relay.
type telegramFiles struct {
	api *tgbot.Bot
}

func (t telegramFiles) FileURL(ctx context.Context, fileID string) (string, error) {
	file, err := t.api.GetFile(ctx, &tgbot.GetFileParams{FileID: fileID})
	if err != nil {
		return "", err
	}
	return t.api.FileDownloadLink(file), nil
}
