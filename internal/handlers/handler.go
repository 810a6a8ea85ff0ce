package handlers

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"align-bot/internal/pipeline"
	"align-bot/internal/session"
	"align-bot/internal/telegram"
)

// Messenger is the part of the Telegram client the bot flow uses.
type Messenger interface {
	SendTyping(chatID int64)
	SendText(chatID int64, text string) error
	SendMenu(chatID int64, text string, kb telegram.InlineKeyboard) error
	SendPhoto(chatID int64, ref, caption string, kb *telegram.InlineKeyboard) error
	AnswerCallback(callbackID, text string, alert bool) error
}

type Options struct {
	Telegram Messenger
	Chats    *session.ChatStore
	// Stages configures every controller the bot creates. Its OnChange is
	// replaced per chat.
	Stages pipeline.Options
	Logger *slog.Logger
}

type Handler struct {
	tg     Messenger
	chats  *session.ChatStore
	stages pipeline.Options
	logger *slog.Logger
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	chats := opts.Chats
	if chats == nil {
		chats = session.NewChatStore()
	}

	return &Handler{
		tg:     opts.Telegram,
		chats:  chats,
		stages: opts.Stages,
		logger: logger,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}
	if msg.Text != "" {
		return h.handleText(ctx, chatID, userID, msg.Text)
	}
	return nil
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		st := h.chats.Get(chatID, userID)
		return h.tg.SendText(chatID, welcomeText+"\n\n"+brandSummary(st.Brand))
	case "help":
		return h.tg.SendText(chatID, helpText)
	case "brand":
		h.chats.Update(chatID, userID, func(st *session.Chat) { st.Awaiting = session.PromptNone })
		return h.tg.SendMenu(chatID, "Choose the brand archetype:", archetypeKeyboard(userID))
	case "campaign":
		return h.openCampaign(chatID, userID)
	case "cancel":
		h.chats.Reset(chatID, userID)
		return h.tg.SendText(chatID, "Campaign cleared. Your brand profile is kept. Use /campaign to start again.")
	default:
		return h.tg.SendText(chatID, "Unknown command. Use /help.")
	}
}

// handleText feeds a free-text answer to whatever the chat is waiting for. The
// prompt is read and advanced in one store update, so concurrent messages from a
// chat each answer a different prompt.
func (h *Handler) handleText(ctx context.Context, chatID, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var prompt session.Prompt
	st := h.chats.Update(chatID, userID, func(st *session.Chat) {
		prompt = st.Awaiting
		applyAnswer(st, prompt, text)
	})

	switch prompt {
	case session.PromptBrandName, session.PromptBrandMission, session.PromptBrandTone, session.PromptBrandConstraints:
		if st.Awaiting == session.PromptNone {
			return h.tg.SendText(chatID, "Brand saved.\n\n"+brandSummary(st.Brand)+"\n\nUse /campaign to start a campaign.")
		}
		return h.tg.SendText(chatID, promptQuestion(st.Awaiting))
	case session.PromptTopic, session.PromptContext, session.PromptAudience:
		if st.Awaiting != session.PromptNone {
			return h.tg.SendText(chatID, promptQuestion(st.Awaiting))
		}
		return h.startCampaign(ctx, chatID, userID, st)
	default:
		return h.tg.SendText(chatID, "Use /campaign to start a campaign or /brand to set up your brand.")
	}
}
