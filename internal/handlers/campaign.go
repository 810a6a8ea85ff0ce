package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"align-bot/internal/brand"
	"align-bot/internal/campaign"
	"align-bot/internal/pipeline"
	"align-bot/internal/session"
)

const (
	callbackPrefix = "al"
	skipAnswer     = "-"
)

// answerOrder lists the brand wizard and then the campaign wizard. Each ends with
// PromptNone after its last question.
var answerOrder = []session.Prompt{
	session.PromptBrandName,
	session.PromptBrandMission,
	session.PromptBrandTone,
	session.PromptBrandConstraints,
	session.PromptNone,
	session.PromptTopic,
	session.PromptContext,
	session.PromptAudience,
	session.PromptNone,
}

// applyAnswer stores text as the answer to prompt and advances the chat to the
// next prompt. It runs under the chat store lock.
func applyAnswer(st *session.Chat, prompt session.Prompt, text string) {
	value := text
	if value == skipAnswer {
		value = ""
	}

	switch prompt {
	case session.PromptBrandName:
		if value != "" {
			st.Brand.Name = value
		}
	case session.PromptBrandMission:
		st.Brand.Mission = value
	case session.PromptBrandTone:
		st.Brand.Tone = value
	case session.PromptBrandConstraints:
		st.Brand.Constraints = value
	case session.PromptTopic:
		st.Topic = text
	case session.PromptContext:
		st.Context = text
	case session.PromptAudience:
		st.Audience = value
	default:
		return
	}
	st.Awaiting = nextPrompt(answerOrder, prompt)
}

// openCampaign offers the presets allowed for the chat's archetype.
func (h *Handler) openCampaign(chatID, userID int64) error {
	st := h.chats.Get(chatID, userID)
	if st.Controller != nil && st.Controller.Snapshot().State.Busy() {
		return h.tg.SendText(chatID, "The current campaign is still being generated. Please wait.")
	}
	text := fmt.Sprintf("Brand: %s (%s)\nPick a visual preset:", st.Brand.Name, brand.Label(st.Brand.Archetype))
	return h.tg.SendMenu(chatID, text, presetKeyboard(userID, st.Brand.Archetype))
}

func (h *Handler) startCampaign(ctx context.Context, chatID, userID int64, st session.Chat) error {
	req, err := campaign.NewRequest(st.Brand, st.Preset, st.Topic, st.Context, st.Audience)
	if err != nil {
		h.chats.Update(chatID, userID, func(st *session.Chat) { st.Awaiting = session.PromptTopic })
		return h.tg.SendText(chatID, "That campaign is incomplete: "+err.Error()+"\n\n"+promptQuestion(session.PromptTopic))
	}

	ctrl := st.Controller
	if ctrl == nil || ctrl.Snapshot().State != pipeline.StateInput {
		opts := h.stages
		opts.Logger = h.logger.With("chat_id", chatID)
		opts.OnChange = h.notifier(chatID, userID)

		fresh := pipeline.New(context.WithoutCancel(ctx), opts)
		var old *pipeline.Controller
		h.chats.Update(chatID, userID, func(st *session.Chat) {
			old = st.Controller
			st.Controller = fresh
		})
		if old != nil {
			old.Close()
		}
		ctrl = fresh
	}

	if !ctrl.Start(req) {
		return h.tg.SendText(chatID, "The campaign could not be started. Use /campaign to try again.")
	}
	return nil
}

// notifier renders controller state changes into the chat.
func (h *Handler) notifier(chatID, userID int64) func(pipeline.Snapshot) {
	return func(snap pipeline.Snapshot) {
		if err := h.render(chatID, userID, snap); err != nil {
			h.logger.Error("render campaign state failed", "chat_id", chatID, "state", snap.State, "err", err)
		}
	}
}

func (h *Handler) render(chatID, userID int64, snap pipeline.Snapshot) error {
	switch snap.State {
	case pipeline.StateThinking:
		h.tg.SendTyping(chatID)
		return h.tg.SendText(chatID, "Analyzing strategy for \""+snap.Request.Topic+"\"...")
	case pipeline.StateReview:
		text := strategyText(snap.Strategy)
		if snap.Error != "" {
			text = "Content generation failed: " + snap.Error + "\nThe strategy is kept, you can approve again.\n\n" + text
		}
		return h.tg.SendMenu(chatID, text, reviewKeyboard(userID))
	case pipeline.StateGenerating:
		h.tg.SendTyping(chatID)
		return h.tg.SendText(chatID, "Writing copy and rendering the visual...")
	case pipeline.StateDone:
		if snap.Content == nil {
			return nil
		}
		if err := h.tg.SendPhoto(chatID, snap.Content.ImageURL, contentCaption(*snap.Content), nil); err != nil {
			h.logger.Warn("send campaign photo failed", "chat_id", chatID, "err", err)
			if err := h.tg.SendText(chatID, contentCaption(*snap.Content)); err != nil {
				return err
			}
		}
		kb := doneKeyboard(userID)
		return h.tg.SendMenu(chatID, contentDetails(*snap.Content), kb)
	case pipeline.StateInput:
		if snap.Error == "" {
			return nil
		}
		h.chats.Update(chatID, userID, func(st *session.Chat) { st.Awaiting = session.PromptTopic })
		return h.tg.SendText(chatID, "Strategy failed: "+snap.Error+"\n\n"+promptQuestion(session.PromptTopic))
	}
	return nil
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.Message.Chat == nil || q.From == nil {
		return nil
	}
	ownerID, action, arg, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This menu belongs to someone else.", true)
		return nil
	}
	chatID := q.Message.Chat.ID

	switch action {
	case "arch":
		a, err := brand.ParseArchetype(arg)
		if err != nil {
			return h.tg.AnswerCallback(q.ID, "Unknown archetype.", true)
		}
		st := h.chats.Update(chatID, ownerID, func(st *session.Chat) {
			st.Brand.Archetype = a
			st.Preset = brand.DefaultPreset(a)
			st.Awaiting = session.PromptBrandName
		})
		_ = h.tg.AnswerCallback(q.ID, brand.Label(a), false)
		return h.tg.SendText(chatID, fmt.Sprintf("Archetype: %s (%s).\n%s Send %s to keep %q.",
			brand.Label(a), brand.Describe(a), promptQuestion(session.PromptBrandName), skipAnswer, st.Brand.Name))

	case "preset":
		p, err := brand.ParsePreset(arg)
		st := h.chats.Get(chatID, ownerID)
		if err != nil || !brand.Allows(st.Brand.Archetype, p) {
			return h.tg.AnswerCallback(q.ID, "That preset is not available for this brand.", true)
		}
		h.chats.Update(chatID, ownerID, func(st *session.Chat) {
			st.Preset = p
			st.Awaiting = session.PromptTopic
		})
		_ = h.tg.AnswerCallback(q.ID, brand.Label(p), false)
		return h.tg.SendText(chatID, promptQuestion(session.PromptTopic))

	case "approve":
		ctrl := h.chats.Get(chatID, ownerID).Controller
		if ctrl == nil || !ctrl.Approve() {
			return h.tg.AnswerCallback(q.ID, "Nothing to approve right now.", true)
		}
		return h.tg.AnswerCallback(q.ID, "Approved", false)

	case "refine":
		ctrl := h.chats.Get(chatID, ownerID).Controller
		if ctrl == nil || !ctrl.Refine() {
			return h.tg.AnswerCallback(q.ID, "Nothing to refine right now.", true)
		}
		st := h.chats.Update(chatID, ownerID, func(st *session.Chat) { st.Awaiting = session.PromptTopic })
		_ = h.tg.AnswerCallback(q.ID, "Strategy discarded", false)
		return h.tg.SendText(chatID, fmt.Sprintf("Strategy discarded. Previous topic: %q.\n%s", st.Topic, promptQuestion(session.PromptTopic)))

	case "new":
		ctrl := h.chats.Get(chatID, ownerID).Controller
		if ctrl == nil || !ctrl.NewCampaign() {
			return h.tg.AnswerCallback(q.ID, "The campaign is not finished yet.", true)
		}
		_ = h.tg.AnswerCallback(q.ID, "New campaign", false)
		return h.openCampaign(chatID, ownerID)
	}

	return h.tg.AnswerCallback(q.ID, "OK", false)
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", callbackPrefix, ownerID, strings.Join(parts, ":"))
}

func parseCallback(data string) (ownerID int64, action, arg string, ok bool) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) < 3 || parts[0] != callbackPrefix {
		return 0, "", "", false
	}
	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, "", "", false
	}
	if len(parts) > 3 {
		arg = parts[3]
	}
	return ownerID, parts[2], arg, true
}

func nextPrompt(order []session.Prompt, current session.Prompt) session.Prompt {
	for i, p := range order {
		if p == current && i+1 < len(order) {
			return order[i+1]
		}
	}
	return session.PromptNone
}
