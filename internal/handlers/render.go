package handlers

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"align-bot/internal/brand"
	"align-bot/internal/campaign"
	"align-bot/internal/session"
	"align-bot/internal/telegram"
)

const welcomeText = "Brand-safe campaign generator\n\n" +
	"A strategist analyzes your request against your brand first. " +
	"You review the strategy, and only after you approve it is the copy and visual produced."

const helpText = "Commands:\n" +
	"/brand - set archetype, name, mission, tone and constraints\n" +
	"/campaign - pick a visual preset and describe the campaign\n" +
	"/cancel - drop the current campaign\n" +
	"/help - this message\n\n" +
	"When a strategy is ready you can approve it or refine your input."

func brandSummary(p brand.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Brand: %s\n", p.Name)
	fmt.Fprintf(&b, "Archetype: %s (%s)\n", brand.Label(p.Archetype), brand.Describe(p.Archetype))
	fmt.Fprintf(&b, "Mission: %s\n", orDash(p.Mission))
	fmt.Fprintf(&b, "Tone: %s\n", orDash(p.Tone))
	fmt.Fprintf(&b, "Constraints: %s", orDash(p.Constraints))
	return b.String()
}

func promptQuestion(p session.Prompt) string {
	switch p {
	case session.PromptBrandName:
		return "What is the brand name?"
	case session.PromptBrandMission:
		return "What is the brand mission? Send - to leave it empty."
	case session.PromptBrandTone:
		return "Describe the brand tone. Send - to leave it empty."
	case session.PromptBrandConstraints:
		return "List forbidden topics and constraints. Send - to leave it empty."
	case session.PromptTopic:
		return "What is the campaign topic?"
	case session.PromptContext:
		return "Give some context: the goal, the offer, what is happening."
	case session.PromptAudience:
		return "Who is the target audience? Send - to skip."
	}
	return ""
}

func strategyText(s *campaign.Strategy) string {
	if s == nil {
		return "No strategy."
	}
	return "Strategy ready for review\n\n" +
		"Market analysis:\n" + s.MarketAnalysis + "\n\n" +
		"Strategic angle:\n" + s.StrategicAngle + "\n\n" +
		"Alignment check:\n" + s.AlignmentCheck + "\n\n" +
		"Tone instruction:\n" + s.ToneInstruction
}

func contentCaption(c campaign.Content) string {
	return telegram.TruncateCaption(c.Headline + "\n\n" + c.Body)
}

func contentDetails(c campaign.Content) string {
	text := "Why this is on brand:\n" + c.Rationale + "\n\nImage prompt:\n" + c.ImagePrompt
	if c.ImagePlaceholder {
		text += "\n\nImage generation was unavailable, a placeholder image was used."
	}
	return text
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func archetypeKeyboard(ownerID int64) telegram.InlineKeyboard {
	var row []tgbotapi.InlineKeyboardButton
	for _, opt := range brand.ArchetypeOptions() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(opt.Name, cb(ownerID, "arch", opt.Key)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func presetKeyboard(ownerID int64, a brand.Archetype) telegram.InlineKeyboard {
	var row []tgbotapi.InlineKeyboardButton
	for _, opt := range brand.PresetOptions(a) {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(opt.Name, cb(ownerID, "preset", opt.Key)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func reviewKeyboard(ownerID int64) telegram.InlineKeyboard {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve & Generate", cb(ownerID, "approve")),
			tgbotapi.NewInlineKeyboardButtonData("Refine Input", cb(ownerID, "refine")),
		),
	)
}

func doneKeyboard(ownerID int64) telegram.InlineKeyboard {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Start New Campaign", cb(ownerID, "new")),
		),
	)
}
