package bot

import (
	"fmt"
	"furnishop/entity"
	"furnishop/internal/lib/sl"
	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"log/slog"
	"strings"
)

// TgBot announces new inquiries to the dealers' Telegram chat.
type TgBot struct {
	log    *slog.Logger
	api    *tgbotapi.Bot
	chatId int64
}

func NewTgBot(apiKey string, chatId int64, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:    log.With(sl.Module("tgbot")),
		chatId: chatId,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

// NotifyNewInquiry posts a short card about a freshly opened session.
func (t *TgBot) NotifyNewInquiry(session *entity.ChatSession, product *entity.ProductInfo, customer *entity.UserInfo) {
	t.plainResponse(t.chatId, inquiryText(session, product, customer))
}

func inquiryText(session *entity.ChatSession, product *entity.ProductInfo, customer *entity.UserInfo) string {
	var b strings.Builder
	b.WriteString("*New inquiry*\n")
	if product != nil {
		b.WriteString(fmt.Sprintf("Product: %s (%.2f)\n", product.Name, product.Price))
	} else {
		b.WriteString(fmt.Sprintf("Product: %s\n", session.ProductID))
	}
	if customer != nil && customer.Name != "" {
		b.WriteString(fmt.Sprintf("Customer: %s\n", customer.Name))
	}
	if session.PreferredDealerID != "" {
		b.WriteString(fmt.Sprintf("Preferred dealer: %s\n", session.PreferredDealerID))
	}
	b.WriteString(fmt.Sprintf("Session: %s", session.ID))
	return b.String()
}

func (t *TgBot) plainResponse(chatId int64, text string) {

	sanitized := sanitize(text, false)

	if sanitized != "" {
		_, err := t.api.SendMessage(chatId, sanitized, &tgbotapi.SendMessageOpts{
			ParseMode: "MarkdownV2",
		})
		if err != nil {
			t.log.With(
				slog.Int64("id", chatId),
			).Warn("sending message", sl.Err(err))
			_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
			if err != nil {
				t.log.With(
					slog.Int64("id", chatId),
				).Error("sending safe message", sl.Err(err))
			}
		}
	} else {
		t.log.With(
			slog.Int64("id", chatId),
		).Debug("empty message")
	}
}

// sanitize escapes MarkdownV2 reserved characters.
func sanitize(input string, preserveLinks bool) string {
	reservedChars := "\\`_{}#+-.!|()[]="
	if preserveLinks {
		reservedChars = "\\`_{}#+-.!|="
	}

	var b strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}

	return b.String()
}
