package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramGateway bridges Telegram chats to the engine: the chat id
// doubles as the session id, so each chat keeps its own history.
type TelegramGateway struct {
	Bot            *tgbotapi.BotAPI
	Agent          Agent
	RequestTimeout time.Duration
}

func NewTelegramGateway(token string, a Agent) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{
		Bot:            bot,
		Agent:          a,
		RequestTimeout: 2 * time.Minute,
	}, nil
}

func (tg *TelegramGateway) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil || update.Message.Text == "" {
			continue
		}

		log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)

		ctx, cancel := context.WithTimeout(context.Background(), tg.RequestTimeout)
		sessionID := fmt.Sprintf("tg-%d", update.Message.Chat.ID)
		reply, err := tg.Agent.HandleRequest(ctx, sessionID, update.Message.Text)
		cancel()

		text := ""
		if err != nil {
			log.Printf("Error handling request for %s: %v", sessionID, err)
			text = "I'm having trouble planning right now, please try again in a moment."
		} else {
			text = reply.Text
		}

		msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
		if _, err := tg.Bot.Send(msg); err != nil {
			log.Printf("Error sending reply to %s: %v", sessionID, err)
		}
	}

	return nil
}

// Send pushes a message to a chat outside the request/reply loop.
func (tg *TelegramGateway) Send(sessionID string, text string) error {
	raw := sessionID
	if len(raw) > 3 && raw[:3] == "tg-" {
		raw = raw[3:]
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram session id %q: %v", sessionID, err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	_, err = tg.Bot.Send(msg)
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
