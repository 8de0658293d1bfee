package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/atishaytuli/YURL/internal/service"
)

// TelegramBot is a chat front door to the link registry: send a URL,
// get a short link back. Links created here are owned by the sender.
type TelegramBot struct {
	tgBot    *tele.Bot
	registry *service.Registry
}

func NewTelegramBot(tgToken string, registry *service.Registry) (*TelegramBot, error) {
	pref := tele.Settings{
		Token:  tgToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		slog.Error("failed to initialize telegram bot", "error", err)
		return nil, err
	}

	return &TelegramBot{tgBot: bot, registry: registry}, nil
}

func (b *TelegramBot) Start(ctx context.Context) error {
	slog.Info("Telegram bot started", "bot_username", b.tgBot.Me.Username)

	b.tgBot.Handle("/start", b.handleStart)
	b.tgBot.Handle("/list", b.handleList)
	b.tgBot.Handle(tele.OnText, b.handleMessage)

	go func() {
		<-ctx.Done()
		slog.Info("Telegram bot shutting down")
		b.tgBot.Stop()
	}()

	b.tgBot.Start()
	return nil
}

func (b *TelegramBot) handleStart(c tele.Context) error {
	slog.Debug("command /start received", "user_id", c.Sender().ID)
	return c.Send("Hi! Send me a long URL and I'll shorten it for you. Use /list to see your links.")
}

func (b *TelegramBot) handleList(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	links, err := b.registry.ListByOwner(ctx, ownerID(c.Sender().ID))
	if err != nil {
		slog.Error("failed to list links", "user_id", c.Sender().ID, "error", err)
		return c.Send("Could not load your links, please try again later.")
	}
	if len(links) == 0 {
		return c.Send("You have no links yet. Send me a URL to create one.")
	}

	var sb strings.Builder
	for i := range links {
		fmt.Fprintf(&sb, "%s\n%s\n\n", links[i].Title, b.registry.ShortURL(&links[i]))
	}
	return c.Send(sb.String())
}

func (b *TelegramBot) handleMessage(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	u, err := url.ParseRequestURI(text)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return c.Send("That doesn't look like a link. It should start with http:// or https:// and contain a domain.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	link, err := b.registry.Create(ctx, service.CreateLinkParams{
		Title:       u.Host,
		OriginalURL: text,
		OwnerID:     ownerID(c.Sender().ID),
	})
	if err != nil {
		slog.Error("failed to create short link", "error", err)
		return c.Send("Could not create your link, please try again.")
	}

	return c.Send("Here's your short link:\n" + b.registry.ShortURL(link))
}

func ownerID(senderID int64) string {
	return fmt.Sprintf("tg:%d", senderID)
}
