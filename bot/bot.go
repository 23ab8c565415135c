// Package bot is the Telegram front-end over the snapshot store. It only
// reads published candidate sets; a reply is built from an independent copy
// so rendering never blocks the scheduler's publish.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	appconfig "fundingflow/config"
	"fundingflow/internal/store"
	"fundingflow/logger"
	"fundingflow/processor"
)

// maxTop caps /topapy so a reply stays within Telegram message limits.
const maxTop = 50

const helpText = "These commands are supported:\n" +
	"/help - display this text\n" +
	"/topapy [n] - return top arbitrages by APY"

const noDataText = "no candidates published yet, try again shortly"

type Bot struct {
	config  *appconfig.Config
	store   *store.SnapshotStore
	api     *tgbotapi.BotAPI
	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log
}

func New(cfg *appconfig.Config, snapshots *store.SnapshotStore) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Bot{
		config: cfg,
		store:  snapshots,
		api:    api,
		wg:     &sync.WaitGroup{},
		log:    logger.GetLogger(),
	}, nil
}

// Start begins long-polling for commands.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot already running")
	}
	b.running = true
	b.ctx = ctx
	b.mu.Unlock()

	log := b.log.WithComponent("bot").WithFields(logger.Fields{"operation": "start"})
	log.WithFields(logger.Fields{"username": b.api.Self.UserName}).Info("starting telegram bot")

	b.wg.Add(1)
	go b.pollUpdates()

	log.Info("telegram bot started successfully")
	return nil
}

// Stop terminates the update loop and waits for it to finish.
func (b *Bot) Stop() {
	b.mu.Lock()
	b.running = false
	b.mu.Unlock()

	b.log.WithComponent("bot").Info("stopping telegram bot")
	b.api.StopReceivingUpdates()
	b.wg.Wait()
	b.log.WithComponent("bot").Info("telegram bot stopped")
}

func (b *Bot) pollUpdates() {
	defer b.wg.Done()

	log := b.log.WithComponent("bot").WithFields(logger.Fields{"worker": "update_poller"})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-b.ctx.Done():
			log.Info("update poller stopped due to context cancellation")
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				log.Info("updates channel closed, poller stopping")
				return
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	reply, ok := b.replyFor(update.Message)
	if !ok {
		return
	}

	logger.IncrementBotQuery()

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, reply)
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithComponent("bot").WithError(err).Warn("failed to send reply")
	}
}

// replyFor computes the reply text for a command message. The second return
// is false when the message should be ignored, e.g. a query from an
// unauthorized chat.
func (b *Bot) replyFor(msg *tgbotapi.Message) (string, bool) {
	switch msg.Command() {
	case "help":
		return helpText, true
	case "topapy":
		if msg.Chat == nil || msg.Chat.ID != b.config.Bot.ChatID {
			return "", false
		}
		return b.renderTop(parseTopArg(msg.CommandArguments(), b.config.Bot.TopDefault)), true
	default:
		return "", false
	}
}

func parseTopArg(args string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n <= 0 {
		return fallback
	}
	if n > maxTop {
		return maxTop
	}
	return n
}

func (b *Bot) renderTop(n int) string {
	candidates := b.store.Top(n)
	if len(candidates) == 0 {
		return noDataText
	}
	return processor.RenderCandidates(candidates)
}
