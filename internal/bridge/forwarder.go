package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Sender delivers one file to the chat channel
type Sender interface {
	GetMe(ctx context.Context) (*BotInfo, error)
	GetChat(ctx context.Context) (*ChatInfo, error)
	SendFile(ctx context.Context, filename, mimeType string, data []byte, caption string) error
	ChatID() string
}

// Forwarder gates uploads on the chat client being ready
type Forwarder struct {
	sender        Sender
	retryInterval time.Duration

	mu    sync.RWMutex
	ready bool
	bot   *BotInfo
	chat  *ChatInfo
}

// NewForwarder creates a forwarder that is not ready until a check succeeds
func NewForwarder(sender Sender, retryInterval time.Duration) *Forwarder {
	if retryInterval <= 0 {
		retryInterval = 10 * time.Second
	}
	return &Forwarder{sender: sender, retryInterval: retryInterval}
}

// Run checks the bot until it answers, then returns
func (f *Forwarder) Run(ctx context.Context) {
	ticker := time.NewTicker(f.retryInterval)
	defer ticker.Stop()

	for {
		if f.Check(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Check verifies the bot and the target chat once and updates readiness
func (f *Forwarder) Check(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	bot, err := f.sender.GetMe(checkCtx)
	if err != nil {
		log.Warn().Err(err).Msg("Chat bot not ready yet")
		return false
	}

	chat, err := f.sender.GetChat(checkCtx)
	if err != nil {
		log.Error().
			Err(err).
			Str("bot", bot.Username).
			Str("chat_id", f.sender.ChatID()).
			Msg("Target chat not found or not visible to the bot")
		return false
	}

	f.mu.Lock()
	f.ready = true
	f.bot = bot
	f.chat = chat
	f.mu.Unlock()

	log.Info().
		Str("bot", bot.Username).
		Int64("bot_id", bot.ID).
		Str("chat_id", f.sender.ChatID()).
		Str("chat", chat.Name()).
		Msg("Chat bot is ready")
	return true
}

// Ready reports whether uploads can be forwarded
func (f *Forwarder) Ready() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ready
}

// Bot returns the identity reported by the last successful check
func (f *Forwarder) Bot() *BotInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bot
}

// Chat returns the target chat found by the last successful check
func (f *Forwarder) Chat() *ChatInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.chat
}

// Forward sends the file to the chat
func (f *Forwarder) Forward(ctx context.Context, filename, mimeType string, data []byte) error {
	return f.sender.SendFile(ctx, filename, mimeType, data, "")
}

// ChatID returns the destination chat
func (f *Forwarder) ChatID() string {
	return f.sender.ChatID()
}
