// Package notify announces classification results to operators.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/weathervane/internal/model"
)

// Telegram sends a single verdict summary per run to a configured chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

// Announce posts a human-readable summary of the snapshot.
func (t *Telegram) Announce(snapshot *model.RegimeSnapshot) error {
	tag := string(snapshot.SecondaryTag)
	if tag == "" {
		tag = "-"
	}

	text := fmt.Sprintf(
		"%s regime: %s (%s)\nConfidence: %d%%\nVolatility: %s | Participation: %s | Noise: %s\nSession: %s\n%s",
		snapshot.Instrument,
		snapshot.PrimaryRegime,
		tag,
		snapshot.Confidence,
		snapshot.VolatilityState,
		snapshot.ParticipationState,
		snapshot.NoiseLevel,
		snapshot.SessionPhase,
		snapshot.ReliabilityNote,
	)

	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}

	t.logger.Debug().Int64("chat_id", t.chatID).Msg("Verdict announced")
	return nil
}
