package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/reactboard/internal/adapter/metrics"
	"github.com/pscheid92/reactboard/internal/domain"
	"golang.org/x/time/rate"
)

const (
	opCreate         = "create"
	opEdit           = "edit"
	opCrossReference = "cross_reference"
)

// RESTClient is the subset of *discordgo.Session the publisher calls.
type RESTClient interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookMessageEdit(webhookID, token, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Publisher is the webhook-backed domain.Publisher. Calls are paced by a token bucket
// and short-circuited while Discord keeps failing.
type Publisher struct {
	api     RESTClient
	webhook Webhook
	limiter *rate.Limiter
	breaker circuitbreaker.CircuitBreaker[any]
	metrics *metrics.PublisherMetrics
}

var _ domain.Publisher = (*Publisher)(nil)

// NewPublisher paces calls at perSecond with an equal burst. Both metric sets may be nil.
func NewPublisher(api RESTClient, webhook Webhook, perSecond float64, pm *metrics.PublisherMetrics, bm *metrics.BreakerMetrics) *Publisher {
	burst := max(int(perSecond), 1)

	breaker := circuitbreaker.NewBuilder[any]().
		WithFailureThresholdRatio(3, 5).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "discord",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			bm.ObserveStateChange("discord", e.NewState)
		}).
		Build()

	return &Publisher{
		api:     api,
		webhook: webhook,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		breaker: breaker,
		metrics: pm,
	}
}

func (p *Publisher) Create(ctx context.Context, summary string, author domain.Author) (string, error) {
	var entryID string
	err := p.call(ctx, opCreate, func() error {
		params := &discordgo.WebhookParams{
			Embeds:          []*discordgo.MessageEmbed{boardEmbed(summary, author)},
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		}
		msg, err := p.api.WebhookExecute(p.webhook.ID, p.webhook.Token, true, params, discordgo.WithContext(ctx))
		if err != nil {
			return err
		}
		if msg == nil || msg.ID == "" {
			return errors.New("webhook execute returned no message")
		}
		entryID = msg.ID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to create board entry: %w", err)
	}
	return entryID, nil
}

func (p *Publisher) Edit(ctx context.Context, entryID, summary string, author domain.Author) error {
	err := p.call(ctx, opEdit, func() error {
		embeds := []*discordgo.MessageEmbed{boardEmbed(summary, author)}
		_, err := p.api.WebhookMessageEdit(p.webhook.ID, p.webhook.Token, entryID, &discordgo.WebhookEdit{Embeds: &embeds}, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to edit board entry %s: %w", entryID, err)
	}
	return nil
}

// CrossReference forwards the source message into the board channel through the bot session.
func (p *Publisher) CrossReference(ctx context.Context, boardChannelID, guildID, channelID, messageID string) error {
	err := p.call(ctx, opCrossReference, func() error {
		failIfMissing := true
		send := &discordgo.MessageSend{
			Reference: &discordgo.MessageReference{
				Type:            discordgo.MessageReferenceTypeForward,
				MessageID:       messageID,
				ChannelID:       channelID,
				GuildID:         guildID,
				FailIfNotExists: &failIfMissing,
			},
		}
		_, err := p.api.ChannelMessageSendComplex(boardChannelID, send, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to forward message %s: %w", messageID, err)
	}
	return nil
}

func (p *Publisher) call(ctx context.Context, op string, fn func() error) error {
	if err := p.limiter.Wait(ctx); err != nil {
		p.metrics.ObserveCall(op, "rate_limited", 0)
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	if !p.breaker.TryAcquirePermit() {
		p.metrics.ObserveCall(op, "breaker_open", 0)
		return fmt.Errorf("discord circuit breaker open: %w", circuitbreaker.ErrOpen)
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
		p.breaker.RecordSuccess()
		p.metrics.ObserveCall(op, "success", elapsed)
	case isOutage(err):
		p.breaker.RecordError(err)
		p.metrics.ObserveCall(op, "error", elapsed)
	default:
		// Discord answered; a rejected request says nothing about availability.
		p.breaker.RecordSuccess()
		p.metrics.ObserveCall(op, "rejected", elapsed)
	}
	return err
}

// isOutage reports whether err indicates Discord is unavailable rather than a rejected request.
func isOutage(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	restErr, ok := errors.AsType[*discordgo.RESTError](err)
	if !ok || restErr.Response == nil {
		return true
	}
	code := restErr.Response.StatusCode
	return code == http.StatusTooManyRequests || code >= 500
}

func boardEmbed(summary string, author domain.Author) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    author.DisplayName,
			IconURL: author.AvatarURL,
		},
		Description: summary,
	}
}
