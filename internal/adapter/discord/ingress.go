package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/reactboard/internal/domain"
	"github.com/pscheid92/reactboard/internal/platform/retry"
	"golang.org/x/sync/singleflight"
)

const (
	sourceReactionAdd    = "reaction_add"
	sourceReactionRemove = "reaction_remove"

	defaultFetchTimeout   = 15 * time.Second
	retryInitialBackoff   = 500 * time.Millisecond
	retryMaxBackoff       = 5 * time.Second
	retryRateLimitBackoff = 5 * time.Second
)

// MessageFetcher is the subset of *discordgo.Session the ingress calls.
type MessageFetcher interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Submitter accepts snapshots for asynchronous processing. Implemented by app.Dispatcher.
type Submitter interface {
	Submit(snap domain.ReactionSnapshot) bool
}

// IngressRecorder counts received gateway events. May be nil.
type IngressRecorder interface {
	ObserveReceived(source string)
}

type IngressConfig struct {
	GuildID        string
	BoardChannelID string
	FetchTimeout   time.Duration
	Retry          retry.Policy
}

// Ingress turns reaction gateway events into full ReactionSnapshots. Events for foreign
// guilds and for the board channel are dropped before any REST call.
type Ingress struct {
	cfg       IngressConfig
	fetcher   MessageFetcher
	submitter Submitter
	recorder  IngressRecorder

	fetches singleflight.Group
	seq     atomic.Uint64
}

func NewIngress(cfg IngressConfig, fetcher MessageFetcher, submitter Submitter, recorder IngressRecorder) *Ingress {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   retryInitialBackoff,
			MaxBackoff:       retryMaxBackoff,
			RateLimitBackoff: retryRateLimitBackoff,
		}
	}
	return &Ingress{cfg: cfg, fetcher: fetcher, submitter: submitter, recorder: recorder}
}

// Register installs the reaction handlers on the session and returns a func removing them.
func (in *Ingress) Register(s *discordgo.Session) func() {
	removeAdd := s.AddHandler(in.OnReactionAdd)
	removeRemove := s.AddHandler(in.OnReactionRemove)
	return func() {
		removeAdd()
		removeRemove()
	}
}

func (in *Ingress) OnReactionAdd(_ *discordgo.Session, e *discordgo.MessageReactionAdd) {
	if e == nil || e.MessageReaction == nil {
		return
	}
	in.handle(sourceReactionAdd, e.MessageReaction)
}

func (in *Ingress) OnReactionRemove(_ *discordgo.Session, e *discordgo.MessageReactionRemove) {
	if e == nil || e.MessageReaction == nil {
		return
	}
	in.handle(sourceReactionRemove, e.MessageReaction)
}

func (in *Ingress) handle(source string, r *discordgo.MessageReaction) {
	if in.recorder != nil {
		in.recorder.ObserveReceived(source)
	}
	if !in.relevant(r) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), in.cfg.FetchTimeout)
	defer cancel()

	msg, err := in.fetchMessage(ctx, r.ChannelID, r.MessageID)
	if err != nil {
		slog.Error("Failed to fetch reacted message", "message_id", r.MessageID, "channel_id", r.ChannelID, "source", source, "error", err)
		return
	}

	snap := buildSnapshot(msg, r.GuildID)
	if !in.submitter.Submit(snap) {
		slog.Warn("Reaction event dropped", "message_id", r.MessageID, "source", source)
	}
}

func (in *Ingress) relevant(r *discordgo.MessageReaction) bool {
	return r.GuildID != "" && r.GuildID == in.cfg.GuildID && r.ChannelID != in.cfg.BoardChannelID
}

type fetchResult struct {
	msg      *discordgo.Message
	startSeq uint64
}

// fetchMessage collapses concurrent fetches of one message. A caller whose event arrived
// after the shared fetch started fetches again, so the last event always sees fresh counts.
func (in *Ingress) fetchMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	mySeq := in.seq.Add(1)

	for {
		v, err, _ := in.fetches.Do(messageID, func() (any, error) {
			startSeq := in.seq.Load()
			msg, err := retry.Do(ctx, in.retryPolicy(messageID), classifyRESTError, func(ctx context.Context) (*discordgo.Message, error) {
				return in.fetcher.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
			})
			if err != nil {
				return nil, err
			}
			return fetchResult{msg: msg, startSeq: startSeq}, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch message: %w", err)
		}

		res := v.(fetchResult)
		if res.startSeq >= mySeq {
			return res.msg, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch message: %w", err)
		}
	}
}

func (in *Ingress) retryPolicy(messageID string) retry.Policy {
	p := in.cfg.Retry
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Message fetch failed, retrying", "message_id", messageID, "attempt", attempt, "backoff_seconds", backoff.Seconds(), "error", err)
	}
	return p
}

func classifyRESTError(err error) retry.Action {
	restErr, ok := errors.AsType[*discordgo.RESTError](err)
	if !ok || restErr.Response == nil {
		return retry.Retry
	}

	switch {
	case restErr.Response.StatusCode == http.StatusTooManyRequests:
		return retry.After
	case restErr.Response.StatusCode >= 500:
		return retry.Retry
	default:
		return retry.Stop
	}
}

// buildSnapshot keeps Discord's reaction order; custom emoji render as <:name:id>.
func buildSnapshot(msg *discordgo.Message, guildID string) domain.ReactionSnapshot {
	tallies := make([]domain.Tally, 0, len(msg.Reactions))
	for _, r := range msg.Reactions {
		if r == nil || r.Emoji == nil {
			continue
		}
		tallies = append(tallies, domain.Tally{Emoji: r.Emoji.MessageFormat(), Count: r.Count})
	}

	snap := domain.ReactionSnapshot{
		MessageID: msg.ID,
		ChannelID: msg.ChannelID,
		GuildID:   guildID,
		Tallies:   tallies,
	}
	if msg.Author != nil {
		snap.Author = domain.Author{
			DisplayName: msg.Author.DisplayName(),
			AvatarURL:   msg.Author.AvatarURL(""),
		}
	}
	return snap
}
