package discord

import (
	"errors"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/reactboard/internal/domain"
)

type mockREST struct {
	webhookExecuteFn     func(webhookID, token string, wait bool, data *discordgo.WebhookParams) (*discordgo.Message, error)
	webhookMessageEditFn func(webhookID, token, messageID string, data *discordgo.WebhookEdit) (*discordgo.Message, error)
	sendComplexFn        func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error)
}

func (m *mockREST) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.webhookExecuteFn != nil {
		return m.webhookExecuteFn(webhookID, token, wait, data)
	}
	return nil, errors.New("not implemented")
}

func (m *mockREST) WebhookMessageEdit(webhookID, token, messageID string, data *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.webhookMessageEditFn != nil {
		return m.webhookMessageEditFn(webhookID, token, messageID, data)
	}
	return nil, errors.New("not implemented")
}

func (m *mockREST) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.sendComplexFn != nil {
		return m.sendComplexFn(channelID, data)
	}
	return nil, errors.New("not implemented")
}

type mockFetcher struct {
	channelMessageFn func(channelID, messageID string) (*discordgo.Message, error)
}

func (m *mockFetcher) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.channelMessageFn != nil {
		return m.channelMessageFn(channelID, messageID)
	}
	return nil, errors.New("not implemented")
}

type recordingSubmitter struct {
	mu     sync.Mutex
	snaps  []domain.ReactionSnapshot
	reject bool
}

func (s *recordingSubmitter) Submit(snap domain.ReactionSnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject {
		return false
	}
	s.snaps = append(s.snaps, snap)
	return true
}

func (s *recordingSubmitter) submitted() []domain.ReactionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ReactionSnapshot(nil), s.snaps...)
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) ObserveReceived(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[source]++
}

func restError(status int) *discordgo.RESTError {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: status}}
}
