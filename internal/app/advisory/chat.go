package advisory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/agroloop/agroloop/internal/domain"
	"github.com/agroloop/agroloop/internal/infra/observability"
	"github.com/agroloop/agroloop/internal/infra/openai"
)

// Confidence reported per answer source.
const (
	ConfidenceVendor    = 0.95
	ConfidenceLocal     = 0.8
	ConfidenceException = 0.7
)

// MaxHistory is the number of exchanged messages kept after the system prompt.
const MaxHistory = 10

// ChatCompleter is the remote chat vendor.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, messages []domain.Message) (string, error)
}

// ChatClient answers farming questions and keeps a rolling, in-memory
// conversation. History is never persisted.
type ChatClient struct {
	mu       sync.Mutex
	configs  *ConfigStore
	vendor   func(apiKey string) ChatCompleter
	recorder *observability.Recorder
	history  []domain.Message
	epoch    uint64 // bumped by Clear
}

// ChatOption customizes a ChatClient.
type ChatOption func(*ChatClient)

// WithChatVendor replaces the OpenAI client factory.
func WithChatVendor(f func(apiKey string) ChatCompleter) ChatOption {
	return func(c *ChatClient) { c.vendor = f }
}

// WithChatRecorder records every answer.
func WithChatRecorder(r *observability.Recorder) ChatOption {
	return func(c *ChatClient) { c.recorder = r }
}

// NewChatClient creates a client. Vendor calls time out after timeout.
func NewChatClient(configs *ConfigStore, timeout time.Duration, opts ...ChatOption) *ChatClient {
	c := &ChatClient{
		configs: configs,
		vendor: func(key string) ChatCompleter {
			return openai.New(key, timeout)
		},
	}
	for _, o := range opts {
		o(c)
	}
	c.history = initialHistory()
	return c
}

func initialHistory() []domain.Message {
	return []domain.Message{{Role: domain.RoleSystem, Content: SystemPrompt}}
}

// Ask answers message. The only error is an empty message; every vendor
// failure falls back to the local knowledge base.
func (c *ChatClient) Ask(ctx context.Context, message string) (domain.ExpertResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.ExpertResponse{}, domain.Invalid("message", "is required")
	}
	start := time.Now()

	// A caller that already gave up gets the local answer without
	// touching the conversation.
	if err := ctx.Err(); err != nil {
		answer, _ := LocalAnswer(message)
		return c.finish(domain.ExpertResponse{
			Message:    answer,
			Confidence: ConfidenceException,
			Provenance: vendorError(ServiceLocalKB, err),
		}, start), nil
	}

	// c.mu is not held across the vendor call.
	c.mu.Lock()
	c.history = append(c.history, domain.Message{Role: domain.RoleUser, Content: message})
	sent, epoch := c.snapshot(), c.epoch
	c.mu.Unlock()

	prov := domain.Provenance{
		Service: ServiceLocalKB,
		Outcome: domain.VendorUnavailable,
		Reason:  "no OpenAI API key configured",
	}
	if key := c.configs.Get().OpenAIAPIKey; key != "" {
		reply, err := c.vendor(key).ChatCompletion(ctx, sent)
		if err == nil && strings.TrimSpace(reply) == "" {
			err = fmt.Errorf("empty completion")
		}
		if err == nil {
			c.appendAssistant(epoch, reply)
			return c.finish(domain.ExpertResponse{
				Message:    reply,
				Confidence: ConfidenceVendor,
				Provenance: domain.Provenance{Service: ServiceOpenAI, Outcome: domain.VendorOK},
			}, start), nil
		}
		log.Printf("[advisory] OpenAI failed, using local knowledge base: %v", err)
		prov = vendorError(ServiceLocalKB, err)
	}

	answer, _ := LocalAnswer(message)
	c.appendAssistant(epoch, answer)
	return c.finish(domain.ExpertResponse{
		Message:    answer,
		Confidence: ConfidenceLocal,
		Provenance: prov,
	}, start), nil
}

func (c *ChatClient) finish(r domain.ExpertResponse, start time.Time) domain.ExpertResponse {
	r.ProcessingTime = time.Since(start)
	c.recorder.Observe(r.Provenance, start)
	return r
}

// appendAssistant adds a reply and trims to the system prompt plus the last
// MaxHistory messages. A reply to a conversation cleared since epoch is
// dropped.
func (c *ChatClient) appendAssistant(epoch uint64, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return
	}
	c.history = append(c.history, domain.Message{Role: domain.RoleAssistant, Content: content})
	if len(c.history) > MaxHistory+1 {
		trimmed := make([]domain.Message, 0, MaxHistory+1)
		trimmed = append(trimmed, c.history[0])
		trimmed = append(trimmed, c.history[len(c.history)-MaxHistory:]...)
		c.history = trimmed
	}
}

// snapshot copies the history. Callers hold c.mu.
func (c *ChatClient) snapshot() []domain.Message {
	return append([]domain.Message(nil), c.history...)
}

// History returns a copy of the conversation, system prompt first.
func (c *ChatClient) History() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Clear resets the conversation to the system prompt.
func (c *ChatClient) Clear() {
	c.mu.Lock()
	c.history = initialHistory()
	c.epoch++
	c.mu.Unlock()
}
