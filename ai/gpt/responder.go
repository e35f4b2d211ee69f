package gpt

import (
	"context"
	"fmt"
	"furnishop/entity"
	"furnishop/internal/config"
	"furnishop/internal/lib/sl"
	"github.com/sashabaranov/go-openai"
	"log/slog"
	"strings"
	"sync"
)

// historyLimit caps how many recent chat messages are sent as context.
const historyLimit = 20

// Responder drafts first-line answers for inquiries no dealer has picked up yet.
type Responder struct {
	client *openai.Client
	model  string
	prompt string
	locker *LockThreads
	log    *slog.Logger
}

// LockThreads serializes answers per chat session.
type LockThreads struct {
	mutex   sync.Mutex
	threads map[string]*sync.Mutex
}

func NewResponder(conf *config.Config, logger *slog.Logger) *Responder {
	if !conf.OpenAI.Enabled {
		return nil
	}
	clientConf := openai.DefaultConfig(conf.OpenAI.ApiKey)
	if conf.OpenAI.BaseURL != "" {
		clientConf.BaseURL = conf.OpenAI.BaseURL
	}
	return &Responder{
		client: openai.NewClientWithConfig(clientConf),
		model:  conf.OpenAI.Model,
		prompt: conf.OpenAI.Prompt,
		locker: &LockThreads{threads: make(map[string]*sync.Mutex)},
		log:    logger.With(sl.Module("gpt.responder")),
	}
}

func (l *LockThreads) Lock(id string) {
	l.mutex.Lock()
	mutex, exists := l.threads[id]
	if !exists {
		mutex = &sync.Mutex{}
		l.threads[id] = mutex
	}
	l.mutex.Unlock()
	mutex.Lock()
}

func (l *LockThreads) Unlock(id string) {
	l.mutex.Lock()
	mutex, exists := l.threads[id]
	l.mutex.Unlock()
	if exists {
		mutex.Unlock()
	}
}

// Answer asks the model for a reply to the latest customer message of the
// session, given the product it is about.
func (r *Responder) Answer(ctx context.Context, sessionID string, product *entity.ProductInfo, history []entity.ChatMessage) (string, error) {
	r.locker.Lock(sessionID)
	defer r.locker.Unlock(sessionID)

	req := openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: r.buildMessages(product, history),
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	r.log.With(
		slog.String("session_id", sessionID),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens),
	).Debug("assistant answered")

	return answer, nil
}

func (r *Responder) buildMessages(product *entity.ProductInfo, history []entity.ChatMessage) []openai.ChatCompletionMessage {
	system := r.prompt
	if product != nil {
		system = fmt.Sprintf("%s\nThe customer asks about product %q (id %s), price %.2f.", system, product.Name, product.ID, product.Price)
	}
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}

	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, m := range history {
		role := openai.ChatMessageRoleAssistant
		if m.SenderType == entity.SenderCustomer {
			role = openai.ChatMessageRoleUser
		}
		content := m.Content
		if len(m.Attachments) > 0 {
			content = fmt.Sprintf("%s\n[attachments: %s]", content, strings.Join(m.Attachments, ", "))
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: content})
	}
	return msgs
}
