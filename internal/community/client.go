package community

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/silvercare/companion/pkg/model"
	"go.uber.org/zap"
)

// Backend is the slice of the gateway the chat client consumes.
type Backend interface {
	Messages(ctx context.Context, since time.Time) ([]model.ChatMessage, error)
	SendMessage(ctx context.Context, text string) (*model.ChatMessage, error)
	OnlineCount(ctx context.Context) (int, error)
}

var (
	// ErrEmptyMessage rejects sends whose text trims to nothing.
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrSendInFlight rejects a send while a previous one is unresolved.
	ErrSendInFlight = errors.New("a send is already in flight")
)

// Client maintains a live-feeling view of the shared community stream by
// short-interval polling, with optimistic local send. Poll ticks and sends
// may overlap; the message list is merged by id so neither corrupts the
// other's view.
type Client struct {
	backend  Backend
	interval time.Duration
	sender   model.User
	logger   *zap.Logger

	mu       sync.Mutex
	messages []model.ChatMessage
	seen     map[string]bool
	cursor   time.Time
	sending  bool
	online   int

	stop chan struct{}
	done chan struct{}
}

// NewClient creates a chat client. sender identifies the local user on
// optimistic entries.
func NewClient(backend Backend, interval time.Duration, sender model.User, logger *zap.Logger) *Client {
	return &Client{
		backend:  backend,
		interval: interval,
		sender:   sender,
		logger:   logger,
		seen:     map[string]bool{},
	}
}

// InitialLoad fetches the whole existing stream once and records the newest
// message's timestamp as the polling cursor.
func (c *Client) InitialLoad(ctx context.Context) error {
	messages, err := c.backend.Messages(ctx, time.Time{})
	if err != nil {
		return fmt.Errorf("initial message load failed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.merge(messages)
	return nil
}

// Start begins polling on the configured interval until Stop is called.
// Starting an already-started client is a no-op.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.stop != nil {
		c.mu.Unlock()
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stop, c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				// Polling failures are silent; the next tick retries.
				if err := c.Poll(ctx); err != nil {
					c.logger.Debug("poll tick failed", zap.Error(err))
				}
				if count, err := c.backend.OnlineCount(ctx); err == nil {
					c.mu.Lock()
					c.online = count
					c.mu.Unlock()
				}
			}
		}
	}()
}

// Stop cancels polling and waits for the ticker goroutine to release. Safe to
// call more than once.
func (c *Client) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Poll fetches messages newer than the cursor and merges them in. Merging is
// idempotent: overlapping poll windows never produce duplicate ids.
func (c *Client) Poll(ctx context.Context) error {
	c.mu.Lock()
	since := c.cursor
	c.mu.Unlock()

	messages, err := c.backend.Messages(ctx, since)
	if err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.merge(messages)
	return nil
}

// SendMessage optimistically appends the message, then reconciles it with the
// server-assigned entry. At most one send is in flight at a time.
func (c *Client) SendMessage(ctx context.Context, text string) (*model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	temp := model.ChatMessage{
		ID:         "pending-" + uuid.New().String(),
		Text:       text,
		SenderID:   c.sender.ID,
		SenderName: c.sender.Name,
		CreatedAt:  time.Now(),
		Pending:    true,
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return nil, ErrSendInFlight
	}
	c.sending = true
	c.messages = append(c.messages, temp)
	c.seen[temp.ID] = true
	c.mu.Unlock()

	canonical, err := c.backend.SendMessage(ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false

	if err != nil {
		c.removeLocked(temp.ID)
		c.logger.Warn("message send failed, optimistic entry rolled back", zap.Error(err))
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	c.removeLocked(temp.ID)
	c.merge([]model.ChatMessage{*canonical})

	c.logger.Info("message sent",
		zap.String("message_id", canonical.ID),
		zap.Time("created_at", canonical.CreatedAt),
	)
	return canonical, nil
}

// Messages returns a copy of the local list ordered by creation time.
func (c *Client) Messages() []model.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// OnlineCount returns the last observed online member count.
func (c *Client) OnlineCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Cursor returns the polling cursor.
func (c *Client) Cursor() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// merge inserts unseen messages, keeps the list ordered by time and advances
// the cursor to the newest canonical message. Callers hold the lock.
func (c *Client) merge(incoming []model.ChatMessage) {
	added := false
	for _, msg := range incoming {
		if c.seen[msg.ID] {
			continue
		}
		c.seen[msg.ID] = true
		c.messages = append(c.messages, msg)
		added = true

		if !msg.Pending && msg.CreatedAt.After(c.cursor) {
			c.cursor = msg.CreatedAt
		}
	}
	if added {
		sort.SliceStable(c.messages, func(i, j int) bool {
			return c.messages[i].CreatedAt.Before(c.messages[j].CreatedAt)
		})
	}
}

// removeLocked drops one message by id. Callers hold the lock.
func (c *Client) removeLocked(id string) {
	for i, msg := range c.messages {
		if msg.ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			break
		}
	}
	delete(c.seen, id)
}
