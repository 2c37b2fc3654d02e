// Package events publishes post lifecycle events on NATS subjects.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"Inkwell/internal/core/posts"
)

// Subjects
const (
	SubjectPostCreated = "post.created"
	SubjectPostUpdated = "post.updated"
	SubjectPostDeleted = "post.deleted"
)

// PostCreatedEvent is the payload of post.created
type PostCreatedEvent struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	HasImage  bool      `json:"has_image"`
}

// PostChangedEvent is the payload of post.updated and post.deleted
type PostChangedEvent struct {
	At time.Time `json:"at"`
	ID string    `json:"id"`
}

// msgPublisher is the part of *nats.Conn the publisher needs
type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NatsPublisher implements posts.EventPublisher on a core NATS connection
type NatsPublisher struct {
	conn msgPublisher
	now  func() time.Time
}

var _ posts.EventPublisher = (*NatsPublisher)(nil)

// NewNatsPublisher wraps an established connection
func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{conn: nc, now: time.Now}
}

// Connect dials NATS with reconnects enabled. Disconnects are logged, not fatal.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("inkwell"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("[EVENTS] disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("[EVENTS] reconnected to NATS", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// PublishPostCreated announces a new post
func (p *NatsPublisher) PublishPostCreated(ctx context.Context, post *posts.Post) error {
	return p.publish(ctx, SubjectPostCreated, PostCreatedEvent{
		ID:        post.ID,
		AuthorID:  post.UserID,
		Title:     post.Title,
		Tags:      post.Tags,
		HasImage:  post.ImageURL != "",
		CreatedAt: post.CreatedAt,
	})
}

// PublishPostUpdated announces an edit
func (p *NatsPublisher) PublishPostUpdated(ctx context.Context, postID string) error {
	return p.publish(ctx, SubjectPostUpdated, PostChangedEvent{ID: postID, At: p.now().UTC()})
}

// PublishPostDeleted announces a removal
func (p *NatsPublisher) PublishPostDeleted(ctx context.Context, postID string) error {
	return p.publish(ctx, SubjectPostDeleted, PostChangedEvent{ID: postID, At: p.now().UTC()})
}

func (p *NatsPublisher) publish(ctx context.Context, subject string, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set("Content-Type", "application/json")

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}

	slog.Debug("[EVENTS] published", "subject", subject)
	return nil
}
