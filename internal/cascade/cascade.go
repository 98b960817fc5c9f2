// Package cascade removes the comments of deleted items outside the request
// that deleted them.
package cascade

import (
	"context"
	"sync"
	"time"

	"github.com/teeny-box/teenybox-server/internal/config"
	"github.com/teeny-box/teenybox-server/internal/event"
	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/observability"
	"github.com/teeny-box/teenybox-server/internal/repository"

	"go.uber.org/zap"
)

const (
	resultOK     = "ok"
	resultFailed = "failed"
)

// Purge soft-deletes the comments of one item and records the outcome.
func Purge(ctx context.Context, comments repository.CommentRepository, kind, itemID, mode string) error {
	log := observability.L(ctx).With(
		zap.String("component", "cascade"),
		zap.String("kind", kind),
		zap.String("item_id", itemID),
		zap.String("mode", mode),
	)

	n, err := comments.DeleteByItem(ctx, kind, itemID)
	if err != nil {
		observability.CascadeTotal.WithLabelValues(kind, mode, resultFailed).Inc()
		log.Error("comment cleanup failed", zap.Error(err))
		return err
	}

	observability.CascadeTotal.WithLabelValues(kind, mode, resultOK).Inc()
	log.Info("comments cleaned up", zap.Int64("deleted", n))
	return nil
}

// Async runs each cleanup in its own goroutine, detached from the caller's
// cancellation and bounded by a timeout.
type Async struct {
	comments repository.CommentRepository
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewAsync(comments repository.CommentRepository, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Async{comments: comments, timeout: timeout}
}

func (a *Async) DeleteCommentsByItemID(ctx context.Context, kind models.Kind, itemID string) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		_ = Purge(ctx, a.comments, kind.Name, itemID, config.CascadeInline)
	}()
}

// Wait blocks until in-flight cleanups finish or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EventWriter publishes an event payload.
type EventWriter interface {
	WriteMessage(ctx context.Context, event string, message any) error
}

// Publisher hands cleanups to the worker through Kafka.
type Publisher struct {
	writer  EventWriter
	timeout time.Duration
	now     func() time.Time
}

func NewPublisher(writer EventWriter, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Publisher{writer: writer, timeout: timeout, now: time.Now}
}

func (p *Publisher) DeleteCommentsByItemID(ctx context.Context, kind models.Kind, itemID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	log := observability.L(ctx).With(
		zap.String("component", "cascade"),
		zap.String("kind", kind.Name),
		zap.String("item_id", itemID),
	)

	err := p.writer.WriteMessage(ctx, event.COMMENTS_PURGE, event.CommentsPurgeMessage{
		Kind:        kind.Name,
		ItemID:      itemID,
		RequestedAt: p.now().UTC(),
	})
	if err != nil {
		observability.CascadeTotal.WithLabelValues(kind.Name, config.CascadeKafka, resultFailed).Inc()
		log.Error("failed to publish comment cleanup", zap.Error(err))
		return
	}
	log.Debug("comment cleanup published")
}
