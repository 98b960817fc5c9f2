// Package worker consumes cascade events published by the API.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/teeny-box/teenybox-server/internal/cascade"
	"github.com/teeny-box/teenybox-server/internal/config"
	"github.com/teeny-box/teenybox-server/internal/event"
	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventReader yields the next event from the broker.
type EventReader interface {
	ReadMessage(ctx context.Context) (string, []byte, error)
}

type Worker struct {
	context   context.Context
	cancel    func()
	waitGroup sync.WaitGroup
	logger    *zap.Logger
	router    *Router
	reader    EventReader
	comments  repository.CommentRepository
	timeout   time.Duration
	backoff   time.Duration
}

func NewWorker(logger *zap.Logger, reader EventReader, comments repository.CommentRepository, timeout time.Duration) *Worker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		context:  ctx,
		cancel:   cancel,
		logger:   logger,
		reader:   reader,
		comments: comments,
		timeout:  timeout,
		backoff:  time.Second,
	}
	w.router = NewRouter(map[string][]EventHandler{
		event.COMMENTS_PURGE: {w.CommentsPurgeHandler},
	})
	return w
}

func (w *Worker) Start() error {
	w.logger.Info("starting cascade worker")

	w.waitGroup.Add(1)
	go w.run()
	return nil
}

func (w *Worker) Stop() error {
	w.logger.Info("stopping cascade worker")

	w.cancel()
	w.waitGroup.Wait()
	return nil
}

func (w *Worker) run() {
	defer w.waitGroup.Done()

	for {
		name, data, err := w.reader.ReadMessage(w.context)
		if w.context.Err() != nil {
			return
		}
		if err != nil {
			w.logger.Error("error receiving kafka message", zap.Error(err))
			select {
			case <-w.context.Done():
				return
			case <-time.After(w.backoff):
			}
			continue
		}

		ctx, cancel := context.WithTimeout(w.context, w.timeout)
		err = w.router.Handle(ctx, name, data)
		cancel()
		if err != nil {
			w.logger.Error("error handling kafka message", zap.String("event", name), zap.Error(err))
		}
	}
}

var errUnknownKind = errors.New("unknown item kind")

// CommentsPurgeHandler removes the comments named by a purge event.
func (w *Worker) CommentsPurgeHandler(ctx context.Context, data []byte) error {
	var message event.CommentsPurgeMessage
	if err := json.Unmarshal(data, &message); err != nil {
		return err
	}

	if message.Kind != models.PostKind.Name && message.Kind != models.PromotionKind.Name {
		return fmt.Errorf("%w: %q", errUnknownKind, message.Kind)
	}
	itemID, err := uuid.Parse(message.ItemID)
	if err != nil {
		return err
	}

	return cascade.Purge(ctx, w.comments, message.Kind, itemID.String(), config.CascadeKafka)
}
