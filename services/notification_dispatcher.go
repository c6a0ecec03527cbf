package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"falcaoProAPI/internal/types/notification"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]string) ([]string, error)
}

// DeviceTokenStore is where the dispatcher finds recipients and prunes
// tokens FCM has rejected. A nil userIDs means the whole feed audience.
type DeviceTokenStore interface {
	ListDeviceTokens(ctx context.Context, userIDs []string) ([]notification.DeviceToken, error)
	DeleteDeviceTokens(ctx context.Context, tokens []string) error
}

type DispatchJob struct {
	// UserIDs narrows the recipients; empty targets every user with access.
	UserIDs []string
	Title   string
	Body    string
	Data    map[string]string
}

// NotificationDispatcher drains push jobs with a fixed worker pool.
type NotificationDispatcher struct {
	store        DeviceTokenStore
	mu           sync.RWMutex
	pushProvider PushNotificationProvider
	jobQueue     chan *DispatchJob
	stopOnce     sync.Once
	stopChan     chan struct{}
	wg           sync.WaitGroup
	logger       *slog.Logger
}

func NewNotificationDispatcher(store DeviceTokenStore, workers int, logger *slog.Logger) *NotificationDispatcher {
	d := &NotificationDispatcher{
		store:    store,
		jobQueue: make(chan *DispatchJob, 100),
		stopChan: make(chan struct{}),
		logger:   logger,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *NotificationDispatcher) SetPushProvider(p PushNotificationProvider) {
	d.mu.Lock()
	d.pushProvider = p
	d.mu.Unlock()
}

func (d *NotificationDispatcher) provider() PushNotificationProvider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pushProvider
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			// drain what was queued before Stop
			for {
				select {
				case job := <-d.jobQueue:
					d.processJob(job)
				default:
					return
				}
			}
		}
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	push := d.provider()
	if push == nil {
		d.logger.Info("skipping push: no provider", "title", job.Title)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tokens, err := d.store.ListDeviceTokens(ctx, job.UserIDs)
	if err != nil {
		d.logger.Error("failed to load device tokens", "error", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	stale, err := push.SendPush(ctx, tokens, job.Title, job.Body, job.Data)
	if err != nil {
		d.logger.Error("push failed", "title", job.Title, "error", err)
	}

	if len(stale) > 0 {
		if err := d.store.DeleteDeviceTokens(ctx, stale); err != nil {
			d.logger.Error("failed to prune device tokens", "error", err)
			return
		}
		d.logger.Info("pruned stale device tokens", "count", len(stale))
	}
}

// Dispatch queues a job, giving up after a short wait when the queue is full.
func (d *NotificationDispatcher) Dispatch(job *DispatchJob) {
	select {
	case <-d.stopChan:
		d.logger.Warn("dispatcher stopped, dropping notification", "title", job.Title)
		return
	default:
	}

	select {
	case d.jobQueue <- job:
	case <-time.After(5 * time.Second):
		d.logger.Warn("notification queue full, dropping", "title", job.Title)
	}
}

// Stop processes queued jobs and waits for the workers to exit.
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
	})
	d.wg.Wait()
	d.logger.Info("notification dispatcher stopped")
}
