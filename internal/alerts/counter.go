// Package alerts caches the unread alert count and keeps it fresh.
package alerts

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Store is the alert collection the counter reads through.
type Store interface {
	UnreadAlertCount(ctx context.Context) (int, error)
	MarkAlertRead(ctx context.Context, id string) error
	MarkAllAlertsRead(ctx context.Context) error
	DeleteAlert(ctx context.Context, id string) error
}

// Counter is a read-through cache of the unread alert count. It refreshes on an
// interval once started and on demand after acknowledgements.
type Counter struct {
	store    Store
	interval time.Duration
	log      logrus.FieldLogger

	mu          sync.Mutex
	count       int
	refreshedAt time.Time
	started     uint64 // refreshes issued
	applied     uint64 // sequence of the refresh whose result is cached

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCounter returns a stopped counter. A nil log discards output.
func NewCounter(store Store, interval time.Duration, log logrus.FieldLogger) *Counter {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Counter{store: store, interval: interval, log: log}
}

// Count returns the cached unread count.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// RefreshedAt returns when the cached count was last applied.
func (c *Counter) RefreshedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshedAt
}

// Refresh reads the count from the store. A result is discarded when ctx was
// cancelled before it arrived or when a later refresh has already been applied.
func (c *Counter) Refresh(ctx context.Context) (int, error) {
	c.mu.Lock()
	c.started++
	seq := c.started
	c.mu.Unlock()

	n, err := c.store.UnreadAlertCount(ctx)
	if err != nil {
		return c.Count(), err
	}
	if ctx.Err() != nil {
		return c.Count(), ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq > c.applied {
		c.applied = seq
		c.count = n
		c.refreshedAt = time.Now()
	}
	return c.count, nil
}

// Start launches the periodic refresh. It refreshes once immediately. The loop
// ends on Stop or when ctx is done.
func (c *Counter) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.loop(ctx)
}

// Stop cancels the refresh loop and waits for it to exit. An in-flight refresh is discarded.
func (c *Counter) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
}

func (c *Counter) loop(ctx context.Context) {
	defer c.wg.Done()
	c.tick(ctx)
	if c.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Counter) tick(ctx context.Context) {
	if _, err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
		c.log.WithError(err).Warn("alert count refresh failed")
	}
}

// MarkRead marks one alert read and refreshes the count.
func (c *Counter) MarkRead(ctx context.Context, id string) (int, error) {
	if err := c.store.MarkAlertRead(ctx, id); err != nil {
		return c.Count(), err
	}
	return c.Refresh(ctx)
}

// MarkAllRead marks every alert read and refreshes the count.
func (c *Counter) MarkAllRead(ctx context.Context) (int, error) {
	if err := c.store.MarkAllAlertsRead(ctx); err != nil {
		return c.Count(), err
	}
	return c.Refresh(ctx)
}

// Delete removes one alert and refreshes the count.
func (c *Counter) Delete(ctx context.Context, id string) (int, error) {
	if err := c.store.DeleteAlert(ctx, id); err != nil {
		return c.Count(), err
	}
	return c.Refresh(ctx)
}
