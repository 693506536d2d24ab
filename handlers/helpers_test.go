package handlers

import (
	"context"
	"sync"
	"time"

	"marketplace-svc/notification"
)

var fixedTime = time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

type nopDispatcher struct {
	mu    sync.Mutex
	count int
}

func (d *nopDispatcher) Send(_ context.Context, _ notification.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count++
	return nil
}
