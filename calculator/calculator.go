package calculator

import (
	"context"
	"fmt"
	"sync"

	"github.com/tryfix/averager/events"
	"github.com/tryfix/averager/upstream"
	"github.com/tryfix/averager/window"
	"github.com/tryfix/log"
)

// Source supplies number batches. Implementations never fail, a broken
// upstream yields an empty batch.
type Source interface {
	Numbers(ctx context.Context, category upstream.Category) []int
}

type Calculator struct {
	// mu keeps events in the same order as the window transitions they carry
	mu        sync.Mutex
	window    *window.Manager
	source    Source
	publisher events.Publisher
	logger    log.Logger
}

func New(win *window.Manager, src Source, pub events.Publisher, logger log.Logger) *Calculator {
	if pub == nil {
		pub = events.NewNoopPublisher()
	}

	if logger == nil {
		logger = log.NewNoopLogger()
	}

	return &Calculator{
		window:    win,
		source:    src,
		publisher: pub,
		logger:    logger.NewLog(log.Prefixed(`calculator`)),
	}
}

// Calculate fetches the batch for id, folds it into the window and returns
// the transition. The only error is an unknown id, which leaves the window
// untouched.
func (c *Calculator) Calculate(ctx context.Context, id string) (window.UpdateResult, error) {
	category, err := upstream.ParseCategory(id)
	if err != nil {
		return window.UpdateResult{}, err
	}

	batch := c.source.Numbers(ctx, category)

	c.mu.Lock()
	res := c.window.Ingest(batch)
	if err := c.publisher.Publish(ctx, category.String(), c.window.Size(), res); err != nil {
		c.logger.ErrorContext(ctx, fmt.Sprintf(`window update for [%s] not published: %s`, category, err))
	}
	c.mu.Unlock()

	c.logger.InfoContext(ctx, fmt.Sprintf(`[%s] received %d numbers, window %v avg %.2f`,
		category, len(res.Numbers), res.Curr, res.Avg))

	return res, nil
}

func (c *Calculator) Reset() {
	c.mu.Lock()
	c.window.Reset()
	c.mu.Unlock()
	c.logger.Info(`window reset`)
}

func (c *Calculator) Size() int {
	return c.window.Size()
}

func (c *Calculator) Window() []int {
	return c.window.Snapshot()
}

func (c *Calculator) Average() float64 {
	return c.window.Average()
}

func (c *Calculator) State() ([]int, float64) {
	return c.window.State()
}
