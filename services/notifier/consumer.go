package notifier

import (
	"context"
	"errors"
	"io"
	"sync"

	"gamelog/services/accounts"
	"gamelog/services/blog"
)

// StreamName is the JetStream stream carrying every GameLog event.
const StreamName = "GAMELOG"

// StreamSubjects are the subjects bound to StreamName.
var StreamSubjects = []string{accounts.SubjectPrefix + ">", blog.ReportedSubject}

const (
	accountsDurable = "notifier-accounts"
	reportsDurable  = "notifier-reports"
)

// Subscriber is the slice of the event bus the Consumer needs.
type Subscriber interface {
	EnsureStream(name string, subjects ...string) error
	Subscribe(ctx context.Context, subj, durable string, fn func(ctx context.Context, subject string, data []byte) error) (io.Closer, error)
}

// Consumer feeds bus messages into a Processor through durable consumers.
type Consumer struct {
	bus Subscriber
	p   *Processor

	mu   sync.Mutex
	subs []io.Closer
}

// NewConsumer constructs a Consumer for the provided dependencies.
func NewConsumer(bus Subscriber, p *Processor) (*Consumer, error) {
	if bus == nil {
		return nil, errors.New("bus is required")
	}
	if p == nil {
		return nil, errors.New("processor is required")
	}
	return &Consumer{bus: bus, p: p}, nil
}

// Start ensures the stream exists and subscribes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.bus.EnsureStream(StreamName, StreamSubjects...); err != nil {
		return err
	}

	bindings := []struct{ subject, durable string }{
		{StreamSubjects[0], accountsDurable},
		{blog.ReportedSubject, reportsDurable},
	}
	for _, b := range bindings {
		sub, err := c.bus.Subscribe(ctx, b.subject, b.durable, c.p.Handle)
		if err != nil {
			_ = c.Close()
			return err
		}
		c.mu.Lock()
		c.subs = append(c.subs, sub)
		c.mu.Unlock()
	}
	return nil
}

// Close stops every subscription created by Start.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, sub := range c.subs {
		errs = append(errs, sub.Close())
	}
	c.subs = nil
	return errors.Join(errs...)
}
