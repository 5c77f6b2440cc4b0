package notifier

import (
	"context"
	"errors"

	"gamelog/services/accounts"
	"gamelog/services/blog"
)

// Publisher is the slice of the event bus the sinks need.
type Publisher interface {
	Publish(ctx context.Context, subj string, v any) error
}

// BusSink publishes account events and post reports for the notifier to consume.
type BusSink struct {
	pub Publisher
}

// NewBusSink wraps pub.
func NewBusSink(pub Publisher) (*BusSink, error) {
	if pub == nil {
		return nil, errors.New("publisher is required")
	}
	return &BusSink{pub: pub}, nil
}

func (s *BusSink) Emit(ctx context.Context, evt accounts.Event) error {
	return s.pub.Publish(ctx, evt.Subject(), evt)
}

func (s *BusSink) PostReported(ctx context.Context, report blog.Report) error {
	return s.pub.Publish(ctx, blog.ReportedSubject, report)
}

// DirectSink hands events straight to a Processor, for deployments without NATS.
type DirectSink struct {
	p *Processor
}

// NewDirectSink wraps p.
func NewDirectSink(p *Processor) (*DirectSink, error) {
	if p == nil {
		return nil, errors.New("processor is required")
	}
	return &DirectSink{p: p}, nil
}

func (s *DirectSink) Emit(ctx context.Context, evt accounts.Event) error {
	return s.p.HandleAccountEvent(ctx, evt)
}

func (s *DirectSink) PostReported(ctx context.Context, report blog.Report) error {
	return s.p.HandleReport(ctx, report)
}

var (
	_ accounts.EventSink = (*BusSink)(nil)
	_ blog.ReportSink    = (*BusSink)(nil)
	_ accounts.EventSink = (*DirectSink)(nil)
	_ blog.ReportSink    = (*DirectSink)(nil)
)
