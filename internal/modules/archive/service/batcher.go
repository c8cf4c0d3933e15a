package service

import (
	"context"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
)

// Stream is an ordered sequence of resolved messages.
type Stream interface {
	Next(ctx context.Context) bool
	Value() *domain.Outgoing
	Err() error
}

// resolvedStream resolves each message of a History as it is pulled.
type resolvedStream struct {
	history  *History
	resolver *Resolver
	cur      *domain.Outgoing
	err      error
}

func (s *resolvedStream) Next(ctx context.Context) bool {
	if s.err != nil || !s.history.Next(ctx) {
		return false
	}

	out, err := s.resolver.Resolve(ctx, s.history.Value())
	if err != nil {
		s.err = err
		return false
	}
	s.cur = out
	return true
}

func (s *resolvedStream) Value() *domain.Outgoing { return s.cur }

func (s *resolvedStream) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.history.Err()
}

// Batcher groups a Stream into ordered batches of at most size messages.
type Batcher struct {
	src   Stream
	size  int
	index int
}

func NewBatcher(src Stream, size int) *Batcher {
	if size <= 0 {
		size = 1
	}
	return &Batcher{src: src, size: size}
}

// Next returns the next batch, or nil once the stream is exhausted. On a
// stream error the partially filled batch is released and the error returned.
func (b *Batcher) Next(ctx context.Context) (*domain.Batch, error) {
	batch := &domain.Batch{Index: b.index + 1}

	for batch.Len() < b.size && b.src.Next(ctx) {
		batch.Messages = append(batch.Messages, b.src.Value())
	}

	if err := b.src.Err(); err != nil {
		batch.Release()
		return nil, err
	}
	if batch.Len() == 0 {
		return nil, nil
	}

	b.index++
	return batch, nil
}
