package chathub

import (
	"context"
	"errors"
	"sync"

	"github.com/Divine-P-77777/studylocal/internal/config"
	"github.com/Divine-P-77777/studylocal/internal/models"
)

// Backplane carries room and presence events between the hub instances that
// share it. Every event published is delivered to every subscriber,
// including the publishing instance.
type Backplane interface {
	Publish(ctx context.Context, ev models.Event) error
	// Subscribe starts delivering events to handler until ctx is done or the
	// backplane is closed. It returns once the subscription is active.
	Subscribe(ctx context.Context, handler func(models.Event)) error
	Close() error
}

var ErrBackplaneClosed = errors.New("backplane closed")

// LocalBackplane delivers events within the current process. Rooms are not
// shared with other instances.
type LocalBackplane struct {
	events    chan models.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewLocalBackplane() *LocalBackplane {
	return &LocalBackplane{
		events: make(chan models.Event, config.DeliveryBufferSize),
		done:   make(chan struct{}),
	}
}

func (b *LocalBackplane) Publish(ctx context.Context, ev models.Event) error {
	select {
	case <-b.done:
		return ErrBackplaneClosed
	default:
	}
	select {
	case b.events <- ev:
		return nil
	case <-b.done:
		return ErrBackplaneClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe supports a single subscriber.
func (b *LocalBackplane) Subscribe(ctx context.Context, handler func(models.Event)) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case ev := <-b.events:
				handler(ev)
			}
		}
	}()
	return nil
}

func (b *LocalBackplane) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return nil
}
