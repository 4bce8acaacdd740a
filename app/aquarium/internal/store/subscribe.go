package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

type subscription struct {
	id     uint64
	fn     Listener
	active atomic.Bool
}

// OnChange 订阅保存成功事件，返回的取消函数可重复调用，也可在回调内调用
func (s *Store) OnChange(fn Listener) (unsubscribe func()) {
	s.lmu.Lock()
	s.nextSub++
	sub := &subscription{id: s.nextSub, fn: fn}
	sub.active.Store(true)
	s.listeners[sub.id] = sub
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			s.lmu.Lock()
			delete(s.listeners, sub.id)
			s.lmu.Unlock()
		})
	}
}

// Subscribers 当前订阅数
func (s *Store) Subscribers() int {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	return len(s.listeners)
}

// broadcast 在锁外按订阅顺序调用回调；已取消的订阅被跳过
func (s *Store) broadcast(ctx context.Context, doc *playerdoc.PlayerState) {
	s.lmu.Lock()
	subs := make([]*subscription, 0, len(s.listeners))
	for _, sub := range s.listeners {
		subs = append(subs, sub)
	}
	s.lmu.Unlock()

	slices.SortFunc(subs, func(a, b *subscription) int { return cmp.Compare(a.id, b.id) })
	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		s.notify(ctx, sub, doc)
	}
}

func (s *Store) notify(ctx context.Context, sub *subscription, doc *playerdoc.PlayerState) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "listener panicked", "subscription", sub.id, "panic", r)
		}
	}()
	sub.fn(doc)
}
