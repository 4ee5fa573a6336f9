package service

import (
	"context"
	"sync"
	"time"
)

// слушаем API-лимит брокера с запасом: лимит ~10 rps, держим 5
const rateSlack = 100 * time.Millisecond

// RateLimiter — скользящее окно исходящих запросов котировок.
// Решение "есть ли свободный слот" и запись метки принимаются под одним
// мьютексом: два конкурентных вызова не могут одновременно счесть себя
// "под лимитом", когда слот один.
type RateLimiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	requests []time.Time

	now func() time.Time // подменяется в тестах
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// Acquire возвращает 0 и записывает вызов, если лимит позволяет.
// Иначе — сколько ждать до освобождения самого старого слота.
func (l *RateLimiter) Acquire() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// чистим просроченные метки
	kept := l.requests[:0]
	for _, t := range l.requests {
		if now.Sub(t) < l.window {
			kept = append(kept, t)
		}
	}
	l.requests = kept

	if len(l.requests) < l.max {
		l.requests = append(l.requests, now)
		return 0
	}

	oldest := l.requests[0]
	wait := l.window - now.Sub(oldest) + rateSlack
	if wait < 0 {
		wait = 0
	}
	return wait
}

// Wait спит, пока не появится слот, затем записывает вызов.
func (l *RateLimiter) Wait(ctx context.Context) error {
	wait := l.Acquire()
	if wait <= 0 {
		return nil
	}

	t := time.NewTimer(wait)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	l.mu.Lock()
	l.requests = append(l.requests, l.now())
	l.mu.Unlock()
	return nil
}
