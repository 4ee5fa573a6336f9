package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAcquireUnderLimit(t *testing.T) {
	l := NewRateLimiter(5, time.Second)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		assert.Zero(t, l.Acquire())
	}
}

func TestAcquireOverLimitWaits(t *testing.T) {
	l := NewRateLimiter(5, time.Second)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		l.Acquire()
	}

	// шестой запрос через 400ms: ждать остаток окна + слак
	now = now.Add(400 * time.Millisecond)
	wait := l.Acquire()
	assert.Equal(t, 600*time.Millisecond+rateSlack, wait)
}

func TestAcquireWindowSlides(t *testing.T) {
	l := NewRateLimiter(5, time.Second)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		l.Acquire()
	}

	// окно прошло — метки просрочены, снова свободно
	now = now.Add(1100 * time.Millisecond)
	assert.Zero(t, l.Acquire())
}

func TestDefaultsOnBadConfig(t *testing.T) {
	l := NewRateLimiter(0, 0)
	assert.Equal(t, 5, l.max)
	assert.Equal(t, time.Second, l.window)
}
