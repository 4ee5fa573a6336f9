package service

import (
	"sync/atomic"
	"time"
)

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	brokerConnected atomic.Bool
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetBrokerConnected(v bool) { s.brokerConnected.Store(v) }
func (s *State) BrokerConnected() bool     { return s.brokerConnected.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
