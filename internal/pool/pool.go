// File: internal/pool/pool.go
// Project: Gargamel League Matchmaker
// Description: Fixed-size pool of bot-account credential slots
// Version: 1.0.0

// Package pool tracks which bot-account credential slots are free to host
// a supervisor for a new match. Adapted from the donor's presence manager:
// a single mutex guarding a small in-memory slice, with the allocation policy
// changed from "track everyone who's online" to "hand out the lowest free
// slot index".
package pool

import (
	"sync"

	gerrors "github.com/gargamel-league/matchmaker/internal/errors"
	"github.com/gargamel-league/matchmaker/internal/logger"
	"github.com/gargamel-league/matchmaker/internal/metrics"
	"github.com/gargamel-league/matchmaker/internal/platform/dota2"
)

var log = logger.WithComponent("Pool")

// Slot is one bot account available to host a match.
type Slot struct {
	Index       int
	Credentials dota2.Credentials
	inUse       bool
	gameID      int64
}

// Pool hands out Slots to the controller one match at a time.
type Pool struct {
	mu    sync.Mutex
	slots []*Slot
}

// New creates a Pool seeded with the given credentials, one slot per
// credential, indexed in the order given.
func New(creds []dota2.Credentials) *Pool {
	slots := make([]*Slot, len(creds))
	for i, c := range creds {
		slots[i] = &Slot{Index: i, Credentials: c}
	}
	return &Pool{slots: slots}
}

// Acquire returns the lowest-indexed free slot and marks it in use for
// gameID. Returns gerrors.ErrNoSlotAvailable if every slot is occupied.
func (p *Pool) Acquire(gameID int64) (*Slot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.slots {
		if !s.inUse {
			s.inUse = true
			s.gameID = gameID
			metrics.Global().IncrementSlotsAcquired()
			log.Info("slot %d acquired for game %d", s.Index, gameID)
			return s, nil
		}
	}

	metrics.Global().IncrementPoolExhausted()
	return nil, gerrors.ErrNoSlotAvailable
}

// Release frees the slot at index so it can host a future match.
func (p *Pool) Release(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.slots) {
		return
	}
	p.slots[index].inUse = false
	p.slots[index].gameID = 0
	metrics.Global().IncrementSlotsReleased()
	log.Info("slot %d released", index)
}

// ActiveCount returns the number of slots currently in use.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, s := range p.slots {
		if s.inUse {
			n++
		}
	}
	return n
}

// Capacity returns the total number of slots in the pool.
func (p *Pool) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}
