// File: internal/matchmaker/queue.go
// Project: Gargamel League Matchmaker
// Description: In-memory matchmaking queue
// Version: 1.0.0

// Package matchmaker holds players waiting for a game and forms balanced
// teams from the queue on demand.
package matchmaker

import (
	"sort"
	"sync"
	"time"

	gerrors "github.com/gargamel-league/matchmaker/internal/errors"
	"github.com/gargamel-league/matchmaker/internal/logger"
)

var log = logger.WithComponent("Matchmaker")

// Entry is one player waiting in the queue.
type Entry struct {
	DiscordID int64
	Rating    int
	JoinedAt  time.Time
	// nonce breaks ties between players who joined at the same instant,
	// so queue ordering never depends on map iteration order.
	nonce uint64
}

// Queue holds waiting players keyed by Discord id, guarded by a single
// mutex the way the donor's presence/pvp managers guard their player maps.
type Queue struct {
	mu      sync.RWMutex
	players map[int64]*Entry
	seq     uint64
}

// New creates an empty matchmaking queue.
func New() *Queue {
	return &Queue{players: make(map[int64]*Entry)}
}

// Enqueue adds a player to the queue. Re-enqueueing an already-queued
// player is a no-op: the rating and join-time recorded on the first
// enqueue are preserved so a player can't refresh their own position by
// re-issuing the command.
func (q *Queue) Enqueue(discordID int64, rating int, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.players[discordID]; ok {
		return
	}

	q.seq++
	q.players[discordID] = &Entry{
		DiscordID: discordID,
		Rating:    rating,
		JoinedAt:  now,
		nonce:     q.seq,
	}
	log.Debug("player %d enqueued at rating %d", discordID, rating)
}

// Dequeue removes a player from the queue. Returns false if the player
// was not queued.
func (q *Queue) Dequeue(discordID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.players[discordID]; !ok {
		return false
	}
	delete(q.players, discordID)
	return true
}

// Clear empties the queue, returning the players that were removed.
func (q *Queue) Clear() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.snapshotLocked()
	q.players = make(map[int64]*Entry)
	return out
}

// Contains reports whether a player is currently queued.
func (q *Queue) Contains(discordID int64) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, ok := q.players[discordID]
	return ok
}

// Get returns the queued entry for a player, if present.
func (q *Queue) Get(discordID int64) (Entry, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	e, ok := q.players[discordID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of queued players.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.players)
}

// Snapshot returns the queue ordered by join time (oldest first), then by
// insertion order for simultaneous joins.
func (q *Queue) Snapshot() []Entry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.snapshotLocked()
}

func (q *Queue) snapshotLocked() []Entry {
	out := make([]Entry, 0, len(q.players))
	for _, e := range q.players {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].nonce < out[j].nonce
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// removeMany removes a set of players from the queue. Used after a game is
// formed to take the selected roster off the wait list.
func (q *Queue) removeMany(discordIDs []int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range discordIDs {
		delete(q.players, id)
	}
}

// ErrEmptyQueue is a KindNotEnoughPlayers error describing an empty queue.
// FormGame does not return it: an empty queue, like any queue shorter than
// two full teams, yields gerrors.ErrNotEnoughPlayers.
var ErrEmptyQueue = gerrors.New(gerrors.KindNotEnoughPlayers, "matchmaker.Queue", nil)
