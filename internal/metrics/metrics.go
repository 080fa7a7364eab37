// File: internal/metrics/metrics.go
// Project: Gargamel League Matchmaker
// Description: Centralized metrics collection and Prometheus-compatible export
// Version: 1.0.0

package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector tracks matchmaker-wide counters and gauges.
type MetricsCollector struct {
	mu sync.RWMutex

	// Queue metrics
	playersEnqueued atomic.Int64
	playersDequeued atomic.Int64
	queueDepth      atomic.Int64

	// Match lifecycle metrics
	gamesFormed      atomic.Int64
	gamesLaunched    atomic.Int64
	gamesCompleted   atomic.Int64
	gamesCancelled   atomic.Int64
	gamesAbandoned   atomic.Int64

	// Supervisor pool metrics
	slotsAcquired atomic.Int64
	slotsReleased atomic.Int64
	poolExhausted atomic.Int64

	// Platform client metrics
	platformEvents    atomic.Int64
	platformErrors    atomic.Int64
	platformKicks     atomic.Int64
	platformReconnects atomic.Int64

	// System metrics
	databaseQueries atomic.Int64
	databaseErrors  atomic.Int64

	// Custom counters
	customCounters map[string]*atomic.Int64
	customGauges   map[string]*atomic.Int64

	startTime time.Time
}

var global *MetricsCollector
var once sync.Once

// Init initializes the global metrics collector.
func Init() *MetricsCollector {
	once.Do(func() {
		global = &MetricsCollector{
			customCounters: make(map[string]*atomic.Int64),
			customGauges:   make(map[string]*atomic.Int64),
			startTime:      time.Now(),
		}
	})
	return global
}

// Global returns the global metrics collector.
func Global() *MetricsCollector {
	if global == nil {
		return Init()
	}
	return global
}

func (m *MetricsCollector) IncrementPlayersEnqueued() { m.playersEnqueued.Add(1) }
func (m *MetricsCollector) IncrementPlayersDequeued() { m.playersDequeued.Add(1) }
func (m *MetricsCollector) SetQueueDepth(n int64)     { m.queueDepth.Store(n) }

func (m *MetricsCollector) IncrementGamesFormed()    { m.gamesFormed.Add(1) }
func (m *MetricsCollector) IncrementGamesLaunched()  { m.gamesLaunched.Add(1) }
func (m *MetricsCollector) IncrementGamesCompleted() { m.gamesCompleted.Add(1) }
func (m *MetricsCollector) IncrementGamesCancelled() { m.gamesCancelled.Add(1) }
func (m *MetricsCollector) IncrementGamesAbandoned() { m.gamesAbandoned.Add(1) }

func (m *MetricsCollector) IncrementSlotsAcquired() { m.slotsAcquired.Add(1) }
func (m *MetricsCollector) IncrementSlotsReleased() { m.slotsReleased.Add(1) }
func (m *MetricsCollector) IncrementPoolExhausted() { m.poolExhausted.Add(1) }

func (m *MetricsCollector) IncrementPlatformEvents()     { m.platformEvents.Add(1) }
func (m *MetricsCollector) IncrementPlatformErrors()     { m.platformErrors.Add(1) }
func (m *MetricsCollector) IncrementPlatformKicks()      { m.platformKicks.Add(1) }
func (m *MetricsCollector) IncrementPlatformReconnects() { m.platformReconnects.Add(1) }

func (m *MetricsCollector) IncrementDBQueries() { m.databaseQueries.Add(1) }
func (m *MetricsCollector) IncrementDBErrors()  { m.databaseErrors.Add(1) }

// IncrementCounter bumps a named custom counter by one.
func (m *MetricsCollector) IncrementCounter(name string) {
	m.mu.Lock()
	if _, ok := m.customCounters[name]; !ok {
		m.customCounters[name] = &atomic.Int64{}
	}
	counter := m.customCounters[name]
	m.mu.Unlock()
	counter.Add(1)
}

// SetGauge sets a named custom gauge to value.
func (m *MetricsCollector) SetGauge(name string, value int64) {
	m.mu.Lock()
	if _, ok := m.customGauges[name]; !ok {
		m.customGauges[name] = &atomic.Int64{}
	}
	gauge := m.customGauges[name]
	m.mu.Unlock()
	gauge.Store(value)
}

// MetricsSnapshot is a point-in-time copy of all tracked metrics.
type MetricsSnapshot struct {
	PlayersEnqueued int64
	PlayersDequeued int64
	QueueDepth      int64

	GamesFormed    int64
	GamesLaunched  int64
	GamesCompleted int64
	GamesCancelled int64
	GamesAbandoned int64

	SlotsAcquired int64
	SlotsReleased int64
	PoolExhausted int64

	PlatformEvents     int64
	PlatformErrors     int64
	PlatformKicks      int64
	PlatformReconnects int64

	DatabaseQueries int64
	DatabaseErrors  int64

	Uptime time.Duration

	CustomCounters map[string]int64
	CustomGauges   map[string]int64
}

// Snapshot returns a consistent copy of the current metrics.
func (m *MetricsCollector) Snapshot() *MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	customCounters := make(map[string]int64)
	for k, v := range m.customCounters {
		customCounters[k] = v.Load()
	}
	customGauges := make(map[string]int64)
	for k, v := range m.customGauges {
		customGauges[k] = v.Load()
	}

	return &MetricsSnapshot{
		PlayersEnqueued:    m.playersEnqueued.Load(),
		PlayersDequeued:    m.playersDequeued.Load(),
		QueueDepth:         m.queueDepth.Load(),
		GamesFormed:        m.gamesFormed.Load(),
		GamesLaunched:      m.gamesLaunched.Load(),
		GamesCompleted:     m.gamesCompleted.Load(),
		GamesCancelled:     m.gamesCancelled.Load(),
		GamesAbandoned:     m.gamesAbandoned.Load(),
		SlotsAcquired:      m.slotsAcquired.Load(),
		SlotsReleased:      m.slotsReleased.Load(),
		PoolExhausted:      m.poolExhausted.Load(),
		PlatformEvents:     m.platformEvents.Load(),
		PlatformErrors:     m.platformErrors.Load(),
		PlatformKicks:      m.platformKicks.Load(),
		PlatformReconnects: m.platformReconnects.Load(),
		DatabaseQueries:    m.databaseQueries.Load(),
		DatabaseErrors:     m.databaseErrors.Load(),
		Uptime:             time.Since(m.startTime),
		CustomCounters:     customCounters,
		CustomGauges:       customGauges,
	}
}

// PrometheusFormat renders the current snapshot in Prometheus exposition format.
func (m *MetricsCollector) PrometheusFormat() string {
	snap := m.Snapshot()

	var out string
	counters := []struct {
		name string
		help string
		val  int64
	}{
		{"gargamel_players_enqueued_total", "Total players enqueued", snap.PlayersEnqueued},
		{"gargamel_players_dequeued_total", "Total players dequeued", snap.PlayersDequeued},
		{"gargamel_queue_depth", "Current matchmaking queue depth", snap.QueueDepth},
		{"gargamel_games_formed_total", "Total games formed", snap.GamesFormed},
		{"gargamel_games_launched_total", "Total games launched", snap.GamesLaunched},
		{"gargamel_games_completed_total", "Total games completed", snap.GamesCompleted},
		{"gargamel_games_cancelled_total", "Total games cancelled", snap.GamesCancelled},
		{"gargamel_games_abandoned_total", "Total games abandoned", snap.GamesAbandoned},
		{"gargamel_slots_acquired_total", "Total supervisor slots acquired", snap.SlotsAcquired},
		{"gargamel_slots_released_total", "Total supervisor slots released", snap.SlotsReleased},
		{"gargamel_pool_exhausted_total", "Total acquire attempts that found no free slot", snap.PoolExhausted},
		{"gargamel_platform_events_total", "Total platform events received", snap.PlatformEvents},
		{"gargamel_platform_errors_total", "Total platform errors", snap.PlatformErrors},
		{"gargamel_platform_kicks_total", "Total lobby member kicks issued", snap.PlatformKicks},
		{"gargamel_db_queries_total", "Total database queries", snap.DatabaseQueries},
		{"gargamel_db_errors_total", "Total database errors", snap.DatabaseErrors},
	}

	for _, c := range counters {
		out += fmt.Sprintf("# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", c.name, c.help, c.name, c.name, c.val)
	}

	out += fmt.Sprintf("# HELP gargamel_uptime_seconds Matchmaker process uptime in seconds\n# TYPE gargamel_uptime_seconds gauge\ngargamel_uptime_seconds %.0f\n\n", snap.Uptime.Seconds())

	for name, value := range snap.CustomCounters {
		out += fmt.Sprintf("# HELP gargamel_custom_%s Custom counter\n# TYPE gargamel_custom_%s counter\ngargamel_custom_%s %d\n\n", name, name, name, value)
	}
	for name, value := range snap.CustomGauges {
		out += fmt.Sprintf("# HELP gargamel_custom_%s Custom gauge\n# TYPE gargamel_custom_%s gauge\ngargamel_custom_%s %d\n\n", name, name, name, value)
	}

	return out
}
