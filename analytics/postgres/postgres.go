// Package postgres stores every bus event as a row of a Postgres table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/lib/pq"

	"github.com/prebid/prebid-mediator/analytics"
	"github.com/prebid/prebid-mediator/events"
)

const (
	queueSize    = 1024
	writeTimeout = 5 * time.Second
)

type row struct {
	ts   time.Time
	kind string
	data []byte
}

type module struct {
	db     *sql.DB
	insert string
	rows   chan row
	done   chan struct{}
	once   sync.Once

	// closed guards rows. A publish already under way can still reach LogEvent after Shutdown.
	mu     sync.RWMutex
	closed bool
}

// NewModule expects a table shaped like (ts timestamptz, type text, data jsonb).
// Events are written by a single background goroutine. When it falls behind, new events are dropped.
func NewModule(db *sql.DB, table string) analytics.Module {
	m := &module{
		db:     db,
		insert: fmt.Sprintf("INSERT INTO %s (ts, type, data) VALUES ($1, $2, $3)", pq.QuoteIdentifier(table)),
		rows:   make(chan row, queueSize),
		done:   make(chan struct{}),
	}
	go m.write()
	return m
}

func (m *module) LogEvent(e events.Event) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		glog.Warningf("[postgres] skipping %s event: %v", e.Type, err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		glog.V(2).Infof("[postgres] shut down, dropped %s event", e.Type)
		return
	}
	select {
	case m.rows <- row{ts: e.Timestamp, kind: string(e.Type), data: data}:
	default:
		glog.Warningf("[postgres] queue full, dropped %s event", e.Type)
	}
}

// Shutdown drains queued events and closes the database.
func (m *module) Shutdown() {
	m.once.Do(func() {
		m.mu.Lock()
		m.closed = true
		close(m.rows)
		m.mu.Unlock()

		<-m.done
		if err := m.db.Close(); err != nil {
			glog.Errorf("[postgres] closing database: %v", err)
		}
	})
}

func (m *module) write() {
	defer close(m.done)
	for r := range m.rows {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if _, err := m.db.ExecContext(ctx, m.insert, r.ts, r.kind, r.data); err != nil {
			glog.Errorf("[postgres] failed to store %s event: %v", r.kind, err)
		}
		cancel()
	}
}
