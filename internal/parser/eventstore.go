package parser

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/license-insight/backend/internal/models"
	"github.com/marcboeker/go-duckdb"
)

// EventStore keeps interpreted log events in a temporary DuckDB file.
// Sessions and denials are small and stay in memory, but the raw event list
// of a big activity log can exceed RAM, so audit/detail queries go through
// DuckDB with filters pushed down.
type EventStore struct {
	db         *sql.DB
	dbPath     string
	eventCount int
	batchSize  int
	batch      []models.LogEvent
	lastError  error

	// Cache COUNT(*) per filter combination; the UI re-queries the same
	// filter while paging.
	countCache   map[string]int
	countCacheMu sync.RWMutex
}

// EventQuery defines the filters for event queries. Empty fields match
// everything.
type EventQuery struct {
	Kind    string
	User    string
	Feature string
	Search  string // substring match against the raw line
}

// NewEventStore creates a DuckDB-backed event store for one parse session.
func NewEventStore(tempDir, sessionID string) (*EventStore, error) {
	dbPath := filepath.Join(tempDir, fmt.Sprintf("events_%s.duckdb", sessionID))

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='512MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE events (
			id       INTEGER PRIMARY KEY,
			ts       BIGINT NOT NULL,
			evtime   VARCHAR NOT NULL,
			evdate   VARCHAR NOT NULL,
			daemon   VARCHAR NOT NULL,
			kind     VARCHAR NOT NULL,
			username VARCHAR,
			host     VARCHAR,
			feature  VARCHAR,
			reason   VARCHAR,
			raw      VARCHAR NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("creating events table: %w", err)
	}

	return &EventStore{
		db:         db,
		dbPath:     dbPath,
		batchSize:  50000,
		batch:      make([]models.LogEvent, 0, 50000),
		countCache: make(map[string]int),
	}, nil
}

// AddEvent queues an event for insertion. Events are batched and written
// through the Appender API, which is far faster than row-at-a-time inserts.
func (es *EventStore) AddEvent(ev models.LogEvent) {
	es.batch = append(es.batch, ev)
	es.eventCount++

	if len(es.batch) >= es.batchSize {
		if err := es.flushBatch(); err != nil {
			es.lastError = err
			fmt.Printf("[EventStore] flush error: %v\n", err)
		}
	}
}

// LastError returns the last error that occurred during a batch flush.
func (es *EventStore) LastError() error {
	return es.lastError
}

func (es *EventStore) flushBatch() error {
	if len(es.batch) == 0 {
		return nil
	}

	conn, err := es.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("getting connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection type")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "events")
		if err != nil {
			return fmt.Errorf("creating appender: %w", err)
		}
		defer appender.Close()

		baseID := es.eventCount - len(es.batch)
		for i := range es.batch {
			ev := &es.batch[i]
			var tsMs int64
			if ts, ok := ev.Timestamp(); ok {
				tsMs = ts.UnixMilli()
			}
			err := appender.AppendRow(
				int32(baseID+i),
				tsMs,
				ev.Time,
				ev.Date,
				ev.Daemon,
				string(ev.Kind),
				ev.User,
				ev.Host,
				ev.Feature,
				ev.Reason,
				ev.Raw,
			)
			if err != nil {
				return fmt.Errorf("appending row %d: %w", i, err)
			}
		}

		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	es.batch = es.batch[:0]
	return nil
}

// Finalize flushes any pending batch and creates the query indexes. Indexes
// are created after the inserts; building them during the parse slows the
// hot path down badly. A store that dropped a batch mid-parse refuses to
// finalize: the event table would be silently incomplete.
func (es *EventStore) Finalize() error {
	if es.lastError != nil {
		return fmt.Errorf("incomplete event data: %w", es.lastError)
	}
	if err := es.flushBatch(); err != nil {
		return err
	}

	if _, err := es.db.Exec("CREATE INDEX idx_ts ON events(ts)"); err != nil {
		return fmt.Errorf("creating ts index: %w", err)
	}
	if es.eventCount > 100000 {
		for _, stmt := range []string{
			"CREATE INDEX idx_kind ON events(kind)",
			"CREATE INDEX idx_user ON events(username)",
			"CREATE INDEX idx_feature ON events(feature)",
		} {
			if _, err := es.db.Exec(stmt); err != nil {
				fmt.Printf("[EventStore] Warning: %v\n", err)
			}
		}
	}

	return nil
}

// Len returns the total number of stored events.
func (es *EventStore) Len() int {
	return es.eventCount
}

// buildWhere translates an EventQuery into a WHERE clause and its arguments.
func buildWhere(q EventQuery) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if q.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, q.Kind)
	}
	if q.User != "" {
		clauses = append(clauses, "username = ?")
		args = append(args, q.User)
	}
	if q.Feature != "" {
		clauses = append(clauses, "feature = ?")
		args = append(args, q.Feature)
	}
	if q.Search != "" {
		clauses = append(clauses, "raw ILIKE ?")
		args = append(args, "%"+q.Search+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// QueryEvents returns a filtered, ordered page of events plus the total
// matching count.
func (es *EventStore) QueryEvents(ctx context.Context, q EventQuery, page, pageSize int) ([]models.LogEvent, int, error) {
	where, args := buildWhere(q)

	total, err := es.countEvents(ctx, where, args)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}

	query := "SELECT evtime, evdate, daemon, kind, username, host, feature, reason, raw FROM events" +
		where + " ORDER BY id LIMIT ? OFFSET ?"
	rows, err := es.db.QueryContext(ctx, query, append(args, pageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	events := make([]models.LogEvent, 0, pageSize)
	for rows.Next() {
		var ev models.LogEvent
		var kind string
		var user, host, feature, reason sql.NullString
		if err := rows.Scan(&ev.Time, &ev.Date, &ev.Daemon, &kind, &user, &host, &feature, &reason, &ev.Raw); err != nil {
			return nil, 0, fmt.Errorf("scanning event: %w", err)
		}
		ev.Kind = models.EventKind(kind)
		ev.User = user.String
		ev.Host = host.String
		ev.Feature = feature.String
		ev.Reason = reason.String
		events = append(events, ev)
	}

	return events, total, rows.Err()
}

func (es *EventStore) countEvents(ctx context.Context, where string, args []interface{}) (int, error) {
	cacheKey := fmt.Sprintf("%s|%v", where, args)

	es.countCacheMu.RLock()
	if total, ok := es.countCache[cacheKey]; ok {
		es.countCacheMu.RUnlock()
		return total, nil
	}
	es.countCacheMu.RUnlock()

	var total int
	if err := es.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}

	es.countCacheMu.Lock()
	es.countCache[cacheKey] = total
	es.countCacheMu.Unlock()

	return total, nil
}

// Close closes the database and removes the backing file.
func (es *EventStore) Close() {
	if es.db != nil {
		es.db.Close()
	}
	if es.dbPath != "" {
		os.Remove(es.dbPath)
	}
}
