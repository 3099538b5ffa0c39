package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"orbsim/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			symbols         TEXT,
			start_date      TEXT,
			end_date        TEXT,
			trades          INTEGER,
			win_rate        REAL,
			avg_gross       REAL,
			avg_net         REAL,
			expectancy_net  REAL,
			median_hold_min REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      INTEGER NOT NULL,
			date        TEXT,
			symbol      TEXT,
			side        TEXT,
			entry_time  TEXT,
			entry_price REAL,
			qty         INTEGER,
			stop_price  REAL,
			exit_time   TEXT,
			exit_price  REAL,
			exit_reason TEXT,
			gross_pnl   REAL,
			commissions REAL,
			net_pnl     REAL,
			hold_min    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_sym ON trades(symbol, date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun inserts the run summary and its trades in one transaction.
func (r *SQLiteRecorder) RecordRun(info *RunInfo, trades []model.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	sm := info.Summary
	res, err := tx.Exec(`INSERT INTO runs
		(timestamp, symbols, start_date, end_date, trades,
		 win_rate, avg_gross, avg_net, expectancy_net, median_hold_min)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), info.Symbols, info.StartDate, info.EndDate,
		sm.Trades, sm.WinRate, sm.AvgGross, sm.AvgNet, sm.ExpectancyNet, sm.MedianHoldMin,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO trades
		(run_id, date, symbol, side, entry_time, entry_price, qty,
		 stop_price, exit_time, exit_price, exit_reason,
		 gross_pnl, commissions, net_pnl, hold_min)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare trade insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		if _, err := stmt.Exec(
			runID, t.Date.Format("2006-01-02"), t.Symbol, string(t.Side),
			t.EntryTime.Format(time.RFC3339), t.EntryPrice, t.Qty,
			t.StopPrice, t.ExitTime.Format(time.RFC3339), t.ExitPrice, string(t.ExitReason),
			t.GrossPnL, t.Commissions, t.NetPnL, t.HoldMinutes,
		); err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
