package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ducminhle1904/crypto-gym/internal/env"
	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
	"github.com/ducminhle1904/crypto-gym/internal/runner"
)

const defaultBatchSize = 256

// Journal persists episodes and their steps to SQLite. Steps are buffered and written in
// one transaction per batch.
type Journal struct {
	mu        sync.Mutex
	db        *sql.DB
	pending   []runner.StepRecord
	batchSize int
}

const schema = `
CREATE TABLE IF NOT EXISTS episodes (
	id           TEXT PRIMARY KEY,
	policy       TEXT NOT NULL,
	reward       TEXT NOT NULL,
	window_size  INTEGER NOT NULL,
	start_tick   INTEGER NOT NULL,
	end_tick     INTEGER NOT NULL,
	started_at   DATETIME NOT NULL,
	finished_at  DATETIME,
	steps        INTEGER DEFAULT 0,
	trades       INTEGER DEFAULT 0,
	total_reward REAL DEFAULT 0,
	total_profit REAL DEFAULT 1,
	max_profit   REAL DEFAULT 1,
	efficiency   REAL DEFAULT 0,
	completed    INTEGER DEFAULT 0
);
CREATE TABLE IF NOT EXISTS steps (
	episode_id   TEXT NOT NULL,
	tick         INTEGER NOT NULL,
	price        REAL NOT NULL,
	action       INTEGER NOT NULL,
	reward       REAL NOT NULL,
	position     INTEGER NOT NULL,
	total_reward REAL NOT NULL,
	total_profit REAL NOT NULL,
	trade        INTEGER NOT NULL,
	PRIMARY KEY (episode_id, tick)
);
CREATE INDEX IF NOT EXISTS idx_episodes_policy ON episodes(policy);
`

// NewJournal opens (or creates) the journal database at dbPath
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, simerrors.NewStorageError("journal", "open", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, simerrors.NewStorageError("journal", "migrate", err)
	}

	log.Printf("[journal] opened episode journal at %s", dbPath)
	return &Journal{db: db, batchSize: defaultBatchSize}, nil
}

// OnEpisodeStart inserts the episode row, replacing an earlier run with the same id
func (j *Journal) OnEpisodeStart(ctx context.Context, meta runner.EpisodeMeta) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return simerrors.NewStorageError("journal", "OnEpisodeStart", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE episode_id = ?`, meta.ID); err != nil {
		return simerrors.NewStorageError("journal", "OnEpisodeStart", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO episodes (id, policy, reward, window_size, start_tick, end_tick, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Policy, meta.Reward, meta.WindowSize, meta.StartTick, meta.EndTick,
		meta.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return simerrors.NewStorageError("journal", "OnEpisodeStart", err)
	}
	return wrapCommit(tx.Commit(), "OnEpisodeStart")
}

// OnStep buffers the step and flushes once a batch is full
func (j *Journal) OnStep(ctx context.Context, step runner.StepRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.pending = append(j.pending, step)
	if len(j.pending) < j.batchSize {
		return nil
	}
	return j.flushLocked(ctx)
}

// OnEpisodeEnd flushes buffered steps and stores the summary
func (j *Journal) OnEpisodeEnd(ctx context.Context, result *runner.EpisodeResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.flushLocked(ctx); err != nil {
		return err
	}

	_, err := j.db.ExecContext(ctx,
		`UPDATE episodes SET finished_at = ?, steps = ?, trades = ?, total_reward = ?, total_profit = ?,
		 max_profit = ?, efficiency = ?, completed = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), result.Steps, len(result.Trades), result.TotalReward,
		result.TotalProfit, result.MaxPossibleProfit, result.Efficiency, boolToInt(result.Completed), result.ID,
	)
	if err != nil {
		return simerrors.NewStorageError("journal", "OnEpisodeEnd", err)
	}
	return nil
}

// Flush writes every buffered step
func (j *Journal) Flush(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flushLocked(ctx)
}

func (j *Journal) flushLocked(ctx context.Context) error {
	if len(j.pending) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return simerrors.NewStorageError("journal", "flush", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO steps (episode_id, tick, price, action, reward, position, total_reward, total_profit, trade)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return simerrors.NewStorageError("journal", "flush", err)
	}
	defer stmt.Close()

	for _, s := range j.pending {
		if _, err := stmt.ExecContext(ctx, s.EpisodeID, s.Tick, s.Price, s.Action.Encode(), s.Reward,
			s.Position.Encode(), s.TotalReward, s.TotalProfit, boolToInt(s.Trade)); err != nil {
			return simerrors.NewStorageError("journal", "flush", err).WithContext("tick", s.Tick)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapCommit(err, "flush")
	}
	j.pending = j.pending[:0]
	return nil
}

// EpisodeRecord represents a row from the episodes table
type EpisodeRecord struct {
	ID          string  `json:"id"`
	Policy      string  `json:"policy"`
	Reward      string  `json:"reward"`
	WindowSize  int     `json:"window_size"`
	StartTick   int     `json:"start_tick"`
	EndTick     int     `json:"end_tick"`
	StartedAt   string  `json:"started_at"`
	FinishedAt  string  `json:"finished_at"`
	Steps       int     `json:"steps"`
	Trades      int     `json:"trades"`
	TotalReward float64 `json:"total_reward"`
	TotalProfit float64 `json:"total_profit"`
	MaxProfit   float64 `json:"max_profit"`
	Efficiency  float64 `json:"efficiency"`
	Completed   bool    `json:"completed"`
}

// GetEpisodes returns the last N episodes, newest first
func (j *Journal) GetEpisodes(ctx context.Context, limit int) ([]EpisodeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, policy, reward, window_size, start_tick, end_tick, started_at, COALESCE(finished_at, ''),
		        steps, trades, total_reward, total_profit, max_profit, efficiency, completed
		 FROM episodes ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, simerrors.NewStorageError("journal", "GetEpisodes", err)
	}
	defer rows.Close()

	var episodes []EpisodeRecord
	for rows.Next() {
		var e EpisodeRecord
		var completed int
		if err := rows.Scan(&e.ID, &e.Policy, &e.Reward, &e.WindowSize, &e.StartTick, &e.EndTick, &e.StartedAt,
			&e.FinishedAt, &e.Steps, &e.Trades, &e.TotalReward, &e.TotalProfit, &e.MaxProfit, &e.Efficiency, &completed); err != nil {
			return nil, simerrors.NewStorageError("journal", "GetEpisodes", err)
		}
		e.Completed = completed == 1
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}

// GetSteps returns the stored steps of an episode in tick order
func (j *Journal) GetSteps(ctx context.Context, episodeID string) ([]runner.StepRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT tick, price, action, reward, position, total_reward, total_profit, trade
		 FROM steps WHERE episode_id = ? ORDER BY tick ASC`, episodeID)
	if err != nil {
		return nil, simerrors.NewStorageError("journal", "GetSteps", err)
	}
	defer rows.Close()

	var steps []runner.StepRecord
	for rows.Next() {
		s := runner.StepRecord{EpisodeID: episodeID}
		var action, position, trade int
		if err := rows.Scan(&s.Tick, &s.Price, &action, &s.Reward, &position, &s.TotalReward, &s.TotalProfit, &trade); err != nil {
			return nil, simerrors.NewStorageError("journal", "GetSteps", err)
		}
		s.Action = env.Action(action)
		s.Position = env.Position(position)
		s.Trade = trade == 1
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// Close flushes pending steps and closes the database
func (j *Journal) Close() error {
	if err := j.Flush(context.Background()); err != nil {
		log.Printf("[journal] dropping %d buffered steps: %v", len(j.pending), err)
	}
	return j.db.Close()
}

func wrapCommit(err error, op string) error {
	if err == nil {
		return nil
	}
	return simerrors.NewStorageError("journal", op, fmt.Errorf("commit: %w", err))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
