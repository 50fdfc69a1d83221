// Package indexdb keeps a queryable sqlite index of runs, rounds and votes. The round
// journal stays the source of truth; the index may miss rows when it falls behind.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"councilofbots.ai/internal/sim/catalogs"
	"councilofbots.ai/internal/sim/council"
	"councilofbots.ai/internal/sim/scoring"
	"councilofbots.ai/internal/sim/tuning"
)

const schemaVersion = "1"

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropRound  atomic.Uint64
	dropFinish atomic.Uint64
}

type reqKind int

const (
	reqRound reqKind = iota + 1
	reqFinish
)

type req struct {
	kind   reqKind
	runID  string
	round  council.RoundRecord
	report scoring.Report
	at     time.Time
}

// RunRow is one row of the runs table.
type RunRow struct {
	RunID         string
	Seed          uint64
	Rounds        int
	Members       []string
	CatalogDigest string
	StartedAt     time.Time
	FinishedAt    time.Time
	FinalScore    int
	Rating        string
}

// RoundRow is one row of the rounds table.
type RoundRow struct {
	RunID    string
	Round    int
	Template string
	Event    string
	Winner   int
	Forced   bool
	Delta    int
	Penalty  int
	Total    int
	Digest   string
}

type Stats struct {
	QueueDepth      int
	QueueCapacity   int
	DropRoundTotal  uint64
	DropFinishTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed TEXT NOT NULL,
			rounds INTEGER NOT NULL,
			members TEXT NOT NULL,
			catalog_digest TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			final_score INTEGER,
			rating TEXT,
			report_json TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			round INTEGER NOT NULL,
			template TEXT NOT NULL,
			event TEXT NOT NULL,
			winner INTEGER NOT NULL,
			forced INTEGER NOT NULL,
			delta INTEGER NOT NULL,
			penalty INTEGER NOT NULL,
			total INTEGER NOT NULL,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, round)
		);`,
		`CREATE TABLE IF NOT EXISTS votes (
			run_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			member TEXT NOT NULL,
			choice INTEGER NOT NULL,
			weight REAL NOT NULL,
			PRIMARY KEY (run_id, round, member)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_votes_member ON votes(member, run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_template ON rounds(template);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:      len(s.ch),
		QueueCapacity:   cap(s.ch),
		DropRoundTotal:  s.dropRound.Load(),
		DropFinishTotal: s.dropFinish.Load(),
	}
}

// StartRun inserts the run row synchronously so later round rows have a parent.
func (s *SQLiteIndex) StartRun(ctx context.Context, r RunRow) error {
	if s == nil {
		return nil
	}
	members, _ := json.Marshal(r.Members)
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs(run_id,seed,rounds,members,catalog_digest,started_at) VALUES(?,?,?,?,?,?)`,
		r.RunID, fmt.Sprint(r.Seed), r.Rounds, string(members), r.CatalogDigest,
		r.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("indexdb: start run: %w", err)
	}
	return nil
}

// Sink returns a council.Sink that queues each round of runID for the writer.
func (s *SQLiteIndex) Sink(runID string) council.Sink {
	return council.SinkFunc(func(rec *council.RoundRecord) error {
		s.WriteRound(runID, rec)
		return nil
	})
}

func (s *SQLiteIndex) WriteRound(runID string, rec *council.RoundRecord) {
	if s == nil || s.closed.Load() || rec == nil {
		return
	}
	select {
	case s.ch <- req{kind: reqRound, runID: runID, round: *rec}:
	default:
		// Drop if the indexer falls behind; the journal remains the source of truth.
		s.dropRound.Add(1)
	}
}

func (s *SQLiteIndex) FinishRun(runID string, rep scoring.Report) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqFinish, runID: runID, report: rep, at: time.Now()}:
	default:
		s.dropFinish.Add(1)
	}
}

// UpsertCatalogs stores the catalogs and tuning a run was played with.
func (s *SQLiteIndex) UpsertCatalogs(ctx context.Context, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, err := json.Marshal(cats.Names); err == nil {
		rows = append(rows, kv{name: "names", digest: cats.Names.Digest, json: b})
	}
	if b, err := json.Marshal(cats.Weights.ByName); err == nil {
		rows = append(rows, kv{name: "template_weights", digest: cats.Weights.Digest, json: b})
	}
	{
		tune.LLM.APIKey = ""
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version',?)`, schemaVersion); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Runs lists indexed runs, newest first.
func (s *SQLiteIndex) Runs(ctx context.Context) ([]RunRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id,seed,rounds,members,catalog_digest,started_at,
		COALESCE(finished_at,''),COALESCE(final_score,0),COALESCE(rating,'') FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var (
			r                 RunRow
			seed, members     string
			started, finished string
		)
		if err := rows.Scan(&r.RunID, &seed, &r.Rounds, &members, &r.CatalogDigest, &started, &finished, &r.FinalScore, &r.Rating); err != nil {
			return nil, err
		}
		if _, err := fmt.Sscan(seed, &r.Seed); err != nil {
			return nil, fmt.Errorf("indexdb: run %s: bad seed %q", r.RunID, seed)
		}
		_ = json.Unmarshal([]byte(members), &r.Members)
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished != "" {
			r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Rounds returns the indexed rounds of runID in order.
func (s *SQLiteIndex) Rounds(ctx context.Context, runID string) ([]RoundRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id,round,template,event,winner,forced,delta,penalty,total,digest
		FROM rounds WHERE run_id=? ORDER BY round`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoundRow
	for rows.Next() {
		var r RoundRow
		if err := rows.Scan(&r.RunID, &r.Round, &r.Template, &r.Event, &r.Winner, &r.Forced, &r.Delta, &r.Penalty, &r.Total, &r.Digest); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MemberWins counts, per member, the rounds of runID in which the member voted for the
// winning option.
func (s *SQLiteIndex) MemberWins(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT v.member, COUNT(*) FROM votes v
		JOIN rounds r ON r.run_id=v.run_id AND r.round=v.round
		WHERE v.run_id=? AND v.choice=r.winner GROUP BY v.member`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRound, _ := s.db.Prepare(`INSERT OR REPLACE INTO rounds(run_id,round,template,event,winner,forced,delta,penalty,total,digest,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertVote, _ := s.db.Prepare(`INSERT OR REPLACE INTO votes(run_id,round,member,choice,weight) VALUES(?,?,?,?,?)`)
	finishRun, _ := s.db.Prepare(`UPDATE runs SET finished_at=?, final_score=?, rating=?, report_json=? WHERE run_id=?`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRound, insertVote, finishRun} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	handle := func(r req) {
		begin()
		if tx == nil {
			return
		}
		switch r.kind {
		case reqRound:
			rec := r.round
			if insertRound == nil {
				return
			}
			raw, _ := json.Marshal(rec)
			if _, err := tx.Stmt(insertRound).Exec(
				r.runID, rec.Round, rec.Template, firstLine(rec.Event), rec.Winner, rec.Forced,
				rec.Delta, rec.Penalty, rec.Total, rec.Digest, string(raw),
			); err != nil {
				rollback()
				return
			}
			opCount++
			for _, v := range rec.Votes {
				if insertVote == nil {
					break
				}
				if _, err := tx.Stmt(insertVote).Exec(r.runID, rec.Round, v.Member, v.Choice, v.Weight); err != nil {
					rollback()
					return
				}
				opCount++
			}
			flushIfNeeded()

		case reqFinish:
			if finishRun == nil {
				return
			}
			raw, _ := json.Marshal(r.report)
			if _, err := tx.Stmt(finishRun).Exec(
				r.at.UTC().Format(time.RFC3339Nano), r.report.Final, r.report.Rating, string(raw), r.runID,
			); err != nil {
				rollback()
				return
			}
			commit()
		}
	}

	// The ticker releases an idle transaction so synchronous callers (StartRun,
	// UpsertCatalogs, queries) never wait on the single connection for long.
	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()
	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			handle(r)
		case <-ticker.C:
			commit()
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
