package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/duel"
	"github.com/park285/chess-duel/internal/obslog"
	"github.com/park285/chess-duel/pkg/chessdto"
)

const schema = `CREATE TABLE IF NOT EXISTS duel_games (
    id           BIGSERIAL PRIMARY KEY,
    code         TEXT        NOT NULL,
    white_conn   TEXT        NOT NULL,
    black_conn   TEXT        NOT NULL,
    result       TEXT        NOT NULL,
    reason       TEXT        NOT NULL,
    moves_uci    JSONB       NOT NULL,
    moves_san    JSONB       NOT NULL,
    final_fen    TEXT        NOT NULL,
    pgn          TEXT        NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    ended_at     TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT      NOT NULL,
    UNIQUE (code, started_at)
)`

// Repository stores finished games in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Repository{db: db}, nil
}

// NewRepositoryFromDB wraps an already opened handle.
func NewRepositoryFromDB(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveResult upserts a finished game.
func (r *Repository) SaveResult(ctx context.Context, g *chessdto.ArchivedGame) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	movesUCIRaw, err := json.Marshal(g.MovesUCI)
	if err != nil {
		return err
	}
	movesSANRaw, err := json.Marshal(g.MovesSAN)
	if err != nil {
		return err
	}

	q := `INSERT INTO duel_games (
        code, white_conn, black_conn, result, reason,
        moves_uci, moves_san, final_fen, pgn,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
      ) ON CONFLICT (code, started_at) DO UPDATE SET
        white_conn=EXCLUDED.white_conn,
        black_conn=EXCLUDED.black_conn,
        result=EXCLUDED.result,
        reason=EXCLUDED.reason,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        final_fen=EXCLUDED.final_fen,
        pgn=EXCLUDED.pgn,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms
      RETURNING id`

	return r.db.QueryRowContext(ctx, q,
		g.Code, g.WhiteConn, g.BlackConn, g.Result, g.Reason,
		string(movesUCIRaw), string(movesSANRaw), g.FinalFEN, g.PGN,
		g.StartedAt, g.EndedAt, g.Duration.Milliseconds(),
	).Scan(&g.ID)
}

// Archive builds and stores a finished session. Notation problems are logged
// and the game is stored with whatever notation was produced.
func (r *Repository) Archive(ctx context.Context, snap duel.Snapshot) error {
	g, err := Build(snap)
	if err != nil {
		obslog.L().Warn("archive_notation_error", zap.String("code", snap.Code), zap.Error(err))
	}
	if err := r.SaveResult(ctx, g); err != nil {
		return fmt.Errorf("save %s: %w", snap.Code, err)
	}
	obslog.L().Info("archive_saved", zap.String("code", g.Code), zap.Int64("id", g.ID), zap.String("result", g.Result))
	return nil
}
