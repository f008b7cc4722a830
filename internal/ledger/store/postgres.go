package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"mandate/internal/ledger"
	"mandate/internal/ledger/models"
	"mandate/internal/outbox"
	"mandate/internal/platform/postgres"
	"mandate/pkg/digest"
	id "mandate/pkg/domain"
	"mandate/pkg/platform/sentinel"
)

// OutboxWriter appends stream events inside the caller's transaction.
type OutboxWriter interface {
	Append(ctx context.Context, event outbox.Event) error
}

// PostgresStore persists ledger records. The primary key
// (policy_id, agent, ts_nanos) rejects duplicates, and triggers reject
// UPDATE and DELETE. With an outbox writer, every append also writes its
// stream event in the same transaction.
type PostgresStore struct {
	db     *pgxpool.Pool
	outbox OutboxWriter
}

func NewPostgres(db *pgxpool.Pool, events OutboxWriter) *PostgresStore {
	return &PostgresStore{db: db, outbox: events}
}

const (
	refusalColumns   = `policy_id, agent, ts_nanos, policy_hash, decision_hash, market_id, rule_violated, requested_usdc, allowed_usdc`
	executionColumns = `policy_id, agent, ts_nanos, policy_hash, decision_hash, market_id, rules_passed, cctp_burn_tx, cctp_mint_tx, bet_tx`
)

func (s *PostgresStore) AppendRefusal(ctx context.Context, r *models.RefusalLog) error {
	return postgres.InTx(ctx, s.db, func(ctx context.Context) error {
		_, err := postgres.Conn(ctx, s.db).Exec(ctx,
			`INSERT INTO refusal_logs (`+refusalColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.UUID(r.PolicyID),
			uuid.UUID(r.Agent),
			r.Timestamp.UnixNano(),
			r.PolicyHash.Bytes(),
			r.DecisionHash.Bytes(),
			r.MarketID,
			r.RuleViolated,
			postgres.Numeric(r.RequestedUSDC),
			postgres.Numeric(r.AllowedUSDC),
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("insert refusal: %w", err)
		}
		if s.outbox == nil {
			return nil
		}
		event, err := ledger.RefusalEvent(r)
		if err != nil {
			return err
		}
		return s.outbox.Append(ctx, event)
	})
}

func (s *PostgresStore) AppendExecution(ctx context.Context, e *models.ExecutionLog) error {
	return postgres.InTx(ctx, s.db, func(ctx context.Context) error {
		_, err := postgres.Conn(ctx, s.db).Exec(ctx,
			`INSERT INTO execution_logs (`+executionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.UUID(e.PolicyID),
			uuid.UUID(e.Agent),
			e.Timestamp.UnixNano(),
			e.PolicyHash.Bytes(),
			e.DecisionHash.Bytes(),
			e.MarketID,
			e.RulesPassed,
			e.CCTPBurnTx,
			e.CCTPMintTx,
			e.BetTx,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("insert execution: %w", err)
		}
		if s.outbox == nil {
			return nil
		}
		event, err := ledger.ExecutionEvent(e)
		if err != nil {
			return err
		}
		return s.outbox.Append(ctx, event)
	})
}

func (s *PostgresStore) GetRefusal(ctx context.Context, key models.RecordKey) (*models.RefusalLog, error) {
	row := postgres.Conn(ctx, s.db).QueryRow(ctx,
		`SELECT `+refusalColumns+` FROM refusal_logs WHERE policy_id = $1 AND agent = $2 AND ts_nanos = $3`,
		uuid.UUID(key.PolicyID), uuid.UUID(key.Agent), key.Timestamp.UnixNano())
	r, err := scanRefusal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) GetExecution(ctx context.Context, key models.RecordKey) (*models.ExecutionLog, error) {
	row := postgres.Conn(ctx, s.db).QueryRow(ctx,
		`SELECT `+executionColumns+` FROM execution_logs WHERE policy_id = $1 AND agent = $2 AND ts_nanos = $3`,
		uuid.UUID(key.PolicyID), uuid.UUID(key.Agent), key.Timestamp.UnixNano())
	e, err := scanExecution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return e, err
}

func (s *PostgresStore) FindByDecisionHash(ctx context.Context, hash digest.Digest) (*models.DecisionRecords, error) {
	conn := postgres.Conn(ctx, s.db)
	refusals, err := queryAll(ctx, conn, scanRefusal,
		`SELECT `+refusalColumns+` FROM refusal_logs WHERE decision_hash = $1 ORDER BY ts_nanos`, hash.Bytes())
	if err != nil {
		return nil, err
	}
	executions, err := queryAll(ctx, conn, scanExecution,
		`SELECT `+executionColumns+` FROM execution_logs WHERE decision_hash = $1 ORDER BY ts_nanos`, hash.Bytes())
	if err != nil {
		return nil, err
	}
	return &models.DecisionRecords{Refusals: refusals, Executions: executions}, nil
}

func (s *PostgresStore) ListRefusals(ctx context.Context, policyID id.PolicyID, limit int) ([]*models.RefusalLog, error) {
	return queryAll(ctx, postgres.Conn(ctx, s.db), scanRefusal,
		`SELECT `+refusalColumns+` FROM refusal_logs WHERE policy_id = $1 ORDER BY ts_nanos DESC LIMIT $2`,
		uuid.UUID(policyID), limit)
}

func (s *PostgresStore) ListExecutions(ctx context.Context, policyID id.PolicyID, limit int) ([]*models.ExecutionLog, error) {
	return queryAll(ctx, postgres.Conn(ctx, s.db), scanExecution,
		`SELECT `+executionColumns+` FROM execution_logs WHERE policy_id = $1 ORDER BY ts_nanos DESC LIMIT $2`,
		uuid.UUID(policyID), limit)
}

func queryAll[T any](ctx context.Context, conn postgres.DBTX, scan func(pgx.Row) (*T, error), query string, args ...any) ([]*T, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()
	out := []*T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return out, nil
}

func scanRefusal(row pgx.Row) (*models.RefusalLog, error) {
	var (
		policyID, agent          uuid.UUID
		nanos                    int64
		policyHash, decisionHash []byte
		requested, allowed       pgtype.Numeric
		r                        models.RefusalLog
	)
	err := row.Scan(&policyID, &agent, &nanos, &policyHash, &decisionHash,
		&r.MarketID, &r.RuleViolated, &requested, &allowed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan refusal: %w", err)
	}
	if r.PolicyHash, err = digest.FromBytes(policyHash); err != nil {
		return nil, fmt.Errorf("decode policy_hash: %w", err)
	}
	if r.DecisionHash, err = digest.FromBytes(decisionHash); err != nil {
		return nil, fmt.Errorf("decode decision_hash: %w", err)
	}
	if r.RequestedUSDC, err = postgres.Uint64(requested); err != nil {
		return nil, fmt.Errorf("decode requested_usdc: %w", err)
	}
	if r.AllowedUSDC, err = postgres.Uint64(allowed); err != nil {
		return nil, fmt.Errorf("decode allowed_usdc: %w", err)
	}
	r.PolicyID = id.PolicyID(policyID)
	r.Agent = id.AgentID(agent)
	r.Timestamp = time.Unix(0, nanos).UTC()
	return &r, nil
}

func scanExecution(row pgx.Row) (*models.ExecutionLog, error) {
	var (
		policyID, agent          uuid.UUID
		nanos                    int64
		policyHash, decisionHash []byte
		e                        models.ExecutionLog
	)
	err := row.Scan(&policyID, &agent, &nanos, &policyHash, &decisionHash,
		&e.MarketID, &e.RulesPassed, &e.CCTPBurnTx, &e.CCTPMintTx, &e.BetTx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan execution: %w", err)
	}
	if e.PolicyHash, err = digest.FromBytes(policyHash); err != nil {
		return nil, fmt.Errorf("decode policy_hash: %w", err)
	}
	if e.DecisionHash, err = digest.FromBytes(decisionHash); err != nil {
		return nil, fmt.Errorf("decode decision_hash: %w", err)
	}
	e.PolicyID = id.PolicyID(policyID)
	e.Agent = id.AgentID(agent)
	e.Timestamp = time.Unix(0, nanos).UTC()
	return &e, nil
}
