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

	"mandate/internal/platform/postgres"
	"mandate/internal/policy/models"
	id "mandate/pkg/domain"
	"mandate/pkg/platform/sentinel"
	txcontext "mandate/pkg/platform/tx"
)

// PostgresStore persists policies in the policies table. Rows are never
// updated; a trigger rejects UPDATE and DELETE.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const policyColumns = `id, authority, max_spend_usdc, min_confidence, allowed_chains, expires_at, created_at`

// CreateIfNoActive serializes creates per authority with a transaction-scoped
// advisory lock, so two concurrent creates for one authority cannot both see
// "no active policy". Creates for different authorities never contend.
func (s *PostgresStore) CreateIfNoActive(ctx context.Context, p *models.Policy, now time.Time) error {
	return postgres.InTx(ctx, s.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)

		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`,
			p.Authority.String()); err != nil {
			return fmt.Errorf("lock authority: %w", err)
		}

		var active bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM policies WHERE authority = $1 AND expires_at > $2)`,
			uuid.UUID(p.Authority), now,
		).Scan(&active)
		if err != nil {
			return fmt.Errorf("check active policy: %w", err)
		}
		if active {
			return sentinel.ErrAlreadyUsed
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO policies (`+policyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.UUID(p.ID),
			uuid.UUID(p.Authority),
			postgres.Numeric(p.MaxSpendUSDC),
			int16(p.MinConfidence),
			chainsToColumn(p.AllowedChains),
			p.ExpiresAt,
			p.CreatedAt,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("insert policy: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) FindByID(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	row := postgres.Conn(ctx, s.db).QueryRow(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE id = $1`, uuid.UUID(policyID))
	return scanPolicy(row)
}

func (s *PostgresStore) FindLatestByAuthority(ctx context.Context, authority id.AuthorityID) (*models.Policy, error) {
	row := postgres.Conn(ctx, s.db).QueryRow(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE authority = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		uuid.UUID(authority))
	return scanPolicy(row)
}

func scanPolicy(row pgx.Row) (*models.Policy, error) {
	var (
		policyID, authority uuid.UUID
		maxSpend            pgtype.Numeric
		minConfidence       int16
		chains              []int64
		p                   models.Policy
	)
	err := row.Scan(&policyID, &authority, &maxSpend, &minConfidence, &chains, &p.ExpiresAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan policy: %w", err)
	}
	spend, err := postgres.Uint64(maxSpend)
	if err != nil {
		return nil, fmt.Errorf("decode max_spend_usdc: %w", err)
	}
	set, err := chainsFromColumn(chains)
	if err != nil {
		return nil, err
	}
	p.ID = id.PolicyID(policyID)
	p.Authority = id.AuthorityID(authority)
	p.MaxSpendUSDC = spend
	p.MinConfidence = uint8(minConfidence)
	p.AllowedChains = set
	p.ExpiresAt = p.ExpiresAt.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func chainsToColumn(set models.ChainSet) []int64 {
	out := make([]int64, models.MaxChains)
	for i, c := range set {
		out[i] = int64(c)
	}
	return out
}

func chainsFromColumn(col []int64) (models.ChainSet, error) {
	var set models.ChainSet
	if len(col) != models.MaxChains {
		return set, fmt.Errorf("allowed_chains has %d slots, want %d", len(col), models.MaxChains)
	}
	for i, c := range col {
		if c < 0 || c > int64(^uint32(0)) {
			return set, fmt.Errorf("allowed_chains slot %d out of range: %d", i, c)
		}
		set[i] = models.ChainID(c)
	}
	return set, nil
}
