package postgres

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 1000, math.MaxInt64, math.MaxUint64} {
		got, err := Uint64(Numeric(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestUint64_ScaledForms(t *testing.T) {
	got, err := Uint64(pgtype.Numeric{Int: big.NewInt(1), Exp: 3, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got)

	got, err = Uint64(pgtype.Numeric{Int: big.NewInt(5000), Exp: -2, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(50), got)

	_, err = Uint64(pgtype.Numeric{Int: big.NewInt(5001), Exp: -2, Valid: true})
	assert.Error(t, err)

	_, err = Uint64(pgtype.Numeric{Int: big.NewInt(-1), Valid: true})
	assert.Error(t, err)

	_, err = Uint64(pgtype.Numeric{})
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("23505")))
}
