package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_inventory_product_shop"}

	require.True(t, IsUniqueViolation(pgxErr, ""))
	require.True(t, IsUniqueViolation(pgxErr, "uq_inventory_product_shop"))
	assert.False(t, IsUniqueViolation(pgxErr, "uq_other_constraint"))

	wrapped := fmt.Errorf("create record: %w", pgxErr)
	assert.True(t, IsUniqueViolation(wrapped, "uq_inventory_product_shop"))

	pqErr := &pq.Error{Code: "23505", Constraint: "uq_inventory_product_shop"}
	assert.True(t, IsUniqueViolation(pqErr, "uq_inventory_product_shop"))

	// sqlite surfaces uniqueness as a plain message
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: inventory_records.product_id"), ""))

	assert.False(t, IsUniqueViolation(nil, ""))
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), ""))
}

func TestIsRetryableConflict(t *testing.T) {
	assert.True(t, IsRetryableConflict(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryableConflict(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, IsRetryableConflict(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryableConflict(errors.New("database is locked")))
	assert.True(t, IsRetryableConflict(fmt.Errorf("apply reserve: %w", errors.New("deadlock detected"))))

	assert.False(t, IsRetryableConflict(nil))
	assert.False(t, IsRetryableConflict(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryableConflict(errors.New("connection refused")))
}
