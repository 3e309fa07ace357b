package pgdb

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DRSN-tech/food-rating/internal/usecase"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPostgresDuplicate(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}

	assert.True(t, postgresDuplicate(dup))
	assert.True(t, postgresDuplicate(fmt.Errorf("insert: %w", dup)))
	assert.False(t, postgresDuplicate(&pgconn.PgError{Code: "23503"}))
	assert.False(t, postgresDuplicate(errors.New("duplicate key")))
	assert.False(t, postgresDuplicate(nil))
}

func TestOutboxEventRepo_ReclaimsStaleProcessingEvents(t *testing.T) {
	repo := NewOutboxEventRepo(nil, nil, 3, 90*time.Second)

	args := repo.claimArgs(10)
	assert.Equal(t, []any{string(usecase.Processing), string(usecase.Pending), 10, 90.0}, args)

	// зависшие в processing события снова попадают в выборку
	assert.Contains(t, claimEventsQuery, "status = $2")
	assert.Contains(t, claimEventsQuery, "status = $1 AND processing_started_at < now() - make_interval(secs => $4)")
	assert.Contains(t, claimEventsQuery, "FOR UPDATE SKIP LOCKED")
}

func TestNewOutboxEventRepo_Defaults(t *testing.T) {
	repo := NewOutboxEventRepo(nil, nil, 0, 0)

	assert.Equal(t, 1, repo.maxAttempts)
	assert.Equal(t, defaultProcessingTimeout, repo.processingTimeout)
}
