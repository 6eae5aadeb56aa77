package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tossww/open-insider-trader/pkg/logger"
)

type countingGenerator struct {
	calls int
	now   time.Time
	err   error
}

func (g *countingGenerator) Generate(ctx context.Context) (*Report, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &Report{ID: "gen", GeneratedAt: g.now}, nil
}

func TestLatestReports(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	gen := &countingGenerator{now: now}
	latest := NewLatestReports(gen, nil, logger.Nop())
	latest.now = func() time.Time { return now }

	assert.Nil(t, latest.Peek())

	first, err := latest.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gen", first.ID)
	assert.Same(t, first, latest.Peek())

	again, err := latest.Latest(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, gen.calls)

	// a published report replaces the held one
	pushed := &Report{ID: "pushed", GeneratedAt: now}
	require.NoError(t, latest.Publish(context.Background(), pushed))
	got, err := latest.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pushed", got.ID)

	// stale reports are regenerated
	now = now.Add(10 * time.Minute)
	gen.now = now
	_, err = latest.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls)
}

func TestLatestReports_GenerateError(t *testing.T) {
	latest := NewLatestReports(&countingGenerator{err: errors.New("db down")}, nil, logger.Nop())
	_, err := latest.Latest(context.Background())
	assert.Error(t, err)
}
