package usecase

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairPull/internal/domain/models"
	"PairPull/internal/engine/signal"
	"PairPull/internal/engine/stats"
	"PairPull/internal/engine/strategy"
)

func TestSignalSnapshotUndefinedZReportsZero(t *testing.T) {
	sig := strategy.PairSignal{
		PairID:    "AAA-BBB",
		Time:      time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Beta:      1.2,
		Spread:    0.03,
		Z:         stats.Undefined,
		Signal:    0,
		Direction: signal.Flat,
		Favorable: false,
	}

	snap := signalSnapshot(sig)
	assert.Zero(t, snap.ZScore)
	assert.Zero(t, snap.Size)
	assert.Equal(t, 0, snap.Direction)

	// the wire form must always marshal, masked bars included
	b, err := json.Marshal([]models.SignalSnapshot{snap})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"z_score":0`)
}

func TestSignalSnapshotDefinedZPassesThrough(t *testing.T) {
	sig := strategy.PairSignal{
		PairID:    "AAA-BBB",
		Time:      time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Beta:      1.2,
		Spread:    0.03,
		Z:         -1.7,
		Signal:    0.85,
		Direction: signal.LongSpread,
		Favorable: true,
	}

	snap := signalSnapshot(sig)
	assert.Equal(t, -1.7, snap.ZScore)
	assert.Equal(t, 0.85, snap.Size)
	assert.Equal(t, 0.85, snap.Signal)
	assert.Equal(t, 1, snap.Direction)

	_, err := json.Marshal(snap)
	require.NoError(t, err)
}
