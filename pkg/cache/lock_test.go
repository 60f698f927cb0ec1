package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockerWithoutRedisAlwaysAcquires(t *testing.T) {
	locker := NewLocker(nil, "arrangements:lock:", 0)
	assert.Equal(t, 30*time.Second, locker.ttl)

	release, err := locker.Acquire(context.Background(), "T001|2026-10-12")
	require.NoError(t, err)
	release()

	again, err := locker.Acquire(context.Background(), "T001|2026-10-12")
	require.NoError(t, err)
	again()
}

func TestNilLockerIsNoop(t *testing.T) {
	var locker *Locker
	release, err := locker.Acquire(context.Background(), "key")
	require.NoError(t, err)
	release()
}
