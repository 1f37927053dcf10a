package hintcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLockMutualExclusion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l1 := NewFileLock(dir)
	require.NoError(t, l1.TryLock())

	l2 := NewFileLock(dir)
	err := l2.TryLock()
	assert.Error(t, err, "a second lock on the same dir must not succeed while the first is held")

	l1.Unlock()
	require.NoError(t, l2.TryLock())
	l2.Unlock()
}

func TestFileLockUnlockIsSafeWhenNotHeld(t *testing.T) {
	t.Parallel()

	l := NewFileLock(t.TempDir())
	assert.NotPanics(t, func() { l.Unlock() })
}
