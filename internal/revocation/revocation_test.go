package revocation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSerial(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0A1B", "a1b"},
		{"0x00ff", "ff"},
		{" 1f ", "1f"},
		{"000", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSerial(tt.in))
		})
	}
}

func TestReason(t *testing.T) {
	for r := ReasonUnspecified; r <= ReasonCessationOfOperation; r++ {
		assert.True(t, r.Valid())
		parsed, err := ParseReason(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
	assert.False(t, Reason(7).Valid())
	assert.Equal(t, "reason(7)", Reason(7).String())

	r, err := ParseReason("KEYCOMPROMISE")
	require.NoError(t, err)
	assert.Equal(t, ReasonKeyCompromise, r)

	_, err = ParseReason("lost")
	assert.Error(t, err)
}

// exerciseList runs the List contract against any implementation.
func exerciseList(t *testing.T, l List) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, found, err := l.Lookup(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)

	added, err := l.Add(ctx, Entry{Serial: "0ABC", Reason: ReasonKeyCompromise, RevokedAt: now})
	require.NoError(t, err)
	assert.True(t, added)

	// Idempotent: the first entry wins.
	added, err = l.Add(ctx, Entry{Serial: "abc", Reason: ReasonSuperseded, RevokedAt: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, added)

	e, found, err := l.Lookup(ctx, "ABC")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "abc", e.Serial)
	assert.Equal(t, ReasonKeyCompromise, e.Reason)
	assert.True(t, e.RevokedAt.Equal(now))

	_, err = l.Add(ctx, Entry{Serial: "def", Reason: ReasonUnspecified, RevokedAt: now.Add(time.Second)})
	require.NoError(t, err)

	entries, err := l.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "abc", entries[0].Serial)
	assert.Equal(t, "def", entries[1].Serial)
}

func TestMemoryList(t *testing.T) {
	exerciseList(t, NewMemoryList())
}

func TestMemoryList_ConcurrentAdd(t *testing.T) {
	l := NewMemoryList()
	var added atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := l.Add(context.Background(), Entry{Serial: "beef", Reason: Reason(i % 6), RevokedAt: time.Now()})
			assert.NoError(t, err)
			if ok {
				added.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1, added.Load())

	entries, _ := l.Entries(context.Background())
	assert.Len(t, entries, 1, fmt.Sprint(entries))
}
