package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/notionvec/notionvec/internal/index"
)

func TestNeedsSync(t *testing.T) {
	synced := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		prior    *index.Record
		revision time.Time
		want     bool
	}{
		{
			name:     "no prior record",
			prior:    nil,
			revision: synced,
			want:     true,
		},
		{
			name:     "unknown record version",
			prior:    &index.Record{Version: index.RecordVersion + 1, SyncedAt: synced},
			revision: synced.Add(-time.Hour),
			want:     true,
		},
		{
			name:     "zero record version",
			prior:    &index.Record{SyncedAt: synced},
			revision: synced.Add(-time.Hour),
			want:     true,
		},
		{
			name:     "missing sync marker",
			prior:    &index.Record{Version: index.RecordVersion},
			revision: synced.Add(-time.Hour),
			want:     true,
		},
		{
			name:     "edited after last sync",
			prior:    &index.Record{Version: index.RecordVersion, SyncedAt: synced},
			revision: synced.Add(time.Minute),
			want:     true,
		},
		{
			name:     "edited before last sync",
			prior:    &index.Record{Version: index.RecordVersion, SyncedAt: synced},
			revision: synced.Add(-time.Minute),
			want:     false,
		},
		{
			name:     "revision equals sync marker",
			prior:    &index.Record{Version: index.RecordVersion, SyncedAt: synced},
			revision: synced,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsSync(tt.prior, tt.revision))
		})
	}
}

func TestRunLock(t *testing.T) {
	var l RunLock
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.True(t, l.TryAcquire())
}
