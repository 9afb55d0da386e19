package syncer

import (
	"time"

	"github.com/notionvec/notionvec/internal/index"
)

// NeedsSync decides whether a document must be reprocessed. prior is the
// lowest-ordinal record currently in the index, or nil when the document
// has never been synced. revision is the source's last-edited timestamp.
//
// Every doubt resolves toward syncing: an unknown record layout, a missing
// sync marker, or any malformed prior state means the document is
// reprocessed rather than trusted.
func NeedsSync(prior *index.Record, revision time.Time) bool {
	if prior == nil {
		return true
	}
	if prior.Version != index.RecordVersion {
		return true
	}
	if prior.SyncedAt.IsZero() {
		return true
	}
	return revision.After(prior.SyncedAt)
}
