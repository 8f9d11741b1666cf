package corpus

import (
	"context"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/snapshot"
)

// Registry publishes snapshots for the query path.
type Registry interface {
	Get(corpus domain.CorpusName) (*snapshot.Snapshot, error)
	Publish(snap *snapshot.Snapshot)
	Snapshots() []*snapshot.Snapshot
}

// Loader reads a snapshot from its source.
type Loader func(ctx context.Context, src snapshot.Source) (*snapshot.Snapshot, error)

// Listener is notified with the full live set after every successful publish.
type Listener func(snaps []*snapshot.Snapshot)
