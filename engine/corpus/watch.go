package corpus

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/StackPilotAI/stackpilot-mvp/pkg/natsutil"
)

// DefaultReloadSubject is the NATS subject the offline pipeline announces new
// snapshots on.
const DefaultReloadSubject = "stackpilot.corpus.reload"

// ReloadEvent announces a freshly written snapshot file. An empty Path means
// "reload from the store's configured path".
type ReloadEvent struct {
	Path     string `json:"path,omitempty"`
	Projects int    `json:"projects,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Watch subscribes to snapshot announcements and swaps the store on each one.
// Malformed messages are dropped; failed reloads keep the previous snapshot.
func (st *Store) Watch(nc *nats.Conn, subject string) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultReloadSubject
	}
	return natsutil.SubscribeWithBad(nc, subject, func(_ context.Context, ev ReloadEvent) {
		path := ev.Path
		if path == "" {
			path = st.path
		}
		if err := st.ReloadFrom(path); err != nil {
			st.logger.Error("corpus: reload failed, keeping previous snapshot",
				"path", path, "err", err)
			return
		}
		st.logger.Info("corpus: reloaded from announcement",
			"path", path, "source", ev.Source)
	}, func(err error) {
		st.logger.Warn("corpus: dropping malformed reload event", "err", err)
	})
}

// Announce publishes a ReloadEvent. Used by the offline indexing tool after
// writing a new snapshot.
func Announce(ctx context.Context, nc *nats.Conn, subject string, ev ReloadEvent) error {
	if subject == "" {
		subject = DefaultReloadSubject
	}
	return natsutil.Publish(ctx, nc, subject, ev)
}
