// Package live derives views that follow the local store. A Query re-runs
// a read whenever a committed write touches one of its tables; the Server
// pushes store changes to websocket clients; the Watcher notices writes
// made by other processes.
package live

import (
	"context"
	"log/slog"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/events"
)

// Subscriber is the change feed of the local store.
type Subscriber interface {
	Subscribe(fn func(db.ChangeSet)) (unsubscribe func())
}

// Query runs read once, then again after every change touching tables,
// handing each result to deliver. Bursts of changes arriving while a read
// is running collapse into one re-run. Reads and deliveries happen on a
// single goroutine, in order. Cancel ctx to stop; Query returns a channel
// closed once the loop has exited.
func Query[T any](
	ctx context.Context,
	store Subscriber,
	tables []events.EntityType,
	read func(context.Context) (T, error),
	deliver func(T, error),
) <-chan struct{} {
	dirty := make(chan struct{}, 1)
	mark := func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	}

	unsubscribe := store.Subscribe(func(cs db.ChangeSet) {
		for _, t := range tables {
			if cs.Touches(t) {
				mark()
				return
			}
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer unsubscribe()

		mark()
		for {
			select {
			case <-ctx.Done():
				return
			case <-dirty:
				v, err := read(ctx)
				if ctx.Err() != nil {
					return
				}
				if err != nil {
					slog.Debug("live: query failed", "err", err)
				}
				deliver(v, err)
			}
		}
	}()
	return done
}
