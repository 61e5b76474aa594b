package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/waypoint/internal/archive"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
)

// archiver writes terminal runs to the archive sequentially, off the run
// goroutines
type archiver struct {
	archive  *archive.Archive
	queue    topic.Topic[*api.Run]
	prod     topic.Producer[*api.Run]
	cons     topic.Consumer[*api.Run]
	stop     chan struct{}
	stopOnce sync.Once
	started  sync.Once
	runWG    sync.WaitGroup
}

const archiveTimeout = 30 * time.Second

func newArchiver(a *archive.Archive) *archiver {
	queue := caravan.NewTopic[*api.Run]()
	return &archiver{
		archive: a,
		queue:   queue,
		prod:    queue.NewProducer(),
		cons:    queue.NewConsumer(),
		stop:    make(chan struct{}),
	}
}

func (a *archiver) Start() {
	a.started.Do(func() {
		a.runWG.Go(func() {
			for {
				select {
				case <-a.stop:
					return
				case r, ok := <-a.cons.Receive():
					if !ok {
						return
					}
					a.write(r)
				}
			}
		})
	})
}

func (a *archiver) Enqueue(r *api.Run) {
	if r == nil {
		return
	}
	message.Send(a.prod, r)
}

// Flush writes any queued runs and stops the archiver
func (a *archiver) Flush() {
	a.stopOnce.Do(func() {
		close(a.stop)
	})
	a.runWG.Wait()
	for {
		select {
		case r, ok := <-a.cons.Receive():
			if !ok {
				a.close()
				return
			}
			a.write(r)
		default:
			a.close()
			return
		}
	}
}

func (a *archiver) close() {
	a.prod.Close()
	a.cons.Close()
}

func (a *archiver) write(r *api.Run) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Archive task panic",
				log.RunID(r.ID),
				slog.Any("panic", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	if err := a.archive.Put(ctx, r); err != nil {
		slog.Error("Failed to archive run",
			log.RunID(r.ID),
			log.Error(err))
		return
	}
	slog.Debug("Run archived",
		log.RunID(r.ID))
}
