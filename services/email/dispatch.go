package emailsvc

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
)

// maxInFlight bounds the deliveries running at once, e.g. a report broadcast to a whole grade.
const maxInFlight = 8

type deliverFunc func(msg core.EmailMessage) error

// Service is a core.EmailService whose background deliveries can be drained on shutdown.
type Service interface {
	core.EmailService
	// Drain waits for the queued deliveries until ctx is done, then reports how many were abandoned.
	Drain(ctx context.Context) error
}

// dispatcher renders the messages then hands them to a deliverFunc, in the background unless inline is set.
// Messages without recipients or content are dropped.
type dispatcher struct {
	tmpls  *core.EmailTemplates
	logger core.Logger
	slots  chan struct{}
	inline bool

	wg      *sync.WaitGroup
	pending *atomic.Int64
}

func newDispatcher(tmpls *core.EmailTemplates, logger core.Logger, inline bool) dispatcher {
	return dispatcher{
		tmpls:   tmpls,
		logger:  logger,
		slots:   make(chan struct{}, maxInFlight),
		inline:  inline,
		wg:      new(sync.WaitGroup),
		pending: new(atomic.Int64),
	}
}

func (d dispatcher) dispatch(deliver deliverFunc, messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if d.inline {
			d.run(deliver, msg)
			continue
		}
		d.wg.Add(1)
		d.pending.Add(1)
		go func(msg *core.EmailMessage) {
			defer d.wg.Done()
			defer d.pending.Add(-1)
			d.slots <- struct{}{}
			defer func() { <-d.slots }()
			d.run(deliver, msg)
		}(msg)
	}
}

func (d dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "%d emails not delivered", d.pending.Load())
	}
}

func (d dispatcher) run(deliver deliverFunc, msg *core.EmailMessage) {
	if err := d.tmpls.Render(msg); err != nil {
		d.logger.Error("rendering email", errors.Wrap(err, "rendering email"))
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}
	if err := deliver(*msg); err != nil {
		d.logger.Error("delivering email "+msg.TemplateName, err)
	}
}

func subjectPrefix(conf *core.Config) string {
	return "[" + conf.AppName + "] "
}
