//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "Notifier=Notifier"
package session

import (
	"context"
	"time"

	"github.com/klwxsrx/go-auth-client/pkg/log"
)

const ExpiredMessage = "Your login session has expired"

type (
	// Notifier is told about a request that went out without authorization because
	// the stored session had expired. It is called synchronously from the request path.
	Notifier interface {
		SessionExpired(ctx context.Context, event ExpiredEvent)
	}

	ExpiredEvent struct {
		Message    string
		ExpiredAt  time.Time
		DetectedAt time.Time
	}

	NotifierFunc func(ctx context.Context, event ExpiredEvent)

	ChannelNotifier struct {
		events chan ExpiredEvent
	}

	logNotifier struct {
		logger log.Logger
	}

	nopNotifier struct{}
)

func (f NotifierFunc) SessionExpired(ctx context.Context, event ExpiredEvent) {
	f(ctx, event)
}

// NewChannelNotifier delivers events to a buffered channel. Events are dropped when it is full.
func NewChannelNotifier(buffer int) *ChannelNotifier {
	return &ChannelNotifier{events: make(chan ExpiredEvent, buffer)}
}

func (n *ChannelNotifier) Events() <-chan ExpiredEvent {
	return n.events
}

func (n *ChannelNotifier) SessionExpired(_ context.Context, event ExpiredEvent) {
	select {
	case n.events <- event:
	default:
	}
}

func NewLogNotifier(logger log.Logger) Notifier {
	return logNotifier{logger: logger}
}

func (n logNotifier) SessionExpired(ctx context.Context, event ExpiredEvent) {
	n.logger.
		WithField("expiredAt", event.ExpiredAt).
		Warn(ctx, event.Message)
}

func NewNopNotifier() Notifier {
	return nopNotifier{}
}

func (nopNotifier) SessionExpired(context.Context, ExpiredEvent) {}
