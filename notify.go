package authclient

import (
	"io"

	"github.com/MrEthical07/authclient/internal/notify"
)

// Notification is a user-facing event handed to the [NotificationSink].
type Notification = notify.Notification

// NotificationKind labels a [Notification].
type NotificationKind = notify.Kind

// NotificationSink receives notifications from the client's async dispatcher.
type NotificationSink = notify.Sink

// NotificationSinkFunc adapts a function to [NotificationSink].
type NotificationSinkFunc = notify.SinkFunc

// NoOpSink discards notifications.
type NoOpSink = notify.NoOpSink

// ChannelSink buffers notifications in a channel.
type ChannelSink = notify.ChannelSink

// JSONWriterSink writes notifications as JSON lines.
type JSONWriterSink = notify.JSONWriterSink

const (
	KindClientError  = notify.KindClientError
	KindServerError  = notify.KindServerError
	KindNetworkError = notify.KindNetworkError
	KindSessionEnded = notify.KindSessionEnded
)

func NewChannelSink(buffer int) *ChannelSink {
	return notify.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return notify.NewJSONWriterSink(w)
}
