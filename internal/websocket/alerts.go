package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ecoh2o/portal/internal/hub"
	"github.com/ecoh2o/portal/internal/metrics"
	"github.com/ecoh2o/portal/internal/pubsub"
	"github.com/ecoh2o/portal/internal/realtime"
	"github.com/ecoh2o/portal/internal/view"
)

// RegisterAlertRelay bridges coordinator alerts onto the stream: every
// notification alert is rendered as a toast fragment and delivered to the
// owning identity's connected streams.
func RegisterAlertRelay(ctx context.Context, subscriber pubsub.Subscriber, h *hub.Hub) error {
	return subscriber.Subscribe(ctx, realtime.TopicNotificationNew, func(ctx context.Context, msg pubsub.Message) error {
		var alert realtime.NotificationAlert
		if err := json.Unmarshal(msg.Payload, &alert); err != nil {
			return fmt.Errorf("undecodable notification alert: %w", err)
		}

		fragment, err := view.RenderFragment(view.NotificationToast(alert))
		if err != nil {
			return err
		}

		h.SendToUser(alert.UserID, fragment)
		metrics.NotificationsDelivered.Inc()
		return nil
	})
}
