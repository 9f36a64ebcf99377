// Package realtime keeps a per-identity view of orders, waste subscriptions
// and notifications synchronized with the storage backend: one bulk fetch at
// scope start, then live change-feed subscriptions until the scope ends.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ecoh2o/portal/internal/database"
	"github.com/ecoh2o/portal/internal/domain"
	"github.com/ecoh2o/portal/internal/pubsub"
)

// DefaultFetchTimeout bounds bulk fetches and persistence calls.
const DefaultFetchTimeout = 10 * time.Second

// Coordinator owns the three local collections for exactly one identity at a
// time. Start re-scopes it; Stop releases everything. All state transitions
// are epoch-guarded: a fetch result or feed callback issued under a previous
// scope is discarded, never applied.
type Coordinator struct {
	orders    domain.OrderRepository
	subs      domain.SubscriptionRepository
	notifs    domain.NotificationRepository
	feed      database.ChangeFeed
	publisher pubsub.Publisher
	timeout   time.Duration
	logger    *slog.Logger

	mu            sync.Mutex
	epoch         uint64
	identity      *domain.Identity
	orderFeedSub  *database.FeedSubscription
	notifFeedSub  *database.FeedSubscription
	orderRows     []domain.Order
	subRows       []domain.WasteSubscription
	notifRows     []domain.Notification
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithFetchTimeout overrides the bound applied to fetches and writes.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// NewCoordinator creates a stopped Coordinator.
func NewCoordinator(
	orders domain.OrderRepository,
	subs domain.SubscriptionRepository,
	notifs domain.NotificationRepository,
	feed database.ChangeFeed,
	publisher pubsub.Publisher,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		orders:    orders,
		subs:      subs,
		notifs:    notifs,
		feed:      feed,
		publisher: publisher,
		timeout:   DefaultFetchTimeout,
		logger:    slog.Default().With("service", "realtime"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start scopes the coordinator to one identity: it tears down any previous
// scope, bulk-fetches the three collections, then opens the two live
// subscriptions. The bulk results are applied before any live event for this
// scope can be processed, so a live event is never overwritten by a stale
// fetch.
func (c *Coordinator) Start(ctx context.Context, identity domain.Identity) error {
	c.mu.Lock()
	c.stopLocked()
	c.epoch++
	epoch := c.epoch
	id := identity
	c.identity = &id
	// The previous scope's rows are discarded here, not after the fetch: if
	// the fetch fails the coordinator must be empty, never serving the old
	// identity's data under the new one.
	c.orderRows = nil
	c.subRows = nil
	c.notifRows = nil
	c.mu.Unlock()

	if err := c.fetchAll(ctx, epoch, identity.ID); err != nil {
		return err
	}

	filter := &database.FeedFilter{
		Where:  "owner_id = $owner",
		Params: map[string]any{"owner": identity.ID},
	}

	orderSub, err := c.feed.Subscribe(ctx, database.TableOrders, filter, func(ctx context.Context, ev database.Event) {
		c.onOrderChange(epoch)
	})
	if err != nil {
		return fmt.Errorf("order feed subscription failed: %w", err)
	}

	notifSub, err := c.feed.Subscribe(ctx, database.TableNotifications, filter, func(ctx context.Context, ev database.Event) {
		c.onNotificationEvent(epoch, ev)
	})
	if err != nil {
		c.feed.Unsubscribe(orderSub.ID)
		return fmt.Errorf("notification feed subscription failed: %w", err)
	}

	c.mu.Lock()
	if c.epoch != epoch {
		// Re-scoped while we were subscribing; these handles belong to a
		// dead scope and must not leak.
		c.mu.Unlock()
		c.feed.Unsubscribe(orderSub.ID)
		c.feed.Unsubscribe(notifSub.ID)
		return nil
	}
	c.orderFeedSub = orderSub
	c.notifFeedSub = notifSub
	c.mu.Unlock()

	c.logger.Info("realtime scope started", "owner", identity.ID)
	return nil
}

// Stop releases both subscriptions and discards the local collections. It is
// idempotent and safe to call when never started.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.epoch++
	c.identity = nil
	c.orderRows = nil
	c.subRows = nil
	c.notifRows = nil
	c.mu.Unlock()
}

// stopLocked releases the feed handles. Caller holds c.mu.
func (c *Coordinator) stopLocked() {
	if c.orderFeedSub != nil {
		c.feed.Unsubscribe(c.orderFeedSub.ID)
		c.orderFeedSub = nil
	}
	if c.notifFeedSub != nil {
		c.feed.Unsubscribe(c.notifFeedSub.ID)
		c.notifFeedSub = nil
	}
}

// Orders returns a copy of the order collection, creation time descending.
func (c *Coordinator) Orders() []domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Order, len(c.orderRows))
	copy(out, c.orderRows)
	return out
}

// Subscriptions returns a copy of the waste subscription collection.
func (c *Coordinator) Subscriptions() []domain.WasteSubscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.WasteSubscription, len(c.subRows))
	copy(out, c.subRows)
	return out
}

// Notifications returns a copy of the notification collection, creation time
// descending.
func (c *Coordinator) Notifications() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Notification, len(c.notifRows))
	copy(out, c.notifRows)
	return out
}

// UnreadCount returns the number of unread notifications.
func (c *Coordinator) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, notif := range c.notifRows {
		if !notif.IsRead {
			n++
		}
	}
	return n
}

// MarkRead flips one notification to read: locally first (optimistic), then
// persisted. An id that is not in the local collection is logged and ignored.
// There is no rollback if the persistence call fails; the field is low-stakes
// and user-correctable by reloading.
func (c *Coordinator) MarkRead(ctx context.Context, recordID string) {
	c.mu.Lock()
	found := false
	alreadyRead := false
	for i := range c.notifRows {
		if c.notifRows[i].RecordID() == recordID {
			found = true
			alreadyRead = c.notifRows[i].IsRead
			c.notifRows[i].IsRead = true
			break
		}
	}
	c.mu.Unlock()

	if !found {
		c.logger.Warn("mark-read for unknown notification", "record_id", recordID)
		return
	}
	if alreadyRead {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.notifs.MarkRead(ctx, recordID); err != nil {
		c.logger.Error("mark-read persistence failed", "record_id", recordID, "error", err)
	}
}

// fetchAll bulk-fetches the three collections and applies them if the scope
// is still current.
func (c *Coordinator) fetchAll(ctx context.Context, epoch uint64, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	orders, err := c.orders.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("order bulk fetch failed: %w", err)
	}
	subs, err := c.subs.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("subscription bulk fetch failed: %w", err)
	}
	notifs, err := c.notifs.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("notification bulk fetch failed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		// The scope changed while the fetch was in flight; these rows belong
		// to a previous identity and must not be applied.
		return nil
	}
	c.orderRows = orders
	c.subRows = subs
	c.notifRows = notifs
	return nil
}

// onOrderChange handles any order-table change event by re-running the order
// bulk fetch. No incremental merge: volumes are low and a full re-fetch keeps
// the ordering canonical without reconciling partial or out-of-order events.
func (c *Coordinator) onOrderChange(epoch uint64) {
	c.mu.Lock()
	if c.epoch != epoch || c.identity == nil {
		c.mu.Unlock()
		return
	}
	ownerID := c.identity.ID
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	orders, err := c.orders.ListByOwner(ctx, ownerID)
	if err != nil {
		c.logger.Error("order re-fetch failed", "owner", ownerID, "error", err)
		return
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.orderRows = orders
	}
	c.mu.Unlock()
}

// onNotificationEvent merges a notification insert incrementally: an inserted
// row is the newest by construction, so prepending keeps the collection
// creation-descending, and an alert is published for the presentation layer.
// Duplicated or dropped alerts are user-visible, so unlike orders this path
// avoids the re-fetch round trip. Insert delivery is assumed at-most-once per
// row by the provider.
func (c *Coordinator) onNotificationEvent(epoch uint64, ev database.Event) {
	if ev.Kind != database.EventInsert {
		return
	}

	notif, ok := decodeNotification(ev.Data)
	if !ok {
		// An undecodable row must not silently vanish; fall back to the
		// canonical bulk fetch.
		c.logger.Warn("undecodable notification event, re-fetching")
		c.refetchNotifications(epoch)
		return
	}

	c.mu.Lock()
	if c.epoch != epoch || c.identity == nil {
		c.mu.Unlock()
		return
	}
	userID := c.identity.ID
	c.notifRows = append([]domain.Notification{*notif}, c.notifRows...)
	c.mu.Unlock()

	c.publishAlert(userID, notif)
}

func (c *Coordinator) refetchNotifications(epoch uint64) {
	c.mu.Lock()
	if c.epoch != epoch || c.identity == nil {
		c.mu.Unlock()
		return
	}
	ownerID := c.identity.ID
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	notifs, err := c.notifs.ListByOwner(ctx, ownerID)
	if err != nil {
		c.logger.Error("notification re-fetch failed", "owner", ownerID, "error", err)
		return
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.notifRows = notifs
	}
	c.mu.Unlock()
}

func (c *Coordinator) publishAlert(userID string, notif *domain.Notification) {
	alert := NotificationAlert{
		UserID:    userID,
		RecordID:  notif.RecordID(),
		Title:     notif.Title,
		Message:   notif.Message,
		Type:      notif.Type,
		CreatedAt: notif.CreatedAt,
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		c.logger.Error("failed to marshal notification alert", "error", err)
		return
	}

	msg := pubsub.Message{
		Topic:   TopicNotificationNew,
		UserID:  userID,
		Payload: payload,
	}
	if err := c.publisher.Publish(context.Background(), msg); err != nil {
		c.logger.Error("failed to publish notification alert", "error", err)
	}
}

// decodeNotification converts a feed payload into a domain row. The provider
// delivers rows as generic maps; tests hand the typed value straight through.
func decodeNotification(data interface{}) (*domain.Notification, bool) {
	switch v := data.(type) {
	case domain.Notification:
		return &v, true
	case *domain.Notification:
		return v, true
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	var n domain.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, false
	}
	return &n, true
}
