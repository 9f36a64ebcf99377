package realtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoh2o/portal/internal/database"
	"github.com/ecoh2o/portal/internal/domain"
	"github.com/ecoh2o/portal/internal/pubsub"
	"github.com/ecoh2o/portal/internal/realtime"
	"github.com/ecoh2o/portal/internal/testutils"
)

// fakeStore serves per-owner rows for all three collections and can delay
// list calls to provoke the stale-fetch race.
type fakeStore struct {
	mu      sync.Mutex
	orders  map[string][]domain.Order
	subs    map[string][]domain.WasteSubscription
	notifs  map[string][]domain.Notification
	delay   map[string]time.Duration // per-owner list delay
	listErr map[string]error         // per-owner list failure
	marked  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:  make(map[string][]domain.Order),
		subs:    make(map[string][]domain.WasteSubscription),
		notifs:  make(map[string][]domain.Notification),
		delay:   make(map[string]time.Duration),
		listErr: make(map[string]error),
	}
}

func (s *fakeStore) errFor(ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listErr[ownerID]
}

func (s *fakeStore) sleepFor(ownerID string) {
	s.mu.Lock()
	d := s.delay[ownerID]
	s.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
}

func (s *fakeStore) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	return order, nil
}

func (s *fakeStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	s.sleepFor(ownerID)
	if err := s.errFor(ownerID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Order(nil), s.orders[ownerID]...), nil
}

type fakeSubStore struct{ *fakeStore }

func (s fakeSubStore) Create(ctx context.Context, sub *domain.WasteSubscription) (*domain.WasteSubscription, error) {
	return sub, nil
}

func (s fakeSubStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.WasteSubscription, error) {
	s.sleepFor(ownerID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.WasteSubscription(nil), s.subs[ownerID]...), nil
}

type fakeNotifStore struct{ *fakeStore }

func (s fakeNotifStore) Create(ctx context.Context, notif *domain.Notification) (*domain.Notification, error) {
	return notif, nil
}

func (s fakeNotifStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Notification, error) {
	s.sleepFor(ownerID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.notifs[ownerID]...), nil
}

func (s fakeNotifStore) MarkRead(ctx context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, recordID)
	return nil
}

// fakeFeed records subscriptions and lets tests push events into handlers.
type fakeFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]fakeFeedSub
}

type fakeFeedSub struct {
	table   string
	handler database.FeedHandler
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{subs: make(map[string]fakeFeedSub)}
}

func (f *fakeFeed) Subscribe(ctx context.Context, table string, filter *database.FeedFilter, handler database.FeedHandler) (*database.FeedSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := string(rune('a' + f.nextID))
	f.subs[id] = fakeFeedSub{table: table, handler: handler}
	return &database.FeedSubscription{ID: id, Table: table}, nil
}

func (f *fakeFeed) Unsubscribe(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, id)
	return nil
}

func (f *fakeFeed) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// emit delivers an event to every live handler on a table, synchronously.
func (f *fakeFeed) emit(table string, ev database.Event) {
	f.mu.Lock()
	handlers := make([]database.FeedHandler, 0, len(f.subs))
	for _, sub := range f.subs {
		if sub.table == table {
			handlers = append(handlers, sub.handler)
		}
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(context.Background(), ev)
	}
}

// capturingPublisher records published messages.
type capturingPublisher struct {
	mu       sync.Mutex
	messages []pubsub.Message
}

func (p *capturingPublisher) Publish(ctx context.Context, msg pubsub.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) published() []pubsub.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pubsub.Message(nil), p.messages...)
}

type coordFixture struct {
	coord     *realtime.Coordinator
	store     *fakeStore
	feed      *fakeFeed
	publisher *capturingPublisher
}

func newCoordFixture(t *testing.T) *coordFixture {
	t.Helper()
	store := newFakeStore()
	feed := newFakeFeed()
	publisher := &capturingPublisher{}
	coord := realtime.NewCoordinator(store, fakeSubStore{store}, fakeNotifStore{store}, feed, publisher)
	return &coordFixture{coord: coord, store: store, feed: feed, publisher: publisher}
}

func identityFor(id string) domain.Identity {
	return domain.Identity{ID: id, Email: id + "@example.com"}
}

func notifFor(owner, title string, read bool) domain.Notification {
	return domain.Notification{
		ID:        testutils.NewTestRecordID("notifications"),
		OwnerID:   owner,
		Title:     title,
		Message:   title,
		Type:      domain.NotificationTypeInfo,
		IsRead:    read,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func TestCoordinator_StartAppliesBulkFetch(t *testing.T) {
	f := newCoordFixture(t)
	owner := identityFor("user:amina")

	f.store.orders[owner.ID] = []domain.Order{{OwnerID: owner.ID, Product: "Bidon 20L", Quantity: 2, UnitPrice: 1500, TotalPrice: 3000}}
	f.store.subs[owner.ID] = []domain.WasteSubscription{{OwnerID: owner.ID, SubscriptionType: "Premium", Price: 25000}}
	f.store.notifs[owner.ID] = []domain.Notification{notifFor(owner.ID, "Bienvenue", false)}

	require.NoError(t, f.coord.Start(context.Background(), owner))

	orders := f.coord.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "Bidon 20L", orders[0].Product)
	assert.Equal(t, 3000, orders[0].TotalPrice)
	assert.Len(t, f.coord.Subscriptions(), 1)
	assert.Len(t, f.coord.Notifications(), 1)
	assert.Equal(t, 1, f.coord.UnreadCount())
	assert.Equal(t, 2, f.feed.active(), "orders and notifications feeds must both be live")
}

func TestCoordinator_StopReleasesEverything(t *testing.T) {
	f := newCoordFixture(t)
	owner := identityFor("user:amina")
	f.store.notifs[owner.ID] = []domain.Notification{notifFor(owner.ID, "Bienvenue", false)}

	require.NoError(t, f.coord.Start(context.Background(), owner))
	f.coord.Stop()

	assert.Empty(t, f.coord.Orders())
	assert.Empty(t, f.coord.Subscriptions())
	assert.Empty(t, f.coord.Notifications())
	assert.Zero(t, f.feed.active(), "feed handles must be released")

	// Idempotent, including on a never-started instance.
	f.coord.Stop()
	newCoordFixture(t).coord.Stop()
}

func TestCoordinator_RescopeDiscardsStaleFetch(t *testing.T) {
	f := newCoordFixture(t)
	alice := identityFor("user:alice")
	bob := identityFor("user:bob")

	f.store.notifs[alice.ID] = []domain.Notification{notifFor(alice.ID, "Pour Alice", false)}
	f.store.notifs[bob.ID] = []domain.Notification{notifFor(bob.ID, "Pour Bob", false)}
	f.store.mu.Lock()
	f.store.delay[alice.ID] = 100 * time.Millisecond
	f.store.mu.Unlock()

	// Alice's fetch is slow; re-scope to Bob while it is still in flight.
	done := make(chan struct{})
	go func() {
		f.coord.Start(context.Background(), alice)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, f.coord.Start(context.Background(), bob))
	<-done

	// Alice's late rows must never surface in Bob's scope.
	notifs := f.coord.Notifications()
	require.Len(t, notifs, 1)
	assert.Equal(t, bob.ID, notifs[0].OwnerID)
	assert.Equal(t, "Pour Bob", notifs[0].Title)

	// Only Bob's two feed handles may remain live.
	assert.Equal(t, 2, f.feed.active())
}

func TestCoordinator_FailedRescopeLeavesNoStaleRows(t *testing.T) {
	f := newCoordFixture(t)
	alice := identityFor("user:alice")
	bob := identityFor("user:bob")

	f.store.orders[alice.ID] = []domain.Order{{OwnerID: alice.ID, Product: "Bidon 20L", Quantity: 2, UnitPrice: 1500, TotalPrice: 3000}}
	f.store.notifs[alice.ID] = []domain.Notification{notifFor(alice.ID, "Pour Alice", false)}

	require.NoError(t, f.coord.Start(context.Background(), alice))
	require.Len(t, f.coord.Orders(), 1)

	// Bob's bulk fetch fails mid re-scope. The old scope is already gone at
	// that point, so nothing of Alice's may remain visible.
	f.store.mu.Lock()
	f.store.listErr[bob.ID] = errors.New("connection reset")
	f.store.mu.Unlock()

	err := f.coord.Start(context.Background(), bob)
	require.Error(t, err)

	assert.Empty(t, f.coord.Orders())
	assert.Empty(t, f.coord.Subscriptions())
	assert.Empty(t, f.coord.Notifications())
	assert.Zero(t, f.coord.UnreadCount())
}

func TestCoordinator_OrderChangeTriggersRefetch(t *testing.T) {
	f := newCoordFixture(t)
	owner := identityFor("user:amina")
	f.store.orders[owner.ID] = []domain.Order{{OwnerID: owner.ID, Product: "Bidon 10L", Quantity: 1}}

	require.NoError(t, f.coord.Start(context.Background(), owner))
	require.Len(t, f.coord.Orders(), 1)

	// Status flip by the delivery crew: any event kind re-fetches in full.
	f.store.mu.Lock()
	f.store.orders[owner.ID] = []domain.Order{{OwnerID: owner.ID, Product: "Bidon 10L", Quantity: 1, Status: domain.OrderStatusDelivering}}
	f.store.mu.Unlock()

	f.feed.emit(database.TableOrders, database.Event{Kind: database.EventUpdate})

	orders := f.coord.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderStatusDelivering, orders[0].Status)
}

func TestCoordinator_NotificationInsertPrependsAndAlerts(t *testing.T) {
	f := newCoordFixture(t)
	owner := identityFor("user:amina")
	f.store.notifs[owner.ID] = []domain.Notification{notifFor(owner.ID, "Ancienne", true)}

	require.NoError(t, f.coord.Start(context.Background(), owner))

	fresh := notifFor(owner.ID, "Commande confirmée !", false)
	f.feed.emit(database.TableNotifications, database.Event{Kind: database.EventInsert, Data: fresh})

	notifs := f.coord.Notifications()
	require.Len(t, notifs, 2)
	assert.Equal(t, "Commande confirmée !", notifs[0].Title, "insert must be prepended")
	assert.Equal(t, "Ancienne", notifs[1].Title)
	assert.Equal(t, 1, f.coord.UnreadCount())

	msgs := f.publisher.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, realtime.TopicNotificationNew, msgs[0].Topic)
	assert.Equal(t, owner.ID, msgs[0].UserID)

	var alert realtime.NotificationAlert
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &alert))
	assert.Equal(t, fresh.RecordID(), alert.RecordID)
	assert.Equal(t, "Commande confirmée !", alert.Title)
}

func TestCoordinator_NotificationUpdateIsIgnored(t *testing.T) {
	f := newCoordFixture(t)
	owner := identityFor("user:amina")

	require.NoError(t, f.coord.Start(context.Background(), owner))

	f.feed.emit(database.TableNotifications, database.Event{Kind: database.EventUpdate, Data: notifFor(owner.ID, "Modifiée", false)})

	assert.Empty(t, f.coord.Notifications())
	assert.Empty(t, f.publisher.published())
}

func TestCoordinator_StaleFeedEventDropped(t *testing.T) {
	f := newCoordFixture(t)
	alice := identityFor("user:alice")
	bob := identityFor("user:bob")

	require.NoError(t, f.coord.Start(context.Background(), alice))

	// Capture Alice's handler, then re-scope to Bob. The captured handler
	// belongs to the dead scope.
	f.feed.mu.Lock()
	var aliceHandler database.FeedHandler
	for _, sub := range f.feed.subs {
		if sub.table == database.TableNotifications {
			aliceHandler = sub.handler
		}
	}
	f.feed.mu.Unlock()
	require.NotNil(t, aliceHandler)

	require.NoError(t, f.coord.Start(context.Background(), bob))

	aliceHandler(context.Background(), database.Event{Kind: database.EventInsert, Data: notifFor(alice.ID, "Pour Alice", false)})

	assert.Empty(t, f.coord.Notifications(), "a dead scope's event must not be applied")
	assert.Empty(t, f.publisher.published())
}

func TestCoordinator_MarkRead(t *testing.T) {
	t.Run("flips locally and persists", func(t *testing.T) {
		f := newCoordFixture(t)
		owner := identityFor("user:amina")
		n := notifFor(owner.ID, "Bienvenue", false)
		f.store.notifs[owner.ID] = []domain.Notification{n}

		require.NoError(t, f.coord.Start(context.Background(), owner))
		f.coord.MarkRead(context.Background(), n.RecordID())

		assert.Zero(t, f.coord.UnreadCount())
		f.store.mu.Lock()
		marked := append([]string(nil), f.store.marked...)
		f.store.mu.Unlock()
		assert.Equal(t, []string{n.RecordID()}, marked)
	})

	t.Run("is idempotent", func(t *testing.T) {
		f := newCoordFixture(t)
		owner := identityFor("user:amina")
		n := notifFor(owner.ID, "Bienvenue", false)
		f.store.notifs[owner.ID] = []domain.Notification{n}

		require.NoError(t, f.coord.Start(context.Background(), owner))
		f.coord.MarkRead(context.Background(), n.RecordID())
		f.coord.MarkRead(context.Background(), n.RecordID())

		f.store.mu.Lock()
		writes := len(f.store.marked)
		f.store.mu.Unlock()
		assert.Equal(t, 1, writes, "an already-read row must not be persisted again")
	})

	t.Run("ignores unknown ids silently", func(t *testing.T) {
		f := newCoordFixture(t)
		owner := identityFor("user:amina")
		require.NoError(t, f.coord.Start(context.Background(), owner))

		f.coord.MarkRead(context.Background(), "notifications:missing")

		f.store.mu.Lock()
		writes := len(f.store.marked)
		f.store.mu.Unlock()
		assert.Zero(t, writes)
	})
}

func TestCoordinator_UndecodableInsertFallsBackToRefetch(t *testing.T) {
	f := newCoordFixture(t)
	owner := identityFor("user:amina")

	require.NoError(t, f.coord.Start(context.Background(), owner))

	// Swap in the canonical store contents the re-fetch should surface.
	f.store.mu.Lock()
	f.store.notifs[owner.ID] = []domain.Notification{notifFor(owner.ID, "Depuis le re-fetch", false)}
	f.store.mu.Unlock()

	f.feed.emit(database.TableNotifications, database.Event{Kind: database.EventInsert, Data: make(chan int)})

	notifs := f.coord.Notifications()
	require.Len(t, notifs, 1)
	assert.Equal(t, "Depuis le re-fetch", notifs[0].Title)
}
