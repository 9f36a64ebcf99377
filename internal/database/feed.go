package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// EventKind classifies a row-level change delivered by the feed.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

// Event is one row-level change. Data holds the raw row payload as delivered
// by the provider; delivery ordering across distinct rows is not guaranteed.
type Event struct {
	Kind EventKind
	Data interface{}
}

// FeedHandler is called for each change event on a subscription.
type FeedHandler func(ctx context.Context, ev Event)

// FeedFilter restricts a subscription to matching rows.
type FeedFilter struct {
	Where  string         // SurrealQL WHERE clause
	Params map[string]any // Query parameters
}

// FeedSubscription is the handle for an active change-feed subscription.
type FeedSubscription struct {
	ID    string
	Table string
}

// ChangeFeed provides row-level change subscriptions keyed by table + filter.
type ChangeFeed interface {
	// Subscribe opens a live subscription on a table, optionally filtered.
	Subscribe(ctx context.Context, table string, filter *FeedFilter, handler FeedHandler) (*FeedSubscription, error)
	// Unsubscribe releases a subscription. Unknown ids are a no-op.
	Unsubscribe(subID string) error
}

// SurrealChangeFeed implements ChangeFeed using SurrealDB LIVE SELECT queries.
type SurrealChangeFeed struct {
	db *surrealdb.DB

	subscriptions sync.Map // map[string]*feedState
}

type feedState struct {
	id          string
	table       string
	handler     FeedHandler
	cancel      context.CancelFunc
	liveQueryID string
}

// NewSurrealChangeFeed creates a change feed backed by the given connection.
func NewSurrealChangeFeed(db *surrealdb.DB) *SurrealChangeFeed {
	return &SurrealChangeFeed{db: db}
}

// Subscribe opens a LIVE SELECT on the table and streams its notifications to
// the handler until Unsubscribe is called or the parent context is done.
func (f *SurrealChangeFeed) Subscribe(ctx context.Context, table string, filter *FeedFilter, handler FeedHandler) (*FeedSubscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	query := fmt.Sprintf("LIVE SELECT * FROM %s", table)
	params := map[string]any{}
	if filter != nil {
		if filter.Where != "" {
			query = fmt.Sprintf("%s WHERE %s", query, filter.Where)
		}
		for k, v := range filter.Params {
			params[k] = v
		}
	}

	subID := uuid.New().String()
	subCtx, cancel := context.WithCancel(context.Background())
	state := &feedState{
		id:      subID,
		table:   table,
		handler: handler,
		cancel:  cancel,
	}
	f.subscriptions.Store(subID, state)

	liveQueryID, err := f.startLiveQuery(ctx, query, params)
	if err != nil {
		cancel()
		f.subscriptions.Delete(subID)
		return nil, fmt.Errorf("failed to start live query: %w", err)
	}
	state.liveQueryID = liveQueryID

	notifications, err := f.db.LiveNotifications(liveQueryID)
	if err != nil {
		cancel()
		f.subscriptions.Delete(subID)
		return nil, fmt.Errorf("failed to get notification channel: %w", err)
	}

	slog.Info("Change feed subscription established", "subID", subID, "table", table, "liveQueryID", liveQueryID)

	go f.listen(subCtx, state, notifications)
	go f.cleanupOnCancel(subCtx, state)

	return &FeedSubscription{ID: subID, Table: table}, nil
}

// Unsubscribe releases a subscription. Safe to call more than once.
func (f *SurrealChangeFeed) Unsubscribe(subID string) error {
	if state, ok := f.subscriptions.Load(subID); ok {
		state.(*feedState).cancel()
		f.subscriptions.Delete(subID)
		slog.Info("Change feed subscription removed", "subID", subID)
	}
	return nil
}

func (f *SurrealChangeFeed) startLiveQuery(ctx context.Context, query string, params map[string]any) (string, error) {
	results, err := surrealdb.Query[interface{}](ctx, f.db, query, params)
	if err != nil {
		return "", fmt.Errorf("failed to execute live query: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return "", fmt.Errorf("live query returned no results")
	}

	result := (*results)[0]
	if result.Status != "OK" {
		return "", fmt.Errorf("live query failed with status: %s", result.Status)
	}

	// The result holds the live query UUID; the driver's representation has
	// varied between a bare string and a models.UUID.
	switch v := result.Result.(type) {
	case string:
		return v, nil
	case models.UUID:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unexpected live query result type: %T", result.Result)
	}
}

func (f *SurrealChangeFeed) listen(ctx context.Context, state *feedState, notifications <-chan connection.Notification) {
	defer f.subscriptions.Delete(state.id)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Change feed listener cancelled", "subID", state.id)
			return

		case notification, ok := <-notifications:
			if !ok {
				slog.Debug("Change feed channel closed", "subID", state.id)
				return
			}

			var kind EventKind
			switch notification.Action {
			case connection.CreateAction:
				kind = EventInsert
			case connection.UpdateAction:
				kind = EventUpdate
			case connection.DeleteAction:
				kind = EventDelete
			default:
				slog.Warn("Unknown feed action", "subID", state.id, "action", notification.Action)
				continue
			}

			ev := Event{Kind: kind, Data: notification.Result}

			// Run the handler outside the receive loop so a slow consumer
			// can't back up the notification channel.
			go func() {
				defer func() {
					if r := recover(); r != nil {
						slog.Error("Panic in change feed handler", "subID", state.id, "panic", r)
					}
				}()
				state.handler(ctx, ev)
			}()
		}
	}
}

// cleanupOnCancel kills the live query on the database side once the
// subscription context is cancelled, on every exit path.
func (f *SurrealChangeFeed) cleanupOnCancel(ctx context.Context, state *feedState) {
	<-ctx.Done()
	if state.liveQueryID == "" {
		return
	}

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := f.db.CloseLiveNotifications(state.liveQueryID); err != nil {
		slog.Warn("Failed to close live notifications", "error", err, "liveQueryID", state.liveQueryID)
	}

	err := Execute(cleanupCtx, f.db, "KILL $liveQueryID", map[string]any{"liveQueryID": state.liveQueryID})
	if err != nil {
		slog.Warn("Failed to kill live query", "error", err, "liveQueryID", state.liveQueryID)
	}
}
