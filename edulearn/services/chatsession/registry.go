package chatsession

import (
	"context"
	"time"

	"edulearn/edulearn/services/auth"
	"edulearn/edulearn/utils/logging"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Registry keeps one Store per signed-in owner and drops it after idleTTL
// without use.
type Registry struct {
	entries  *cache.Cache
	newStore func() *Store
}

type registryEntry struct {
	provider    *auth.Provider
	store       *Store
	unsubscribe func()
	ready       chan struct{}
}

func NewRegistry(idleTTL time.Duration, newStore func() *Store) *Registry {
	cleanup := idleTTL / 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	r := &Registry{
		entries:  cache.New(idleTTL, cleanup),
		newStore: newStore,
	}
	r.entries.OnEvicted(func(ownerID string, v interface{}) {
		e := v.(*registryEntry)
		e.provider.SignOut(context.Background())
		e.unsubscribe()
		logging.AppLogger.Info("session store released", zap.String("owner", ownerID))
	})
	return r
}

// Open returns the owner's store, signing u in and loading their sessions on
// first use.
func (r *Registry) Open(ctx context.Context, u auth.User) (*Store, error) {
	if u.ID == "" {
		return nil, opErr("open", "", ErrAuthRequired, nil)
	}
	for {
		if v, ok := r.entries.Get(u.ID); ok {
			e := v.(*registryEntry)
			r.entries.SetDefault(u.ID, e)
			return e.wait(ctx)
		}
		store := r.newStore()
		provider := auth.NewProvider()
		e := &registryEntry{
			provider:    provider,
			store:       store,
			unsubscribe: store.Follow(provider),
			ready:       make(chan struct{}),
		}
		if err := r.entries.Add(u.ID, e, cache.DefaultExpiration); err != nil {
			e.unsubscribe()
			continue
		}
		provider.SignIn(ctx, u)
		close(e.ready)
		return store, nil
	}
}

// Get returns the owner's store without creating one.
func (r *Registry) Get(ownerID string) (*Store, bool) {
	v, ok := r.entries.Get(ownerID)
	if !ok {
		return nil, false
	}
	return v.(*registryEntry).store, true
}

// Close signs the owner out and forgets their store.
func (r *Registry) Close(ownerID string) {
	r.entries.Delete(ownerID)
}

func (r *Registry) Len() int {
	return r.entries.ItemCount()
}

func (e *registryEntry) wait(ctx context.Context) (*Store, error) {
	select {
	case <-e.ready:
		return e.store, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
