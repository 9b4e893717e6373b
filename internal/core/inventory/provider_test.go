package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fridge-chef/internal/pkg/common"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu        sync.Mutex
	items     map[string][]common.Ingredient
	listCalls int
	listErr   error
	// afterList 在 List 讀完資料、回傳前執行
	afterList func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[string][]common.Ingredient{}}
}

func (r *fakeRepo) List(ctx context.Context, userID string) ([]common.Ingredient, error) {
	r.mu.Lock()
	r.listCalls++
	if r.listErr != nil {
		r.mu.Unlock()
		return nil, r.listErr
	}
	items := cloneIngredients(r.items[userID])
	hook := r.afterList
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return items, nil
}

func (r *fakeRepo) Add(ctx context.Context, userID string, ing common.Ingredient) (common.Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[userID] = append(r.items[userID], ing)
	return ing, nil
}

func (r *fakeRepo) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, ing := range r.items[userID] {
		if ing.ID == id {
			r.items[userID] = append(r.items[userID][:i], r.items[userID][i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *fakeRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

func TestProviderSnapshotUsesCache(t *testing.T) {
	repo := newFakeRepo()
	repo.items["u1"] = []common.Ingredient{{ID: "a", Name: "Eggs", Quantity: 1}}
	cache := NewSnapshotCache(10, time.Minute, 0)
	defer cache.Close()
	p := NewProvider(repo, cache, nil)

	first, err := p.Snapshot(context.Background(), "u1")
	require.NoError(t, err)
	second, err := p.Snapshot(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls())
	assert.Equal(t, int64(1), cache.Stats().Hits)
}

func TestProviderSnapshotError(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("db down")
	p := NewProvider(repo, nil, nil)

	_, err := p.Snapshot(context.Background(), "u1")
	assert.Error(t, err)
}

func TestProviderAddValidatesAndInvalidates(t *testing.T) {
	repo := newFakeRepo()
	cache := NewSnapshotCache(10, time.Minute, 0)
	defer cache.Close()
	p := NewProvider(repo, cache, nil)
	ctx := context.Background()

	_, err := p.Snapshot(ctx, "u1")
	require.NoError(t, err)

	saved, err := p.Add(ctx, "u1", common.Ingredient{Name: "  Milk "})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "Milk", saved.Name)
	assert.Equal(t, 1, saved.Quantity)

	items, err := p.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, repo.calls())

	_, err = p.Add(ctx, "u1", common.Ingredient{Name: ""})
	assert.True(t, common.IsValidationError(err))
	_, err = p.Add(ctx, "u1", common.Ingredient{Name: "Salt", Quantity: -1})
	assert.True(t, common.IsValidationError(err))
	_, err = p.Add(ctx, "u1", common.Ingredient{Name: "Salt", Calories: -5})
	assert.True(t, common.IsValidationError(err))
}

func TestProviderSnapshotSkipsStaleWriteBack(t *testing.T) {
	repo := newFakeRepo()
	repo.items["u1"] = []common.Ingredient{{ID: "a", Name: "Eggs", Quantity: 1}}
	cache := NewSnapshotCache(10, time.Minute, 0)
	defer cache.Close()
	p := NewProvider(repo, cache, nil)
	ctx := context.Background()

	// 讀取完成後、寫回快取前被刪除
	repo.afterList = func() {
		repo.afterList = nil
		require.NoError(t, p.Delete(ctx, "u1", "a"))
	}

	stale, err := p.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, stale, 1)

	fresh, err := p.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, fresh)
	assert.Equal(t, 2, repo.calls())
}

func TestSnapshotCacheSetIfVersion(t *testing.T) {
	c := NewSnapshotCache(2, time.Minute, 0)
	defer c.Close()

	v := c.Version("u")
	c.Invalidate("u")
	assert.False(t, c.SetIfVersion("u", v, []common.Ingredient{{Name: "Old"}}))
	_, ok := c.Get("u")
	assert.False(t, ok)

	assert.True(t, c.SetIfVersion("u", c.Version("u"), []common.Ingredient{{Name: "New"}}))
	got, ok := c.Get("u")
	require.True(t, ok)
	assert.Equal(t, "New", got[0].Name)
}

func TestProviderDeleteMissing(t *testing.T) {
	p := NewProvider(newFakeRepo(), nil, nil)
	err := p.Delete(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestProviderSubscribePushesChanges(t *testing.T) {
	repo := newFakeRepo()
	p := NewProvider(repo, NewSnapshotCache(10, time.Minute, 0), NewMemoryBroker())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := p.Subscribe(ctx, "u1")
	require.NoError(t, err)

	select {
	case items := <-stream:
		assert.Empty(t, items)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	_, err = p.Add(ctx, "u1", common.Ingredient{ID: "x1", Name: "Broccoli"})
	require.NoError(t, err)

	select {
	case items := <-stream:
		require.Len(t, items, 1)
		assert.Equal(t, "Broccoli", items[0].Name)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after change")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-stream
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryBrokerIsolatesUsers(t *testing.T) {
	b := NewMemoryBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "u2"))
	select {
	case <-ch:
		t.Fatal("received another user's change")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, b.Publish(ctx, "u1"))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}
}

func TestRedisBroker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	b := NewRedisBroker(client)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "u1"))
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no redis notification")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSnapshotCacheExpiryAndLRU(t *testing.T) {
	c := NewSnapshotCache(2, 50*time.Millisecond, 0)
	defer c.Close()

	c.Set("a", []common.Ingredient{{Name: "A"}})
	c.Set("b", []common.Ingredient{{Name: "B"}})
	_, ok := c.Get("a")
	require.True(t, ok)

	// b 未被讀取過，應先被淘汰
	c.Set("c", []common.Ingredient{{Name: "C"}})
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get("c")
	assert.False(t, ok)
}

func TestSnapshotCacheReturnsCopies(t *testing.T) {
	c := NewSnapshotCache(2, time.Minute, 0)
	defer c.Close()

	items := []common.Ingredient{{Name: "Eggs"}}
	c.Set("u", items)
	items[0].Name = "changed"

	got, ok := c.Get("u")
	require.True(t, ok)
	assert.Equal(t, "Eggs", got[0].Name)

	got[0].Name = "mutated"
	again, _ := c.Get("u")
	assert.Equal(t, "Eggs", again[0].Name)
}
