package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

type memSnapshotCache struct {
	mu   sync.Mutex
	puts []*Snapshot
}

var _ SnapshotCache = (*memSnapshotCache)(nil)

func (c *memSnapshotCache) Put(_ context.Context, snap *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts = append(c.puts, snap)
	return nil
}

func (c *memSnapshotCache) Get(_ context.Context, month, year int) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.puts) - 1; i >= 0; i-- {
		if c.puts[i].Month == month && c.puts[i].Year == year {
			return c.puts[i], nil
		}
	}
	return nil, ErrNoSnapshot
}

func (c *memSnapshotCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.puts)
}

func TestPoller_DropsStaleGeneration(t *testing.T) {
	p := NewPoller(newTestAggregator(&stubSources{}), nil)

	newer := &Snapshot{Month: 5, TotalProducts: 2}
	older := &Snapshot{Month: 5, TotalProducts: 1}

	assert.True(t, p.store(2, newer))
	assert.False(t, p.store(1, older), "a superseded run must not overwrite")
	assert.Same(t, newer, p.Latest())

	assert.True(t, p.store(3, older))
	assert.Same(t, older, p.Latest())
}

// gatedCache blocks the first Put until release is closed.
type gatedCache struct {
	memSnapshotCache
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *gatedCache) Put(ctx context.Context, snap *Snapshot) error {
	first := false
	c.once.Do(func() { first = true })
	if first {
		close(c.entered)
		<-c.release
	}
	return c.memSnapshotCache.Put(ctx, snap)
}

func TestPoller_PublishDropsStaleGeneration(t *testing.T) {
	cache := &memSnapshotCache{}
	p := NewPoller(newTestAggregator(&stubSources{}), cache)
	ctx := context.Background()

	newer := &Snapshot{Month: 5, Year: 2024, TotalProducts: 2}
	older := &Snapshot{Month: 5, Year: 2024, TotalProducts: 1}

	assert.True(t, p.publish(ctx, 2, newer))
	assert.False(t, p.publish(ctx, 1, older))

	got, err := cache.Get(ctx, 5, 2024)
	require.NoError(t, err)
	assert.Same(t, newer, got)
	assert.Equal(t, 1, cache.count())
}

func TestPoller_CacheWritesLandInGenerationOrder(t *testing.T) {
	cache := &gatedCache{entered: make(chan struct{}), release: make(chan struct{})}
	p := NewPoller(newTestAggregator(&stubSources{}), cache)
	ctx := context.Background()

	older := &Snapshot{Month: 5, Year: 2024, TotalProducts: 1}
	newer := &Snapshot{Month: 5, Year: 2024, TotalProducts: 2}

	olderDone := make(chan struct{})
	go func() {
		p.publish(ctx, 1, older)
		close(olderDone)
	}()
	<-cache.entered

	newerDone := make(chan struct{})
	go func() {
		p.publish(ctx, 2, newer)
		close(newerDone)
	}()
	select {
	case <-newerDone:
		t.Fatal("newer write overtook a write still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(cache.release)
	<-olderDone
	<-newerDone

	got, err := cache.Get(ctx, 5, 2024)
	require.NoError(t, err)
	assert.Same(t, newer, got, "the newest generation is what the cache ends with")
}

func TestPoller_LatestNilBeforeFirstRun(t *testing.T) {
	p := NewPoller(newTestAggregator(&stubSources{}), nil)
	assert.Nil(t, p.Latest())
}

func TestPoller_SlowRunDoesNotOverwriteNewer(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	firstRelease := make(chan struct{})
	src := &stubSources{
		products: func(context.Context) ([]model.Product, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				<-firstRelease
				return []model.Product{{ID: "old"}}, nil
			}
			return []model.Product{{ID: "a"}, {ID: "b"}}, nil
		},
	}
	p := NewPoller(newTestAggregator(src, WithQueryTimeout(5*time.Second)), nil)

	ctx := context.Background()
	firstDone := make(chan struct{})
	go func() {
		p.refresh(ctx)
		close(firstDone)
	}()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, 5*time.Millisecond)

	p.refresh(ctx)
	require.NotNil(t, p.Latest())
	assert.Equal(t, 2, p.Latest().TotalProducts)

	close(firstRelease)
	<-firstDone
	assert.Equal(t, 2, p.Latest().TotalProducts, "the older generation finished last and was dropped")
}

func TestPoller_RunRefreshesAndCaches(t *testing.T) {
	cache := &memSnapshotCache{}
	p := NewPoller(newTestAggregator(fullSources()), cache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx, time.Hour)

	require.Eventually(t, func() bool { return p.Latest() != nil }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return cache.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	before := cache.count()
	p.Trigger()
	assert.Eventually(t, func() bool { return cache.count() > before }, 2*time.Second, 10*time.Millisecond)
}

func TestPoller_SetIntervalNeverBlocks(t *testing.T) {
	p := NewPoller(newTestAggregator(&stubSources{}), nil)
	done := make(chan struct{})
	go func() {
		for i := 1; i <= 5; i++ {
			p.SetInterval(time.Duration(i) * time.Second)
		}
		p.SetInterval(0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SetInterval blocked without a running poller")
	}
	assert.Equal(t, 5*time.Second, <-p.resetCh)
}
