package lobby_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playhouse-bot/go-storage"
	"github.com/playhouse-bot/go-storage/driver/dummy"
	"github.com/playhouse-bot/go-storage/lobby"
	"github.com/playhouse-bot/go-storage/marshaller"
	"github.com/playhouse-bot/go-storage/watchtx"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)} //nolint:exhaustruct
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newRegistry(t *testing.T, opts ...lobby.Option) (*lobby.Registry, *clock) {
	t.Helper()

	clk := newClock()

	reg, err := lobby.New(storage.NewStorage(dummy.New()), append([]lobby.Option{lobby.WithClock(clk.Now)}, opts...)...)
	require.NoError(t, err)

	return reg, clk
}

func TestRegistry_CreateGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for _, codec := range []string{"yaml", "msgpack"} {
		t.Run(codec, func(t *testing.T) {
			t.Parallel()

			m, ok := marshaller.ByName[lobby.Game](codec)
			require.True(t, ok)

			reg, clk := newRegistry(t, lobby.WithMarshaller(m))

			game, err := reg.Create(ctx, "chess", "alice", 2)
			require.NoError(t, err)
			assert.NotEmpty(t, game.ID)
			assert.Equal(t, []string{"alice"}, game.Players)
			assert.Equal(t, clk.Now(), game.CreatedAt)

			got, err := reg.Get(ctx, game.ID)
			require.NoError(t, err)
			assert.Equal(t, game.Name, got.Name)
			assert.Equal(t, game.Players, got.Players)
			assert.True(t, game.UpdatedAt.Equal(got.UpdatedAt))
		})
	}
}

func TestRegistry_CreateInvalid(t *testing.T) {
	t.Parallel()

	reg, _ := newRegistry(t)

	for _, tc := range []struct {
		name, host string
		max        int
	}{
		{"", "alice", 2},
		{"chess", "", 2},
		{"chess", "alice", -1},
	} {
		_, err := reg.Create(context.Background(), tc.name, tc.host, tc.max)
		require.ErrorIs(t, err, lobby.ErrInvalidGame)
	}
}

func TestRegistry_JoinLeave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg, clk := newRegistry(t)

	game, err := reg.Create(ctx, "chess", "alice", 2)
	require.NoError(t, err)

	clk.Advance(time.Minute)

	game, err = reg.Join(ctx, game.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, game.Players)
	assert.Equal(t, clk.Now(), game.UpdatedAt)

	_, err = reg.Join(ctx, game.ID, "bob")
	require.ErrorIs(t, err, lobby.ErrAlreadyJoined)

	_, err = reg.Join(ctx, game.ID, "carol")
	require.ErrorIs(t, err, lobby.ErrGameFull)

	_, err = reg.Leave(ctx, game.ID, "carol")
	require.ErrorIs(t, err, lobby.ErrNotJoined)

	game, err = reg.Leave(ctx, game.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "bob", game.Host, "host passes to the next player")

	_, err = reg.Leave(ctx, game.ID, "bob")
	require.NoError(t, err)

	_, err = reg.Get(ctx, game.ID)
	require.ErrorIs(t, err, lobby.ErrGameNotFound, "last player leaving deletes the game")
}

func TestRegistry_MissingGame(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg, _ := newRegistry(t)

	_, err := reg.Join(ctx, "missing", "bob")
	require.ErrorIs(t, err, lobby.ErrGameNotFound)
	require.ErrorIs(t, err, watchtx.ErrKeyNotFound)

	_, err = reg.Leave(ctx, "missing", "bob")
	require.ErrorIs(t, err, lobby.ErrGameNotFound)

	_, err = reg.Delete(ctx, "missing")
	require.ErrorIs(t, err, lobby.ErrGameNotFound)

	_, err = reg.Touch(ctx, "missing")
	require.ErrorIs(t, err, lobby.ErrGameNotFound)

	_, err = reg.Get(ctx, "missing")
	require.ErrorIs(t, err, lobby.ErrGameNotFound)

	_, err = reg.Join(ctx, "a/b", "bob")
	require.ErrorIs(t, err, lobby.ErrInvalidGame)

	_, err = reg.Delete(ctx, "")
	require.ErrorIs(t, err, lobby.ErrInvalidGame)
}

func TestRegistry_ListDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg, _ := newRegistry(t, lobby.WithPrefix("/lobby/"))

	first, err := reg.Create(ctx, "chess", "alice", 0)
	require.NoError(t, err)

	_, err = reg.Create(ctx, "go", "bob", 0)
	require.NoError(t, err)

	games, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, games, 2)

	deleted, err := reg.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "chess", deleted.Name)

	games, err = reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "go", games[0].Name)
}

func TestRegistry_InvalidPrefix(t *testing.T) {
	t.Parallel()

	_, err := lobby.New(storage.NewStorage(dummy.New()), lobby.WithPrefix("/games"))
	require.ErrorIs(t, err, storage.ErrInvalidPrefix)
}

func TestRegistry_Sweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg, clk := newRegistry(t)

	stale, err := reg.Create(ctx, "stale", "alice", 0)
	require.NoError(t, err)

	active, err := reg.Create(ctx, "active", "bob", 0)
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)

	_, err = reg.Touch(ctx, active.ID)
	require.NoError(t, err)

	removed, err := reg.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = reg.Get(ctx, stale.ID)
	require.ErrorIs(t, err, lobby.ErrGameNotFound)

	_, err = reg.Get(ctx, active.ID)
	require.NoError(t, err)

	removed, err = reg.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRegistry_ConcurrentJoins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg, _ := newRegistry(t)

	game, err := reg.Create(ctx, "chess", "host", 5)
	require.NoError(t, err)

	const joiners = 12

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
		full   int
	)

	for i := range joiners {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := reg.Join(ctx, game.ID, fmt.Sprintf("player-%d", i))

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				joined++
			case errors.Is(err, lobby.ErrGameFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 4, joined)
	assert.Equal(t, joiners-4, full)

	got, err := reg.Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Len(t, got.Players, 5)
}

func TestRegistry_Watch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg, _ := newRegistry(t)

	events, err := reg.Watch(ctx)
	require.NoError(t, err)

	_, err = reg.Create(context.Background(), "chess", "alice", 0)
	require.NoError(t, err)

	select {
	case event := <-events:
		assert.Equal(t, []byte(lobby.DefaultPrefix), event.Prefix)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for watch event")
	}
}
