// Package lobby keeps game lobby records in a transactional key-value store.
// Every change to an existing game goes through a watched transaction on the
// game's key, so concurrent joins and leaves never overwrite each other.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/playhouse-bot/go-storage"
	"github.com/playhouse-bot/go-storage/internal/options"
	"github.com/playhouse-bot/go-storage/kv"
	"github.com/playhouse-bot/go-storage/marshaller"
	"github.com/playhouse-bot/go-storage/operation"
	"github.com/playhouse-bot/go-storage/predicate"
	"github.com/playhouse-bot/go-storage/watch"
	"github.com/playhouse-bot/go-storage/watchtx"
)

// Game is a lobby record.
type Game struct {
	ID         string    `msgpack:"id"          yaml:"id"`
	Name       string    `msgpack:"name"        yaml:"name"`
	Host       string    `msgpack:"host"        yaml:"host"`
	Players    []string  `msgpack:"players"     yaml:"players"`
	MaxPlayers int       `msgpack:"max_players" yaml:"max_players"`
	CreatedAt  time.Time `msgpack:"created_at"  yaml:"created_at"`
	UpdatedAt  time.Time `msgpack:"updated_at"  yaml:"updated_at"`
}

// Full reports whether every seat is taken. Zero MaxPlayers means unlimited.
func (g Game) Full() bool {
	return g.MaxPlayers > 0 && len(g.Players) >= g.MaxPlayers
}

type seatArgs struct {
	id     string
	player string
}

// Registry stores games under a key prefix.
type Registry struct {
	storage storage.Storage
	prefix  string
	codec   marshaller.TypedMarshaller[Game]
	now     func() time.Time
	logger  *zap.Logger

	join   func(ctx context.Context, args seatArgs) (Game, error)
	leave  func(ctx context.Context, args seatArgs) (Game, error)
	remove func(ctx context.Context, args watchtx.Args) (Game, error)
	touch  func(ctx context.Context, args watchtx.Args) (Game, error)
	sweep  func(ctx context.Context, args sweepArgs) (bool, error)
}

type sweepArgs struct {
	key    []byte
	cutoff time.Time
}

// New creates a Registry over strg.
func New(strg storage.Storage, opts ...Option) (*Registry, error) {
	cfg := options.ApplyOptions(defaultConfig, opts)

	if !operation.IsPrefix([]byte(cfg.prefix)) || cfg.prefix == "" {
		return nil, fmt.Errorf("%w: prefix %q must end with /", storage.ErrInvalidPrefix, cfg.prefix)
	}

	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	watcher, err := watchtx.New(strg, append(slices.Clone(cfg.watchOpts),
		watchtx.WithNotFoundError(ErrGameNotFound),
		watchtx.WithLogger(cfg.logger.Named("watchtx")),
	)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	r := &Registry{
		storage: strg,
		prefix:  cfg.prefix,
		codec:   cfg.codec,
		now:     cfg.now,
		logger:  cfg.logger,
	}

	seatKey := watchtx.Prefixed(r.prefix, func(args seatArgs) ([]byte, error) {
		return gameID(args.id)
	})
	idSignature := watchtx.NewSignature("game_id")
	idKey := watchtx.Prefixed(r.prefix, idSignature.Key("game_id"))

	r.join = watchtx.Wrap(watcher, seatKey, r.joinTx)
	r.leave = watchtx.Wrap(watcher, seatKey, r.leaveTx)
	r.remove = watchtx.Wrap(watcher, idKey, r.removeTx)
	r.touch = watchtx.Wrap(watcher, idKey, r.touchTx)
	r.sweep = watchtx.Wrap(watcher, func(args sweepArgs) ([]byte, error) { return args.key, nil }, r.sweepTx)

	return r, nil
}

func gameID(id string) ([]byte, error) {
	if id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("%w: game id %q", ErrInvalidGame, id)
	}

	return []byte(id), nil
}

func (r *Registry) key(id string) []byte {
	return []byte(r.prefix + id)
}

func (r *Registry) decode(record kv.KeyValue) (Game, error) {
	game, err := r.codec.Unmarshal(record.Value)
	if err != nil {
		return Game{}, fmt.Errorf("failed to decode game %q: %w", record.Key, err)
	}

	return game, nil
}

// Create stores a new game hosted by host, who takes the first seat.
func (r *Registry) Create(ctx context.Context, name, host string, maxPlayers int) (Game, error) {
	switch {
	case name == "":
		return Game{}, fmt.Errorf("%w: empty name", ErrInvalidGame)
	case host == "":
		return Game{}, fmt.Errorf("%w: empty host", ErrInvalidGame)
	case maxPlayers < 0:
		return Game{}, fmt.Errorf("%w: negative max players", ErrInvalidGame)
	}

	now := r.now().UTC()
	game := Game{
		ID:         uuid.NewString(),
		Name:       name,
		Host:       host,
		Players:    []string{host},
		MaxPlayers: maxPlayers,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	data, err := r.codec.Marshal(game)
	if err != nil {
		return Game{}, fmt.Errorf("failed to encode game: %w", err)
	}

	key := r.key(game.ID)

	resp, err := r.storage.Tx(ctx).
		If(predicate.VersionEqual(key, 0)).
		Then(operation.Put(key, data)).
		Commit()

	switch {
	case err != nil:
		return Game{}, fmt.Errorf("failed to create game: %w", err)
	case !resp.Succeeded:
		return Game{}, fmt.Errorf("%w: %s", ErrGameExists, game.ID)
	}

	r.logger.Info("game created", zap.String("game_id", game.ID), zap.String("host", host))

	return game, nil
}

// Get returns the game with the given id.
func (r *Registry) Get(ctx context.Context, id string) (Game, error) {
	if _, err := gameID(id); err != nil {
		return Game{}, err
	}

	resp, err := r.storage.Tx(ctx).Then(operation.Get(r.key(id))).Commit()
	if err != nil {
		return Game{}, fmt.Errorf("failed to get game: %w", err)
	}

	record, ok := kv.Find(resp.Values(), r.key(id))
	if !ok {
		return Game{}, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}

	return r.decode(record)
}

// List returns every game ordered by key.
func (r *Registry) List(ctx context.Context) ([]Game, error) {
	records, err := r.storage.Range(ctx, storage.WithPrefix(r.prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	games := make([]Game, 0, len(records))

	for _, record := range records {
		game, err := r.decode(record)
		if err != nil {
			return nil, err
		}

		games = append(games, game)
	}

	return games, nil
}

// Join seats player in the game.
func (r *Registry) Join(ctx context.Context, id, player string) (Game, error) {
	if player == "" {
		return Game{}, fmt.Errorf("%w: empty player", ErrInvalidGame)
	}

	return r.join(ctx, seatArgs{id: id, player: player})
}

// Leave removes player from the game. The next player becomes host when the
// host leaves; the game is deleted when its last player leaves.
func (r *Registry) Leave(ctx context.Context, id, player string) (Game, error) {
	return r.leave(ctx, seatArgs{id: id, player: player})
}

// Delete removes the game and returns its last state.
func (r *Registry) Delete(ctx context.Context, id string) (Game, error) {
	if _, err := gameID(id); err != nil {
		return Game{}, err
	}

	return r.remove(ctx, watchtx.Named("game_id", id))
}

// Touch marks the game as active now.
func (r *Registry) Touch(ctx context.Context, id string) (Game, error) {
	if _, err := gameID(id); err != nil {
		return Game{}, err
	}

	return r.touch(ctx, watchtx.Positional(id))
}

// Sweep deletes games idle for longer than maxIdle and returns how many were
// removed. A game touched while the sweep runs is kept.
func (r *Registry) Sweep(ctx context.Context, maxIdle time.Duration) (int, error) {
	records, err := r.storage.Range(ctx, storage.WithPrefix(r.prefix))
	if err != nil {
		return 0, fmt.Errorf("failed to list games: %w", err)
	}

	cutoff := r.now().UTC().Add(-maxIdle)
	removed := 0

	for _, record := range records {
		deleted, err := r.sweep(ctx, sweepArgs{key: record.Key, cutoff: cutoff})

		switch {
		case errors.Is(err, ErrGameNotFound):
			continue
		case err != nil:
			return removed, err
		case deleted:
			removed++
		}
	}

	if removed > 0 {
		r.logger.Info("idle games swept", zap.Int("removed", removed), zap.Duration("max_idle", maxIdle))
	}

	return removed, nil
}

// Watch streams an event whenever any game changes, until ctx is done.
func (r *Registry) Watch(ctx context.Context) (<-chan watch.Event, error) {
	events, err := r.storage.Watch(ctx, []byte(r.prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to watch games: %w", err)
	}

	return events, nil
}

func (r *Registry) current(txn *watchtx.Txn) (Game, error) {
	record, ok, err := txn.Get(txn.Key())
	if err != nil {
		return Game{}, err
	}

	if !ok {
		return Game{}, fmt.Errorf("%w: %s", watchtx.ErrConflict, txn.Key())
	}

	return r.decode(record)
}

func (r *Registry) save(txn *watchtx.Txn, game Game) (Game, error) {
	game.UpdatedAt = r.now().UTC()

	data, err := r.codec.Marshal(game)
	if err != nil {
		return Game{}, fmt.Errorf("failed to encode game: %w", err)
	}

	txn.Put(txn.Key(), data)

	return game, nil
}

func (r *Registry) joinTx(_ context.Context, txn *watchtx.Txn, args seatArgs) (Game, error) {
	game, err := r.current(txn)
	if err != nil {
		return Game{}, err
	}

	switch {
	case slices.Contains(game.Players, args.player):
		return Game{}, fmt.Errorf("%w: %s in %s", ErrAlreadyJoined, args.player, game.ID)
	case game.Full():
		return Game{}, fmt.Errorf("%w: %s", ErrGameFull, game.ID)
	}

	game.Players = append(game.Players, args.player)

	return r.save(txn, game)
}

func (r *Registry) leaveTx(_ context.Context, txn *watchtx.Txn, args seatArgs) (Game, error) {
	game, err := r.current(txn)
	if err != nil {
		return Game{}, err
	}

	idx := slices.Index(game.Players, args.player)
	if idx < 0 {
		return Game{}, fmt.Errorf("%w: %s in %s", ErrNotJoined, args.player, game.ID)
	}

	game.Players = slices.Delete(game.Players, idx, idx+1)

	if len(game.Players) == 0 {
		txn.Delete(txn.Key())
		return game, nil
	}

	if game.Host == args.player {
		game.Host = game.Players[0]
	}

	return r.save(txn, game)
}

func (r *Registry) removeTx(_ context.Context, txn *watchtx.Txn, _ watchtx.Args) (Game, error) {
	game, err := r.current(txn)
	if err != nil {
		return Game{}, err
	}

	txn.Delete(txn.Key())

	return game, nil
}

func (r *Registry) touchTx(_ context.Context, txn *watchtx.Txn, _ watchtx.Args) (Game, error) {
	game, err := r.current(txn)
	if err != nil {
		return Game{}, err
	}

	return r.save(txn, game)
}

func (r *Registry) sweepTx(_ context.Context, txn *watchtx.Txn, args sweepArgs) (bool, error) {
	game, err := r.current(txn)
	if err != nil {
		return false, err
	}

	if !game.UpdatedAt.Before(args.cutoff) {
		return false, nil
	}

	txn.Delete(txn.Key())

	return true, nil
}
