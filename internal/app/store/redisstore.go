/*
Package store defines the document-store contract and its backends.

This file implements RedisStore, a Client backed by Redis. Documents are JSON
strings under per-document keys, collection membership is tracked in a set, and
change notifications fan out over a per-collection pub/sub channel. Merge and
Update run inside optimistic WATCH transactions, so the reaction toggle's
read-modify-write cannot lose updates to a concurrent writer.
*/
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"geochat/internal/pkg/logx"
	"geochat/internal/pkg/randx"
)

// watchRetries bounds the optimistic-transaction retry loop under contention.
const watchRetries = 16

// RedisStore is a Client backed by a Redis server.
type RedisStore struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	closed bool
}

// NewRedisStore wraps an existing Redis client. The prefix namespaces every
// key and channel so several deployments can share one server.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) docKey(collection, id string) string {
	return fmt.Sprintf("%sdoc:%s:%s", s.prefix, collection, id)
}

func (s *RedisStore) idsKey(collection string) string {
	return fmt.Sprintf("%sids:%s", s.prefix, collection)
}

func (s *RedisStore) changeChannel(collection string) string {
	return fmt.Sprintf("%schanges:%s", s.prefix, collection)
}

// publishChange notifies subscribers that the collection's content moved.
// Notification failure is logged only: subscribers re-query on the next
// change, and the write itself already succeeded.
func (s *RedisStore) publishChange(ctx context.Context, collection string) {
	if err := s.client.Publish(ctx, s.changeChannel(collection), "").Err(); err != nil {
		logx.Warn("Failed to publish change notification.", "collection", collection, "error", err.Error())
	}
}

// Get implements Client.
func (s *RedisStore) Get(ctx context.Context, collection, id string) (Document, error) {
	data, err := s.client.Get(ctx, s.docKey(collection, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("redis get: %w", err)
	}

	return Document{ID: id, Data: data}, nil
}

// Add implements Client. The identity is store-generated.
func (s *RedisStore) Add(ctx context.Context, collection string, data any) (string, error) {
	id := randx.DocID()
	if err := s.Put(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Put implements Client with overwrite semantics.
func (s *RedisStore) Put(ctx context.Context, collection, id string, data any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.docKey(collection, id), encoded, 0)
	pipe.SAdd(ctx, s.idsKey(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put: %w", err)
	}

	s.publishChange(ctx, collection)
	return nil
}

// Merge implements Client with shallow-merge semantics, inside a WATCH
// transaction so concurrent merges of disjoint fields both land.
func (s *RedisStore) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	key := s.docKey(collection, id)

	txn := func(tx *redis.Tx) error {
		body := make(map[string]any)

		current, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			if err := json.Unmarshal(current, &body); err != nil {
				return err
			}
		}

		for name, value := range fields {
			body[name] = value
		}

		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			pipe.SAdd(ctx, s.idsKey(collection), id)
			return nil
		})
		return err
	}

	if err := s.watchWithRetry(ctx, txn, key); err != nil {
		return fmt.Errorf("redis merge: %w", err)
	}

	s.publishChange(ctx, collection)
	return nil
}

// Delete implements Client. Deleting an absent document is success.
func (s *RedisStore) Delete(ctx context.Context, collection, id string) error {
	pipe := s.client.TxPipeline()
	removed := pipe.Del(ctx, s.docKey(collection, id))
	pipe.SRem(ctx, s.idsKey(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}

	if removed.Val() > 0 {
		s.publishChange(ctx, collection)
	}
	return nil
}

// Find implements Client. Redis has no server-side JSON query support here,
// so the full collection is fetched and filtered in process, matching the
// contract's linear-scan expectations.
func (s *RedisStore) Find(ctx context.Context, q Query) ([]Document, error) {
	ids, err := s.client.SMembers(ctx, s.idsKey(q.Collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis find: %w", err)
	}

	if len(ids) == 0 {
		return []Document{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(q.Collection, id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis find: %w", err)
	}

	docs := make([]Document, 0, len(ids))
	for i, value := range values {
		body, ok := value.(string)
		if !ok {
			// The id set can briefly lead the document keys during deletion.
			continue
		}
		docs = append(docs, Document{ID: ids[i], Data: json.RawMessage(body)})
	}

	return applyQuery(docs, q), nil
}

// Update implements Client. The optimistic WATCH transaction re-runs fn when
// a concurrent writer touched the key, which is what keeps toggles lossless.
func (s *RedisStore) Update(ctx context.Context, collection, id string, fn UpdateFunc) error {
	key := s.docKey(collection, id)

	txn := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		replacement, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, replacement, 0)
			return nil
		})
		return err
	}

	if err := s.watchWithRetry(ctx, txn, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("redis update: %w", err)
	}

	s.publishChange(ctx, collection)
	return nil
}

// watchWithRetry runs txn under WATCH, retrying on transaction conflicts.
func (s *RedisStore) watchWithRetry(ctx context.Context, txn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < watchRetries; i++ {
		err := s.client.Watch(ctx, txn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("transaction conflict persisted after %d attempts", watchRetries)
}

// Subscribe implements Client. Each notification on the collection's channel
// triggers a re-query; the pub/sub receive loop serializes deliveries.
func (s *RedisStore) Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (CancelFunc, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.mu.Unlock()

	pubsub := s.client.Subscribe(ctx, s.changeChannel(q.Collection))

	// Surface establishment failure once instead of retrying silently.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	initial, err := s.Find(ctx, q)
	if err != nil {
		pubsub.Close()
		return nil, err
	}

	done := make(chan struct{})
	var once sync.Once

	go func() {
		fn(initial)

		ch := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-ch:
				if !ok {
					return
				}

				snap, err := s.Find(ctx, q)
				if err != nil {
					logx.Warn("Subscription re-query failed; keeping previous snapshot.",
						"collection", q.Collection, "error", err.Error())
					continue
				}
				fn(snap)
			}
		}
	}()

	cancel := func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}

	return cancel, nil
}

// Close implements Client.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.client.Close()
}
