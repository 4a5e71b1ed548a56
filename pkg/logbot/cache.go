package logbot

import (
	"container/list"
	"context"
	"encoding/json"
	"iter"
	"sync"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/s3client"
)

type cacheKey struct {
	group snowflake.ID
	id    snowflake.ID
}

type cacheEntry[T any] struct {
	value T
	elem  *list.Element
}

var _ cache.GroupedCache[discord.Message] = (*cappedCache[discord.Message])(nil)

// cappedCache is a grouped cache that drops the oldest insert once it holds
// more than limit entities. Updating an entity keeps its age.
type cappedCache[T any] struct {
	mu     sync.RWMutex
	groups map[snowflake.ID]map[snowflake.ID]*cacheEntry[T]
	order  *list.List
	limit  int
}

func newCappedCache[T any](limit int) *cappedCache[T] {
	return &cappedCache[T]{
		groups: make(map[snowflake.ID]map[snowflake.ID]*cacheEntry[T]),
		order:  list.New(),
		limit:  limit,
	}
}

func (c *cappedCache[T]) Get(groupID snowflake.ID, id snowflake.ID) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.groups[groupID][id]; ok {
		return e.value, true
	}
	var zero T
	return zero, false
}

func (c *cappedCache[T]) Put(groupID snowflake.ID, id snowflake.ID, entity T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(groupID, id, entity)
}

func (c *cappedCache[T]) put(groupID, id snowflake.ID, entity T) {
	group, ok := c.groups[groupID]
	if !ok {
		group = make(map[snowflake.ID]*cacheEntry[T])
		c.groups[groupID] = group
	}
	if e, ok := group[id]; ok {
		e.value = entity
		return
	}
	group[id] = &cacheEntry[T]{
		value: entity,
		elem:  c.order.PushBack(cacheKey{group: groupID, id: id}),
	}
	for c.order.Len() > c.limit {
		oldest := c.order.Front().Value.(cacheKey)
		c.remove(oldest.group, oldest.id)
	}
}

// remove drops one entity. c.mu must be held.
func (c *cappedCache[T]) remove(groupID, id snowflake.ID) (T, bool) {
	group := c.groups[groupID]
	e, ok := group[id]
	if !ok {
		var zero T
		return zero, false
	}
	c.order.Remove(e.elem)
	delete(group, id)
	if len(group) == 0 {
		delete(c.groups, groupID)
	}
	return e.value, true
}

func (c *cappedCache[T]) Remove(groupID snowflake.ID, id snowflake.ID) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remove(groupID, id)
}

func (c *cappedCache[T]) GroupRemove(groupID snowflake.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.groups[groupID] {
		c.remove(groupID, id)
	}
}

func (c *cappedCache[T]) RemoveIf(filterFunc cache.GroupedFilterFunc[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for groupID, group := range c.groups {
		for id, e := range group {
			if filterFunc(groupID, e.value) {
				c.remove(groupID, id)
			}
		}
	}
}

func (c *cappedCache[T]) GroupRemoveIf(groupID snowflake.ID, filterFunc cache.GroupedFilterFunc[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.groups[groupID] {
		if filterFunc(groupID, e.value) {
			c.remove(groupID, id)
		}
	}
}

func (c *cappedCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

func (c *cappedCache[T]) GroupLen(groupID snowflake.ID) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.groups[groupID])
}

func (c *cappedCache[T]) All() iter.Seq2[snowflake.ID, T] {
	return func(yield func(snowflake.ID, T) bool) {
		c.mu.RLock()
		defer c.mu.RUnlock()
		for groupID, group := range c.groups {
			for _, e := range group {
				if !yield(groupID, e.value) {
					return
				}
			}
		}
	}
}

func (c *cappedCache[T]) GroupAll(groupID snowflake.ID) iter.Seq[T] {
	return func(yield func(T) bool) {
		c.mu.RLock()
		defer c.mu.RUnlock()
		for _, e := range c.groups[groupID] {
			if !yield(e.value) {
				return
			}
		}
	}
}

// snapshot returns the cached entities, oldest first.
func (c *cappedCache[T]) snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]T, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		key := el.Value.(cacheKey)
		items = append(items, c.groups[key.group][key.id].value)
	}
	return items
}

// restore replaces the contents with items, oldest first.
func (c *cappedCache[T]) restore(items []T, key func(T) (groupID, id snowflake.ID)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = make(map[snowflake.ID]map[snowflake.ID]*cacheEntry[T])
	c.order.Init()
	for _, item := range items {
		groupID, id := key(item)
		c.put(groupID, id, item)
	}
}

func messageKey(m discord.Message) (snowflake.ID, snowflake.ID) {
	return m.ChannelID, m.ID
}

func snapshotKey(name string) string {
	return "messagecache/" + name + ".json"
}

// loadMessageCache restores the cache snapshot. A missing snapshot leaves
// the cache empty.
func (b *Bot) loadMessageCache(ctx context.Context) error {
	data, err := b.S3.Fetch(ctx, snapshotKey(b.name))
	if errors.Is(err, s3client.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var msgs []discord.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return errors.WrapIf(err, "decoding message cache")
	}
	b.msgCache.restore(msgs, messageKey)
	b.Log.Info("Loaded message cache", "count", len(msgs))
	return nil
}

func (b *Bot) saveMessageCache(ctx context.Context) error {
	msgs := b.msgCache.snapshot()
	data, err := json.Marshal(msgs)
	if err != nil {
		return errors.WrapIf(err, "encoding message cache")
	}
	if err := b.S3.Save(ctx, snapshotKey(b.name), data); err != nil {
		return err
	}
	b.Log.Debug("Saved message cache", "count", len(msgs), "bytes", len(data))
	return nil
}
