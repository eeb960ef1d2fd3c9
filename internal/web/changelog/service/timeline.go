package service

import (
	"context"
	"sort"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/model"
)

type timelineItem struct {
	entry *model.Entry
	at    time.Time
	dated bool
}

// ListEntries loads every stored entry and returns them oldest first.
//
// entries that cannot be fetched or decoded are skipped. entries whose date
// cannot be parsed are kept ahead of all dated ones, in store order.
func (s *Service) ListEntries(ctx context.Context) ([]*model.Entry, error) {
	logger := s.loggerFromCtx(ctx)

	keys, err := s.entries.ListKeys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list entry keys")
	}

	slots := make([]*timelineItem, len(keys))
	var pool errgroup.Group
	pool.SetLimit(s.opt.listConcurrency)
	for i, key := range keys {
		pool.Go(func() error {
			payload, err := s.entries.Get(ctx, key)
			if err != nil {
				logger.Warn("skip entry, fetch failed", zap.String("key", key), zap.Error(err))
				return nil
			}

			entry, err := model.UnmarshalEntry(payload)
			if err != nil {
				logger.Warn("skip entry, undecodable payload", zap.String("key", key), zap.Error(err))
				return nil
			}
			if entry.Date == "" {
				entry.Date = key
			}

			item := &timelineItem{entry: entry}
			if item.at, err = model.ParseDate(entry.Date, s.opt.loc); err != nil {
				logger.Warn("entry date unparseable", zap.String("key", key), zap.Error(err))
			} else {
				item.dated = true
			}

			slots[i] = item
			return nil
		})
	}
	_ = pool.Wait()

	if err = ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "list entries")
	}

	items := make([]*timelineItem, 0, len(slots))
	for _, it := range slots {
		if it != nil {
			items = append(items, it)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].dated != items[j].dated {
			return !items[i].dated
		}
		return items[i].at.Before(items[j].at)
	})

	entries := make([]*model.Entry, len(items))
	for i, it := range items {
		entries[i] = it.entry
	}

	logger.Debug("timeline assembled",
		zap.Int("keys", len(keys)),
		zap.Int("entries", len(entries)))
	return entries, nil
}
