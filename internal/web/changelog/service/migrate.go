package service

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/dao"
	"github.com/Laisky/laisky-changelog/internal/web/changelog/model"
)

// BatchReport counts the outcome of a bulk operation
type BatchReport struct {
	Converted int `json:"converted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// MigrateLegacy rewrites bare-text records into the JSON entry format.
//
// a legacy entry owns at most one image, stored in the media store under
// the entry key itself. with dryRun nothing is written.
func (s *Service) MigrateLegacy(ctx context.Context, dryRun bool) (BatchReport, error) {
	var report BatchReport
	logger := s.loggerFromCtx(ctx).Named("migrate_legacy")

	keys, err := s.entries.ListKeys(ctx)
	if err != nil {
		return report, errors.Wrap(err, "list entry keys")
	}

	images := &mediaIndex{store: s.media, logger: logger}
	for _, key := range keys {
		if err = ctx.Err(); err != nil {
			return report, errors.WithStack(err)
		}

		payload, err := s.entries.Get(ctx, key)
		if err != nil {
			logger.Warn("fetch entry", zap.String("key", key), zap.Error(err))
			report.Failed++
			continue
		}
		if !model.IsLegacyPayload(payload) {
			report.Skipped++
			continue
		}

		var items []model.MediaItem
		hasImage, err := images.has(ctx, key)
		if err != nil {
			logger.Warn("check legacy image", zap.String("key", key), zap.Error(err))
			report.Failed++
			continue
		}
		if hasImage {
			items = append(items, &model.ImageItem{URL: s.media.URL(key)})
		}

		entry := &model.Entry{
			Date:  key,
			Text:  strings.TrimSpace(payload),
			Media: model.NewMedia(items...),
		}
		if dryRun {
			logger.Info("would convert legacy entry", zap.String("key", key), zap.Bool("image", hasImage))
			report.Converted++
			continue
		}

		if err = s.putEntry(ctx, entry); err != nil {
			logger.Warn("store converted entry", zap.String("key", key), zap.Error(err))
			report.Failed++
			continue
		}
		report.Converted++
	}

	logger.Info("legacy migration finished",
		zap.Int("converted", report.Converted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Bool("dry_run", dryRun))
	return report, nil
}

// mediaIndex answers key lookups from one listing of the media store,
// loaded on first use. when listing fails it asks the store per key.
type mediaIndex struct {
	store  dao.MediaStore
	logger logSDK.Logger
	loaded bool
	keys   map[string]struct{}
}

func (idx *mediaIndex) has(ctx context.Context, key string) (bool, error) {
	if !idx.loaded {
		idx.loaded = true
		keys, err := idx.store.List(ctx)
		if err != nil {
			idx.logger.Warn("list media, fall back to per key lookup", zap.Error(err))
		} else {
			idx.keys = make(map[string]struct{}, len(keys))
			for _, k := range keys {
				idx.keys[k] = struct{}{}
			}
		}
	}

	if idx.keys == nil {
		return idx.store.Exists(ctx, key)
	}

	_, ok := idx.keys[key]
	return ok, nil
}

// ImportEntries stores entries whose key is not taken yet
func (s *Service) ImportEntries(ctx context.Context, entries []*model.Entry) (BatchReport, error) {
	var report BatchReport
	logger := s.loggerFromCtx(ctx).Named("import")

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, errors.WithStack(err)
		}
		if entry == nil || !dao.ValidKey(entry.Date) {
			logger.Warn("skip entry with invalid date")
			report.Failed++
			continue
		}

		exists, err := s.entries.Exists(ctx, entry.Date)
		if err != nil {
			return report, errors.Wrapf(err, "check entry %q", entry.Date)
		}
		if exists {
			report.Skipped++
			continue
		}

		if err = s.putEntry(ctx, entry); err != nil {
			return report, errors.WithStack(err)
		}
		report.Converted++
	}

	return report, nil
}

func (s *Service) putEntry(ctx context.Context, entry *model.Entry) error {
	payload, err := entry.Marshal()
	if err != nil {
		return errors.WithStack(err)
	}

	if err = s.entries.Put(ctx, entry.Date, payload); err != nil {
		return errors.Wrapf(err, "put entry %q", entry.Date)
	}

	return nil
}
