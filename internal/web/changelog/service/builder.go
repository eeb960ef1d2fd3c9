package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/dto"
	"github.com/Laisky/laisky-changelog/internal/web/changelog/model"
)

const notifyTimeout = 30 * time.Second

// layouts accepted for an explicit date, zoned layouts first
var (
	zonedDateLayouts = []string{time.RFC3339Nano}
	localDateLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// MediaKey is the media store key of the idx-th image of the entry at key
func MediaKey(key string, idx int) string {
	return fmt.Sprintf("%s-img%d", key, idx)
}

// CreateEntry validates req, uploads its images and stores the entry.
//
// nothing is stored when validation fails. when an upload or the final
// write fails, images already uploaded for this request are removed.
func (s *Service) CreateEntry(ctx context.Context, req *dto.CreateEntryRequest) (*model.Entry, error) {
	if req == nil {
		return nil, errors.WithStack(dto.ErrInvalidRequest)
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, errors.WithStack(ErrEmptyText)
	}

	ts, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	key := model.FormatDate(ts, s.opt.loc)
	logger := s.loggerFromCtx(ctx).With(zap.String("key", key))

	images := make([]*loadedImage, 0, len(req.Images))
	for _, up := range req.Images {
		img, err := loadImage(up, s.opt.maxUploadBytes)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		images = append(images, img)
	}

	exists, err := s.entries.Exists(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "check entry %q", key)
	}
	if exists {
		return nil, errors.Wrapf(ErrEntryExists, "key %q", key)
	}

	items := make([]model.MediaItem, 0, len(images)+len(req.Embeds))
	uploaded := make([]string, 0, len(images))
	for i, img := range images {
		mediaKey := MediaKey(key, i)
		url, err := s.media.Put(ctx, mediaKey,
			bytes.NewReader(img.content), int64(len(img.content)), img.contentType)
		if err != nil {
			s.removeMedia(ctx, logger, uploaded)
			return nil, errors.Wrapf(ErrMediaUpload, "upload %q: %s", mediaKey, err)
		}

		uploaded = append(uploaded, mediaKey)
		items = append(items, &model.ImageItem{URL: url})
	}

	for _, embed := range req.Embeds {
		if strings.TrimSpace(embed.URL) == "" {
			continue
		}
		items = append(items, ClassifyEmbed(embed.URL))
	}

	entry := &model.Entry{
		Date:  key,
		Text:  text,
		Media: model.NewMedia(items...),
	}
	payload, err := entry.Marshal()
	if err != nil {
		s.removeMedia(ctx, logger, uploaded)
		return nil, errors.WithStack(err)
	}
	if err = s.entries.Put(ctx, key, payload); err != nil {
		s.removeMedia(ctx, logger, uploaded)
		return nil, errors.Wrapf(err, "put entry %q", key)
	}

	logger.Info("changelog entry created",
		zap.Int("images", len(images)),
		zap.Int("media_items", entry.Media.Len()))
	s.notify(ctx, logger, entry)
	return entry, nil
}

// resolveDate parses an explicit date or falls back to the clock
func (s *Service) resolveDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.opt.clock().In(s.opt.loc), nil
	}

	for _, layout := range zonedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.In(s.opt.loc), nil
		}
	}
	for _, layout := range localDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, s.opt.loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, errors.Wrapf(ErrInvalidDate, "%q", raw)
}

// removeMedia deletes keys best effort, failures are only logged
func (s *Service) removeMedia(ctx context.Context, logger logSDK.Logger, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.media.Remove(ctx, key); err != nil {
			logger.Warn("remove orphan media", zap.String("media_key", key), zap.Error(err))
		}
	}
}

// notify runs the notifier in background, it never fails the request
func (s *Service) notify(ctx context.Context, logger logSDK.Logger, entry *model.Entry) {
	if s.opt.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	go func() {
		defer cancel()
		if err := s.opt.notifier.Notify(ctx, entry); err != nil {
			logger.Warn("notify new entry", zap.Error(err))
		}
	}()
}
