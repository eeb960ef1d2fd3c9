// Package service builds changelog entries and assembles the timeline.
package service

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/dao"
	"github.com/Laisky/laisky-changelog/library/config"
	"github.com/Laisky/laisky-changelog/library/log"
)

var (
	// ErrEmptyText is returned when the submitted text is blank
	ErrEmptyText = errors.New("text is required")
	// ErrInvalidDate is returned when an explicit date cannot be parsed
	ErrInvalidDate = errors.New("invalid date")
	// ErrEntryExists is returned when an entry already holds the date key
	ErrEntryExists = errors.New("an entry already exists at this date")
	// ErrInvalidImage is returned for uploads that are not a supported image
	ErrInvalidImage = errors.New("invalid image")
	// ErrImageTooLarge is returned for uploads above the size limit
	ErrImageTooLarge = errors.New("image too large")
	// ErrMediaUpload is returned when the media store rejects an upload
	ErrMediaUpload = errors.New("media upload failed")
)

// Clock returns the current time
type Clock func() time.Time

// Service is the changelog business layer
type Service struct {
	entries dao.EntryStore
	media   dao.MediaStore
	opt     *option
}

type option struct {
	logger          logSDK.Logger
	clock           Clock
	loc             *time.Location
	listConcurrency int
	maxUploadBytes  int64
	notifier        Notifier
}

// Option configures Service
type Option func(*option) error

// WithLogger sets the fallback logger used when ctx carries none
func WithLogger(logger logSDK.Logger) Option {
	return func(o *option) error {
		if logger == nil {
			return errors.New("logger is nil")
		}
		o.logger = logger
		return nil
	}
}

// WithClock overrides time.Now
func WithClock(clock Clock) Option {
	return func(o *option) error {
		if clock == nil {
			return errors.New("clock is nil")
		}
		o.clock = clock
		return nil
	}
}

// WithLocation sets the zone dates are rendered and parsed in
func WithLocation(loc *time.Location) Option {
	return func(o *option) error {
		if loc == nil {
			return errors.New("location is nil")
		}
		o.loc = loc
		return nil
	}
}

// WithListConcurrency bounds parallel fetches in ListEntries
func WithListConcurrency(n int) Option {
	return func(o *option) error {
		if n <= 0 {
			return errors.Errorf("list concurrency must be positive, got %d", n)
		}
		o.listConcurrency = n
		return nil
	}
}

// WithMaxUploadBytes sets the per-image size limit
func WithMaxUploadBytes(n int64) Option {
	return func(o *option) error {
		if n <= 0 {
			return errors.Errorf("max upload bytes must be positive, got %d", n)
		}
		o.maxUploadBytes = n
		return nil
	}
}

// WithNotifier is called after each entry is stored
func WithNotifier(n Notifier) Option {
	return func(o *option) error {
		o.notifier = n
		return nil
	}
}

// New creates a Service over the given stores
func New(entries dao.EntryStore, media dao.MediaStore, opts ...Option) (*Service, error) {
	if entries == nil {
		return nil, errors.New("entry store is required")
	}
	if media == nil {
		return nil, errors.New("media store is required")
	}

	o := &option{
		logger:          log.Logger.Named("changelog_service"),
		clock:           time.Now,
		loc:             config.Timezone(),
		listConcurrency: config.DefaultListConcurrency,
		maxUploadBytes:  config.DefaultMaxUploadMB << 20,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errors.Wrap(err, "apply option")
		}
	}

	return &Service{entries: entries, media: media, opt: o}, nil
}

// loggerFromCtx prefers the request scoped logger set by the gin middleware.
// outside a gin request it returns the configured logger.
func (s *Service) loggerFromCtx(ctx context.Context) logSDK.Logger {
	if ctx == nil {
		return s.opt.logger
	}

	if gctx, ok := gmw.GetGinCtxFromStdCtx(ctx); ok && gctx != nil {
		if logger := gmw.GetLogger(gctx); logger != nil {
			return logger.Named("changelog")
		}
	}

	return s.opt.logger
}
