package cmd

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/Laisky/zap"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"github.com/Laisky/laisky-changelog/internal/web"
	"github.com/Laisky/laisky-changelog/internal/web/changelog/dao"
	"github.com/Laisky/laisky-changelog/internal/web/changelog/service"
	"github.com/Laisky/laisky-changelog/library/config"
	"github.com/Laisky/laisky-changelog/library/db/firestore"
	"github.com/Laisky/laisky-changelog/library/db/mongo"
	"github.com/Laisky/laisky-changelog/library/db/postgres"
	rlib "github.com/Laisky/laisky-changelog/library/db/redis"
	"github.com/Laisky/laisky-changelog/library/db/s3"
	"github.com/Laisky/laisky-changelog/library/log"
	"github.com/Laisky/laisky-changelog/library/notify"
)

const (
	defaultSQLitePath = "data/changelog.db"
	defaultMediaDir   = "data/media"
	dialTimeout       = 15 * time.Second
)

// changelogStack is everything a subcommand needs to serve the changelog
type changelogStack struct {
	svc *service.Service
	// mediaDir is set when media is kept on local disk
	mediaDir string
	closers  []func(ctx context.Context) error
}

// Close releases every opened client
func (s *changelogStack) Close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			log.Logger.Warn("close client", zap.Error(err))
		}
	}
}

// setupChangelog builds stores, notifier and service from the shared config
func setupChangelog(ctx context.Context) (stack *changelogStack, err error) {
	stack = new(changelogStack)
	defer func() {
		if err != nil {
			stack.Close(context.WithoutCancel(ctx))
		}
	}()

	entries, err := setupEntryStore(ctx, stack)
	if err != nil {
		return nil, errors.Wrap(err, "setup entry store")
	}

	media, err := setupMediaStore(stack)
	if err != nil {
		return nil, errors.Wrap(err, "setup media store")
	}

	opts := []service.Option{
		service.WithLogger(log.Logger.Named("changelog")),
		service.WithClock(gutils.Clock.GetUTCNow),
		service.WithLocation(config.Timezone()),
		service.WithListConcurrency(config.ListConcurrency()),
		service.WithMaxUploadBytes(config.MaxUploadBytes()),
	}
	notifier, err := setupNotifier()
	if err != nil {
		return nil, errors.Wrap(err, "setup notifier")
	}
	if notifier != nil {
		opts = append(opts, service.WithNotifier(notifier))
	}

	if stack.svc, err = service.New(entries, media, opts...); err != nil {
		return nil, errors.Wrap(err, "new changelog service")
	}

	return stack, nil
}

func entryTable() string {
	return strings.TrimSpace(gconfig.Shared.GetString("settings.db.table"))
}

func setupEntryStore(ctx context.Context, stack *changelogStack) (dao.EntryStore, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	backend := strings.ToLower(strings.TrimSpace(gconfig.Shared.GetString("settings.db.entry_store")))
	logger := log.Logger.With(zap.String("entry_store", backend))
	switch backend {
	case "", entryStoreSQLite:
		fpath := gconfig.Shared.GetString("settings.db.sqlite.path")
		if fpath == "" {
			fpath = defaultSQLitePath
		}
		if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create dir for %q", fpath)
		}

		db, err := sql.Open("sqlite3", fpath)
		if err != nil {
			return nil, errors.Wrapf(err, "open sqlite %q", fpath)
		}
		stack.closers = append(stack.closers, func(context.Context) error { return db.Close() })

		logger.Info("use sqlite entry store", zap.String("path", fpath))
		return dao.NewSQLEntryStore(db, entryTable())
	case entryStorePostgres:
		db, err := postgres.NewDB(dialCtx, postgres.DialInfo{
			Addr:   gconfig.Shared.GetString("settings.db.postgres.addr"),
			DBName: gconfig.Shared.GetString("settings.db.postgres.db"),
			User:   gconfig.Shared.GetString("settings.db.postgres.user"),
			Pwd:    gconfig.Shared.GetString("settings.db.postgres.pwd"),
		})
		if err != nil {
			return nil, errors.Wrap(err, "connect postgres")
		}
		stack.closers = append(stack.closers, func(context.Context) error { return db.Close() })

		logger.Info("connected postgres")
		return dao.NewSQLEntryStore(db.DB, entryTable())
	case entryStoreRedis:
		db := rlib.NewDB(&redis.Options{
			Addr:     gconfig.Shared.GetString("settings.db.redis.addr"),
			Password: gconfig.Shared.GetString("settings.db.redis.pwd"),
			DB:       gconfig.Shared.GetInt("settings.db.redis.db"),
		})
		stack.closers = append(stack.closers, func(context.Context) error { return db.Close() })

		logger.Info("use redis entry store")
		return dao.NewRedisEntryStore(db)
	case entryStoreMongo:
		db, err := mongo.NewDB(dialCtx, mongo.DialInfo{
			Addr:   gconfig.Shared.GetString("settings.db.mongo.addr"),
			DBName: gconfig.Shared.GetString("settings.db.mongo.db"),
			User:   gconfig.Shared.GetString("settings.db.mongo.user"),
			Pwd:    gconfig.Shared.GetString("settings.db.mongo.pwd"),
			AuthDB: gconfig.Shared.GetString("settings.db.mongo.auth_db"),
		})
		if err != nil {
			return nil, errors.Wrap(err, "connect mongo")
		}
		stack.closers = append(stack.closers, db.Close)

		logger.Info("connected mongodb")
		return dao.NewMongoEntryStore(db, entryTable())
	case entryStoreFirestore:
		db, err := firestore.NewDB(ctx,
			gconfig.Shared.GetString("settings.db.firestore.project_id"),
			firestore.ClientOptions(gconfig.Shared.GetString("settings.db.firestore.credential_file"))...,
		)
		if err != nil {
			return nil, errors.Wrap(err, "connect firestore")
		}
		stack.closers = append(stack.closers, func(context.Context) error { return db.Close() })

		logger.Info("connected gcp firestore", zap.String("project", db.ProjectID()))
		return dao.NewFirestoreEntryStore(db, entryTable())
	default:
		return nil, errors.Errorf("unknown entry store %q", backend)
	}
}

func setupMediaStore(stack *changelogStack) (dao.MediaStore, error) {
	backend := strings.ToLower(strings.TrimSpace(gconfig.Shared.GetString("settings.media.store")))
	switch backend {
	case "", mediaStoreLocal:
		dir := gconfig.Shared.GetString("settings.media.local.dir")
		if dir == "" {
			dir = defaultMediaDir
		}
		base := gconfig.Shared.GetString("settings.media.local.public_base_url")
		if base == "" {
			base = web.MediaRoute
		}

		store, err := dao.NewLocalMediaStore(dir, base)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		stack.mediaDir = store.Dir()
		log.Logger.Info("use local media store", zap.String("dir", dir))
		return store, nil
	case mediaStoreS3:
		db, err := s3.NewDB(s3.DialInfo{
			Endpoint:  gconfig.Shared.GetString("settings.media.s3.endpoint"),
			AccessKey: gconfig.Shared.GetString("settings.media.s3.access_key"),
			SecretKey: gconfig.Shared.GetString("settings.media.s3.secret_key"),
			Bucket:    gconfig.Shared.GetString("settings.media.s3.bucket"),
			Secure:    gconfig.Shared.GetBool("settings.media.s3.secure"),
			Region:    gconfig.Shared.GetString("settings.media.s3.region"),
		})
		if err != nil {
			return nil, errors.Wrap(err, "new s3 client")
		}

		log.Logger.Info("use s3 media store", zap.String("bucket", db.Bucket()))
		return dao.NewS3MediaStore(db,
			gconfig.Shared.GetString("settings.media.s3.prefix"),
			gconfig.Shared.GetString("settings.media.s3.public_base_url"),
		)
	default:
		return nil, errors.Errorf("unknown media store %q", backend)
	}
}

// setupNotifier returns nil when no channel is enabled
func setupNotifier() (service.Notifier, error) {
	if !gconfig.Shared.GetBool("settings.notify.telegram.enabled") {
		return nil, nil
	}

	bot, err := notify.NewTelegram(
		gconfig.Shared.GetString("settings.notify.telegram.token"),
		int64(gconfig.Shared.GetInt("settings.notify.telegram.chat_id")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "new telegram notifier")
	}

	log.Logger.Info("telegram notification enabled")
	return service.NewTextNotifier(bot, gconfig.Shared.GetString("settings.notify.telegram.timeline_url"))
}
