package cmd

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
)

const (
	entryStoreSQLite    = "sqlite"
	entryStorePostgres  = "postgres"
	entryStoreRedis     = "redis"
	entryStoreMongo     = "mongo"
	entryStoreFirestore = "firestore"

	mediaStoreLocal = "local"
	mediaStoreS3    = "s3"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// Every problem is collected, the returned error lists all of them.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateChangelogConfig(get, &validationErrs)
	validateWebConfig(get, &validationErrs)
	validateThrottleConfig(get, &validationErrs)
	validateEntryStoreConfig(get, &validationErrs)
	validateMediaStoreConfig(get, &validationErrs)
	validateNotifyConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

func validateChangelogConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.changelog.list_concurrency", 1, errs)
	validateOptionalIntMin(get, "settings.changelog.max_upload_mb", 1, errs)

	key := "settings.changelog.timezone"
	if raw := get(key); raw != nil {
		name, err := parseStrictString(raw)
		if err != nil || strings.TrimSpace(name) == "" {
			appendValidationError(errs, "%s must be a non-empty string", key)
			return
		}
		if _, err = time.LoadLocation(strings.TrimSpace(name)); err != nil {
			appendValidationError(errs, "%s is not a known timezone", key)
		}
	}
}

// validateWebConfig checks the CORS allow list.
// each entry is "*", "*.<domain>" or an absolute origin URL.
func validateWebConfig(get configGetter, errs *[]string) {
	validateOptionalBool(get, "settings.web.metric", errs)
	validateOptionalStringNonEmpty(get, "settings.changelog.title", errs)

	key := "settings.web.cors.allowed_origins"
	raw := get(key)
	if raw == nil {
		return
	}

	origins, err := parseStrictStringSlice(raw)
	if err != nil {
		appendValidationError(errs, "%s must be a list of strings", key)
		return
	}

	for i, origin := range origins {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "*":
		case strings.HasPrefix(origin, "*."):
			if !isValidHost(strings.TrimPrefix(origin, "*.")) {
				appendValidationError(errs, "%s[%d] has an invalid wildcard domain", key, i)
			}
		default:
			parsed, err := url.Parse(origin)
			if err != nil || parsed.Scheme == "" || parsed.Host == "" {
				appendValidationError(errs, "%s[%d] must be an absolute origin URL", key, i)
			}
		}
	}
}

func validateThrottleConfig(get configGetter, errs *[]string) {
	validateOptionalBool(get, "settings.web.throttle.enabled", errs)
	validateOptionalIntMin(get, "settings.web.throttle.total_per_min", 1, errs)
	validateOptionalIntMin(get, "settings.web.throttle.each_per_min", 1, errs)
	validateOptionalIntMin(get, "settings.web.throttle.total_burst", 1, errs)
	validateOptionalIntMin(get, "settings.web.throttle.each_burst", 1, errs)
}

func validateEntryStoreConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.db.table", errs)

	backend, ok := optionalEnum(get, "settings.db.entry_store", entryStoreSQLite, errs,
		entryStoreSQLite, entryStorePostgres, entryStoreRedis, entryStoreMongo, entryStoreFirestore)
	if !ok {
		return
	}

	switch backend {
	case entryStoreSQLite:
		validateOptionalStringNonEmpty(get, "settings.db.sqlite.path", errs)
	case entryStorePostgres:
		validateRequiredString(get, "settings.db.postgres.addr", errs)
		validateRequiredString(get, "settings.db.postgres.db", errs)
		validateRequiredString(get, "settings.db.postgres.user", errs)
	case entryStoreRedis:
		validateRequiredString(get, "settings.db.redis.addr", errs)
		validateOptionalIntMin(get, "settings.db.redis.db", 0, errs)
	case entryStoreMongo:
		validateRequiredString(get, "settings.db.mongo.addr", errs)
		validateRequiredString(get, "settings.db.mongo.db", errs)
	case entryStoreFirestore:
		validateRequiredString(get, "settings.db.firestore.project_id", errs)
		validateOptionalStringNonEmpty(get, "settings.db.firestore.credential_file", errs)
	}
}

func validateMediaStoreConfig(get configGetter, errs *[]string) {
	backend, ok := optionalEnum(get, "settings.media.store", mediaStoreLocal, errs,
		mediaStoreLocal, mediaStoreS3)
	if !ok {
		return
	}

	switch backend {
	case mediaStoreLocal:
		validateOptionalStringNonEmpty(get, "settings.media.local.dir", errs)
		validateOptionalURL(get, "settings.media.local.public_base_url", errs)
	case mediaStoreS3:
		key := "settings.media.s3.endpoint"
		if validateRequiredString(get, key, errs) {
			endpoint, _ := parseStrictString(get(key))
			if !isValidHost(endpoint) {
				appendValidationError(errs, "%s must be host[:port] without scheme", key)
			}
		}
		validateRequiredString(get, "settings.media.s3.bucket", errs)
		validateRequiredString(get, "settings.media.s3.access_key", errs)
		validateRequiredString(get, "settings.media.s3.secret_key", errs)
		validateOptionalBool(get, "settings.media.s3.secure", errs)
		validateOptionalStringNonEmpty(get, "settings.media.s3.region", errs)
		validateOptionalURL(get, "settings.media.s3.public_base_url", errs)
	}
}

func validateNotifyConfig(get configGetter, errs *[]string) {
	key := "settings.notify.telegram.enabled"
	validateOptionalBool(get, key, errs)
	enabled, _ := parseStrictBool(get(key))
	if !enabled {
		return
	}

	validateRequiredString(get, "settings.notify.telegram.token", errs)
	validateOptionalURL(get, "settings.notify.telegram.timeline_url", errs)

	chatKey := "settings.notify.telegram.chat_id"
	raw := get(chatKey)
	if raw == nil {
		appendValidationError(errs, "%s is required", chatKey)
		return
	}
	if id, err := parseStrictInt64(raw); err != nil || id == 0 {
		appendValidationError(errs, "%s must be a non-zero integer", chatKey)
	}
}

// optionalEnum returns the configured value of key, or def when unset.
// ok is false when the value is not one of allowed.
func optionalEnum(get configGetter, key, def string, errs *[]string, allowed ...string) (val string, ok bool) {
	raw := get(key)
	if raw == nil {
		return def, true
	}

	value, err := parseStrictString(raw)
	if err != nil {
		appendValidationError(errs, "%s must be a string", key)
		return "", false
	}

	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return def, true
	}
	for _, a := range allowed {
		if value == a {
			return value, true
		}
	}

	appendValidationError(errs, "%s must be one of %s", key, strings.Join(allowed, "|"))
	return "", false
}

// validateRequiredString reports whether key holds a non-empty string
func validateRequiredString(get configGetter, key string, errs *[]string) bool {
	raw := get(key)
	if raw == nil {
		appendValidationError(errs, "%s is required", key)
		return false
	}

	value, err := parseStrictString(raw)
	if err != nil || strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must be a non-empty string", key)
		return false
	}

	return true
}

// validateOptionalBool validates an optionally configured boolean key.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key against a minimum.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, err := parseStrictInt(raw)
	if err != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalURL validates an optionally configured absolute URL key.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, err := parseStrictString(raw)
	if err != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		appendValidationError(errs, "%s must not be empty", key)
		return
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, err := parseStrictString(raw)
	if err != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
func parseStrictInt(value any) (int, error) {
	parsed, err := parseStrictInt64(value)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return int(parsed), nil
}

// parseStrictInt64 parses a value as a strict int64.
// yaml decodes large chat ids as int or float64, both are accepted when integral.
func parseStrictInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return 0, errors.Wrap(err, "parse int")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictString parses a value as a strict string.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// parseStrictStringSlice accepts a yaml list of strings or one comma separated string
func parseStrictStringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		return strings.Split(v, ","), nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := parseStrictString(item)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.Errorf("unsupported list type %T", value)
	}
}

// isValidHost validates a host string without scheme or path components.
func isValidHost(host string) bool {
	trimmed := strings.TrimSpace(host)
	if trimmed == "" {
		return false
	}
	if strings.Contains(trimmed, "://") || strings.Contains(trimmed, "/") {
		return false
	}
	return true
}

// appendValidationError appends a formatted validation error to the collector.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
