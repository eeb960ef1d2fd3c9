package redis

const (
	keyPrefix = "laisky/"

	// KeyPrefixChangelogEntry is the key prefix for changelog entries
	KeyPrefixChangelogEntry = keyPrefix + "changelog/entries/"
)

// EntryKey returns the redis key holding the entry stored under name
func EntryKey(name string) string {
	return KeyPrefixChangelogEntry + name
}
