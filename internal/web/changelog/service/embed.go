package service

import (
	"regexp"
	"strings"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/model"
)

var (
	regexpTwitterStatus = regexp.MustCompile(`(?:twitter\.com|x\.com)/[a-zA-Z0-9_]+/status/(\d+)`)
	regexpBlueskyPost   = regexp.MustCompile(`bsky\.app/profile/([^/]+)/post/([^/?#]+)`)
)

// ClassifyEmbed detects the platform of rawURL and extracts its identifiers.
// unrecognized links are kept as PlatformUnsupported.
func ClassifyEmbed(rawURL string) *model.EmbedItem {
	rawURL = strings.TrimSpace(rawURL)
	item := &model.EmbedItem{URL: rawURL, Platform: model.PlatformUnsupported}

	if m := regexpTwitterStatus.FindStringSubmatch(rawURL); m != nil {
		item.Platform = model.PlatformTwitter
		item.TweetID = m[1]
		return item
	}

	if m := regexpBlueskyPost.FindStringSubmatch(rawURL); m != nil {
		item.Platform = model.PlatformBluesky
		item.Handle = m[1]
		item.PostID = m[2]
		return item
	}

	return item
}
