package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMediaFlagsDerived(t *testing.T) {
	t.Parallel()

	require.False(t, NewMedia().IsImageAvailable())
	require.False(t, NewMedia().IsEmbedAvailable())

	m := NewMedia(&ImageItem{URL: "https://cdn/a.png"}, nil)
	require.Equal(t, 1, m.Len())
	require.True(t, m.IsImageAvailable())
	require.False(t, m.IsEmbedAvailable())

	m = NewMedia(&EmbedItem{URL: "https://x.com/u/status/1", Platform: PlatformTwitter, TweetID: "1"})
	require.False(t, m.IsImageAvailable())
	require.True(t, m.IsEmbedAvailable())
}

func TestMediaMarshal(t *testing.T) {
	t.Parallel()

	m := NewMedia(
		&ImageItem{URL: "https://cdn/a.png"},
		&EmbedItem{URL: "https://bsky.app/profile/a.bsky.social/post/3k", Platform: PlatformBluesky, Handle: "a.bsky.social", PostID: "3k"},
	)
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"isImageAvailable": true,
		"isEmbedAvailable": true,
		"mediaItems": [
			{"type": "image", "url": "https://cdn/a.png"},
			{"type": "embed", "url": "https://bsky.app/profile/a.bsky.social/post/3k", "platform": "bsky", "handle": "a.bsky.social", "postId": "3k"}
		]
	}`, string(raw))

	raw, err = json.Marshal(NewMedia())
	require.NoError(t, err)
	require.JSONEq(t, `{"isImageAvailable":false,"isEmbedAvailable":false,"mediaItems":[]}`, string(raw))
}

func TestMediaUnmarshalRecomputesFlags(t *testing.T) {
	t.Parallel()

	var m Media
	err := json.Unmarshal([]byte(`{
		"isImageAvailable": false,
		"isEmbedAvailable": true,
		"mediaItems": [{"type": "image", "url": "https://cdn/a.png"}]
	}`), &m)
	require.NoError(t, err)
	require.True(t, m.IsImageAvailable())
	require.False(t, m.IsEmbedAvailable())

	items := m.Items()
	require.Len(t, items, 1)
	require.Equal(t, &ImageItem{URL: "https://cdn/a.png"}, items[0])
}

func TestMediaUnmarshalErrors(t *testing.T) {
	t.Parallel()

	var m Media
	require.Error(t, json.Unmarshal([]byte(`{"mediaItems":[{"type":"video","url":"u"}]}`), &m))
	require.Error(t, json.Unmarshal([]byte(`{"mediaItems":"nope"}`), &m))
}

func TestEntryRoundTrip(t *testing.T) {
	t.Parallel()

	e := &Entry{
		Date: "2nd Mar, 2024 10:5",
		Text: "shipped **v2**",
		Media: NewMedia(
			&ImageItem{URL: "https://cdn/a.png"},
			&EmbedItem{URL: "https://x.com/user/status/123456", Platform: PlatformTwitter, TweetID: "123456"},
			&EmbedItem{URL: "https://example.com", Platform: PlatformUnsupported},
		),
	}
	payload, err := e.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalEntry(payload)
	require.NoError(t, err)
	require.Equal(t, e.Date, got.Date)
	require.Equal(t, e.Text, got.Text)
	require.Equal(t, e.Media.Items(), got.Media.Items())
}

func TestUnmarshalEntryWithoutMedia(t *testing.T) {
	t.Parallel()

	got, err := UnmarshalEntry(`{"date":"1st Jan, 2024 0:0","text":"hi","media":null}`)
	require.NoError(t, err)
	require.Zero(t, got.Media.Len())

	got, err = UnmarshalEntry(`{"date":"1st Jan, 2024 0:0"}`)
	require.NoError(t, err)
	require.Empty(t, got.Text)
}

func TestIsLegacyPayload(t *testing.T) {
	t.Parallel()

	require.True(t, IsLegacyPayload("just some text"))
	require.True(t, IsLegacyPayload("{not json"))
	require.False(t, IsLegacyPayload(` {"date":"x","text":"y"}`))
}
