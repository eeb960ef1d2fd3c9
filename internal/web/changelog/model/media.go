package model

import (
	"encoding/json"

	"github.com/Laisky/errors/v2"
)

// MediaType discriminates media items on the wire
type MediaType string

const (
	// MediaTypeImage is an uploaded image
	MediaTypeImage MediaType = "image"
	// MediaTypeEmbed is a link to a social post
	MediaTypeEmbed MediaType = "embed"
)

// Platform is the social network an embed points to
type Platform string

const (
	PlatformTwitter     Platform = "twitter"
	PlatformBluesky     Platform = "bsky"
	PlatformUnsupported Platform = "unsupported"
)

// MediaItem is either an *ImageItem or an *EmbedItem
type MediaItem interface {
	Type() MediaType
	isMediaItem()
}

// ImageItem is an image stored in the media store
type ImageItem struct {
	URL string `json:"url"`
}

// Type implements MediaItem
func (*ImageItem) Type() MediaType { return MediaTypeImage }
func (*ImageItem) isMediaItem() {}

// EmbedItem references an externally rendered post.
// TweetID is set for twitter, Handle and PostID for bluesky.
type EmbedItem struct {
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
	TweetID  string   `json:"tweetId,omitempty"`
	Handle   string   `json:"handle,omitempty"`
	PostID   string   `json:"postId,omitempty"`
}

// Type implements MediaItem
func (*EmbedItem) Type() MediaType { return MediaTypeEmbed }
func (*EmbedItem) isMediaItem() {}

// Media is the ordered media attached to an entry.
//
// availability flags are derived from the items and never stored independently.
type Media struct {
	items []MediaItem
}

// NewMedia builds media from items, nil items are dropped
func NewMedia(items ...MediaItem) Media {
	m := Media{}
	for _, it := range items {
		if it != nil {
			m.items = append(m.items, it)
		}
	}

	return m
}

// Items returns a copy of the items in insertion order
func (m Media) Items() []MediaItem {
	return append([]MediaItem(nil), m.items...)
}

// Len returns the number of items
func (m Media) Len() int {
	return len(m.items)
}

// IsImageAvailable reports whether any item is an image
func (m Media) IsImageAvailable() bool {
	return m.has(MediaTypeImage)
}

// IsEmbedAvailable reports whether any item is an embed
func (m Media) IsEmbedAvailable() bool {
	return m.has(MediaTypeEmbed)
}

func (m Media) has(typ MediaType) bool {
	for _, it := range m.items {
		if it.Type() == typ {
			return true
		}
	}

	return false
}

type imageItemJSON struct {
	Type MediaType `json:"type"`
	ImageItem
}

type embedItemJSON struct {
	Type MediaType `json:"type"`
	EmbedItem
}

type mediaJSON struct {
	IsImageAvailable bool              `json:"isImageAvailable"`
	IsEmbedAvailable bool              `json:"isEmbedAvailable"`
	MediaItems       []json.RawMessage `json:"mediaItems"`
}

// MarshalJSON implements json.Marshaler
func (m Media) MarshalJSON() ([]byte, error) {
	out := mediaJSON{
		IsImageAvailable: m.IsImageAvailable(),
		IsEmbedAvailable: m.IsEmbedAvailable(),
		MediaItems:       make([]json.RawMessage, 0, len(m.items)),
	}

	for _, it := range m.items {
		var (
			raw []byte
			err error
		)
		switch v := it.(type) {
		case *ImageItem:
			raw, err = json.Marshal(imageItemJSON{Type: MediaTypeImage, ImageItem: *v})
		case *EmbedItem:
			raw, err = json.Marshal(embedItemJSON{Type: MediaTypeEmbed, EmbedItem: *v})
		default:
			err = errors.Errorf("unknown media item %T", it)
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}

		out.MediaItems = append(out.MediaItems, raw)
	}

	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
// stored availability flags are ignored.
func (m *Media) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var in mediaJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Wrap(err, "unmarshal media")
	}

	m.items = nil
	for i, raw := range in.MediaItems {
		var head struct {
			Type MediaType `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return errors.Wrapf(err, "unmarshal media item %d", i)
		}

		switch head.Type {
		case MediaTypeImage:
			it := new(ImageItem)
			if err := json.Unmarshal(raw, it); err != nil {
				return errors.Wrapf(err, "unmarshal image item %d", i)
			}
			m.items = append(m.items, it)
		case MediaTypeEmbed:
			it := new(EmbedItem)
			if err := json.Unmarshal(raw, it); err != nil {
				return errors.Wrapf(err, "unmarshal embed item %d", i)
			}
			m.items = append(m.items, it)
		default:
			return errors.Errorf("unknown media item type %q at %d", head.Type, i)
		}
	}

	return nil
}
