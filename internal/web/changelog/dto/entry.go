// Package dto defines the request schema of the changelog API.
package dto

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
)

// SchemaVersion is the only accepted content[version]
const SchemaVersion = 1

// form field names
const (
	FieldVersion = "content[version]"
	FieldText    = "content[text]"
	FieldDate    = "content[date]"
	FieldEmbeds  = "content[embeds][]"
)

// ErrInvalidRequest marks a malformed submission
var ErrInvalidRequest = errors.New("invalid request")

var regexpMediaItemField = regexp.MustCompile(`^content\[media\]\[mediaItems\]\[(\d+)\]$`)

// ImageUpload is one submitted image file
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// EmbedDescriptor is one submitted embed link.
// Platform is the client's guess and is not trusted.
type EmbedDescriptor struct {
	Type     string `json:"type"`
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// CreateEntryRequest is a parsed POST / submission
type CreateEntryRequest struct {
	Version int
	Text    string
	// Date is optional, empty means now
	Date   string
	Images []ImageUpload
	Embeds []EmbedDescriptor
}

func invalidf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidRequest, format, args...)
}

// ParseCreateEntryForm builds a request from a multipart form.
//
// media items are ordered by their numeric index, files before embeds.
func ParseCreateEntryForm(form *multipart.Form) (*CreateEntryRequest, error) {
	if form == nil {
		return nil, invalidf("empty form")
	}

	req := &CreateEntryRequest{
		Version: SchemaVersion,
		Text:    firstValue(form, FieldText),
		Date:    strings.TrimSpace(firstValue(form, FieldDate)),
	}

	if raw := strings.TrimSpace(firstValue(form, FieldVersion)); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v != SchemaVersion {
			return nil, invalidf("unsupported schema version %q", raw)
		}
		req.Version = v
	}

	indexes := map[int]string{}
	for name := range form.File {
		if i, ok := mediaItemIndex(name); ok {
			indexes[i] = name
		}
	}
	for name := range form.Value {
		if i, ok := mediaItemIndex(name); ok {
			indexes[i] = name
		}
	}

	ordered := make([]int, 0, len(indexes))
	for i := range indexes {
		ordered = append(ordered, i)
	}
	sort.Ints(ordered)

	for _, i := range ordered {
		name := indexes[i]
		for _, fh := range form.File[name] {
			req.Images = append(req.Images, newImageUpload(fh))
		}

		for _, raw := range form.Value[name] {
			embed, err := parseEmbed(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "media item %d", i)
			}
			if embed != nil {
				req.Embeds = append(req.Embeds, *embed)
			}
		}
	}

	for _, name := range []string{FieldEmbeds, "content[embeds]"} {
		for _, raw := range form.Value[name] {
			if u := strings.TrimSpace(raw); u != "" {
				req.Embeds = append(req.Embeds, EmbedDescriptor{Type: "embed", URL: u})
			}
		}
	}

	return req, nil
}

func mediaItemIndex(name string) (int, bool) {
	m := regexpMediaItemField.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}

	i, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return i, true
}

func newImageUpload(fh *multipart.FileHeader) ImageUpload {
	return ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// parseEmbed accepts a JSON descriptor or a bare URL, blank values yield nil
func parseEmbed(raw string) (*EmbedDescriptor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if !strings.HasPrefix(raw, "{") {
		return &EmbedDescriptor{Type: "embed", URL: raw}, nil
	}

	embed := new(EmbedDescriptor)
	if err := json.Unmarshal([]byte(raw), embed); err != nil {
		return nil, invalidf("malformed embed descriptor: %s", err)
	}
	if embed.Type != "" && embed.Type != "embed" {
		return nil, invalidf("unsupported media item type %q", embed.Type)
	}
	embed.Type = "embed"
	embed.URL = strings.TrimSpace(embed.URL)
	if embed.URL == "" {
		return nil, nil
	}

	return embed, nil
}

func firstValue(form *multipart.Form, name string) string {
	if vs := form.Value[name]; len(vs) > 0 {
		return vs[0]
	}

	return ""
}
