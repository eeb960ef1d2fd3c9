package dto

import (
	"bytes"
	"io"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/require"
)

type formFile struct {
	field, name, content string
}

func buildForm(t *testing.T, values [][2]string, files []formFile) *multipart.Form {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for _, kv := range values {
		require.NoError(t, w.WriteField(kv[0], kv[1]))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form
}

func TestParseCreateEntryForm(t *testing.T) {
	t.Parallel()

	form := buildForm(t,
		[][2]string{
			{FieldText, "  hello  "},
			{FieldDate, " 2024-03-02T10:05 "},
			{"content[media][isImageAvailable]", "false"},
			{"content[media][mediaItems][10]", `{"type":"embed","platform":"twitter","url":"https://x.com/u/status/2"}`},
			{"content[media][mediaItems][2]", `{"type":"embed","platform":"bsky","url":"https://bsky.app/profile/a/post/b"}`},
			{"content[media][mediaItems][3]", "   "},
			{FieldEmbeds, "https://example.com/extra"},
		},
		[]formFile{
			{"content[media][mediaItems][1]", "b.png", "second"},
			{"content[media][mediaItems][0]", "a.png", "first"},
		},
	)

	req, err := ParseCreateEntryForm(form)
	require.NoError(t, err)
	require.Equal(t, SchemaVersion, req.Version)
	require.Equal(t, "  hello  ", req.Text, "text is trimmed by the service")
	require.Equal(t, "2024-03-02T10:05", req.Date)

	require.Len(t, req.Images, 2)
	require.Equal(t, "a.png", req.Images[0].Filename)
	require.Equal(t, "b.png", req.Images[1].Filename)

	rc, err := req.Images[0].Open()
	require.NoError(t, err)
	cnt, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "first", string(cnt))

	require.Equal(t, []EmbedDescriptor{
		{Type: "embed", Platform: "bsky", URL: "https://bsky.app/profile/a/post/b"},
		{Type: "embed", Platform: "twitter", URL: "https://x.com/u/status/2"},
		{Type: "embed", URL: "https://example.com/extra"},
	}, req.Embeds)
}

func TestParseCreateEntryFormBareURL(t *testing.T) {
	t.Parallel()

	form := buildForm(t, [][2]string{
		{FieldText, "hi"},
		{"content[media][mediaItems][0]", "https://x.com/user/status/123456"},
	}, nil)

	req, err := ParseCreateEntryForm(form)
	require.NoError(t, err)
	require.Empty(t, req.Date)
	require.Equal(t, []EmbedDescriptor{{Type: "embed", URL: "https://x.com/user/status/123456"}}, req.Embeds)
}

func TestParseCreateEntryFormInvalid(t *testing.T) {
	t.Parallel()

	cases := map[string][][2]string{
		"version":      {{FieldVersion, "2"}, {FieldText, "x"}},
		"version text": {{FieldVersion, "v1"}, {FieldText, "x"}},
		"bad json":     {{FieldText, "x"}, {"content[media][mediaItems][0]", `{"type":`}},
		"image value":  {{FieldText, "x"}, {"content[media][mediaItems][0]", `{"type":"image","url":"u"}`}},
	}
	for name, values := range cases {
		_, err := ParseCreateEntryForm(buildForm(t, values, nil))
		require.ErrorIs(t, err, ErrInvalidRequest, name)
	}

	_, err := ParseCreateEntryForm(nil)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestParseCreateEntryFormExplicitVersion(t *testing.T) {
	t.Parallel()

	req, err := ParseCreateEntryForm(buildForm(t, [][2]string{{FieldVersion, "1"}, {FieldText, "x"}}, nil))
	require.NoError(t, err)
	require.Equal(t, 1, req.Version)
}
