package controller

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/dao"
	"github.com/Laisky/laisky-changelog/internal/web/changelog/model"
	"github.com/Laisky/laisky-changelog/internal/web/changelog/service"
)

var ginModeOnce sync.Once

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

type testEnv struct {
	router   *gin.Engine
	mediaDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	setupGinTestMode()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	entries, err := dao.NewSQLEntryStore(db, "changelog")
	require.NoError(t, err)

	mediaDir := t.TempDir()
	media, err := dao.NewLocalMediaStore(mediaDir, "http://example.test/media")
	require.NoError(t, err)

	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	svc, err := service.New(entries, media,
		service.WithLocation(loc),
		service.WithClock(func() time.Time { return time.Date(2024, 3, 2, 10, 5, 30, 0, loc) }),
	)
	require.NoError(t, err)

	ctl, err := New(svc, WithPreviewTitle("Test Changelog"))
	require.NoError(t, err)

	router := gin.New()
	ctl.Register(router)
	return &testEnv{router: router, mediaDir: mediaDir}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type formFile struct {
	field   string
	name    string
	content []byte
}

func newFormRequest(t *testing.T, values map[string][]string, files []formFile) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCreateAndListEntry(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := env.do(newFormRequest(t, map[string][]string{
		"content[version]":   {"1"},
		"content[text]":      {"shipped **markdown** preview"},
		"content[embeds][]": {"https://twitter.com/laisky/status/1234567890"},
	}, []formFile{
		{field: "content[media][mediaItems][0]", name: "a.png", content: pngBytes(t)},
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	require.Equal(t, msgCreated, body["message"])
	require.Equal(t, "2nd Mar, 2024 10:5", body["date"])

	_, err := os.Stat(filepath.Join(env.mediaDir, service.MediaKey("2nd Mar, 2024 10:5", 0)))
	require.NoError(t, err)

	w = env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var entries []*model.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "shipped **markdown** preview", entries[0].Text)
	require.True(t, entries[0].Media.IsImageAvailable())
	require.True(t, entries[0].Media.IsEmbedAvailable())
	require.Equal(t, 2, entries[0].Media.Len())

	w = env.do(httptest.NewRequest(http.MethodGet, "/preview", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
	require.Contains(t, w.Body.String(), "Test Changelog")
	require.Contains(t, w.Body.String(), "<strong>markdown</strong>")
}

func TestCreateEntryConflict(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	values := map[string][]string{"content[text]": {"first"}}
	w := env.do(newFormRequest(t, values, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(newFormRequest(t, map[string][]string{"content[text]": {"second"}}, nil))
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, decodeBody(t, w)["error"], "already exists")
}

func TestCreateEntryBadRequests(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		values map[string][]string
		files  []formFile
		status int
	}{
		{
			name:   "empty text",
			values: map[string][]string{"content[text]": {"   "}},
			status: http.StatusBadRequest,
		},
		{
			name:   "bad date",
			values: map[string][]string{"content[text]": {"x"}, "content[date]": {"yesterday"}},
			status: http.StatusBadRequest,
		},
		{
			name:   "not an image",
			values: map[string][]string{"content[text]": {"x"}},
			files: []formFile{
				{field: "content[media][mediaItems][0]", name: "a.png", content: []byte("plain text")},
			},
			status: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)

			w := env.do(newFormRequest(t, tc.values, tc.files))
			require.Equal(t, tc.status, w.Code, w.Body.String())
			require.NotEmpty(t, decodeBody(t, w)["error"])

			w = env.do(httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, w.Code)
			require.JSONEq(t, `[]`, w.Body.String())

			files, err := os.ReadDir(env.mediaDir)
			require.NoError(t, err)
			require.Empty(t, files)
		})
	}
}

func TestCreateEntryRequiresMultipart(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusForCreateError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
	}{
		{service.ErrEmptyText, http.StatusBadRequest},
		{service.ErrInvalidDate, http.StatusBadRequest},
		{service.ErrInvalidImage, http.StatusBadRequest},
		{service.ErrImageTooLarge, http.StatusRequestEntityTooLarge},
		{service.ErrEntryExists, http.StatusConflict},
		{service.ErrMediaUpload, http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		status, msg := statusForCreateError(fmt.Errorf("wrapped: %w", tc.err))
		require.Equal(t, tc.status, status, tc.err.Error())
		require.NotEmpty(t, msg)
	}
}
