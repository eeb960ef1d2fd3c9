package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/dao"
	"github.com/Laisky/laisky-changelog/internal/web/changelog/dto"
	"github.com/Laisky/laisky-changelog/internal/web/changelog/model"
)

type fakeEntryStore struct {
	mu      sync.Mutex
	order   []string
	data    map[string]string
	listErr error
	getErrs map[string]error
	putErr  error
	puts    int
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{data: map[string]string{}, getErrs: map[string]error{}}
}

func (f *fakeEntryStore) ListKeys(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.order...), nil
}

func (f *fakeEntryStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErrs[key]; err != nil {
		return "", err
	}
	v, ok := f.data[key]
	if !ok {
		return "", errors.WithStack(dao.ErrNotFound)
	}
	return v, nil
}

func (f *fakeEntryStore) Put(_ context.Context, key, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.set(key, payload)
	return nil
}

func (f *fakeEntryStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok, nil
}

// seed stores payload without counting a put
func (f *fakeEntryStore) seed(key, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set(key, payload)
}

func (f *fakeEntryStore) set(key, payload string) {
	if _, ok := f.data[key]; !ok {
		f.order = append(f.order, key)
	}
	f.data[key] = payload
}

type fakeMediaStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	failAtPut int // 1-based, 0 never fails
	puts      int
	removed   []string
	listErr   error
	lists     int
	exists    int
}

func newFakeMediaStore() *fakeMediaStore {
	return &fakeMediaStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeMediaStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.failAtPut != 0 && f.puts == f.failAtPut {
		return "", errors.New("bucket unavailable")
	}
	cnt, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.objects[key] = cnt
	f.types[key] = contentType
	return f.URL(key), nil
}

func (f *fakeMediaStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeMediaStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exists++
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeMediaStore) List(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var keys []string
	for k := range f.objects {
		keys = append(keys, k)
	}
	return keys, nil
}

func (f *fakeMediaStore) URL(key string) string {
	return "https://media.test/" + key
}

type fakeNotifier struct {
	err  error
	done chan string
}

func newFakeNotifier(err error) *fakeNotifier {
	return &fakeNotifier{err: err, done: make(chan string, 1)}
}

func (f *fakeNotifier) Notify(_ context.Context, entry *model.Entry) error {
	f.done <- entry.Date
	return f.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func upload(name string, content []byte) dto.ImageUpload {
	return dto.ImageUpload{
		Filename: name,
		Size:     int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func newTestService(t *testing.T, entries *fakeEntryStore, media *fakeMediaStore, opts ...Option) *Service {
	t.Helper()
	loc := kolkata(t)
	base := []Option{
		WithLocation(loc),
		WithClock(func() time.Time { return time.Date(2024, 3, 2, 10, 5, 30, 0, loc) }),
		WithListConcurrency(4),
	}
	svc, err := New(entries, media, append(base, opts...)...)
	require.NoError(t, err)
	return svc
}
