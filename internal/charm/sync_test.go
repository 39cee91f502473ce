// ABOUTME: Tests for translation memory push and pull
// ABOUTME: Uses an in-memory key/value store in place of Charm cloud
package charm

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/harper/transdoc/internal/checksum"
	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/models"
	"github.com/harper/transdoc/internal/storage"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errs.NewNotFound("remote key", key)
	}
	return v, nil
}

func (m *memKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) ListKeys(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func newStore(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.Open(storage.Options{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *storage.Storage, en, fr string) (models.ChunkHash, models.ChunkHash) {
	t.Helper()
	ctx := context.Background()
	eh, _ := s.Content.Put(ctx, "en", en)
	fh, _ := s.Content.Put(ctx, "fr", fr)
	if err := s.Index.Record(ctx, models.Mapping{"en": eh, "fr": fh}, "en"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	return eh, fh
}

func TestPushPull_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()

	local := newStore(t)
	eh, fh := seed(t, local, "Hello.", "Bonjour.")
	_ = local.Index.MarkReviewed(ctx, "fr", fh)

	pushed, err := Push(ctx, local, kv)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if pushed.Records != 2 || pushed.Rows != 1 || pushed.Reviewed != 1 {
		t.Errorf("push report = %+v", pushed)
	}

	again, _ := Push(ctx, local, kv)
	if again.Records != 0 || again.Unchanged != 2 {
		t.Errorf("second push = %+v", again)
	}

	other := newStore(t)
	pulled, err := Pull(ctx, other, kv)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if pulled.Records != 2 || pulled.Rows != 1 || pulled.Reviewed != 1 {
		t.Errorf("pull report = %+v", pulled)
	}

	others, _ := other.Index.Lookup(ctx, "en", eh)
	if others["fr"] != fh {
		t.Errorf("pulled mapping = %v", others)
	}
	if text, _ := other.Content.Get(ctx, "fr", fh); text != "Bonjour." {
		t.Errorf("pulled record = %q", text)
	}
	if ok, _ := other.Index.IsReviewed(ctx, "fr", fh); !ok {
		t.Error("review mark not pulled")
	}

	status, _ := RemoteStatus(kv)
	if status.Records != 2 || status.Reviewed != 1 || !status.HasIndex {
		t.Errorf("status = %+v", status)
	}
}

func TestPull_RejectsTamperedRecords(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	_ = kv.Set(RecordKey("fr", checksum.Hash("Bonjour.")), []byte("Salut."))
	_ = kv.Set(RecordPrefix+"garbage", []byte("x"))

	s := newStore(t)
	report, err := Pull(ctx, s, kv)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if report.Rejected != 2 || report.Records != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestPull_CountsConflicts(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()

	remote := newStore(t)
	seed(t, remote, "Hello.", "Bonjour.")
	if _, err := Push(ctx, remote, kv); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	local := newStore(t)
	seed(t, local, "Hello.", "Salut.")
	report, err := Pull(ctx, local, kv)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if report.Conflicts != 1 || report.Rows != 0 {
		t.Errorf("report = %+v", report)
	}
}

// flakyKV fails reads of one key with a transport error
type flakyKV struct {
	*memKV
	key string
}

func (f flakyKV) Get(key string) ([]byte, error) {
	if key == f.key {
		return nil, errors.New("connection reset by peer")
	}
	return f.memKV.Get(key)
}

func TestPull_IndexReadErrorIsReturned(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	remote := newStore(t)
	seed(t, remote, "Hello.", "Bonjour.")
	if _, err := Push(ctx, remote, kv); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	local := newStore(t)
	_, err := Pull(ctx, local, flakyKV{memKV: kv, key: IndexKey})
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("Pull() error = %v, want the index read failure", err)
	}
	if errors.Is(err, errs.ErrNotFound) {
		t.Error("a transport failure must not look like a missing key")
	}

	empty := newStore(t)
	report, err := Pull(ctx, empty, newMemKV())
	if err != nil {
		t.Fatalf("Pull() of an empty remote error = %v", err)
	}
	if report.Rows != 0 || report.Records != 0 {
		t.Errorf("empty pull = %+v", report)
	}
}

func TestWipe(t *testing.T) {
	kv := newMemKV()
	_ = kv.Set(RecordKey("en", checksum.Hash("a")), []byte("a"))
	_ = kv.Set(IndexKey, []byte("en,fr\n"))
	_ = kv.Set("unrelated", []byte("keep"))

	n, err := Wipe(kv)
	if err != nil || n != 2 {
		t.Errorf("Wipe() = %d, %v", n, err)
	}
	if _, err := kv.Get("unrelated"); err != nil {
		t.Error("Wipe() removed an unrelated key")
	}
}
