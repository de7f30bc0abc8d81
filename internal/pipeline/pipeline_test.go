package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockfetch/internal/fetcher"
	"stockfetch/internal/progress"
	"stockfetch/internal/retry"
	"stockfetch/internal/testutil"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.MinBackoff = 0
	cfg.MaxBackoff = time.Millisecond
	return cfg
}

func openFileStore(t *testing.T, fs afero.Fs) (*progress.Progress[string], *progress.FileBackend) {
	t.Helper()
	backend := progress.NewFileBackend(fs, "/state/progress.json")
	store, err := progress.Open[string](context.Background(), backend)
	require.NoError(t, err)
	return store, backend
}

func readProgressFile(t *testing.T, fs afero.Fs) map[string]string {
	t.Helper()
	data, err := afero.ReadFile(fs, "/state/progress.json")
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	return got
}

func TestRun_FailedSymbolIsDroppedOthersPersisted(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, _ := openFileStore(t, fs)

	mock := testutil.NewMockFetcher(
		map[string]string{"AAA": "ok1", "CCC": "ok3"},
		map[string]error{"BBB": errors.New("upstream 503")},
	)

	cfg := fastConfig()
	cfg.MaxRetries = 1
	p, err := New(store, cfg)
	require.NoError(t, err)

	report, err := p.Run(context.Background(), []string{"AAA", "BBB", "CCC"}, fetcher.FuncOf[string](mock))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"ok1", "ok3"}, report.Results)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, mock.Calls("BBB"))
	assert.Equal(t, 1, mock.Calls("AAA"))

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "BBB", report.Failures[0].Key)
	assert.Equal(t, 2, report.Failures[0].Attempts)
	assert.ErrorIs(t, report.Failures[0].Err, retry.ErrRetryExhausted)

	assert.Equal(t, map[string]string{"AAA": "ok1", "CCC": "ok3"}, readProgressFile(t, fs))
	assert.False(t, report.Interrupted())
}

func TestRun_ResumeSkipsRecordedSymbols(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/state/progress.json", []byte(`{"AAA": "ok1", "CCC": "ok3"}`), 0o644))
	store, _ := openFileStore(t, fs)

	mock := testutil.NewMockFetcher(map[string]string{"BBB": "ok2"}, nil)

	p, err := New(store, fastConfig())
	require.NoError(t, err)

	report, err := p.Run(context.Background(), []string{"CCC", "BBB", "AAA"}, fetcher.FuncOf[string](mock))
	require.NoError(t, err)

	// Recorded payloads come first, in input order.
	assert.Equal(t, []string{"ok3", "ok1", "ok2"}, report.Results)
	assert.Equal(t, []string{"CCC", "AAA", "BBB"}, report.Keys)
	assert.Equal(t, 2, report.AlreadyDone)
	assert.Equal(t, 0, mock.Calls("AAA"))
	assert.Equal(t, 0, mock.Calls("CCC"))
	assert.Equal(t, 1, mock.Calls("BBB"))
}

func TestRun_SecondRunMakesNoCalls(t *testing.T) {
	fs := afero.NewMemMapFs()
	symbols := []string{"AAA", "BBB", "CCC"}
	mock := testutil.NewMockFetcher(map[string]string{"AAA": "1", "BBB": "2", "CCC": "3"}, nil)

	store, _ := openFileStore(t, fs)
	p, err := New(store, fastConfig())
	require.NoError(t, err)
	_, err = p.Run(context.Background(), symbols, fetcher.FuncOf[string](mock))
	require.NoError(t, err)
	require.Equal(t, 3, mock.TotalCalls())

	store, _ = openFileStore(t, fs)
	p, err = New(store, fastConfig())
	require.NoError(t, err)
	report, err := p.Run(context.Background(), symbols, fetcher.FuncOf[string](mock))
	require.NoError(t, err)

	assert.Equal(t, 3, mock.TotalCalls())
	assert.Equal(t, []string{"1", "2", "3"}, report.Results)
	assert.Equal(t, 3, report.AlreadyDone)
}

func TestRun_ZeroRetriesCallsOnce(t *testing.T) {
	store, _ := openFileStore(t, afero.NewMemMapFs())
	mock := testutil.NewMockFetcher[string](nil, map[string]error{"BAD": errors.New("boom")})

	cfg := fastConfig()
	cfg.MaxRetries = 0
	p, err := New(store, cfg)
	require.NoError(t, err)

	report, err := p.Run(context.Background(), []string{"BAD"}, fetcher.FuncOf[string](mock))
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls("BAD"))
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, report.Results)
}

func TestRun_DuplicateSymbolsFetchedOnce(t *testing.T) {
	store, _ := openFileStore(t, afero.NewMemMapFs())
	mock := testutil.NewMockFetcher(map[string]string{"AAA": "ok"}, nil)

	p, err := New(store, fastConfig())
	require.NoError(t, err)

	report, err := p.Run(context.Background(), []string{"AAA", "AAA", "AAA"}, fetcher.FuncOf[string](mock))
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls("AAA"))
	assert.Equal(t, 2, report.Duplicates)
	assert.Equal(t, 3, report.Input)
	assert.Equal(t, []string{"ok"}, report.Results)
}

func TestRun_EmptyInput(t *testing.T) {
	store, _ := openFileStore(t, afero.NewMemMapFs())
	p, err := New(store, fastConfig())
	require.NoError(t, err)

	report, err := p.Run(context.Background(), nil, func(context.Context, string) (string, error) {
		t.Fatal("fetch must not be called")
		return "", nil
	})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.NotEmpty(t, report.RunID)
}

type snapshotCall struct {
	Seq     int
	Results []string
}

func TestRun_SnapshotCadence(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/state/progress.json", []byte(`{"OLD": "old"}`), 0o644))
	store, _ := openFileStore(t, fs)

	var mu sync.Mutex
	var calls []snapshotCall
	snap := func(ctx context.Context, seq int, results []string) error {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, snapshotCall{Seq: seq, Results: results})
		return nil
	}

	cfg := fastConfig()
	cfg.MaxConcurrency = 1
	cfg.CheckpointInterval = 2
	p, err := New(store, cfg, WithSnapshot(snap))
	require.NoError(t, err)

	symbols := []string{"OLD", "S1", "S2", "S3", "S4", "S5"}
	report, err := p.Run(context.Background(), symbols, func(ctx context.Context, key string) (string, error) {
		return "v" + key, nil
	})
	require.NoError(t, err)

	want := []snapshotCall{
		{Seq: 2, Results: []string{"old", "vS1", "vS2"}},
		{Seq: 4, Results: []string{"old", "vS1", "vS2", "vS3", "vS4"}},
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("snapshot calls mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, report.Snapshots)
}

func TestRun_SnapshotErrorIsNotFatal(t *testing.T) {
	store, _ := openFileStore(t, afero.NewMemMapFs())

	cfg := fastConfig()
	cfg.CheckpointInterval = 1
	p, err := New(store, cfg, WithSnapshot(func(context.Context, int, []string) error {
		return errors.New("disk full")
	}))
	require.NoError(t, err)

	report, err := p.Run(context.Background(), []string{"A", "B"}, func(ctx context.Context, key string) (string, error) {
		return key, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Snapshots)
}

type brokenBackend struct{}

func (brokenBackend) Load(context.Context) (map[string]json.RawMessage, error) {
	return map[string]json.RawMessage{}, nil
}

func (brokenBackend) Save(context.Context, map[string]json.RawMessage) error {
	return errors.New("read-only filesystem")
}

func TestRun_PersistenceErrorKeepsResult(t *testing.T) {
	store, err := progress.Open[string](context.Background(), brokenBackend{})
	require.NoError(t, err)

	p, err := New(store, fastConfig())
	require.NoError(t, err)

	report, err := p.Run(context.Background(), []string{"AAA"}, func(context.Context, string) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, report.Results)
	assert.Equal(t, 1, report.PersistErrors)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Unsaved)
}

// flakyAppender rejects the first failures Put calls.
type flakyAppender struct {
	mu       sync.Mutex
	failures int
	stored   map[string]json.RawMessage
}

func (b *flakyAppender) Load(context.Context) (map[string]json.RawMessage, error) {
	return nil, nil
}

func (b *flakyAppender) Save(context.Context, map[string]json.RawMessage) error {
	return errors.New("unexpected full save")
}

func (b *flakyAppender) Put(_ context.Context, key string, payload json.RawMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--
		return errors.New("connection reset by peer")
	}
	if b.stored == nil {
		b.stored = make(map[string]json.RawMessage)
	}
	b.stored[key] = payload
	return nil
}

func TestRun_FailedPutIsFlushedAtEnd(t *testing.T) {
	backend := &flakyAppender{failures: 1}
	store, err := progress.Open[string](context.Background(), backend)
	require.NoError(t, err)

	p, err := New(store, fastConfig())
	require.NoError(t, err)

	report, err := p.Run(context.Background(), []string{"AAA"}, func(context.Context, string) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.PersistErrors)
	assert.Zero(t, report.Unsaved)
	assert.JSONEq(t, `"ok"`, string(backend.stored["AAA"]))
}

func TestRun_FailedPutRetriedByNextRecord(t *testing.T) {
	backend := &flakyAppender{failures: 1}
	store, err := progress.Open[string](context.Background(), backend)
	require.NoError(t, err)

	cfg := fastConfig()
	cfg.MaxConcurrency = 1
	p, err := New(store, cfg)
	require.NoError(t, err)

	report, err := p.Run(context.Background(), []string{"AAA", "BBB"}, func(_ context.Context, key string) (string, error) {
		return "ok-" + key, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.PersistErrors)
	assert.Zero(t, report.Unsaved)
	assert.Len(t, backend.stored, 2)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	store, _ := openFileStore(t, afero.NewMemMapFs())
	mock := testutil.NewMockFetcher(map[string]string{"A": "a", "B": "b"}, nil)

	p, err := New(store, fastConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Run(ctx, []string{"A", "B"}, fetcher.FuncOf[string](mock))
	require.NoError(t, err)
	assert.Equal(t, 0, mock.TotalCalls())
	assert.Equal(t, 2, report.Pending)
	assert.True(t, report.Interrupted())
}

func TestRun_CancelWhileInFlightRecordsResult(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, _ := openFileStore(t, fs)

	cfg := fastConfig()
	cfg.MaxConcurrency = 1
	p, err := New(store, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	var once sync.Once
	mock := testutil.NewMockFetcher(map[string]string{"AAA": "a", "BBB": "b", "CCC": "c"}, nil)

	go func() {
		<-started
		cancel()
	}()

	report, err := p.Run(ctx, []string{"AAA", "BBB", "CCC"}, func(fctx context.Context, key string) (string, error) {
		once.Do(func() { close(started) })
		select {
		case <-fctx.Done():
			return "", fctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
		return mock.Fetch(fctx, key)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 2, report.Pending)
	assert.Equal(t, []string{"a"}, report.Results)
	assert.Equal(t, map[string]string{"AAA": "a"}, readProgressFile(t, fs))
	assert.Equal(t, 1, mock.TotalCalls())
}

func TestRun_CancelDuringBackoffLeavesSymbolPending(t *testing.T) {
	store, _ := openFileStore(t, afero.NewMemMapFs())

	cfg := fastConfig()
	cfg.MaxConcurrency = 1
	cfg.MaxRetries = 3
	cfg.MinBackoff = time.Second
	cfg.MaxBackoff = time.Second
	p, err := New(store, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mock := testutil.NewMockFetcher[string](nil, map[string]error{"AAA": errors.New("upstream 503")})

	start := time.Now()
	report, err := p.Run(ctx, []string{"AAA"}, func(fctx context.Context, key string) (string, error) {
		cancel()
		return mock.Fetch(fctx, key)
	})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Zero(t, report.Failed)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1, report.Pending)
	assert.True(t, report.Interrupted())
	assert.Equal(t, 1, mock.Calls("AAA"))
	assert.False(t, store.Has("AAA"))
}

func TestRun_BoundedConcurrency(t *testing.T) {
	store, _ := openFileStore(t, afero.NewMemMapFs())
	probe := &testutil.ConcurrencyProbe{}

	cfg := fastConfig()
	cfg.MaxConcurrency = 3
	p, err := New(store, cfg)
	require.NoError(t, err)

	symbols := make([]string, 12)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%02d", i)
	}

	report, err := p.Run(context.Background(), symbols, func(ctx context.Context, key string) (string, error) {
		probe.Hold(20 * time.Millisecond)
		return key, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 12, report.Succeeded)
	assert.LessOrEqual(t, probe.Peak(), 3)
	assert.ElementsMatch(t, symbols, report.Results)
}

func TestRun_NilFetch(t *testing.T) {
	store, _ := openFileStore(t, afero.NewMemMapFs())
	p, err := New(store, fastConfig())
	require.NoError(t, err)

	_, err = p.Run(context.Background(), []string{"A"}, nil)
	assert.ErrorIs(t, err, ErrNilFetch)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	store, _ := openFileStore(t, afero.NewMemMapFs())

	cfg := DefaultConfig()
	cfg.MaxConcurrency = 0
	_, err := New(store, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New[string](nil, DefaultConfig())
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, false},
		{"zero concurrency", func(c *Config) { c.MaxConcurrency = 0 }, true},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, true},
		{"negative min backoff", func(c *Config) { c.MinBackoff = -time.Second }, true},
		{"min above max", func(c *Config) { c.MinBackoff = 20 * time.Second }, true},
		{"zero checkpoint", func(c *Config) { c.CheckpointInterval = 0 }, true},
		{"negative attempt timeout", func(c *Config) { c.AttemptTimeout = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	want := Config{
		MaxConcurrency:     10,
		MaxRetries:         3,
		MinBackoff:         5 * time.Second,
		MaxBackoff:         10 * time.Second,
		CheckpointInterval: 100,
	}
	if diff := cmp.Diff(want, DefaultConfig(), cmpopts.IgnoreFields(Config{}, "Classify")); diff != "" {
		t.Errorf("DefaultConfig() mismatch (-want +got):\n%s", diff)
	}

	policy := DefaultConfig().Policy()
	assert.Equal(t, 4, policy.Attempts())
}
