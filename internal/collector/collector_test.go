package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/locplot/internal/cache"
	"github.com/panbanda/locplot/internal/testutil"
	"github.com/panbanda/locplot/internal/vcs"
	"github.com/panbanda/locplot/pkg/history"
)

// lineMeasurer reports the number of lines of code.txt as "Text" code.
type lineMeasurer struct {
	calls  atomic.Int32
	failOn string
}

func (m *lineMeasurer) Name() string { return "lines" }

func (m *lineMeasurer) Measure(ctx context.Context, dir string) (history.Measurement, error) {
	m.calls.Add(1)
	data, err := os.ReadFile(filepath.Join(dir, "code.txt"))
	if err != nil {
		return history.Measurement{}, err
	}
	if m.failOn != "" && strings.Contains(string(data), m.failOn) {
		return history.Measurement{}, errors.New("tool crashed")
	}
	n := uint64(strings.Count(string(data), "\n"))
	lc := history.LanguageCount{Language: "Text", Files: 1, Code: n}
	return history.Measurement{
		Languages: []history.LanguageCount{lc},
		Aggregate: history.AggregateCount{Files: 1, Code: n},
	}, nil
}

type testRepo struct {
	*testutil.GitRepo
}

func newTestRepo(t *testing.T, contents ...string) *testRepo {
	t.Helper()
	tr := &testRepo{testutil.NewGitRepo(t)}
	for i, content := range contents {
		tr.Commit(testutil.Day(1+i, 10), map[string]string{"code.txt": content})
	}
	return tr
}

func (tr *testRepo) open(t *testing.T) vcs.Repository {
	t.Helper()
	r, err := vcs.NewGitOpener().Open(tr.Dir)
	require.NoError(t, err)
	return r
}

func codes(h *history.History) []uint64 {
	return h.Totals(history.FieldCode)
}

func TestCollect_Sequential(t *testing.T) {
	tr := newTestRepo(t, "a\n", "a\nb\n", "a\nb\nc\n")
	repo := tr.open(t)

	var progress []int
	m := &lineMeasurer{}
	res, err := New(m, WithProgress(func(done, total int, _ string) {
		progress = append(progress, done)
		assert.Equal(t, 3, total)
	})).Collect(context.Background(), repo, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Measured)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.Equal(t, []uint64{1, 2, 3}, codes(res.History))
	assert.Equal(t, tr.Hashes[0].String(), res.History.Revisions()[0].ID)

	ref, err := repo.CurrentRef()
	require.NoError(t, err)
	assert.Equal(t, "master", ref, "original branch must be restored")
	content, err := os.ReadFile(filepath.Join(tr.Dir, "code.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\n", string(content))
}

func TestCollect_DirtyWorkingDir(t *testing.T) {
	tr := newTestRepo(t, "a\n", "a\nb\n")
	require.NoError(t, os.WriteFile(filepath.Join(tr.Dir, "code.txt"), []byte("local edit\n"), 0644))

	_, err := New(&lineMeasurer{}).Collect(context.Background(), tr.open(t), nil)
	assert.ErrorIs(t, err, vcs.ErrDirtyWorkingDir)
}

func TestCollect_Incremental(t *testing.T) {
	tr := newTestRepo(t, "a\n", "a\nb\n", "a\nb\nc\n")
	repo := tr.open(t)

	first, err := New(&lineMeasurer{}, WithMaxRevisions(2)).Collect(context.Background(), repo, nil)
	require.NoError(t, err)
	require.Equal(t, 2, first.History.Len())
	// The two newest revisions were measured.
	assert.Equal(t, []uint64{2, 3}, codes(first.History))

	m := &lineMeasurer{}
	second, err := New(m).Collect(context.Background(), repo, first.History)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Reused)
	assert.Equal(t, 1, second.Measured)
	assert.Equal(t, int32(1), m.calls.Load())

	require.NoError(t, second.History.Preprocess(true))
	assert.Equal(t, []uint64{1, 2, 3}, codes(second.History))
}

func TestCollect_MeasurementFailureRecordsZero(t *testing.T) {
	tr := newTestRepo(t, "a\n", "a\nboom\n", "a\nb\nc\n")

	var warnings []string
	res, err := New(&lineMeasurer{failOn: "boom"}, WithWarnings(func(msg string) {
		warnings = append(warnings, msg)
	})).Collect(context.Background(), tr.open(t), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{tr.Hashes[1].String()}, res.Failed)
	assert.Equal(t, []uint64{1, 0, 3}, codes(res.History))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "recorded as empty")

	failed := res.History.Revisions()[1]
	assert.Empty(t, failed.Languages())
}

func TestCollect_Parallel(t *testing.T) {
	tr := newTestRepo(t, "a\n", "a\nb\n", "a\nb\nc\n", "a\nb\nc\nd\n")

	res, err := New(&lineMeasurer{}, WithWorkers(3), WithTempDir(t.TempDir())).
		Collect(context.Background(), tr.open(t), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Measured)
	assert.Equal(t, []uint64{1, 2, 3, 4}, codes(res.History))

	// The user's working copy is untouched.
	content, err := os.ReadFile(filepath.Join(tr.Dir, "code.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\nd\n", string(content))
}

func TestCollect_Cache(t *testing.T) {
	tr := newTestRepo(t, "a\n", "a\nb\n")
	c, err := cache.New(filepath.Join(t.TempDir(), "cache"), 0, true)
	require.NoError(t, err)

	_, err = New(&lineMeasurer{}, WithCache(c)).Collect(context.Background(), tr.open(t), nil)
	require.NoError(t, err)

	m := &lineMeasurer{}
	res, err := New(m, WithCache(c)).Collect(context.Background(), tr.open(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Cached)
	assert.Equal(t, int32(0), m.calls.Load())
	assert.Equal(t, []uint64{1, 2}, codes(res.History))
}

func TestCollect_Cancelled(t *testing.T) {
	tr := newTestRepo(t, "a\n", "a\nb\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(&lineMeasurer{}).Collect(ctx, tr.open(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.History.Len())
}

func TestCollect_StopsBetweenRevisions(t *testing.T) {
	tr := newTestRepo(t, "a\n", "a\nb\n", "a\nb\nc\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := New(&lineMeasurer{}, WithProgress(func(done, _ int, _ string) {
		if done == 2 {
			cancel()
		}
	})).Collect(ctx, tr.open(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []uint64{1, 2}, codes(res.History))
}

// scriptedRepo serves fixed log lines; checkouts are no-ops on an empty dir.
type scriptedRepo struct {
	root  string
	lines []string
}

func (r *scriptedRepo) Root() string                           { return r.root }
func (r *scriptedRepo) Resolve(string) (string, error)         { return "head", nil }
func (r *scriptedRepo) RevisionLines(string) ([]string, error) { return r.lines, nil }
func (r *scriptedRepo) IsDirty() (bool, error)                 { return false, nil }
func (r *scriptedRepo) CurrentRef() (string, error)            { return "main", nil }
func (r *scriptedRepo) Checkout(string) error                  { return nil }

func TestCollect_MalformedLines(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "code.txt"), []byte("x\n"), 0644))
	repo := &scriptedRepo{root: root, lines: []string{
		"bbb 2023-01-02 10:00:00",
		"garbage",
		"aaa 2023-01-01 10:00:00",
	}}

	_, err := New(&lineMeasurer{}).Collect(context.Background(), repo, nil)
	assert.ErrorIs(t, err, history.ErrParse)

	res, err := New(&lineMeasurer{}, WithSkipMalformed(true)).Collect(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"garbage"}, res.Skipped)
	assert.Equal(t, 2, res.History.Len())
	assert.Equal(t, "aaa", res.History.Revisions()[0].ID)
}
