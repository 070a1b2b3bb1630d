package benchmark

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullReport = `This is ApacheBench, Version 2.3 <$Revision: 1903618 $>
Benchmarking localhost (be patient)

Server Software:        uvicorn
Concurrency Level:      10
Time taken for tests:   1.262 seconds
Complete requests:      1000
Failed requests:        0
Total transferred:      188000 bytes
Requests per second:    792.33 [#/sec] (mean)
Time per request:       12.621 [ms] (mean)
Time per request:       1.262 [ms] (mean, across all concurrent requests)
Transfer rate:          145.47 [Kbytes/sec] received
`

func ptr(v float64) *float64 { return &v }

func TestABParser_FullReport(t *testing.T) {
	s := NewABParser().Parse(fullReport)
	assert.Equal(t, ptr(792.33), s.RequestsPerSec)
	assert.Equal(t, ptr(12.621), s.TimePerRequest, "only the (mean) line matches")
	assert.Equal(t, ptr(145.47), s.TransferRate)
	assert.Equal(t, ptr(1000), s.CompleteRequests)
	assert.Equal(t, ptr(0), s.FailedRequests)
}

func TestABParser_PartialReport(t *testing.T) {
	s := NewABParser().Parse("Complete requests:      50\nsomething else\n")
	assert.Equal(t, ptr(50), s.CompleteRequests)
	assert.Nil(t, s.RequestsPerSec)
	assert.Nil(t, s.TimePerRequest)
	assert.Nil(t, s.TransferRate)
	assert.Nil(t, s.FailedRequests)

	data, err := json.Marshal(Summary{CompleteRequests: s.CompleteRequests, File: "a.txt"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"complete_requests": 50, "file": "a.txt"}`, string(data))
}

func TestABParser_InvalidNumberIsAbsent(t *testing.T) {
	s := NewABParser().Parse("Requests per second:    1.2.3 [#/sec] (mean)\n")
	assert.Nil(t, s.RequestsPerSec)
}

func TestABParser_FirstMatchWins(t *testing.T) {
	s := NewABParser().Parse("Failed requests: 3\nFailed requests: 9\n")
	assert.Equal(t, ptr(3), s.FailedRequests)
}

func TestSummarize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run_b.txt"), []byte(fullReport), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run_a.txt"), []byte("nothing here"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte(fullReport), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.txt"), 0o700))

	summaries, err := Summarize(dir, DefaultExtension, NewABParser())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "run_a.txt", summaries[0].File)
	assert.Equal(t, Summary{File: "run_a.txt"}, summaries[0])
	assert.Equal(t, "run_b.txt", summaries[1].File)
	assert.Equal(t, ptr(792.33), summaries[1].RequestsPerSec)
}

func TestSummarize_FollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	reports := t.TempDir()
	target := filepath.Join(reports, "report")
	require.NoError(t, os.WriteFile(target, []byte("Requests per second:    123.45 [#/sec] (mean)\n"), 0o600))
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "run_1.txt")))
	require.NoError(t, os.Symlink(reports, filepath.Join(dir, "archive.txt")))

	summaries, err := Summarize(dir, DefaultExtension, NewABParser())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "run_1.txt", summaries[0].File)
	assert.Equal(t, ptr(123.45), summaries[0].RequestsPerSec)
}

func TestSummarize_UnreadableReport(t *testing.T) {
	t.Run("dangling symlink", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "run_1.txt"), []byte(fullReport), 0o600))
		require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), filepath.Join(dir, "run_2.txt")))

		summaries, err := Summarize(dir, DefaultExtension, NewABParser())
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Nil(t, summaries)
	})

	t.Run("no read permission", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores file permissions")
		}
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "run_1.txt"), []byte(fullReport), 0o000))

		summaries, err := Summarize(dir, DefaultExtension, NewABParser())
		assert.ErrorIs(t, err, os.ErrPermission)
		assert.Nil(t, summaries)
	})
}

func TestSummarize_EmptyDir(t *testing.T) {
	summaries, err := Summarize(t.TempDir(), DefaultExtension, NewABParser())
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestSummarize_MissingDir(t *testing.T) {
	_, err := Summarize(filepath.Join(t.TempDir(), "missing"), DefaultExtension, NewABParser())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteAndLoadSummaries(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultOutputName)
	in := []Summary{
		{RequestsPerSec: ptr(10), File: "a.txt"},
		{FailedRequests: ptr(2), File: "b.txt"},
	}
	require.NoError(t, WriteSummaries(path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  {\n    \"requests_per_sec\": 10,")

	out, err := LoadSummaries(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// overwrite leaves no temp file behind
	require.NoError(t, WriteSummaries(path, in[:1]))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteAndLoadSummaries_ZeroIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultOutputName)
	in := []Summary{{CompleteRequests: ptr(1000), FailedRequests: ptr(0), File: "run.txt"}}
	require.NoError(t, WriteSummaries(path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"failed_requests": 0,`)

	out, err := LoadSummaries(path)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].FailedRequests)
	assert.Equal(t, 0.0, *out[0].FailedRequests)
	assert.Nil(t, out[0].RequestsPerSec)
}

func TestWriteSummaries_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultOutputName)
	require.NoError(t, WriteSummaries(path, nil))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	_, err = LoadSummaries(path)
	assert.ErrorIs(t, err, ErrNoSummaries)
}

func TestLoadSummaries_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSummaries(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))
	_, err = LoadSummaries(empty)
	assert.ErrorIs(t, err, ErrNoSummaries)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("[{"), 0o600))
	_, err = LoadSummaries(broken)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSummaries)

	unnamed := filepath.Join(dir, "unnamed.json")
	require.NoError(t, os.WriteFile(unnamed, []byte(`[{"file": "a.txt"}, {"requests_per_sec": 5}]`), 0o600))
	_, err = LoadSummaries(unnamed)
	assert.ErrorIs(t, err, ErrMissingFile)
}

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	assert.False(t, ok)

	summaries := []Summary{
		{File: "ab_2024_01.txt", RequestsPerSec: ptr(1)},
		{File: "ab_2024_03.txt", RequestsPerSec: ptr(3)},
		{File: "ab_2024_03.txt", RequestsPerSec: ptr(4)},
		{File: "ab_2024_02.txt", RequestsPerSec: ptr(2)},
	}
	latest, ok := Latest(summaries)
	require.True(t, ok)
	assert.Equal(t, ptr(3), latest.RequestsPerSec, "first record wins among equal names")

	// plain string order: "run_9" sorts after "run_10"
	latest, _ = Latest([]Summary{{File: "run_10.txt"}, {File: "run_9.txt"}})
	assert.Equal(t, "run_9.txt", latest.File)
}

func TestValue(t *testing.T) {
	assert.Equal(t, float64(0), Value(nil))
	assert.Equal(t, 2.5, Value(ptr(2.5)))
}
