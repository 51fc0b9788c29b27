package scripting

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/l1jgo/progress/internal/progress"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

func TestEngineLoadsTasksFromDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_shaders.lua"), []byte(`
local compiled = 0
register_task("shaders", function(dt)
  compiled = compiled + 1
  return compiled, 3
end)
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_warmup.lua"), []byte(`
register_task("warmup", function(dt) return true end, true)
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	tasks := e.Tasks()
	require.Len(t, tasks, 2)
	require.Equal(t, "warmup", tasks[0].Name)
	require.True(t, tasks[0].Hidden)
	require.Equal(t, "shaders", tasks[1].Name)

	p, err := e.Poll(tasks[0], time.Second)
	require.NoError(t, err)
	require.Equal(t, progress.Progress{Done: 1, Total: 1}, p)

	for want := uint32(1); want <= 3; want++ {
		p, err = e.Poll(tasks[1], 100*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, progress.Progress{Done: want, Total: 3}, p)
	}
}

func TestEngineMissingDirIsEmpty(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	require.Empty(t, e.Tasks())
}

func TestEngineSyntaxErrorFailsLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.lua"), []byte("register_task(("), 0o644))
	_, err := NewEngine(dir, zap.NewNop())
	require.Error(t, err)
}

func TestEnginePollErrors(t *testing.T) {
	t.Parallel()

	e, err := NewEngine("", zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.LoadString(`
register_task("boom", function(dt) error("disk on fire") end)
register_task("words", function(dt) return "a", "b" end)
register_task("negative", function(dt) return -4, 2.9 end)
`))
	tasks := e.Tasks()
	require.Len(t, tasks, 3)

	_, err = e.Poll(tasks[0], 0)
	require.ErrorContains(t, err, "disk on fire")

	_, err = e.Poll(tasks[1], 0)
	require.ErrorContains(t, err, "expected (done, total)")

	p, err := e.Poll(tasks[2], 0)
	require.NoError(t, err)
	require.Equal(t, progress.Progress{Done: 0, Total: 2}, p)
}

func TestEngineReRegisterReplacesTask(t *testing.T) {
	t.Parallel()

	e, err := NewEngine("", zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.LoadString(`register_task("t", function() return 0, 1 end)`))
	require.NoError(t, e.LoadString(`register_task("t", function() return 1, 1 end)`))
	require.Len(t, e.Tasks(), 1)

	p, err := e.Poll(e.Tasks()[0], 0)
	require.NoError(t, err)
	require.True(t, p.IsReady())
}

func TestToCountClampsOddNumbers(t *testing.T) {
	t.Parallel()

	nan := lua.LNumber(math.NaN())
	require.Zero(t, toCount(nan))
	require.Zero(t, toCount(-3))
	require.Equal(t, uint32(7), toCount(7.9))
	require.Equal(t, ^uint32(0), toCount(lua.LNumber(math.Inf(1))))
	require.Equal(t, ^uint32(0), toCount(1e12))
}

func TestEnginePollNaNCountsAsZero(t *testing.T) {
	t.Parallel()

	e, err := NewEngine("", zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.LoadString(`register_task("nan", function(dt) return 0/0, 4 end)`))

	p, err := e.Poll(e.Tasks()[0], time.Second)
	require.NoError(t, err)
	require.Equal(t, progress.Progress{Done: 0, Total: 4}, p)
}
