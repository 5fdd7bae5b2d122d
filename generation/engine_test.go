package generation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ctfhost/content"

	"github.com/stretchr/testify/assert"
)

const testToken = "604ce2915b52dcb693b6db928711c1bb3fd142b52fb634a4df01bd6c"

// countingGenerator records how often it actually ran, so tests can tell a
// cache hit from a regeneration.
type countingGenerator struct {
	calls atomic.Int64
}

func (g *countingGenerator) Generate(ctx context.Context, req *Request) (*content.Task, error) {
	g.calls.Add(1)
	task := *req.Task
	task.Title = "generated " + req.Team
	return &task, nil
}

var counting = &countingGenerator{}

func init() {
	Register("counting", counting)
}

func newTestEngine(t *testing.T) (*Engine, *content.Store) {
	t.Helper()
	store := content.NewStore(t.TempDir(), t.TempDir())
	return NewEngine(store, time.Minute), store
}

func writeTestTask(t *testing.T, store *content.Store, generator string) *content.Task {
	t.Helper()
	task := &content.Task{Id: 1, Title: "orig", Seed: "0123456789abcdef"}
	if err := store.WriteTask(task); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteGenConfig(task.Id, `{"generator": "`+generator+`"}`); err != nil {
		t.Fatal(err)
	}
	return task
}

func TestGetGeneratedTaskCachesInstances(t *testing.T) {
	engine, store := newTestEngine(t)
	task := writeTestTask(t, store, "counting")
	before := counting.calls.Load()

	first, err := engine.GetGeneratedTask(context.Background(), task, testToken, "team1")
	assert.NoError(t, err)
	assert.Equal(t, "generated team1", first.Title)
	assert.Equal(t, before+1, counting.calls.Load())

	second, err := engine.GetGeneratedTask(context.Background(), task, testToken, "team1")
	assert.NoError(t, err)
	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, before+1, counting.calls.Load(), "a fresh instance must be served from the cache")
}

func TestGetGeneratedTaskRegeneratesAfterConfigChange(t *testing.T) {
	engine, store := newTestEngine(t)
	task := writeTestTask(t, store, "counting")
	before := counting.calls.Load()

	_, err := engine.GetGeneratedTask(context.Background(), task, testToken, "team1")
	assert.NoError(t, err)
	assert.Equal(t, before+1, counting.calls.Load())

	// Touch the config into the future, as an operator edit would.
	future := time.Now().Add(time.Hour)
	assert.NoError(t, os.Chtimes(store.GenConfigPath(task.Id), future, future))

	_, err = engine.GetGeneratedTask(context.Background(), task, testToken, "team1")
	assert.NoError(t, err)
	assert.Equal(t, before+2, counting.calls.Load(), "a stale instance must be regenerated")
}

func TestGetGeneratedTaskSeparateTokens(t *testing.T) {
	engine, store := newTestEngine(t)
	task := writeTestTask(t, store, "counting")
	otherToken := "3d9375a8fd28a88e29bd6f5dba72adeac756f7653af1c18e38aaf79a"
	before := counting.calls.Load()

	_, err := engine.GetGeneratedTask(context.Background(), task, testToken, "team1")
	assert.NoError(t, err)
	_, err = engine.GetGeneratedTask(context.Background(), task, otherToken, "team2")
	assert.NoError(t, err)

	assert.Equal(t, before+2, counting.calls.Load(), "every token gets its own instance")
}

func TestGenerateUnknownGeneratorFails(t *testing.T) {
	engine, store := newTestEngine(t)
	task := writeTestTask(t, store, "no-such-generator")

	_, err := engine.GetGeneratedTask(context.Background(), task, testToken, "team1")

	assert.ErrorContains(t, err, "unknown generator")
	instance, _, readErr := store.ReadInstance(task.Id, testToken)
	assert.NoError(t, readErr)
	assert.Nil(t, instance, "a failed generation must leave no instance behind")
}

func TestNoopGeneratorCopiesSourceFiles(t *testing.T) {
	engine, store := newTestEngine(t)
	task := writeTestTask(t, store, "noop")
	src := store.SourceFilesDir(task.Id)
	assert.NoError(t, os.MkdirAll(src, 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(src, "challenge.bin"), []byte("payload"), 0o644))

	generated, err := engine.GetGeneratedTask(context.Background(), task, testToken, "team1")

	assert.NoError(t, err)
	assert.Equal(t, task.Title, generated.Title)
	copied, err := os.ReadFile(filepath.Join(store.InstanceDir(task.Id, testToken), "files", "challenge.bin"))
	assert.NoError(t, err)
	assert.Equal(t, "payload", string(copied))
}

func TestEmbedFlagGenerator(t *testing.T) {
	engine, store := newTestEngine(t)
	task := &content.Task{
		Id:    1,
		Title: "crypto",
		Text:  "your flag is {{FLAG}}",
		Seed:  "0123456789abcdef",
		Flags: []content.FlagChecker{{Type: content.CheckerString, Data: "placeholder"}},
	}
	assert.NoError(t, store.WriteTask(task))
	assert.NoError(t, store.WriteGenConfig(task.Id, `{"generator": "embed-flag"}`))

	generated, err := engine.GetGeneratedTask(context.Background(), task, testToken, "team1")
	assert.NoError(t, err)

	assert.Len(t, generated.Flags, 1)
	flag := generated.Flags[0].Data
	assert.True(t, strings.HasPrefix(flag, "FLAG{"))
	assert.NotEqual(t, "placeholder", flag)
	assert.Contains(t, generated.Text, flag)

	// Same inputs, same flag; different token, different flag.
	again, err := engine.GetGeneratedTask(context.Background(), task, testToken, "team1")
	assert.NoError(t, err)
	assert.Equal(t, flag, again.Flags[0].Data)

	other, err := engine.GetGeneratedTask(context.Background(), task,
		"3d9375a8fd28a88e29bd6f5dba72adeac756f7653af1c18e38aaf79a", "team2")
	assert.NoError(t, err)
	assert.NotEqual(t, flag, other.Flags[0].Data)
}

func TestParseGenConfig(t *testing.T) {
	config, err := ParseGenConfig(`{"generator": "noop", "params": {"depth": "3"}}`)
	assert.NoError(t, err)
	assert.Equal(t, "noop", config.Generator)

	_, err = ParseGenConfig(`{}`)
	assert.Error(t, err)

	_, err = ParseGenConfig(`not json`)
	assert.Error(t, err)
}
