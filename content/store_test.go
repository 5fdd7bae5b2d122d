package content

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllocateIdsAreMonotonicAndIndependent(t *testing.T) {
	store := newTestStore(t)

	first, err := store.AllocateTaskId()
	assert.NoError(t, err)
	second, err := store.AllocateTaskId()
	assert.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)

	// Group ids count separately from task ids.
	groupId, err := store.AllocateGroupId()
	assert.NoError(t, err)
	assert.Equal(t, 1, groupId)
}

func TestTaskRoundtrip(t *testing.T) {
	store := newTestStore(t)
	task := &Task{
		Id:     1,
		Title:  "warmup",
		Text:   "connect and read the flag",
		Value:  100,
		Labels: []string{"misc"},
		Flags:  []FlagChecker{{Type: CheckerString, Data: "FLAG{hello}"}},
		Seed:   "0123456789abcdef",
		Hints: []Hint{
			{HexId: "00112233445566778899aabbccddeeff", Text: "try nc", Cost: 10},
		},
	}

	assert.NoError(t, store.WriteTask(task))
	got, err := store.ReadTask(1)

	assert.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestReadTaskNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReadTask(42)

	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestWriteTaskRejectsInvalidRecords(t *testing.T) {
	store := newTestStore(t)

	valErr := &ValidationError{}
	err := store.WriteTask(&Task{Id: 1, Seed: "UPPERCASE-IS-BAD"})
	assert.ErrorAs(t, err, &valErr)

	err = store.WriteTask(&Task{Id: 1, Seed: "0123456789abcdef", Hints: []Hint{
		{HexId: "00112233445566778899aabbccddeeff", Cost: 1},
		{HexId: "00112233445566778899aabbccddeeff", Cost: 2},
	}})
	assert.ErrorAs(t, err, &valErr)
}

func TestListTasksOrdersByGroupOrderId(t *testing.T) {
	store := newTestStore(t)
	seeds := "0123456789abcdef"
	assert.NoError(t, store.WriteTask(&Task{Id: 1, Group: 2, Order: 1, Seed: seeds}))
	assert.NoError(t, store.WriteTask(&Task{Id: 2, Group: 1, Order: 5, Seed: seeds}))
	assert.NoError(t, store.WriteTask(&Task{Id: 3, Group: 1, Order: 2, Seed: seeds}))

	tasks, err := store.ListTasks()

	assert.NoError(t, err)
	ids := make([]int, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.Id)
	}
	assert.Equal(t, []int{3, 2, 1}, ids)
}

func TestDeleteGroupKeepsChildren(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.WriteGroup(&Group{Id: 1, Name: "parent", Seed: "aaaaaaaaaaaaaaaa"}))
	assert.NoError(t, store.WriteGroup(&Group{Id: 2, Name: "child", Parent: 1, Seed: SeedInherit}))

	assert.NoError(t, store.DeleteGroup(1))

	assert.ErrorIs(t, store.DeleteGroup(1), ErrGroupNotFound)
	child, err := store.ReadGroup(2)
	assert.NoError(t, err)
	assert.Equal(t, 1, child.Parent)
}

func TestReadPresetFallsBackToBuiltinNoop(t *testing.T) {
	store := newTestStore(t)

	config, err := store.ReadPreset("noop")
	assert.NoError(t, err)
	assert.Equal(t, DefaultGenConfig, config)

	_, err = store.ReadPreset("does-not-exist")
	assert.ErrorIs(t, err, ErrPresetNotFound)
}

func TestReadPresetFromDisk(t *testing.T) {
	store := newTestStore(t)
	preset := `{"generator": "embed-flag"}` + "\n"
	assert.NoError(t, os.WriteFile(filepath.Join(store.PresetsDir, "embed.cfg"), []byte(preset), 0o644))

	config, err := store.ReadPreset("embed")

	assert.NoError(t, err)
	assert.Equal(t, preset, config)
}

func TestReadInstanceIgnoresHalfWrittenInstances(t *testing.T) {
	store := newTestStore(t)
	task := &Task{Id: 1, Seed: "0123456789abcdef"}
	assert.NoError(t, store.WriteTask(task))
	token := "604ce2915b52dcb693b6db928711c1bb3fd142b52fb634a4df01bd6c"

	// No instance at all.
	instance, _, err := store.ReadInstance(1, token)
	assert.NoError(t, err)
	assert.Nil(t, instance)

	// Instance directory with content but no stamp: the publish never
	// completed, so the instance must not be served.
	dir := store.InstanceDir(1, token)
	assert.NoError(t, os.MkdirAll(dir, 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "task.json"), []byte(`{"id": 1}`), 0o644))
	instance, _, err = store.ReadInstance(1, token)
	assert.NoError(t, err)
	assert.Nil(t, instance)
}

func TestPublishInstanceRoundtrip(t *testing.T) {
	store := newTestStore(t)
	task := &Task{Id: 1, Title: "orig", Seed: "0123456789abcdef"}
	assert.NoError(t, store.WriteTask(task))
	token := "604ce2915b52dcb693b6db928711c1bb3fd142b52fb634a4df01bd6c"

	staged, err := store.StageInstance(1)
	assert.NoError(t, err)
	generated := &Task{Id: 1, Title: "per-team", Seed: "0123456789abcdef"}
	publishedAt := time.Now()
	assert.NoError(t, store.PublishInstance(1, token, staged, generated, publishedAt))

	instance, generatedAt, err := store.ReadInstance(1, token)
	assert.NoError(t, err)
	assert.Equal(t, "per-team", instance.Title)
	assert.WithinDuration(t, publishedAt, generatedAt, time.Second)
}

func TestGlobalSeedIsStable(t *testing.T) {
	store := newTestStore(t)

	first, err := store.GlobalSeed()
	assert.NoError(t, err)
	assert.Len(t, first, 32)

	second, err := store.GlobalSeed()
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}
