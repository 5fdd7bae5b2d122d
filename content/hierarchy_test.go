package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), t.TempDir())
}

func mustWriteGroup(t *testing.T, store *Store, group *Group) {
	t.Helper()
	if err := store.WriteGroup(group); err != nil {
		t.Fatalf("writing group %d: %v", group.Id, err)
	}
}

func TestResolveTaskSeedLiteral(t *testing.T) {
	store := newTestStore(t)
	task := &Task{Id: 1, Seed: "0123456789abcdef"}

	seed, err := store.ResolveTaskSeed(task)

	assert.NoError(t, err)
	assert.Equal(t, "0123456789abcdef", seed)
}

func TestResolveTaskSeedInheritsFromGroupChain(t *testing.T) {
	store := newTestStore(t)
	mustWriteGroup(t, store, &Group{Id: 1, Name: "root", Seed: "aaaaaaaaaaaaaaaa"})
	mustWriteGroup(t, store, &Group{Id: 2, Name: "mid", Parent: 1, Seed: SeedInherit})
	mustWriteGroup(t, store, &Group{Id: 3, Name: "leaf", Parent: 2, Seed: SeedInherit})

	seed, err := store.ResolveTaskSeed(&Task{Id: 1, Group: 3, Seed: SeedInherit})

	assert.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaaaaaaaa", seed)
}

func TestResolveTaskSeedInheritWithoutGroupFails(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ResolveTaskSeed(&Task{Id: 1, Group: 0, Seed: SeedInherit})

	assert.ErrorIs(t, err, ErrInvalidInherit)
}

func TestResolveGroupSeedRootInheritFails(t *testing.T) {
	store := newTestStore(t)
	mustWriteGroup(t, store, &Group{Id: 1, Name: "root", Seed: SeedInherit})

	group, err := store.ReadGroup(1)
	assert.NoError(t, err)
	_, err = store.ResolveGroupSeed(group)

	assert.ErrorIs(t, err, ErrInvalidInherit)
}

func TestMayReparentRejectsCycles(t *testing.T) {
	store := newTestStore(t)
	mustWriteGroup(t, store, &Group{Id: 1, Name: "a", Seed: "aaaaaaaaaaaaaaaa"})
	mustWriteGroup(t, store, &Group{Id: 2, Name: "b", Parent: 1, Seed: SeedInherit})
	mustWriteGroup(t, store, &Group{Id: 3, Name: "c", Parent: 2, Seed: SeedInherit})

	ok, err := store.MayReparent(1, 3)
	assert.NoError(t, err)
	assert.False(t, ok, "reparenting a under its own descendant must be rejected")

	ok, err = store.MayReparent(1, 1)
	assert.NoError(t, err)
	assert.False(t, ok, "a group may not become its own parent")

	ok, err = store.MayReparent(3, 1)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.MayReparent(3, 0)
	assert.NoError(t, err)
	assert.True(t, ok, "moving to the root is always allowed")
}

func TestBuildGroupPath(t *testing.T) {
	groups := map[int]*Group{
		1: {Id: 1, Name: "crypto"},
		2: {Id: 2, Name: "rsa", Parent: 1},
		3: {Id: 3, Name: "padding", Parent: 2},
	}

	assert.Equal(t, []string{"crypto", "rsa", "padding"}, BuildGroupPath(groups, 3, MaxGroupPathDepth))
	assert.Equal(t, []string{"crypto"}, BuildGroupPath(groups, 1, MaxGroupPathDepth))
	assert.Empty(t, BuildGroupPath(groups, 0, MaxGroupPathDepth))
}

func TestBuildGroupPathMissingAncestor(t *testing.T) {
	groups := map[int]*Group{
		2: {Id: 2, Name: "rsa", Parent: 1},
	}

	assert.Equal(t, []string{"...", "rsa"}, BuildGroupPath(groups, 2, MaxGroupPathDepth))
}

func TestBuildGroupPathDepthExhausted(t *testing.T) {
	// A cycle that slipped past the reparent check must not hang listings.
	groups := map[int]*Group{
		1: {Id: 1, Name: "a", Parent: 2},
		2: {Id: 2, Name: "b", Parent: 1},
	}

	path := BuildGroupPath(groups, 1, 5)

	assert.Equal(t, "...", path[0])
	assert.Len(t, path, 6)
}

func TestResolveGenConfigPrefersOwnFile(t *testing.T) {
	store := newTestStore(t)
	task := &Task{Id: 1, Seed: "aaaaaaaaaaaaaaaa"}
	assert.NoError(t, store.WriteTask(task))
	assert.NoError(t, store.WriteGenConfig(1, `{"generator": "embed-flag"}`))

	config, err := store.ResolveGenConfig(task)

	assert.NoError(t, err)
	assert.Equal(t, `{"generator": "embed-flag"}`, config)
}

func TestResolveGenConfigInheritsFromGroupAndPersists(t *testing.T) {
	store := newTestStore(t)
	mustWriteGroup(t, store, &Group{Id: 1, Name: "pwn", Seed: "aaaaaaaaaaaaaaaa", GenConfig: `{"generator": "embed-flag"}`})
	task := &Task{Id: 1, Group: 1, Seed: "bbbbbbbbbbbbbbbb"}
	assert.NoError(t, store.WriteTask(task))

	config, err := store.ResolveGenConfig(task)

	assert.NoError(t, err)
	assert.Equal(t, `{"generator": "embed-flag"}`, config)
	// Resolution writes the inherited config to the task's own file.
	assert.True(t, store.HasGenConfig(1))
}

func TestResolveGenConfigFallsBackToNoop(t *testing.T) {
	store := newTestStore(t)
	task := &Task{Id: 1, Seed: "aaaaaaaaaaaaaaaa"}
	assert.NoError(t, store.WriteTask(task))

	config, err := store.ResolveGenConfig(task)

	assert.NoError(t, err)
	assert.Equal(t, DefaultGenConfig, config)
	assert.True(t, store.HasGenConfig(1))
}
