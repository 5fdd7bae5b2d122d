package content

import (
	"fmt"
	"strings"
)

// maxInheritDepth bounds every walk up the parent chain. Reparenting is
// cycle-checked before being persisted, so a deeper chain than this means
// the store is corrupt.
const maxInheritDepth = 64

// MaxGroupPathDepth is how many hops BuildGroupPath follows before giving
// up and prefixing an ellipsis instead of failing.
const MaxGroupPathDepth = 30

// ResolveTaskSeed returns the literal seed for a task, following group
// inheritance when the task's own seed is "inherit".
func (s *Store) ResolveTaskSeed(task *Task) (string, error) {
	if task.Seed != SeedInherit {
		return task.Seed, nil
	}
	if task.Group == 0 {
		return "", fmt.Errorf("task %d: %w", task.Id, ErrInvalidInherit)
	}
	group, err := s.ReadGroup(task.Group)
	if err != nil {
		return "", err
	}
	return s.ResolveGroupSeed(group)
}

// ResolveGroupSeed resolves "inherit" up the parent chain. A root-parented
// group whose own seed is "inherit" has nothing left to inherit from.
func (s *Store) ResolveGroupSeed(group *Group) (string, error) {
	current := group
	for depth := 0; depth < maxInheritDepth; depth++ {
		if current.Seed != SeedInherit {
			return current.Seed, nil
		}
		if current.Parent == 0 {
			return "", fmt.Errorf("group %d: %w", current.Id, ErrInvalidInherit)
		}
		next, err := s.ReadGroup(current.Parent)
		if err != nil {
			return "", err
		}
		current = next
	}
	return "", fmt.Errorf("group %d: inheritance chain exceeds %d hops: %w", group.Id, maxInheritDepth, ErrInvalidInherit)
}

// MayReparent simulates setting group.parent = newParentId and reports
// whether the parent chain still reaches the root. It must be consulted
// before any reparent is persisted.
func (s *Store) MayReparent(groupId, newParentId int) (bool, error) {
	visited := map[int]bool{groupId: true}
	current := newParentId
	for current != 0 {
		if visited[current] {
			return false, nil
		}
		visited[current] = true
		group, err := s.ReadGroup(current)
		if err != nil {
			return false, err
		}
		current = group.Parent
	}
	return true, nil
}

// BuildGroupPath returns group names from the root down to groupId. It
// works on an already loaded group table so admin listings do not hit the
// store once per row. Pathological depth or a missing ancestor produces an
// ellipsis prefix instead of an error.
func BuildGroupPath(groups map[int]*Group, groupId int, maxDepth int) []string {
	path := make([]string, 0)
	current := groupId
	for depth := 0; ; depth++ {
		if current == 0 {
			return path
		}
		if depth >= maxDepth {
			return append([]string{"..."}, path...)
		}
		group, ok := groups[current]
		if !ok {
			return append([]string{"..."}, path...)
		}
		path = append([]string{group.Name}, path...)
		current = group.Parent
	}
}

// ResolveGenConfig returns the task's effective generation config,
// inheriting from its group chain and falling back to the built-in noop
// config. The resolved fallback is persisted to the task's config file so
// later staleness checks have a concrete modification time to compare
// against.
func (s *Store) ResolveGenConfig(task *Task) (string, error) {
	if s.HasGenConfig(task.Id) {
		return s.ReadGenConfig(task.Id)
	}
	config := DefaultGenConfig
	if task.Group != 0 {
		inherited, err := s.inheritedGroupConfig(task.Group)
		if err != nil {
			return "", err
		}
		if inherited != "" {
			config = inherited
		}
	}
	if err := s.WriteGenConfig(task.Id, config); err != nil {
		return "", err
	}
	return config, nil
}

func (s *Store) inheritedGroupConfig(groupId int) (string, error) {
	current := groupId
	for depth := 0; depth < maxInheritDepth; depth++ {
		group, err := s.ReadGroup(current)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(group.GenConfig) != "" {
			return group.GenConfig, nil
		}
		if group.Parent == 0 {
			return "", nil
		}
		current = group.Parent
	}
	return "", fmt.Errorf("group %d: inheritance chain exceeds %d hops: %w", groupId, maxInheritDepth, ErrInvalidInherit)
}
