package service

import (
	"ctfhost/config"
	"ctfhost/content"
	"ctfhost/utils"
)

type GroupService struct {
	store *content.Store
}

func NewGroupService() *GroupService {
	cfg := config.Env()
	return &GroupService{
		store: content.NewStore(cfg.ContentRoot, cfg.GenPresetsPath),
	}
}

func (e *GroupService) GetGroups() (map[int]*content.Group, error) {
	return e.store.ListGroups()
}

func (e *GroupService) GetGroup(groupId int) (*content.Group, error) {
	return e.store.ReadGroup(groupId)
}

// SaveGroup creates or fully replaces a group record. Reparenting goes
// through Reparent, which cycle-checks; a direct save keeps the current
// parent unless the record is new.
func (e *GroupService) SaveGroup(group *content.Group) (*content.Group, error) {
	if group.Id == 0 {
		id, err := e.store.AllocateGroupId()
		if err != nil {
			return nil, err
		}
		group.Id = id
	} else if existing, err := e.store.ReadGroup(group.Id); err == nil {
		group.Parent = existing.Parent
	}
	if group.Seed == "" {
		group.Seed = utils.RandomHex(8)
	}
	if group.Parent != 0 && !e.store.GroupExists(group.Parent) {
		return nil, content.ErrGroupNotFound
	}
	if err := e.store.WriteGroup(group); err != nil {
		return nil, err
	}
	return group, nil
}

// Reparent validates that the new parent does not introduce a cycle before
// anything is persisted.
func (e *GroupService) Reparent(groupId, newParentId int) error {
	group, err := e.store.ReadGroup(groupId)
	if err != nil {
		return err
	}
	if newParentId != 0 && !e.store.GroupExists(newParentId) {
		return content.ErrGroupNotFound
	}
	ok, err := e.store.MayReparent(groupId, newParentId)
	if err != nil {
		return err
	}
	if !ok {
		return content.ErrCycle
	}
	group.Parent = newParentId
	return e.store.WriteGroup(group)
}

// DeleteGroup removes the group record. Children and member tasks are left
// pointing at the deleted id; the path builder renders them with an
// ellipsis and an admin can reparent them later.
func (e *GroupService) DeleteGroup(groupId int) error {
	return e.store.DeleteGroup(groupId)
}

// GroupPath returns the names from the root to the group, tolerating
// pathological depth and missing ancestors.
func (e *GroupService) GroupPath(groupId int) ([]string, error) {
	groups, err := e.store.ListGroups()
	if err != nil {
		return nil, err
	}
	if _, ok := groups[groupId]; !ok {
		return nil, content.ErrGroupNotFound
	}
	return content.BuildGroupPath(groups, groupId, content.MaxGroupPathDepth), nil
}

func (e *GroupService) GroupPaths() (map[int][]string, error) {
	groups, err := e.store.ListGroups()
	if err != nil {
		return nil, err
	}
	paths := make(map[int][]string, len(groups))
	for id := range groups {
		paths[id] = content.BuildGroupPath(groups, id, content.MaxGroupPathDepth)
	}
	return paths, nil
}
