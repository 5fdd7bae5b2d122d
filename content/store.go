package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"ctfhost/utils"
)

// DefaultGenConfig is the config every task falls back to when neither it
// nor any of its groups carries one. The noop generator copies the task
// through unchanged.
const DefaultGenConfig = `{"generator": "noop"}` + "\n"

const stampFile = ".generated"

// Store is the durable content store: task and group definitions as JSON
// records plus the generated per-team instances, all laid out under a
// single root directory.
type Store struct {
	Root       string
	PresetsDir string

	mu sync.Mutex
}

func NewStore(root, presetsDir string) *Store {
	return &Store{Root: root, PresetsDir: presetsDir}
}

func (s *Store) TaskDir(taskId int) string {
	return filepath.Join(s.Root, "tasks", strconv.Itoa(taskId))
}

func (s *Store) taskPath(taskId int) string {
	return filepath.Join(s.TaskDir(taskId), "task.json")
}

func (s *Store) groupPath(groupId int) string {
	return filepath.Join(s.Root, "groups", strconv.Itoa(groupId)+".json")
}

func (s *Store) GenConfigPath(taskId int) string {
	return filepath.Join(s.TaskDir(taskId), "generate.cfg")
}

// SourceFilesDir holds operator-provided files a generator may want to
// copy or transform into each instance.
func (s *Store) SourceFilesDir(taskId int) string {
	return filepath.Join(s.TaskDir(taskId), "files")
}

func (s *Store) InstanceDir(taskId int, token string) string {
	return filepath.Join(s.TaskDir(taskId), "generated", token)
}

func (s *Store) CompetitionConfigPath() string {
	return filepath.Join(s.Root, "competition.json")
}

// Id allocation

func (s *Store) AllocateTaskId() (int, error) {
	return s.allocateId(filepath.Join(s.Root, "tasks-etc", "maxid.txt"))
}

func (s *Store) AllocateGroupId() (int, error) {
	return s.allocateId(filepath.Join(s.Root, "tasks-etc", "maxgroupid.txt"))
}

func (s *Store) allocateId(counterPath string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := 0
	data, err := os.ReadFile(counterPath)
	if err == nil {
		last, err = strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			return 0, fmt.Errorf("corrupt id counter %s: %w", counterPath, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}
	next := last + 1
	if err := writeFileAtomic(counterPath, []byte(strconv.Itoa(next)+"\n")); err != nil {
		return 0, err
	}
	return next, nil
}

// Tasks

func (s *Store) TaskExists(taskId int) bool {
	_, err := os.Stat(s.taskPath(taskId))
	return err == nil
}

func (s *Store) ReadTask(taskId int) (*Task, error) {
	data, err := os.ReadFile(s.taskPath(taskId))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("corrupt task record %d: %w", taskId, err)
	}
	return &task, nil
}

func (s *Store) WriteTask(task *Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.taskPath(task.Id), append(data, '\n'))
}

// DeleteTask removes the task record together with its generation config
// and all generated instances.
func (s *Store) DeleteTask(taskId int) error {
	if !s.TaskExists(taskId) {
		return ErrTaskNotFound
	}
	return os.RemoveAll(s.TaskDir(taskId))
}

func (s *Store) ListTasks() ([]*Task, error) {
	entries, err := os.ReadDir(filepath.Join(s.Root, "tasks"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tasks := make([]*Task, 0, len(entries))
	for _, entry := range entries {
		id, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		task, err := s.ReadTask(id)
		if err != nil {
			continue
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Group != tasks[j].Group {
			return tasks[i].Group < tasks[j].Group
		}
		if tasks[i].Order != tasks[j].Order {
			return tasks[i].Order < tasks[j].Order
		}
		return tasks[i].Id < tasks[j].Id
	})
	return tasks, nil
}

// Groups

func (s *Store) GroupExists(groupId int) bool {
	_, err := os.Stat(s.groupPath(groupId))
	return err == nil
}

func (s *Store) ReadGroup(groupId int) (*Group, error) {
	data, err := os.ReadFile(s.groupPath(groupId))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	var group Group
	if err := json.Unmarshal(data, &group); err != nil {
		return nil, fmt.Errorf("corrupt group record %d: %w", groupId, err)
	}
	return &group, nil
}

func (s *Store) WriteGroup(group *Group) error {
	if err := group.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(group, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.groupPath(group.Id), append(data, '\n'))
}

// DeleteGroup removes the group record only. Children keep their parent
// reference; orphans are surfaced by the path builder rather than cleaned
// up here.
func (s *Store) DeleteGroup(groupId int) error {
	err := os.Remove(s.groupPath(groupId))
	if errors.Is(err, os.ErrNotExist) {
		return ErrGroupNotFound
	}
	return err
}

func (s *Store) ListGroups() (map[int]*Group, error) {
	entries, err := os.ReadDir(filepath.Join(s.Root, "groups"))
	if errors.Is(err, os.ErrNotExist) {
		return map[int]*Group{}, nil
	}
	if err != nil {
		return nil, err
	}
	groups := make(map[int]*Group, len(entries))
	for _, entry := range entries {
		id, err := strconv.Atoi(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		group, err := s.ReadGroup(id)
		if err != nil {
			continue
		}
		groups[id] = group
	}
	return groups, nil
}

// Generation configs

func (s *Store) HasGenConfig(taskId int) bool {
	_, err := os.Stat(s.GenConfigPath(taskId))
	return err == nil
}

func (s *Store) ReadGenConfig(taskId int) (string, error) {
	data, err := os.ReadFile(s.GenConfigPath(taskId))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Store) WriteGenConfig(taskId int, config string) error {
	if !s.TaskExists(taskId) {
		return ErrTaskNotFound
	}
	return writeFileAtomic(s.GenConfigPath(taskId), []byte(config))
}

// GenConfigModTime drives the staleness check: it is compared against the
// instance stamp, never against config content.
func (s *Store) GenConfigModTime(taskId int) (time.Time, error) {
	info, err := os.Stat(s.GenConfigPath(taskId))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (s *Store) ReadPreset(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.PresetsDir, name+".cfg"))
	if errors.Is(err, os.ErrNotExist) {
		if name == "noop" {
			return DefaultGenConfig, nil
		}
		return "", ErrPresetNotFound
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Generated instances

// ReadInstance returns the cached generated task for (task, token), or nil
// if no usable instance exists. A missing stamp makes the instance
// unusable: the write was never completed.
func (s *Store) ReadInstance(taskId int, token string) (*Task, time.Time, error) {
	dir := s.InstanceDir(taskId, token)
	stampData, err := os.ReadFile(filepath.Join(dir, stampFile))
	if err != nil {
		return nil, time.Time{}, nil
	}
	nanos, err := strconv.ParseInt(strings.TrimSpace(string(stampData)), 10, 64)
	if err != nil {
		return nil, time.Time{}, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, "task.json"))
	if err != nil {
		return nil, time.Time{}, nil
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, time.Time{}, nil
	}
	return &task, time.Unix(0, nanos), nil
}

// Global seed

// GlobalSeed returns the installation-wide seed, creating it on first use.
// The seed never changes afterwards: tokens must be stable across restarts.
func (s *Store) GlobalSeed() (string, error) {
	path := filepath.Join(s.Root, "ctfhost-seed.txt")
	data, err := os.ReadFile(path)
	if err == nil {
		return strings.TrimSpace(string(data)), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	seed := utils.RandomHex(16)
	if err := writeFileAtomic(path, []byte(seed+"\n")); err != nil {
		return "", err
	}
	return seed, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
