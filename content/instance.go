package content

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ctfhost/utils"
)

// StageInstance creates a temporary directory next to the generated
// instances of a task. Generators assemble instance files there before the
// result is published in a single rename.
func (s *Store) StageInstance(taskId int) (string, error) {
	parent := filepath.Join(s.TaskDir(taskId), "generated")
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(parent, ".tmp-"+utils.RandomHex(4)+"-")
}

// PublishInstance writes the generated task record and its stamp into the
// staged directory, then renames it into place. A concurrent reader never
// observes a stamp without its content; a failed generation leaves no
// instance behind.
func (s *Store) PublishInstance(taskId int, token, stagedDir string, task *Task, generatedAt time.Time) error {
	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(stagedDir, "task.json"), append(data, '\n'), 0o644); err != nil {
		return err
	}
	stamp := strconv.FormatInt(generatedAt.UnixNano(), 10) + "\n"
	if err := os.WriteFile(filepath.Join(stagedDir, stampFile), []byte(stamp), 0o644); err != nil {
		return err
	}

	dst := s.InstanceDir(taskId, token)
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return os.Rename(stagedDir, dst)
}

// DiscardInstance removes a staged directory after a failed generation.
func (s *Store) DiscardInstance(stagedDir string) {
	os.RemoveAll(stagedDir)
}
