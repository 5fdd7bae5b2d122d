package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ctfhost/content"
)

// Named registry of generator implementations. Generation configs refer to
// generators by name; unknown names fail generation rather than silently
// falling back.

var (
	registryMu sync.RWMutex
	registry   = map[string]Generator{}
)

func Register(name string, generator Generator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("generator %q registered twice", name))
	}
	registry[name] = generator
}

func Lookup(name string) (Generator, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	generator, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown generator %q", name)
	}
	return generator, nil
}

func init() {
	Register("noop", &noopGenerator{})
	Register("embed-flag", &embedFlagGenerator{})
}

// noopGenerator reproduces the task unchanged, copying any operator source
// files into the instance.
type noopGenerator struct{}

func (g *noopGenerator) Generate(ctx context.Context, req *Request) (*content.Task, error) {
	if err := copyTree(req.SourceDir, filepath.Join(req.OutDir, "files")); err != nil {
		return nil, err
	}
	task := *req.Task
	return &task, nil
}

// embedFlagGenerator gives every team its own flag, derived from the token
// and the task seed. String checkers are replaced with the derived flag and
// a {{FLAG}} marker in the task text is substituted.
type embedFlagGenerator struct{}

func (g *embedFlagGenerator) Generate(ctx context.Context, req *Request) (*content.Task, error) {
	if err := copyTree(req.SourceDir, filepath.Join(req.OutDir, "files")); err != nil {
		return nil, err
	}
	digest := sha256.Sum224([]byte(req.Token + req.Task.Seed))
	flag := fmt.Sprintf("FLAG{%s}", hex.EncodeToString(digest[:])[:24])

	task := *req.Task
	task.Flags = make([]content.FlagChecker, len(req.Task.Flags))
	copy(task.Flags, req.Task.Flags)
	replaced := false
	for i := range task.Flags {
		if task.Flags[i].Type == content.CheckerString {
			task.Flags[i].Data = flag
			replaced = true
		}
	}
	if !replaced {
		task.Flags = append(task.Flags, content.FlagChecker{Type: content.CheckerString, Data: flag})
	}
	task.Text = strings.ReplaceAll(task.Text, "{{FLAG}}", flag)
	return &task, nil
}

// copyTree mirrors src into dst. A missing src is fine: most tasks have no
// operator-provided files.
func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("source files path %s is not a directory", src)
	}
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
