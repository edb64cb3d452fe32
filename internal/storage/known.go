package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/liangyou/mcversion/pkg/models"
)

// DefaultKnownFile 是已知版本文件的默认文件名。
const DefaultKnownFile = "known_versions.txt"

// ErrNotSeeded 表示已知版本文件尚未创建，即首次运行。
var ErrNotSeeded = errors.New("storage: known versions file does not exist")

// KnownStore 定义已知版本集合的持久化接口。文件只在首次运行时写入一次，之后只追加。
type KnownStore interface {
	Load() (models.VersionSet, error)
	Seed(versions models.VersionSet) error
	Append(versions models.VersionSet) error
	Path() string
}

// FileStore 以每行一个标识的纯文本文件保存已知版本。
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore 构造文件存储；path 为空时使用 ~/.mcversion/known_versions.txt。
func NewFileStore(path string) *FileStore {
	if strings.TrimSpace(path) == "" {
		root := filepath.Join(os.TempDir(), "mcversion")
		if home, err := os.UserHomeDir(); err == nil {
			root = filepath.Join(home, ".mcversion")
		}
		path = filepath.Join(root, DefaultKnownFile)
	}
	return &FileStore{path: path}
}

// Path 返回文件路径。
func (s *FileStore) Path() string {
	return s.path
}

// Load 读取已知版本；文件不存在时返回 ErrNotSeeded。
func (s *FileStore) Load() (models.VersionSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotSeeded
		}
		return nil, fmt.Errorf("storage: open known file: %w", err)
	}
	defer file.Close()

	versions := models.VersionSet{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		versions.Add(strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("storage: read known file: %w", err)
	}
	return versions, nil
}

// Seed 以完整集合创建文件。文件先写入临时文件再重命名，避免留下半截的基线。
func (s *FileStore) Seed(versions models.VersionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".known-*.tmp")
	if err != nil {
		return fmt.Errorf("storage: temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := writeLines(tmp, versions.Sorted()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("storage: finalize known file: %w", err)
	}
	return nil
}

// Append 按字典序把新版本追加到文件末尾。
func (s *FileStore) Append(versions models.VersionSet) error {
	if len(versions) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return err
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("storage: open known file: %w", err)
	}
	defer file.Close()

	lines := versions.Sorted()
	missing, err := missingTrailingNewline(file)
	if err != nil {
		return err
	}
	if missing {
		lines = append([]string{""}, lines...)
	}
	return writeLines(file, lines)
}

func (s *FileStore) ensureDir() error {
	if s.path == "" {
		return errors.New("storage: known file path is not configured")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("storage: create dir: %w", err)
	}
	return nil
}

// missingTrailingNewline 判断手工编辑过的文件末尾是否缺少换行。
func missingTrailingNewline(file *os.File) (bool, error) {
	info, err := file.Stat()
	if err != nil {
		return false, fmt.Errorf("storage: stat known file: %w", err)
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, info.Size()-1); err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("storage: read known file: %w", err)
	}
	return last[0] != '\n', nil
}

func writeLines(w io.Writer, lines []string) error {
	buf := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := buf.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("storage: write known file: %w", err)
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("storage: write known file: %w", err)
	}
	return nil
}
