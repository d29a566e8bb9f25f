package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const maxNameAttempts = 10

// Local хранит файлы на диске под root и отдаёт их по urlPrefix.
type Local struct {
	root      string
	urlPrefix string
}

func NewLocal(root, urlPrefix string) *Local {
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &Local{root: root, urlPrefix: urlPrefix}
}

func (l *Local) Root() string { return l.root }

func (l *Local) Save(_ context.Context, filename, _ string, data []byte) (string, error) {
	dir := filepath.Join(l.root, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("media: create %s: %w", dir, err)
	}

	name := cleanName(filename)
	for i := 0; i < maxNameAttempts; i++ {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			name = altName(cleanName(filename))
			continue
		}
		if err != nil {
			return "", fmt.Errorf("media: create file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("media: write file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("media: close file: %w", err)
		}
		return path.Join(Dir, name), nil
	}
	return "", fmt.Errorf("media: no free name for %q", filename)
}

func (l *Local) URL(key string) string {
	if key == "" {
		return ""
	}
	return l.urlPrefix + key
}
