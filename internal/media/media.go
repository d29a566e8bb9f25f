// Package media сохраняет загруженные картинки постов.
package media

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Dir — каталог для картинок постов внутри хранилища.
const Dir = "posts"

// Storage сохраняет файл и возвращает его ключ вида posts/<имя>.
// Если имя занято, к нему добавляется случайный суффикс.
type Storage interface {
	Save(ctx context.Context, filename, contentType string, data []byte) (string, error)
	URL(key string) string
}

var unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_.-]`)

// cleanName оставляет от имени файла только безопасные символы.
func cleanName(filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	name = unsafeChars.ReplaceAllString(name, "")
	if name == "" || name == "." || name == ".." {
		name = "image"
	}
	return name
}

// altName добавляет к имени суффикс перед расширением: cat.gif → cat_1a2b3c4.gif.
func altName(name string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + uuid.NewString()[:7] + ext
}
