// Package forms проверяет данные, присланные пользователем, до записи в базу.
package forms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // регистрирует декодер GIF
	_ "image/jpeg" // регистрирует декодер JPEG
	_ "image/png"  // регистрирует декодер PNG
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

const (
	MsgRequired     = "Обязательное поле."
	MsgInvalidGroup = "Выберите корректный вариант. Вашего варианта нет среди допустимых значений."
	MsgInvalidImage = "Загрузите правильное изображение. Файл, который вы загрузили, поврежден или не является изображением."
	MsgEmptyFile    = "Отправленный файл пуст."
)

// MaxUploadSize ограничивает размер multipart-запроса с картинкой.
const MaxUploadSize = 10 << 20

var allowedImageTypes = []string{"image/gif", "image/jpeg", "image/png"}

// Errors — ошибки валидации по полям формы.
type Errors map[string][]string

func (e Errors) Add(field, msg string) { e[field] = append(e[field], msg) }

// Get возвращает первую ошибку поля или пустую строку.
func (e Errors) Get(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e Errors) Valid() bool { return len(e) == 0 }

// Upload — загруженный файл, полностью прочитанный в память.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// GroupChecker проверяет существование группы.
type GroupChecker interface {
	GroupExists(ctx context.Context, id int64) (bool, error)
}

// PostData — сырые значения формы поста.
type PostData struct {
	Text  string
	Group string
	Image *Upload
}

// PostInput — проверенные значения. При ошибках валидации в нём остаются
// присланные значения для повторного показа формы.
type PostInput struct {
	Text    string
	GroupID int64 // 0 — без группы
	Image   *Upload
}

func (in PostInput) HasGroup() bool { return in.GroupID > 0 }

// ValidatePost проверяет форму поста. Ошибка возвращается только при сбое
// хранилища; ошибки пользователя попадают в Errors.
func ValidatePost(ctx context.Context, groups GroupChecker, data PostData) (PostInput, Errors, error) {
	errs := Errors{}
	in := PostInput{Text: strings.TrimSpace(data.Text), Image: data.Image}

	if in.Text == "" {
		errs.Add("text", MsgRequired)
	}

	if raw := strings.TrimSpace(data.Group); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			errs.Add("group", MsgInvalidGroup)
		} else {
			ok, err := groups.GroupExists(ctx, id)
			if err != nil {
				return in, errs, fmt.Errorf("forms: %w", err)
			}
			if !ok {
				errs.Add("group", MsgInvalidGroup)
			}
			in.GroupID = id
		}
	}

	if data.Image != nil {
		if msg := checkImage(data.Image); msg != "" {
			errs.Add("image", msg)
		}
	}
	return in, errs, nil
}

// CommentInput — проверенный текст комментария. Автора и пост задаёт обработчик.
type CommentInput struct {
	Text string
}

func ValidateComment(text string) (CommentInput, Errors) {
	errs := Errors{}
	in := CommentInput{Text: strings.TrimSpace(text)}
	if in.Text == "" {
		errs.Add("text", MsgRequired)
	}
	return in, errs
}

func checkImage(u *Upload) string {
	if len(u.Data) == 0 {
		return MsgEmptyFile
	}
	mt := mimetype.Detect(u.Data)
	if !lo.Contains(allowedImageTypes, mt.String()) {
		return MsgInvalidImage
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(u.Data)); err != nil {
		return MsgInvalidImage
	}
	u.ContentType = mt.String()
	return ""
}

// ReadUpload достаёт файл поля field из multipart-запроса.
// Если файл не прислан, возвращает nil без ошибки.
func ReadUpload(r *http.Request, field string) (*Upload, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("forms: read %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("forms: read %s: %w", field, err)
	}
	if hdr.Filename == "" {
		return nil, nil
	}
	return &Upload{Filename: hdr.Filename, Data: data}, nil
}
