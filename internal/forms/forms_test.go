package forms

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallGIF — однопиксельный GIF, как в тестах загрузки картинок.
var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

type fakeGroups map[int64]bool

func (f fakeGroups) GroupExists(_ context.Context, id int64) (bool, error) {
	return f[id], nil
}

type brokenGroups struct{}

func (brokenGroups) GroupExists(context.Context, int64) (bool, error) {
	return false, errors.New("db is down")
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidatePost(t *testing.T) {
	groups := fakeGroups{1: true}
	ctx := context.Background()

	cases := []struct {
		name   string
		data   PostData
		fields []string
	}{
		{"text only", PostData{Text: "Тестовый текст"}, nil},
		{"with group", PostData{Text: "x", Group: "1"}, nil},
		{"gif image", PostData{Text: "x", Image: &Upload{Filename: "small.gif", Data: smallGIF}}, nil},
		{"png image", PostData{Text: "x", Image: &Upload{Filename: "a.png", Data: pngBytes(t)}}, nil},
		{"blank text", PostData{Text: "   \n"}, []string{"text"}},
		{"unknown group", PostData{Text: "x", Group: "2"}, []string{"group"}},
		{"garbage group", PostData{Text: "x", Group: "cats"}, []string{"group"}},
		{"not an image", PostData{Text: "x", Image: &Upload{Filename: "a.gif", Data: []byte("hello")}}, []string{"image"}},
		{"empty file", PostData{Text: "x", Image: &Upload{Filename: "a.gif"}}, []string{"image"}},
		{"truncated gif", PostData{Text: "x", Image: &Upload{Filename: "a.gif", Data: smallGIF[:8]}}, []string{"image"}},
		{"everything wrong", PostData{Group: "9", Image: &Upload{Filename: "a", Data: []byte{0}}}, []string{"text", "group", "image"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, errs, err := ValidatePost(ctx, groups, c.data)
			require.NoError(t, err)
			assert.Len(t, errs, len(c.fields))
			for _, f := range c.fields {
				assert.NotEmpty(t, errs.Get(f), "expected error on %s", f)
			}
		})
	}
}

func TestValidatePostKeepsSubmittedValues(t *testing.T) {
	in, errs, err := ValidatePost(context.Background(), fakeGroups{3: true}, PostData{Text: "  hi  ", Group: "3"})
	require.NoError(t, err)
	assert.True(t, errs.Valid())
	assert.Equal(t, "hi", in.Text)
	assert.Equal(t, int64(3), in.GroupID)
	assert.True(t, in.HasGroup())

	upload := &Upload{Filename: "small.gif", Data: smallGIF}
	_, _, err = ValidatePost(context.Background(), fakeGroups{}, PostData{Text: "x", Image: upload})
	require.NoError(t, err)
	assert.Equal(t, "image/gif", upload.ContentType)
}

func TestValidatePostStoreFailure(t *testing.T) {
	_, _, err := ValidatePost(context.Background(), brokenGroups{}, PostData{Text: "x", Group: "1"})
	assert.Error(t, err)
}

func TestValidateComment(t *testing.T) {
	in, errs := ValidateComment("  nice post ")
	assert.True(t, errs.Valid())
	assert.Equal(t, "nice post", in.Text)

	_, errs = ValidateComment(" ")
	assert.Equal(t, MsgRequired, errs.Get("text"))
}

func TestReadUpload(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("text", "x"))
	fw, err := mw.CreateFormFile("image", "small.gif")
	require.NoError(t, err)
	_, err = fw.Write(smallGIF)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/create/", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	u, err := ReadUpload(r, "image")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "small.gif", u.Filename)
	assert.Equal(t, smallGIF, u.Data)

	u, err = ReadUpload(r, "missing")
	require.NoError(t, err)
	assert.Nil(t, u)

	plain := httptest.NewRequest(http.MethodPost, "/create/", nil)
	plain.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	u, err = ReadUpload(plain, "image")
	require.NoError(t, err)
	assert.Nil(t, u)
}
