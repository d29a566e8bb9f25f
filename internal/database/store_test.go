package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajuia-m/hw05-final/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	s, err := Open(dsn)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func mustUser(t *testing.T, s *Store, name string) models.User {
	t.Helper()
	u := models.User{Email: name + "@example.com", Username: name, Password: "hash"}
	require.NoError(t, s.CreateUser(context.Background(), &u))
	return u
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := mustUser(t, s, "leo")
	assert.NotZero(t, u.ID)

	dup := models.User{Email: "other@example.com", Username: "LEO", Password: "x"}
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), ErrDuplicate)

	got, err := s.UserByUsername(ctx, "Leo")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.UserByLogin(ctx, "leo@example.com")
	require.NoError(t, err)
	assert.Equal(t, "leo", got.Username)

	_, err = s.UserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	taken, err := s.EmailTaken(ctx, "leo@example.com")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestGroups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	g := models.Group{Title: "Котики", Slug: "cats", Description: "про котов"}
	require.NoError(t, s.CreateGroup(ctx, &g))
	assert.ErrorIs(t, s.CreateGroup(ctx, &models.Group{Title: "x", Slug: "cats"}), ErrDuplicate)

	got, err := s.GroupBySlug(ctx, "cats")
	require.NoError(t, err)
	assert.Equal(t, g, got)

	_, err = s.GroupBySlug(ctx, "dogs")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := s.GroupExists(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.GroupExists(ctx, g.ID+1)
	require.NoError(t, err)
	assert.False(t, ok)

	groups, err := s.Groups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestPostsFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Одинаковое время публикации: порядок определяет id.
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	g := models.Group{Title: "Group", Slug: "g"}
	require.NoError(t, s.CreateGroup(ctx, &g))

	var ids []int64
	for i, author := range []models.User{alice, bob, alice} {
		p := models.Post{Text: "post", AuthorID: author.ID}
		if i == 1 {
			p.GroupID = sql.NullInt64{Int64: g.ID, Valid: true}
		}
		require.NoError(t, s.CreatePost(ctx, &p))
		ids = append(ids, p.ID)
	}

	later := models.Post{Text: "latest", AuthorID: bob.ID}
	s.now = func() time.Time { return fixed.Add(time.Minute) }
	require.NoError(t, s.CreatePost(ctx, &later))

	all, err := s.ListPosts(ctx, PostFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []int64{later.ID, ids[2], ids[1], ids[0]},
		[]int64{all[0].ID, all[1].ID, all[2].ID, all[3].ID})
	assert.Equal(t, "bob", all[0].Author)

	n, err := s.CountPosts(ctx, PostFilter{GroupID: g.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	inGroup, err := s.ListPosts(ctx, PostFilter{GroupID: g.ID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, inGroup, 1)
	assert.Equal(t, "g", inGroup[0].GroupSlug.String)

	n, err = s.CountPosts(ctx, PostFilter{AuthorID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	feed, err := s.ListPosts(ctx, PostFilter{FollowerID: alice.ID}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, feed, 2)

	window, err := s.ListPosts(ctx, PostFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, window, 2)
	assert.Equal(t, ids[0], window[1].ID)
}

func TestUpdatePost(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := mustUser(t, s, "writer")

	p := models.Post{Text: "before", AuthorID: u.ID, Image: "posts/a.gif"}
	require.NoError(t, s.CreatePost(ctx, &p))

	p.Text = "after"
	require.NoError(t, s.UpdatePost(ctx, &p))

	got, err := s.PostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Text)
	assert.Equal(t, "posts/a.gif", got.Image)
	assert.True(t, got.PubDate.Equal(p.PubDate))

	n, err := s.CountPosts(ctx, PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, s.UpdatePost(ctx, &models.Post{ID: 404, Text: "x"}), ErrNotFound)
	_, err = s.PostByID(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := mustUser(t, s, "reader")
	p := models.Post{Text: "post", AuthorID: u.ID}
	require.NoError(t, s.CreatePost(ctx, &p))

	for _, text := range []string{"first", "second"} {
		c := models.Comment{PostID: p.ID, AuthorID: u.ID, Text: text}
		require.NoError(t, s.CreateComment(ctx, &c))
	}

	comments, err := s.CommentsForPost(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "reader", comments[0].Author)

	n, err := s.CountComments(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	err = s.CreateComment(ctx, &models.Comment{PostID: 999, AuthorID: u.ID, Text: "orphan"})
	assert.Error(t, err)
}

func TestFollows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := mustUser(t, s, "follower")
	b := mustUser(t, s, "author")

	created, err := s.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, created)

	n, err := s.CountFollows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := s.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsFollowing(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Follow(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, ErrSelfFollow)

	require.NoError(t, s.Unfollow(ctx, a.ID, b.ID))
	require.NoError(t, s.Unfollow(ctx, a.ID, b.ID))
	n, err = s.CountFollows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := mustUser(t, s, "sess")

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	first := models.Session{UserID: u.ID, UUID: "first", Expires: now.Add(time.Hour)}
	require.NoError(t, s.CreateSession(ctx, &first))
	second := models.Session{UserID: u.ID, UUID: "second", Expires: now.Add(time.Hour)}
	require.NoError(t, s.CreateSession(ctx, &second))

	// Новая сессия вытесняет старую.
	_, err := s.SessionUser(ctx, "first")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.SessionUser(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	s.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = s.SessionUser(ctx, "second")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteSession(ctx, "second"), ErrNotFound)

	stale := models.Session{UserID: u.ID, UUID: "stale", Expires: now}
	require.NoError(t, s.CreateSession(ctx, &stale))
	n, err := s.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewStore(sqlx.NewDb(db, "sqlite3"))
	ctx := context.Background()

	boom := errors.New("disk I/O error")
	mock.ExpectQuery("SELECT COUNT").WillReturnError(boom)
	_, err = s.CountPosts(ctx, PostFilter{GroupID: 1})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "database: count posts")

	mock.ExpectExec("INSERT OR IGNORE INTO follows").WillReturnError(boom)
	_, err = s.Follow(ctx, 1, 2)
	assert.ErrorIs(t, err, boom)

	mock.ExpectExec("UPDATE posts").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.UpdatePost(ctx, &models.Post{ID: 7}), ErrNotFound)

	mock.ExpectQuery("SELECT id, title, slug, description FROM post_groups").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "slug", "description"}))
	_, err = s.GroupBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
