package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/ajuia-m/hw05-final/internal/auth"
	"github.com/ajuia-m/hw05-final/internal/database"
	"github.com/ajuia-m/hw05-final/internal/events"
	"github.com/ajuia-m/hw05-final/internal/forms"
	"github.com/ajuia-m/hw05-final/internal/media"
	"github.com/ajuia-m/hw05-final/internal/models"
	"github.com/ajuia-m/hw05-final/internal/paginator"
)

// Store — операции хранилища, которые нужны страницам блога.
type Store interface {
	forms.GroupChecker

	UserByUsername(ctx context.Context, username string) (models.User, error)
	Groups(ctx context.Context) ([]models.Group, error)
	GroupBySlug(ctx context.Context, slug string) (models.Group, error)

	CountPosts(ctx context.Context, f database.PostFilter) (int, error)
	ListPosts(ctx context.Context, f database.PostFilter, limit, offset int) ([]models.Post, error)
	PostByID(ctx context.Context, id int64) (models.Post, error)
	CreatePost(ctx context.Context, p *models.Post) error
	UpdatePost(ctx context.Context, p *models.Post) error

	CommentsForPost(ctx context.Context, postID int64) ([]models.Comment, error)
	CreateComment(ctx context.Context, c *models.Comment) error

	Follow(ctx context.Context, userID, authorID int64) (bool, error)
	Unfollow(ctx context.Context, userID, authorID int64) error
	IsFollowing(ctx context.Context, userID, authorID int64) (bool, error)
}

// Handler обслуживает все страницы блога.
type Handler struct {
	store  Store
	auth   *auth.Service
	media  media.Storage
	events events.Publisher
	tmpl   *Renderer
}

func New(store Store, authSvc *auth.Service, storage media.Storage, pub events.Publisher, tmpl *Renderer) *Handler {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Handler{store: store, auth: authSvc, media: storage, events: pub, tmpl: tmpl}
}

func currentUser(r *http.Request) *models.User {
	return auth.GetUserFromContext(r.Context())
}

// listPosts выбирает страницу постов по параметру ?page=.
func (h *Handler) listPosts(r *http.Request, f database.PostFilter) ([]models.Post, paginator.Page, error) {
	total, err := h.store.CountPosts(r.Context(), f)
	if err != nil {
		return nil, paginator.Page{}, err
	}
	page := paginator.Get(r.URL.Query().Get("page"), total)
	posts, err := h.store.ListPosts(r.Context(), f, paginator.PerPage, page.Offset)
	if err != nil {
		return nil, paginator.Page{}, err
	}
	return posts, page, nil
}

// Index — главная страница со всеми постами, новые первыми.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	posts, page, err := h.listPosts(r, database.PostFilter{})
	if err != nil {
		h.Render500(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "index.html", TemplateData{Posts: posts, Page: page, Tab: "index"})
}

func (h *Handler) GroupPosts(w http.ResponseWriter, r *http.Request) {
	group, err := h.store.GroupBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, database.ErrNotFound) {
		h.Render404(w, r)
		return
	}
	if err != nil {
		h.Render500(w, r, err)
		return
	}

	posts, page, err := h.listPosts(r, database.PostFilter{GroupID: group.ID})
	if err != nil {
		h.Render500(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "group_list.html", TemplateData{Group: group, Posts: posts, Page: page})
}

// Profile показывает посты автора и кнопку подписки.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	author, err := h.store.UserByUsername(r.Context(), chi.URLParam(r, "username"))
	if errors.Is(err, database.ErrNotFound) {
		h.Render404(w, r)
		return
	}
	if err != nil {
		h.Render500(w, r, err)
		return
	}

	posts, page, err := h.listPosts(r, database.PostFilter{AuthorID: author.ID})
	if err != nil {
		h.Render500(w, r, err)
		return
	}

	data := TemplateData{Author: author, Posts: posts, Page: page, PostsCount: page.Total}
	if user := currentUser(r); user != nil && user.ID != author.ID {
		data.ShowFollow = true
		data.Following, err = h.store.IsFollowing(r.Context(), user.ID, author.ID)
		if err != nil {
			h.Render500(w, r, err)
			return
		}
	}
	h.render(w, r, http.StatusOK, "profile.html", data)
}

// postFromURL загружает пост по {post_id}; false — ответ уже отправлен.
func (h *Handler) postFromURL(w http.ResponseWriter, r *http.Request) (models.Post, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "post_id"), 10, 64)
	if err != nil {
		h.Render404(w, r)
		return models.Post{}, false
	}
	post, err := h.store.PostByID(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		h.Render404(w, r)
		return models.Post{}, false
	}
	if err != nil {
		h.Render500(w, r, err)
		return models.Post{}, false
	}
	return post, true
}

func (h *Handler) PostDetail(w http.ResponseWriter, r *http.Request) {
	post, ok := h.postFromURL(w, r)
	if !ok {
		return
	}
	comments, err := h.store.CommentsForPost(r.Context(), post.ID)
	if err != nil {
		h.Render500(w, r, err)
		return
	}
	count, err := h.store.CountPosts(r.Context(), database.PostFilter{AuthorID: post.AuthorID})
	if err != nil {
		h.Render500(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "post_detail.html", TemplateData{Post: post, Comments: comments, PostsCount: count})
}

func (h *Handler) groupChoices(ctx context.Context, selected int64) ([]GroupChoice, error) {
	groups, err := h.store.Groups(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(groups, func(g models.Group, _ int) GroupChoice {
		return GroupChoice{ID: g.ID, Title: g.Title, Selected: g.ID == selected}
	}), nil
}

// renderPostForm показывает форму создания или редактирования поста.
func (h *Handler) renderPostForm(w http.ResponseWriter, r *http.Request, data TemplateData) {
	choices, err := h.groupChoices(r.Context(), data.Form.GroupID)
	if err != nil {
		h.Render500(w, r, err)
		return
	}
	data.GroupChoices = choices
	h.render(w, r, http.StatusOK, "create_post.html", data)
}

// readPostForm разбирает multipart-форму поста и проверяет её.
func (h *Handler) readPostForm(w http.ResponseWriter, r *http.Request) (forms.PostInput, forms.Errors, error) {
	r.Body = http.MaxBytesReader(w, r.Body, forms.MaxUploadSize)
	upload, err := forms.ReadUpload(r, "image")
	if err != nil {
		return forms.PostInput{}, nil, err
	}
	return forms.ValidatePost(r.Context(), h.store, forms.PostData{
		Text:  r.FormValue("text"),
		Group: r.FormValue("group"),
		Image: upload,
	})
}

func (h *Handler) saveImage(ctx context.Context, u *forms.Upload) (string, error) {
	if u == nil {
		return "", nil
	}
	return h.media.Save(ctx, u.Filename, u.ContentType, u.Data)
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func groupID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

// PostCreate — форма нового поста. Автор всегда текущий пользователь.
func (h *Handler) PostCreate(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if r.Method == http.MethodGet {
		h.renderPostForm(w, r, TemplateData{})
		return
	}

	in, errs, err := h.readPostForm(w, r)
	if err != nil {
		h.Render400(w, r, err.Error())
		return
	}
	if !errs.Valid() {
		h.renderPostForm(w, r, TemplateData{Form: in, Errors: errs})
		return
	}

	image, err := h.saveImage(r.Context(), in.Image)
	if err != nil {
		h.Render500(w, r, err)
		return
	}
	post := models.Post{Text: in.Text, AuthorID: user.ID, GroupID: groupID(in.GroupID), Image: image}
	if err := h.store.CreatePost(r.Context(), &post); err != nil {
		h.Render500(w, r, err)
		return
	}
	log.Infof("User '%s' (ID: %d) created post %d", user.Username, user.ID, post.ID)
	events.Emit(r.Context(), h.events, events.Event{Type: events.PostCreated, UserID: user.ID, PostID: post.ID})

	http.Redirect(w, r, profileURL(user.Username), http.StatusFound)
}

// PostEdit меняет текст, группу и картинку поста. Авторство не проверяется:
// редактировать может любой вошедший пользователь.
func (h *Handler) PostEdit(w http.ResponseWriter, r *http.Request) {
	post, ok := h.postFromURL(w, r)
	if !ok {
		return
	}
	if r.Method == http.MethodGet {
		form := forms.PostInput{Text: post.Text, GroupID: post.GroupID.Int64}
		h.renderPostForm(w, r, TemplateData{Post: post, Form: form, IsEdit: true})
		return
	}

	in, errs, err := h.readPostForm(w, r)
	if err != nil {
		h.Render400(w, r, err.Error())
		return
	}
	if !errs.Valid() {
		h.renderPostForm(w, r, TemplateData{Post: post, Form: in, Errors: errs, IsEdit: true})
		return
	}

	if in.Image != nil {
		if post.Image, err = h.saveImage(r.Context(), in.Image); err != nil {
			h.Render500(w, r, err)
			return
		}
	}
	post.Text = in.Text
	post.GroupID = groupID(in.GroupID)
	if err := h.store.UpdatePost(r.Context(), &post); err != nil {
		h.Render500(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/posts/%d/", post.ID), http.StatusFound)
}

// AddComment сохраняет комментарий; пустой комментарий молча отбрасывается.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	post, ok := h.postFromURL(w, r)
	if !ok {
		return
	}
	user := currentUser(r)

	in, errs := forms.ValidateComment(r.FormValue("text"))
	if errs.Valid() {
		c := models.Comment{PostID: post.ID, AuthorID: user.ID, Text: in.Text}
		if err := h.store.CreateComment(r.Context(), &c); err != nil {
			h.Render500(w, r, err)
			return
		}
		events.Emit(r.Context(), h.events, events.Event{Type: events.CommentAdded, UserID: user.ID, PostID: post.ID})
	}
	http.Redirect(w, r, fmt.Sprintf("/posts/%d/", post.ID), http.StatusFound)
}

// FollowIndex — лента постов авторов, на которых подписан пользователь.
func (h *Handler) FollowIndex(w http.ResponseWriter, r *http.Request) {
	posts, page, err := h.listPosts(r, database.PostFilter{FollowerID: currentUser(r).ID})
	if err != nil {
		h.Render500(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "follow.html", TemplateData{Posts: posts, Page: page, Tab: "follow"})
}

func (h *Handler) authorFromURL(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	author, err := h.store.UserByUsername(r.Context(), chi.URLParam(r, "username"))
	if errors.Is(err, database.ErrNotFound) {
		h.Render404(w, r)
		return models.User{}, false
	}
	if err != nil {
		h.Render500(w, r, err)
		return models.User{}, false
	}
	return author, true
}

// ProfileFollow подписывает на автора. Подписка на себя игнорируется.
func (h *Handler) ProfileFollow(w http.ResponseWriter, r *http.Request) {
	author, ok := h.authorFromURL(w, r)
	if !ok {
		return
	}
	user := currentUser(r)
	if author.ID != user.ID {
		created, err := h.store.Follow(r.Context(), user.ID, author.ID)
		if err != nil {
			h.Render500(w, r, err)
			return
		}
		if created {
			events.Emit(r.Context(), h.events, events.Event{Type: events.AuthorFollowed, UserID: user.ID, AuthorID: author.ID})
		}
	}
	http.Redirect(w, r, profileURL(author.Username), http.StatusFound)
}

func (h *Handler) ProfileUnfollow(w http.ResponseWriter, r *http.Request) {
	author, ok := h.authorFromURL(w, r)
	if !ok {
		return
	}
	if err := h.store.Unfollow(r.Context(), currentUser(r).ID, author.ID); err != nil {
		h.Render500(w, r, err)
		return
	}
	http.Redirect(w, r, profileURL(author.Username), http.StatusFound)
}
