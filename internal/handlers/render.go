package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ajuia-m/hw05-final/internal/forms"
	"github.com/ajuia-m/hw05-final/internal/models"
	"github.com/ajuia-m/hw05-final/internal/paginator"
)

// TemplateData holds data passed to HTML templates.
type TemplateData struct {
	User  *models.User
	Error string
	Path  string
	Tab   string

	Posts []models.Post
	Page  paginator.Page

	Group      models.Group
	Author     models.User
	Following  bool
	ShowFollow bool
	PostsCount int

	Post        models.Post
	Comments    []models.Comment
	CommentText string

	IsEdit       bool
	Form         forms.PostInput
	Errors       forms.Errors
	GroupChoices []GroupChoice

	Next  string
	Login string
	Email string
}

// GroupChoice — вариант в списке групп формы поста.
type GroupChoice struct {
	ID       int64
	Title    string
	Selected bool
}

// Renderer держит по набору шаблонов на каждую страницу.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer разбирает templates/*.html из fsys; каждая страница
// собирается вместе с base.html и includes/.
func NewRenderer(fsys fs.FS, mediaURL func(string) string) (*Renderer, error) {
	funcs := template.FuncMap{
		"mediaURL": mediaURL,
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02.01.2006 15:04")
		},
		"linebreaks": func(s string) template.HTML {
			lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
			for i, line := range lines {
				lines[i] = template.HTMLEscapeString(line)
			}
			return template.HTML(strings.Join(lines, "<br>"))
		},
		"year": func() int { return time.Now().Year() },
	}

	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("handlers: list templates: %w", err)
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := path.Base(file)
		if name == "base.html" {
			continue
		}
		t, err := template.New(name).Funcs(funcs).ParseFS(fsys,
			"templates/base.html", "templates/includes/*.html", file)
		if err != nil {
			return nil, fmt.Errorf("handlers: parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// render выполняет шаблон в буфер, чтобы не отправлять частичный вывод при ошибке.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data TemplateData) {
	if data.User == nil {
		data.User = currentUser(r)
	}
	t, ok := h.tmpl.pages[name]
	if !ok {
		log.Errorf("Template %s not found", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		log.Errorf("Error rendering template %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// HTTP Error Handlers
func (h *Handler) Render400(w http.ResponseWriter, r *http.Request, message string) {
	h.render(w, r, http.StatusBadRequest, "error.html", TemplateData{Error: "400 Bad Request: " + message})
}

func (h *Handler) Render404(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "404.html", TemplateData{Path: r.URL.Path})
}

func (h *Handler) Render405(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusMethodNotAllowed, "error.html", TemplateData{Error: "405 Method Not Allowed"})
}

// Render500 логирует причину, а пользователю показывает общее сообщение.
func (h *Handler) Render500(w http.ResponseWriter, r *http.Request, err error) {
	log.WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Errorf("Internal Server Error: %v", err)
	h.render(w, r, http.StatusInternalServerError, "error.html", TemplateData{Error: "500 Internal Server Error"})
}

// NotFound и MethodNotAllowed подключаются к роутеру.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request)         { h.Render404(w, r) }
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) { h.Render405(w, r) }

// Panic — страница для RecoverMiddleware.
func (h *Handler) Panic(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusInternalServerError, "error.html", TemplateData{Error: "500 Internal Server Error"})
}
