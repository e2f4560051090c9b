// Package render turns posts into HTML pages.
//
// Post bodies are Markdown. They are converted with goldmark and the result is
// sanitized with bluemonday before it is handed to html/template as trusted HTML.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/mpilhlt/dhamps-blog/internal/models"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Page names
const (
	HomePage       = "home.html"
	PostDetailPage = "post_detail.html"
	NotFoundPage   = "404.html"
)

// PostView is a post prepared for display.
type PostView struct {
	ID        int64
	Title     string
	Body      template.HTML
	CreatedAt time.Time
}

type homeData struct {
	Posts []PostView
}

type detailData struct {
	Post  PostView
	Views int64
}

type notFoundData struct {
	Message string
}

// Renderer holds the parsed page templates.
type Renderer struct {
	pages    map[string]*template.Template
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// New parses the embedded templates. Every page is parsed together with
// base.html so it can fill in the base layout's blocks.
func New() (*Renderer, error) {
	r := &Renderer{
		pages:    make(map[string]*template.Template),
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   bluemonday.UGCPolicy(),
	}
	for _, page := range []string{HomePage, PostDetailPage, NotFoundPage} {
		t, err := template.ParseFS(templateFiles, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("unable to parse template %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Markdown renders and sanitizes a post body.
func (r *Renderer) Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("unable to render markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

func (r *Renderer) view(p models.Post) (PostView, error) {
	body, err := r.Markdown(p.Body)
	if err != nil {
		return PostView{}, err
	}
	return PostView{ID: p.PostID, Title: p.Title, Body: body, CreatedAt: p.CreatedAt}, nil
}

// Home renders the list of posts.
func (r *Renderer) Home(posts []models.Post) ([]byte, error) {
	data := homeData{Posts: make([]PostView, 0, len(posts))}
	for _, p := range posts {
		v, err := r.view(p)
		if err != nil {
			return nil, err
		}
		data.Posts = append(data.Posts, v)
	}
	return r.execute(HomePage, data)
}

// PostDetail renders a single post together with its view count.
func (r *Renderer) PostDetail(post models.Post, views int64) ([]byte, error) {
	v, err := r.view(post)
	if err != nil {
		return nil, err
	}
	return r.execute(PostDetailPage, detailData{Post: v, Views: views})
}

// NotFound renders the 404 page.
func (r *Renderer) NotFound(message string) ([]byte, error) {
	return r.execute(NotFoundPage, notFoundData{Message: message})
}

func (r *Renderer) execute(page string, data any) ([]byte, error) {
	t, ok := r.pages[page]
	if !ok {
		return nil, fmt.Errorf("unknown page %s", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		return nil, fmt.Errorf("unable to execute template %s: %w", page, err)
	}
	return buf.Bytes(), nil
}
