package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mpilhlt/dhamps-blog/internal/database"
	"github.com/mpilhlt/dhamps-blog/internal/models"
	"github.com/mpilhlt/dhamps-blog/internal/render"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const htmlContentType = "text/html; charset=utf-8"

func htmlPage(status int, body []byte) *models.PageResponse {
	return &models.PageResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

// notFoundPage renders the 404 page or falls back to a problem response.
func notFoundPage(renderer *render.Renderer, message string) (*models.PageResponse, error) {
	page, err := renderer.NotFound(message)
	if err != nil {
		return nil, huma.Error404NotFound(message)
	}
	return htmlPage(http.StatusNotFound, page), nil
}

// List view
func postListPageFunc(ctx context.Context, input *models.PostListPageRequest) (*models.PageResponse, error) {
	pool, err := GetDBPool(ctx)
	if err != nil {
		return nil, err
	}
	renderer, err := GetRenderer(ctx)
	if err != nil {
		return nil, err
	}

	queries := database.New(pool)
	rows, err := queries.ListPosts(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError(fmt.Sprintf("unable to get posts. %v", err))
	}
	posts := make([]models.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, toPost(row))
	}

	page, err := renderer.Home(posts)
	if err != nil {
		return nil, huma.Error500InternalServerError(fmt.Sprintf("unable to render post list. %v", err))
	}
	return htmlPage(http.StatusOK, page), nil
}

// Detail view
func postDetailPageFunc(ctx context.Context, input *models.PostDetailPageRequest) (*models.PageResponse, error) {
	pool, err := GetDBPool(ctx)
	if err != nil {
		return nil, err
	}
	renderer, err := GetRenderer(ctx)
	if err != nil {
		return nil, err
	}
	counter, err := GetCounter(ctx)
	if err != nil {
		return nil, err
	}

	postID, err := strconv.ParseInt(input.PostID, 10, 64)
	if err != nil || postID < 1 {
		return notFoundPage(renderer, fmt.Sprintf("post %q not found", input.PostID))
	}

	queries := database.New(pool)
	p, err := queries.RetrievePost(ctx, postID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFoundPage(renderer, fmt.Sprintf("post %d not found", postID))
		}
		return nil, huma.Error500InternalServerError(fmt.Sprintf("unable to get post %d. %v", postID, err))
	}

	views, err := counter.Incr(ctx, p.PostID)
	if err != nil {
		// A broken counter must not take the page down
		zap.L().Warn("unable to count post view", zap.Int64("post_id", p.PostID), zap.Error(err))
	}

	page, err := renderer.PostDetail(toPost(p), views)
	if err != nil {
		return nil, huma.Error500InternalServerError(fmt.Sprintf("unable to render post %d. %v", postID, err))
	}
	return htmlPage(http.StatusOK, page), nil
}

func pathSegments(path string) int {
	path = strings.Trim(path, "/")
	if path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}

// exactPath answers with the 404 page when the request path has a different
// number of segments than the operation path. net/http treats patterns
// ending in a slash as prefixes, so "/" would otherwise match every path.
func exactPath(api huma.API, renderer *render.Renderer) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if pathSegments(ctx.URL().Path) == pathSegments(ctx.Operation().Path) {
			next(ctx)
			return
		}

		message := fmt.Sprintf("no page at %s", ctx.URL().Path)
		page, err := renderer.NotFound(message)
		if err != nil {
			_ = huma.WriteErr(api, ctx, http.StatusNotFound, message)
			return
		}
		ctx.SetHeader("Content-Type", htmlContentType)
		ctx.SetStatus(http.StatusNotFound)
		_, _ = ctx.BodyWriter().Write(page)
	}
}

// RegisterPageRoutes registers the HTML list and detail views
func RegisterPageRoutes(pool *pgxpool.Pool, services Services, api huma.API) error {
	if services.Renderer == nil {
		return fmt.Errorf("page routes need a renderer")
	}
	if services.Counter == nil {
		return fmt.Errorf("page routes need a view counter")
	}
	pageMiddlewares := huma.Middlewares{exactPath(api, services.Renderer)}

	postListOp := huma.Operation{
		OperationID: "postListPage",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "List of all posts (HTML)",
		Hidden:      true,
		Middlewares: pageMiddlewares,
		Tags:        []string{"pages"},
	}
	postDetailOp := huma.Operation{
		OperationID: "postDetailPage",
		Method:      http.MethodGet,
		Path:        "/{post_id}/",
		Summary:     "A single post (HTML)",
		Hidden:      true,
		Middlewares: pageMiddlewares,
		Tags:        []string{"pages"},
	}
	postDetailLongOp := postDetailOp
	postDetailLongOp.OperationID = "postDetailPageLong"
	postDetailLongOp.Path = "/post/{post_id}/"

	listHandler := addPoolToContext(pool, addRendererToContext(services.Renderer, postListPageFunc))
	detailHandler := addPoolToContext(pool, addRendererToContext(services.Renderer, addCounterToContext(services.Counter, postDetailPageFunc)))

	huma.Register(api, postListOp, listHandler)
	huma.Register(api, postDetailOp, detailHandler)
	huma.Register(api, postDetailLongOp, detailHandler)
	return nil
}
