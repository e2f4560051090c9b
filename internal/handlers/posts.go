package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mpilhlt/dhamps-blog/internal/auth"
	"github.com/mpilhlt/dhamps-blog/internal/database"
	"github.com/mpilhlt/dhamps-blog/internal/models"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Create a new post
func postPostFunc(ctx context.Context, input *models.PostPostRequest) (*models.UploadPostResponse, error) {
	pool, err := GetDBPool(ctx)
	if err != nil {
		return nil, err
	}

	queries := database.New(pool)
	p, err := queries.CreatePost(ctx, database.CreatePostParams{
		Title: input.Body.Title,
		Body:  input.Body.Body,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError(fmt.Sprintf("unable to create post. %v", err))
	}

	response := &models.UploadPostResponse{}
	response.Body = toPost(p)
	return response, nil
}

// Update an existing post
func putPostFunc(ctx context.Context, input *models.PutPostRequest) (*models.UploadPostResponse, error) {
	pool, err := GetDBPool(ctx)
	if err != nil {
		return nil, err
	}

	queries := database.New(pool)
	p, err := queries.UpdatePost(ctx, database.UpdatePostParams{
		PostID: input.PostID,
		Title:  input.Body.Title,
		Body:   input.Body.Body,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huma.Error404NotFound(fmt.Sprintf("post %d not found", input.PostID))
		}
		return nil, huma.Error500InternalServerError(fmt.Sprintf("unable to update post %d. %v", input.PostID, err))
	}

	response := &models.UploadPostResponse{}
	response.Body = toPost(p)
	return response, nil
}

// Get a page of posts, newest first
func getPostsFunc(ctx context.Context, input *models.GetPostsRequest) (*models.GetPostsResponse, error) {
	pool, err := GetDBPool(ctx)
	if err != nil {
		return nil, err
	}

	queries := database.New(pool)
	rows, err := queries.GetPosts(ctx, database.GetPostsParams{Limit: int32(input.Limit), Offset: input.Offset})
	if err != nil {
		return nil, huma.Error500InternalServerError(fmt.Sprintf("unable to get posts. %v", err))
	}
	total, err := queries.CountPosts(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError(fmt.Sprintf("unable to count posts. %v", err))
	}

	posts := make([]models.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, toPost(row))
	}

	response := &models.GetPostsResponse{}
	response.Body.Posts = posts
	response.Body.Total = total
	return response, nil
}

// Retrieve a specific post
func getPostFunc(ctx context.Context, input *models.GetPostRequest) (*models.GetPostResponse, error) {
	pool, err := GetDBPool(ctx)
	if err != nil {
		return nil, err
	}

	queries := database.New(pool)
	p, err := queries.RetrievePost(ctx, input.PostID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huma.Error404NotFound(fmt.Sprintf("post %d not found", input.PostID))
		}
		return nil, huma.Error500InternalServerError(fmt.Sprintf("unable to get post %d. %v", input.PostID, err))
	}

	response := &models.GetPostResponse{}
	response.Body = toPost(p)
	return response, nil
}

func deletePostFunc(ctx context.Context, input *models.DeletePostRequest) (*models.DeletePostResponse, error) {
	pool, err := GetDBPool(ctx)
	if err != nil {
		return nil, err
	}

	queries := database.New(pool)
	n, err := queries.DeletePost(ctx, input.PostID)
	if err != nil {
		return nil, huma.Error500InternalServerError(fmt.Sprintf("unable to delete post %d. %v", input.PostID, err))
	}
	if n == 0 {
		return nil, huma.Error404NotFound(fmt.Sprintf("post %d not found", input.PostID))
	}

	return &models.DeletePostResponse{}, nil
}

// RegisterPostsRoutes registers all the post routes with the API
func RegisterPostsRoutes(pool *pgxpool.Pool, api huma.API) error {
	// Define huma.Operations for each route
	postPostOp := huma.Operation{
		OperationID:   "postPost",
		Method:        http.MethodPost,
		Path:          "/v1/posts",
		DefaultStatus: http.StatusCreated,
		Summary:       "Create a post",
		Security:      auth.AdminSecurity,
		Tags:          []string{"posts"},
	}
	putPostOp := huma.Operation{
		OperationID: "putPost",
		Method:      http.MethodPut,
		Path:        "/v1/posts/{post_id}",
		Summary:     "Update a post",
		Security:    auth.AdminSecurity,
		Tags:        []string{"posts"},
	}
	getPostsOp := huma.Operation{
		OperationID: "getPosts",
		Method:      http.MethodGet,
		Path:        "/v1/posts",
		Summary:     "Get posts, newest first",
		Tags:        []string{"posts"},
	}
	getPostOp := huma.Operation{
		OperationID: "getPost",
		Method:      http.MethodGet,
		Path:        "/v1/posts/{post_id}",
		Summary:     "Get a specific post",
		Tags:        []string{"posts"},
	}
	deletePostOp := huma.Operation{
		OperationID:   "deletePost",
		Method:        http.MethodDelete,
		Path:          "/v1/posts/{post_id}",
		DefaultStatus: http.StatusNoContent,
		Summary:       "Delete a specific post",
		Security:      auth.AdminSecurity,
		Tags:          []string{"posts"},
	}

	huma.Register(api, postPostOp, addPoolToContext(pool, postPostFunc))
	huma.Register(api, putPostOp, addPoolToContext(pool, putPostFunc))
	huma.Register(api, getPostsOp, addPoolToContext(pool, getPostsFunc))
	huma.Register(api, getPostOp, addPoolToContext(pool, getPostFunc))
	huma.Register(api, deletePostOp, addPoolToContext(pool, deletePostFunc))
	return nil
}
