package models

import (
	"net/http"
	"time"
)

// Post is a single blog entry.
type Post struct {
	PostID    int64     `json:"post_id" readOnly:"true" doc:"Unique post identifier"`
	Title     string    `json:"title" minLength:"1" maxLength:"200" example:"This is the title" doc:"Title of the post"`
	Body      string    `json:"body" example:"This is the body" doc:"Body of the post (Markdown)"`
	CreatedAt time.Time `json:"created_at" readOnly:"true" doc:"Time the post was created"`
	UpdatedAt time.Time `json:"updated_at" readOnly:"true" doc:"Time the post was last updated"`
}

// PostSubmission holds the writable fields of a post.
type PostSubmission struct {
	Title string `json:"title" minLength:"1" maxLength:"200" example:"This is the title" doc:"Title of the post"`
	Body  string `json:"body" example:"This is the body" doc:"Body of the post (Markdown)"`
}

// Request and Response structs for the posts API
// The request structs must be structs with fields for the request path/query/header/cookie parameters and/or body.
// The response structs must be structs with fields for the output headers and body of the operation, if any.

// Post post
// POST Path: "/v1/posts"

type PostPostRequest struct {
	Body PostSubmission
}

// Put post
// PUT Path: "/v1/posts/{post_id}"

type PutPostRequest struct {
	PostID int64 `json:"post_id" path:"post_id" minimum:"1" example:"1" doc:"Post identifier"`
	Body   PostSubmission
}

type UploadPostResponse struct {
	Header []http.Header `json:"header,omitempty" doc:"Response headers"`
	Body   Post          `json:"post" doc:"The created or updated post"`
}

// Get all posts
// GET Path: "/v1/posts"

type GetPostsRequest struct {
	Limit  int `json:"limit,omitempty" query:"limit" minimum:"1" maximum:"200" example:"10" default:"10" doc:"Maximum number of posts to return"`
	Offset int64 `json:"offset,omitempty" query:"offset" minimum:"0" example:"0" default:"0" doc:"Offset into the list of posts"`
}

type GetPostsResponse struct {
	Header []http.Header `json:"header,omitempty" doc:"Response headers"`
	Body   struct {
		Posts []Post `json:"posts" doc:"Posts, newest first"`
		Total int64  `json:"total" doc:"Total number of posts"`
	}
}

// Get single post
// GET Path: "/v1/posts/{post_id}"

type GetPostRequest struct {
	PostID int64 `json:"post_id" path:"post_id" minimum:"1" example:"1" doc:"Post identifier"`
}

type GetPostResponse struct {
	Header []http.Header `json:"header,omitempty" doc:"Response headers"`
	Body   Post          `json:"post" doc:"Post"`
}

// Delete post
// DELETE Path: "/v1/posts/{post_id}"

type DeletePostRequest struct {
	PostID int64 `json:"post_id" path:"post_id" minimum:"1" example:"1" doc:"Post identifier"`
}

type DeletePostResponse struct {
	Header []http.Header `json:"header,omitempty" doc:"Response headers"`
}
