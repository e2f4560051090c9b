package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Post is a row of the posts table.
type Post struct {
	PostID    int64
	Title     string
	Body      string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

const postColumns = "post_id, title, body, created_at, updated_at"

func scanPost(row pgx.Row) (Post, error) {
	var p Post
	err := row.Scan(&p.PostID, &p.Title, &p.Body, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectPosts(rows pgx.Rows) ([]Post, error) {
	defer rows.Close()
	items := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createPost = `INSERT INTO posts (title, body) VALUES ($1, $2)
RETURNING ` + postColumns

type CreatePostParams struct {
	Title string
	Body  string
}

func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (Post, error) {
	return scanPost(q.db.QueryRow(ctx, createPost, arg.Title, arg.Body))
}

const retrievePost = `SELECT ` + postColumns + ` FROM posts WHERE post_id = $1`

// RetrievePost returns pgx.ErrNoRows if there is no post with the given id.
func (q *Queries) RetrievePost(ctx context.Context, postID int64) (Post, error) {
	return scanPost(q.db.QueryRow(ctx, retrievePost, postID))
}

const getPosts = `SELECT ` + postColumns + ` FROM posts
ORDER BY post_id DESC
LIMIT $1 OFFSET $2`

type GetPostsParams struct {
	Limit  int32
	Offset int64
}

func (q *Queries) GetPosts(ctx context.Context, arg GetPostsParams) ([]Post, error) {
	rows, err := q.db.Query(ctx, getPosts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

const listPosts = `SELECT ` + postColumns + ` FROM posts ORDER BY post_id DESC`

// ListPosts returns all posts, newest first.
func (q *Queries) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := q.db.Query(ctx, listPosts)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

const countPosts = `SELECT count(*) FROM posts`

func (q *Queries) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countPosts).Scan(&count)
	return count, err
}

const updatePost = `UPDATE posts SET title = $2, body = $3, updated_at = now()
WHERE post_id = $1
RETURNING ` + postColumns

type UpdatePostParams struct {
	PostID int64
	Title  string
	Body   string
}

// UpdatePost returns pgx.ErrNoRows if there is no post with the given id.
func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) (Post, error) {
	return scanPost(q.db.QueryRow(ctx, updatePost, arg.PostID, arg.Title, arg.Body))
}

const deletePost = `DELETE FROM posts WHERE post_id = $1`

// DeletePost returns the number of deleted rows.
func (q *Queries) DeletePost(ctx context.Context, postID int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePost, postID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteAllRecords = `DELETE FROM posts`

func (q *Queries) DeleteAllRecords(ctx context.Context) error {
	_, err := q.db.Exec(ctx, deleteAllRecords)
	return err
}

const resetAllSerials = `ALTER SEQUENCE posts_post_id_seq RESTART WITH 1`

func (q *Queries) ResetAllSerials(ctx context.Context) error {
	_, err := q.db.Exec(ctx, resetAllSerials)
	return err
}
