package database

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Posts []struct {
		Title string `yaml:"title"`
		Body  string `yaml:"body"`
	} `yaml:"posts"`
}

// LoadSeed reads posts from a YAML document of the form
//
//	posts:
//	  - title: Hello
//	    body: Some *markdown*
func LoadSeed(r io.Reader) ([]CreatePostParams, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return []CreatePostParams{}, nil
		}
		return nil, fmt.Errorf("unable to parse seed file: %w", err)
	}

	posts := make([]CreatePostParams, 0, len(f.Posts))
	for i, p := range f.Posts {
		title := strings.TrimSpace(p.Title)
		if title == "" {
			return nil, fmt.Errorf("seed post %d has no title", i+1)
		}
		if utf8.RuneCountInString(title) > 200 {
			return nil, fmt.Errorf("seed post %d: title longer than 200 characters", i+1)
		}
		posts = append(posts, CreatePostParams{Title: title, Body: p.Body})
	}
	return posts, nil
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Seed inserts all posts in one transaction. Either all of them are
// stored or none.
func Seed(ctx context.Context, db beginner, posts []CreatePostParams) ([]Post, error) {
	created := make([]Post, 0, len(posts))
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		queries := New(tx)
		for _, p := range posts {
			row, err := queries.CreatePost(ctx, p)
			if err != nil {
				return fmt.Errorf("unable to insert post %q: %w", p.Title, err)
			}
			created = append(created, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
