package database_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/mpilhlt/dhamps-blog/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	connString string
	connPool   *pgxpool.Pool
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			// The container restarts once after the init phase.
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(120*time.Second),
			wait.ForListeningPort("5432/tcp").WithStartupTimeout(120*time.Second),
		),
	)
	if err != nil {
		fmt.Printf("Error creating container: %v\n", err)
		os.Exit(1)
	}

	connString, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Printf("Error reading connection string: %v\n", err)
		_ = pgContainer.Terminate(ctx)
		os.Exit(1)
	}
	if err := database.VerifySchema(ctx, connString); err != nil {
		fmt.Printf("Error preparing test database: %v\n", err)
		_ = pgContainer.Terminate(ctx)
		os.Exit(1)
	}
	connPool, err = pgxpool.New(ctx, connString)
	if err != nil {
		fmt.Printf("Error creating connection pool: %v\n", err)
		_ = pgContainer.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	connPool.Close()
	if err := pgContainer.Terminate(ctx); err != nil {
		fmt.Printf("Error terminating container: %v\n", err)
	}
	os.Exit(code)
}

// resetDB empties the posts table and restarts its serial so every test sees id 1 first.
func resetDB(t *testing.T, q *database.Queries) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, q.DeleteAllRecords(ctx))
	require.NoError(t, q.ResetAllSerials(ctx))
}

func TestPostTextContent(t *testing.T) {
	ctx := context.Background()
	q := database.New(connPool)
	resetDB(t, q)

	_, err := q.CreatePost(ctx, database.CreatePostParams{Title: "This is the title", Body: "This is the body"})
	require.NoError(t, err)

	post, err := q.RetrievePost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "This is the title", post.Title)
	assert.Equal(t, "This is the body", post.Body)
	assert.True(t, post.CreatedAt.Valid)
	assert.True(t, post.UpdatedAt.Valid)
}

func TestPostQueries(t *testing.T) {
	ctx := context.Background()
	q := database.New(connPool)
	resetDB(t, q)

	for i := 1; i <= 3; i++ {
		p, err := q.CreatePost(ctx, database.CreatePostParams{Title: fmt.Sprintf("Post %d", i), Body: "body"})
		require.NoError(t, err)
		assert.Equal(t, int64(i), p.PostID)
	}

	count, err := q.CountPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	t.Run("list is newest first and paginated", func(t *testing.T) {
		posts, err := q.GetPosts(ctx, database.GetPostsParams{Limit: 2, Offset: 0})
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, int64(3), posts[0].PostID)
		assert.Equal(t, int64(2), posts[1].PostID)

		posts, err = q.GetPosts(ctx, database.GetPostsParams{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, int64(1), posts[0].PostID)
	})

	t.Run("list all", func(t *testing.T) {
		posts, err := q.ListPosts(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, []int64{3, 2, 1}, []int64{posts[0].PostID, posts[1].PostID, posts[2].PostID})
	})

	t.Run("update", func(t *testing.T) {
		before, err := q.RetrievePost(ctx, 2)
		require.NoError(t, err)
		p, err := q.UpdatePost(ctx, database.UpdatePostParams{PostID: 2, Title: "Changed", Body: "new body"})
		require.NoError(t, err)
		assert.Equal(t, "Changed", p.Title)
		assert.Equal(t, "new body", p.Body)
		assert.Equal(t, before.CreatedAt.Time, p.CreatedAt.Time)
		assert.False(t, p.UpdatedAt.Time.Before(before.UpdatedAt.Time))
	})

	t.Run("update missing post", func(t *testing.T) {
		_, err := q.UpdatePost(ctx, database.UpdatePostParams{PostID: 450000, Title: "x", Body: "y"})
		assert.True(t, errors.Is(err, pgx.ErrNoRows))
	})

	t.Run("retrieve missing post", func(t *testing.T) {
		_, err := q.RetrievePost(ctx, 450000)
		assert.True(t, errors.Is(err, pgx.ErrNoRows))
	})

	t.Run("delete", func(t *testing.T) {
		n, err := q.DeletePost(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		n, err = q.DeletePost(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("empty title is rejected by the schema", func(t *testing.T) {
		_, err := q.CreatePost(ctx, database.CreatePostParams{Title: "", Body: "body"})
		assert.Error(t, err)
	})
}

func TestWithTxRollback(t *testing.T) {
	ctx := context.Background()
	q := database.New(connPool)
	resetDB(t, q)

	tx, err := connPool.Begin(ctx)
	require.NoError(t, err)
	_, err = q.WithTx(tx).CreatePost(ctx, database.CreatePostParams{Title: "draft", Body: "never committed"})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	count, err := q.CountPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMigrator(t *testing.T) {
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, connString)
	require.NoError(t, err)
	defer conn.Close(ctx)

	m, err := database.NewMigrator(ctx, conn)
	require.NoError(t, err)

	version, last, info, err := m.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, last, version)
	assert.Contains(t, info, "-> ")
	assert.Contains(t, info, "create_posts")

	var recorded int32
	require.NoError(t, conn.QueryRow(ctx, "SELECT version FROM blog_schema_version").Scan(&recorded))
	assert.Equal(t, version, recorded)

	assert.Error(t, m.MigrateTo(ctx, last+1))
	assert.Error(t, m.MigrateTo(ctx, -1))

	// Step back one version and forward again
	require.NoError(t, m.MigrateTo(ctx, last-1))
	version, _, _, err = m.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, last-1, version)

	require.NoError(t, m.Migrate(ctx))
	version, _, _, err = m.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, last, version)
}
