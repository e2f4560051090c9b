package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/mpilhlt/dhamps-blog/internal/hits"
	"github.com/mpilhlt/dhamps-blog/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostsFunc(t *testing.T) {
	startTestServer(t, connPool, hits.NewMemoryCounter())

	fmt.Printf("\nRunning posts tests ...\n\n")

	unauthorized := "{\n  \"$schema\": \"http://localhost:8080/schemas/ErrorModel.json\",\n  \"title\": \"Unauthorized\",\n  \"status\": 401,\n  \"detail\": \"Authentication failed. Perhaps a missing or incorrect API key?\"\n}\n"
	notFound := func(id int) string {
		return fmt.Sprintf("{\n  \"$schema\": \"http://localhost:8080/schemas/ErrorModel.json\",\n  \"title\": \"Not Found\",\n  \"status\": 404,\n  \"detail\": \"post %d not found\"\n}\n", id)
	}

	// Define test cases. A nil expectPost means the body is compared
	// verbatim against expectBody.
	tt := []struct {
		name         string
		method       string
		requestPath  string
		bodyPath     string
		apiKey       string
		expectBody   string
		expectPost   *models.Post
		expectStatus int
	}{
		{
			name:         "Valid get all posts, no posts present",
			method:       http.MethodGet,
			requestPath:  "/v1/posts",
			expectBody:   "{\n  \"$schema\": \"http://localhost:8080/schemas/GetPostsResponseBody.json\",\n  \"posts\": [],\n  \"total\": 0\n}\n",
			expectStatus: http.StatusOK,
		},
		{
			name:         "Post post without api key",
			method:       http.MethodPost,
			requestPath:  "/v1/posts",
			bodyPath:     "../../testdata/valid_post.json",
			expectBody:   unauthorized,
			expectStatus: http.StatusUnauthorized,
		},
		{
			name:         "Post post with wrong api key",
			method:       http.MethodPost,
			requestPath:  "/v1/posts",
			bodyPath:     "../../testdata/valid_post.json",
			apiKey:       "not-the-admin-key",
			expectBody:   unauthorized,
			expectStatus: http.StatusUnauthorized,
		},
		{
			name:         "Valid post post",
			method:       http.MethodPost,
			requestPath:  "/v1/posts",
			bodyPath:     "../../testdata/valid_post.json",
			apiKey:       options.AdminKey,
			expectPost:   &models.Post{PostID: 1, Title: "This is the title", Body: "This is the body"},
			expectStatus: http.StatusCreated,
		},
		{
			name:         "Post post, empty title",
			method:       http.MethodPost,
			requestPath:  "/v1/posts",
			bodyPath:     "../../testdata/empty_title_post.json",
			apiKey:       options.AdminKey,
			expectStatus: http.StatusUnprocessableEntity,
		},
		{
			name:         "Post post, missing title",
			method:       http.MethodPost,
			requestPath:  "/v1/posts",
			bodyPath:     "../../testdata/invalid_post.json",
			apiKey:       options.AdminKey,
			expectBody:   `"message":"expected required property title to be present"`,
			expectStatus: http.StatusUnprocessableEntity,
		},
		{
			name:         "Post post, unknown field",
			method:       http.MethodPost,
			requestPath:  "/v1/posts",
			bodyPath:     "../../testdata/unknown_field_post.json",
			apiKey:       options.AdminKey,
			expectBody:   `"message":"unexpected property","location":"body.foo"`,
			expectStatus: http.StatusUnprocessableEntity,
		},
		{
			name:         "Post post, read-only post_id",
			method:       http.MethodPost,
			requestPath:  "/v1/posts",
			bodyPath:     "../../testdata/readonly_field_post.json",
			apiKey:       options.AdminKey,
			expectBody:   `"message":"unexpected property","location":"body.post_id"`,
			expectStatus: http.StatusUnprocessableEntity,
		},
		{
			name:         "Get post after rejected submissions",
			method:       http.MethodGet,
			requestPath:  "/v1/posts/2",
			expectBody:   notFound(2),
			expectStatus: http.StatusNotFound,
		},
		{
			name:         "Valid get post",
			method:       http.MethodGet,
			requestPath:  "/v1/posts/1",
			expectPost:   &models.Post{PostID: 1, Title: "This is the title", Body: "This is the body"},
			expectStatus: http.StatusOK,
		},
		{
			name:         "Get nonexistent post",
			method:       http.MethodGet,
			requestPath:  "/v1/posts/2",
			expectBody:   notFound(2),
			expectStatus: http.StatusNotFound,
		},
		{
			name:         "Valid put post",
			method:       http.MethodPut,
			requestPath:  "/v1/posts/1",
			bodyPath:     "../../testdata/updated_post.json",
			apiKey:       options.AdminKey,
			expectPost:   &models.Post{PostID: 1, Title: "This is the new title", Body: "This is the *new* body"},
			expectStatus: http.StatusOK,
		},
		{
			name:         "Put nonexistent post",
			method:       http.MethodPut,
			requestPath:  "/v1/posts/2",
			bodyPath:     "../../testdata/updated_post.json",
			apiKey:       options.AdminKey,
			expectBody:   notFound(2),
			expectStatus: http.StatusNotFound,
		},
		{
			name:         "Put post without api key",
			method:       http.MethodPut,
			requestPath:  "/v1/posts/1",
			bodyPath:     "../../testdata/updated_post.json",
			expectBody:   unauthorized,
			expectStatus: http.StatusUnauthorized,
		},
		{
			name:         "Put post, read-only post_id",
			method:       http.MethodPut,
			requestPath:  "/v1/posts/1",
			bodyPath:     "../../testdata/readonly_field_post.json",
			apiKey:       options.AdminKey,
			expectBody:   `"message":"unexpected property","location":"body.post_id"`,
			expectStatus: http.StatusUnprocessableEntity,
		},
		{
			name:         "Get all posts, invalid limit",
			method:       http.MethodGet,
			requestPath:  "/v1/posts?limit=0",
			expectStatus: http.StatusUnprocessableEntity,
		},
		{
			name:         "Delete post without api key",
			method:       http.MethodDelete,
			requestPath:  "/v1/posts/1",
			expectBody:   unauthorized,
			expectStatus: http.StatusUnauthorized,
		},
		{
			name:         "Delete nonexistent post",
			method:       http.MethodDelete,
			requestPath:  "/v1/posts/2",
			apiKey:       options.AdminKey,
			expectBody:   notFound(2),
			expectStatus: http.StatusNotFound,
		},
		{
			name:         "Valid delete post",
			method:       http.MethodDelete,
			requestPath:  "/v1/posts/1",
			apiKey:       options.AdminKey,
			expectBody:   "",
			expectStatus: http.StatusNoContent,
		},
		{
			name:         "Get deleted post",
			method:       http.MethodGet,
			requestPath:  "/v1/posts/1",
			expectBody:   notFound(1),
			expectStatus: http.StatusNotFound,
		},
	}

	for _, v := range tt {
		t.Run(v.name, func(t *testing.T) {
			var reqBody []byte
			if v.bodyPath != "" {
				b, err := os.ReadFile(v.bodyPath)
				require.NoError(t, err)
				reqBody = b
			}

			status, respBody := doRequest(t, v.method, v.requestPath, reqBody, v.apiKey)
			if status != v.expectStatus {
				t.Errorf("Expected status code %d, got %d: %s\n", v.expectStatus, status, string(respBody))
			}

			switch {
			case v.expectPost != nil:
				got := models.Post{}
				require.NoError(t, json.Unmarshal(respBody, &got))
				assert.False(t, got.CreatedAt.IsZero())
				if diff := cmp.Diff(*v.expectPost, got, cmpopts.IgnoreFields(models.Post{}, "CreatedAt", "UpdatedAt")); diff != "" {
					t.Errorf("post mismatch (-want +got):\n%s", diff)
				}
			case v.expectStatus == http.StatusUnprocessableEntity:
				assert.Contains(t, string(respBody), "\"status\":422")
				assert.Contains(t, string(respBody), v.expectBody)
			default:
				assert.Equal(t, v.expectBody, indentJSON(t, respBody), "they should be equal")
			}
		})
	}
}

func TestGetPostsPagination(t *testing.T) {
	startTestServer(t, connPool, hits.NewMemoryCounter())
	for i := 1; i <= 5; i++ {
		createPost(t, fmt.Sprintf("Post %d", i), "body")
	}

	tt := []struct {
		requestPath string
		expectIDs   []int64
	}{
		{requestPath: "/v1/posts", expectIDs: []int64{5, 4, 3, 2, 1}},
		{requestPath: "/v1/posts?limit=2", expectIDs: []int64{5, 4}},
		{requestPath: "/v1/posts?limit=2&offset=2", expectIDs: []int64{3, 2}},
		{requestPath: "/v1/posts?offset=10", expectIDs: []int64{}},
		{requestPath: "/v1/posts?offset=3000000000", expectIDs: []int64{}},
		{requestPath: "/v1/posts?limit=1&offset=4", expectIDs: []int64{1}},
	}

	for _, v := range tt {
		t.Run(v.requestPath, func(t *testing.T) {
			status, body := doRequest(t, http.MethodGet, v.requestPath, nil, "")
			require.Equal(t, http.StatusOK, status)

			got := struct {
				Posts []models.Post `json:"posts"`
				Total int64         `json:"total"`
			}{}
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, int64(5), got.Total)

			ids := []int64{}
			for _, p := range got.Posts {
				ids = append(ids, p.PostID)
			}
			assert.Equal(t, v.expectIDs, ids)
		})
	}
}
