package models

// HTML pages
// These are rendered server side and are not part of the JSON API.

// GET Path: "/"

type PostListPageRequest struct{}

// GET Path: "/{post_id}/" and "/post/{post_id}/"

// PostID is a string so that non-numeric ids get the 404 page instead of a
// validation error.
type PostDetailPageRequest struct {
	PostID string `path:"post_id" example:"1" doc:"Post identifier"`
}

// PageResponse carries a rendered HTML document. Status is set explicitly
// so that a missing post can still be answered with a rendered page.
type PageResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}
