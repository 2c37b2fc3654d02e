package posts

import (
	"math"
	"time"
)

// Sort orders supported by ListPosts
const (
	SortNew     = "new"
	SortPopular = "popular"
)

// Post represents one article in the posts table
type Post struct {
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	User       *AuthorView `json:"user"`
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Text       string      `json:"text"`
	ImageURL   string      `json:"imageUrl"`
	UserID     string      `json:"-"`
	Tags       []string    `json:"tags"`
	Likes      []Like      `json:"likes"`
	ViewsCount int         `json:"viewsCount"`
}

// AuthorView is the populated author of a post
type AuthorView struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Like is one entry of a post's engagement ledger
type Like struct {
	UserID string `json:"userId"`
}

// LikesFromUserIDs converts stored user ids (most recent first) into ledger entries.
// Never returns nil so the JSON encoding is always an array.
func LikesFromUserIDs(ids []string) []Like {
	likes := make([]Like, 0, len(ids))
	for _, id := range ids {
		likes = append(likes, Like{UserID: id})
	}
	return likes
}

// HasLike reports whether userID appears in the ledger
func (p *Post) HasLike(userID string) bool {
	for _, l := range p.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// CreatePostRequest represents input for creating a new post.
// Tags is the raw comma-separated field as submitted.
type CreatePostRequest struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	Tags     string `json:"tags"`
	ImageURL string `json:"imageUrl"`
	AuthorID string `json:"-"`
}

// UpdatePostRequest holds the fields to replace. Nil fields are left unchanged.
type UpdatePostRequest struct {
	Title    *string `json:"title,omitempty"`
	Text     *string `json:"text,omitempty"`
	Tags     *string `json:"tags,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

// PostUpdate is the repository-level field set for Update
type PostUpdate struct {
	Title    *string
	Text     *string
	ImageURL *string
	Tags     []string
	SetTags  bool
}

// ListQuery selects one page of posts
type ListQuery struct {
	Sort string
	Tag  string
	Page int
	Size int
}

// Offset returns the number of posts skipped before the page.
// Pages too far out to address saturate at math.MaxInt instead of wrapping.
func (q ListQuery) Offset() int {
	if q.Page < 1 || q.Size < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Size {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Size
}

// PostPage is the paginated list response
type PostPage struct {
	Data          []*Post `json:"data"`
	CurrentPage   int     `json:"currentPage"`
	NumberOfPages int     `json:"numberOfPages"`
}
