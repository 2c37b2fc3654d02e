package posts

import "context"

// Service defines the business logic interface for posts
// Coordinates between Repository, the asset store and post-commit hooks
type Service interface {
	// CreatePost validates the input and stores a new post owned by req.AuthorID
	CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error)

	// GetPost returns a post after incrementing its view count
	GetPost(ctx context.Context, id string) (*Post, error)

	// ListPosts returns one page of posts
	ListPosts(ctx context.Context, query ListQuery) (*PostPage, error)

	// UpdatePost replaces the provided fields. Replaced images are removed
	// from the asset store once the new state is persisted.
	UpdatePost(ctx context.Context, id, callerID string, req UpdatePostRequest) error

	// DeletePost removes a post and schedules removal of its image
	DeletePost(ctx context.Context, id, callerID string) error

	// LikePost adds userID to the post's likes and returns the updated ledger
	LikePost(ctx context.Context, id, userID string) ([]Like, error)

	// UnlikePost removes userID from the post's likes and returns the updated ledger
	UnlikePost(ctx context.Context, id, userID string) ([]Like, error)

	// RecentTags samples up to five tags from the most recent posts
	RecentTags(ctx context.Context) ([]string, error)
}

// Repository defines the data access interface for posts
type Repository interface {
	// Create inserts a new post. ID and CreatedAt are assigned when empty.
	Create(ctx context.Context, post *Post) (*Post, error)

	// GetByID retrieves a post without touching its view count
	GetByID(ctx context.Context, id string) (*Post, error)

	// List returns the posts of one page and the total number of matching posts.
	// Both values come from the same snapshot.
	List(ctx context.Context, query ListQuery) ([]*Post, int, error)

	// Update replaces the set fields in one step and returns the image
	// reference the post held before the update
	Update(ctx context.Context, id string, update PostUpdate) (string, error)

	// Delete removes the post and returns it as it was before deletion
	Delete(ctx context.Context, id string) (*Post, error)

	// IncrementViews atomically adds one to the view count and returns the post
	IncrementViews(ctx context.Context, id string) (*Post, error)

	// Like prepends userID to the likes unless already present.
	// Check and write happen atomically per post.
	Like(ctx context.Context, id, userID string) ([]string, error)

	// Unlike removes userID from the likes if present.
	// Check and write happen atomically per post.
	Unlike(ctx context.Context, id, userID string) ([]string, error)

	// RecentTags returns the tag lists of the most recently created posts, newest first
	RecentTags(ctx context.Context, postLimit int) ([][]string, error)
}

// AssetRemover deletes stored assets. Deleting a missing asset is not an error.
type AssetRemover interface {
	Delete(ctx context.Context, ref string) error
}

// HookScheduler runs tasks after the triggering mutation has committed
type HookScheduler interface {
	Schedule(name string, task func(ctx context.Context) error)
}

// EventPublisher announces post lifecycle changes to other services
type EventPublisher interface {
	PublishPostCreated(ctx context.Context, post *Post) error
	PublishPostUpdated(ctx context.Context, postID string) error
	PublishPostDeleted(ctx context.Context, postID string) error
}
