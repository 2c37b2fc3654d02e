package posts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rivo/uniseg"
)

const (
	maxTitleGraphemes = 300
	maxTextLength     = 100000
	maxPageSize       = 100
)

type postService struct {
	repo      Repository
	assets    AssetRemover
	hooks     HookScheduler
	publisher EventPublisher
}

// NewPostService creates a new post service.
// publisher can be nil when events are disabled.
func NewPostService(
	repo Repository,
	assets AssetRemover,
	hooks HookScheduler,
	publisher EventPublisher, // Optional: can be nil
) Service {
	return &postService{
		repo:      repo,
		assets:    assets,
		hooks:     hooks,
		publisher: publisher,
	}
}

// CreatePost validates input and stores a new post owned by the caller
func (s *postService) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	if req.AuthorID == "" {
		return nil, fmt.Errorf("no authenticated user for post creation")
	}
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}
	if err := validateText(req.Text); err != nil {
		return nil, err
	}
	tags, err := ParseTags(req.Tags)
	if err != nil {
		return nil, err
	}

	post, err := s.repo.Create(ctx, &Post{
		UserID:   req.AuthorID,
		Title:    strings.TrimSpace(req.Title),
		Text:     req.Text,
		Tags:     tags,
		ImageURL: strings.TrimSpace(req.ImageURL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	slog.Info("[POST] created", "post_id", post.ID, "author_id", post.UserID)

	if s.publisher != nil {
		created := *post
		s.hooks.Schedule("publish post.created", func(ctx context.Context) error {
			return s.publisher.PublishPostCreated(ctx, &created)
		})
	}

	return post, nil
}

// GetPost returns the post with its view count already incremented
func (s *postService) GetPost(ctx context.Context, id string) (*Post, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	return s.repo.IncrementViews(ctx, id)
}

// ListPosts validates paging input and returns one page
func (s *postService) ListPosts(ctx context.Context, query ListQuery) (*PostPage, error) {
	if query.Page < 1 {
		return nil, NewValidationError("page", "page must be at least 1")
	}
	if query.Size < 1 || query.Size > maxPageSize {
		return nil, NewValidationError("size", fmt.Sprintf("size must be between 1 and %d", maxPageSize))
	}
	switch query.Sort {
	case "":
		query.Sort = SortNew
	case SortNew, SortPopular:
	default:
		return nil, NewValidationError("sort", "sort must be 'new' or 'popular'")
	}
	query.Tag = strings.TrimSpace(query.Tag)

	items, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if items == nil {
		items = []*Post{}
	}

	return &PostPage{
		CurrentPage:   query.Page,
		NumberOfPages: (total + query.Size - 1) / query.Size,
		Data:          items,
	}, nil
}

// UpdatePost replaces the provided fields and retires the superseded image.
// Ownership is not checked here: any authenticated caller may edit.
func (s *postService) UpdatePost(ctx context.Context, id, callerID string, req UpdatePostRequest) error {
	update := PostUpdate{}

	if req.Title != nil {
		if err := validateTitle(*req.Title); err != nil {
			return err
		}
		title := strings.TrimSpace(*req.Title)
		update.Title = &title
	}
	if req.Text != nil {
		if err := validateText(*req.Text); err != nil {
			return err
		}
		update.Text = req.Text
	}
	if req.Tags != nil {
		tags, err := ParseTags(*req.Tags)
		if err != nil {
			return err
		}
		update.Tags = tags
		update.SetTags = true
	}
	if req.ImageURL != nil {
		imageURL := strings.TrimSpace(*req.ImageURL)
		update.ImageURL = &imageURL
	}

	previousImage, err := s.repo.Update(ctx, id, update)
	if err != nil {
		if IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to update post: %w", err)
	}

	slog.Info("[POST] updated", "post_id", id, "caller_id", callerID)

	// The new state is committed; only now is the old asset safe to remove.
	if update.ImageURL != nil && previousImage != "" && previousImage != *update.ImageURL {
		s.scheduleAssetDelete(id, previousImage)
	}

	if s.publisher != nil {
		s.hooks.Schedule("publish post.updated", func(ctx context.Context) error {
			return s.publisher.PublishPostUpdated(ctx, id)
		})
	}

	return nil
}

// DeletePost removes the post and then its image
func (s *postService) DeletePost(ctx context.Context, id, callerID string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to delete post: %w", err)
	}

	slog.Info("[POST] deleted", "post_id", id, "caller_id", callerID)

	if deleted.ImageURL != "" {
		s.scheduleAssetDelete(id, deleted.ImageURL)
	}

	if s.publisher != nil {
		s.hooks.Schedule("publish post.deleted", func(ctx context.Context) error {
			return s.publisher.PublishPostDeleted(ctx, id)
		})
	}

	return nil
}

// LikePost adds the user to the post's likes
func (s *postService) LikePost(ctx context.Context, id, userID string) ([]Like, error) {
	ids, err := s.repo.Like(ctx, id, userID)
	if err != nil {
		if IsNotFound(err) || IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to like post: %w", err)
	}
	return LikesFromUserIDs(ids), nil
}

// UnlikePost removes the user from the post's likes
func (s *postService) UnlikePost(ctx context.Context, id, userID string) ([]Like, error) {
	ids, err := s.repo.Unlike(ctx, id, userID)
	if err != nil {
		if IsNotFound(err) || IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to unlike post: %w", err)
	}
	return LikesFromUserIDs(ids), nil
}

// RecentTags samples tags from the most recently created posts.
// This is a display sample, not a ranking: duplicates are kept.
func (s *postService) RecentTags(ctx context.Context) ([]string, error) {
	lists, err := s.repo.RecentTags(ctx, recentTagPostLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent tags: %w", err)
	}
	return sampleTags(lists, recentTagLimit), nil
}

func (s *postService) scheduleAssetDelete(postID, ref string) {
	s.hooks.Schedule("delete asset", func(ctx context.Context) error {
		if err := s.assets.Delete(ctx, ref); err != nil {
			slog.Warn("[POST] failed to delete superseded asset",
				"post_id", postID,
				"asset", ref,
				"error", err,
			)
			return err
		}
		return nil
	})
}

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return NewValidationError("title", "title is required")
	}
	if uniseg.GraphemeClusterCount(title) > maxTitleGraphemes {
		return NewValidationError("title",
			fmt.Sprintf("title too long (max %d characters)", maxTitleGraphemes))
	}
	return nil
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return NewValidationError("text", "text is required")
	}
	if len(text) > maxTextLength {
		return NewValidationError("text",
			fmt.Sprintf("text too long (max %d characters)", maxTextLength))
	}
	return nil
}
