package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Inkwell/internal/core/posts"
	"Inkwell/internal/core/users"
)

func newTestRepos(t *testing.T) (*PostRepository, *users.User) {
	t.Helper()
	userRepo := NewUserRepository()
	author, err := userRepo.Create(context.Background(), &users.User{
		ID:        "author-1",
		Email:     "author@example.com",
		FullName:  "Ann Author",
		AvatarURL: "/uploads/ann.jpg",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return NewPostRepository(userRepo), author
}

func TestPostRepository_CreatePopulatesAuthor(t *testing.T) {
	repo, author := newTestRepos(t)
	ctx := context.Background()

	post, err := repo.Create(ctx, &posts.Post{UserID: author.ID, Title: "t", Text: "x", Tags: []string{"a"}})
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.False(t, post.CreatedAt.IsZero())
	require.NotNil(t, post.User)
	assert.Equal(t, "Ann Author", post.User.FullName)
	assert.Equal(t, "/uploads/ann.jpg", post.User.AvatarURL)
	assert.NotNil(t, post.Likes)

	_, err = repo.Create(ctx, &posts.Post{UserID: "ghost", Title: "t", Text: "x"})
	assert.True(t, posts.IsValidationError(err))
}

func TestPostRepository_ReturnsCopies(t *testing.T) {
	repo, author := newTestRepos(t)
	ctx := context.Background()

	post, err := repo.Create(ctx, &posts.Post{UserID: author.ID, Title: "t", Text: "x", Tags: []string{"a"}})
	require.NoError(t, err)

	post.Tags[0] = "mutated"
	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Tags)
}

func TestPostRepository_ConcurrentViewsAndLikes(t *testing.T) {
	repo, author := newTestRepos(t)
	ctx := context.Background()

	post, err := repo.Create(ctx, &posts.Post{UserID: author.ID, Title: "t", Text: "x"})
	require.NoError(t, err)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(3)
		userID := fmt.Sprintf("user-%d", i)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementViews(ctx, post.ID)
			assert.NoError(t, err)
		}()
		for j := 0; j < 2; j++ {
			go func() {
				defer wg.Done()
				if _, err := repo.Like(ctx, post.ID, userID); err != nil {
					assert.ErrorIs(t, err, posts.ErrAlreadyLiked)
				}
			}()
		}
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.ViewsCount)
	assert.Len(t, got.Likes, n)
}

func TestPostRepository_LikeOrderAndUnlike(t *testing.T) {
	repo, author := newTestRepos(t)
	ctx := context.Background()

	post, err := repo.Create(ctx, &posts.Post{UserID: author.ID, Title: "t", Text: "x"})
	require.NoError(t, err)

	_, err = repo.Like(ctx, post.ID, "a")
	require.NoError(t, err)
	_, err = repo.Like(ctx, post.ID, "b")
	require.NoError(t, err)
	likes, err := repo.Like(ctx, post.ID, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, likes)

	likes, err = repo.Unlike(ctx, post.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, likes)

	_, err = repo.Unlike(ctx, post.ID, "b")
	assert.ErrorIs(t, err, posts.ErrNotLiked)
	_, err = repo.Like(ctx, "missing", "a")
	assert.ErrorIs(t, err, posts.ErrNotFound)
}

func TestPostRepository_ListOrdering(t *testing.T) {
	repo, author := newTestRepos(t)
	ctx := context.Background()

	// Same timestamp for all: insertion order decides
	at := time.Now().UTC()
	ids := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		post, err := repo.Create(ctx, &posts.Post{
			UserID:    author.ID,
			Title:     fmt.Sprintf("p%d", i),
			Text:      "x",
			Tags:      []string{fmt.Sprintf("tag%d", i%2)},
			CreatedAt: at,
		})
		require.NoError(t, err)
		ids = append(ids, post.ID)
	}

	items, total, err := repo.List(ctx, posts.ListQuery{Page: 1, Size: 10, Sort: posts.SortNew})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, items, 4)
	assert.Equal(t, ids[3], items[0].ID)
	assert.Equal(t, ids[0], items[3].ID)

	// Views make p1 the most popular
	for i := 0; i < 3; i++ {
		_, err := repo.IncrementViews(ctx, ids[1])
		require.NoError(t, err)
	}
	items, _, err = repo.List(ctx, posts.ListQuery{Page: 1, Size: 1, Sort: posts.SortPopular})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ids[1], items[0].ID)

	items, total, err = repo.List(ctx, posts.ListQuery{Page: 1, Size: 10, Sort: posts.SortNew, Tag: "tag0"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	// Past the end
	items, total, err = repo.List(ctx, posts.ListQuery{Page: 5, Size: 10, Sort: posts.SortNew})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, items)
}

func TestPostRepository_RecentTags(t *testing.T) {
	repo, author := newTestRepos(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 7; i++ {
		_, err := repo.Create(ctx, &posts.Post{
			UserID:    author.ID,
			Title:     "t",
			Text:      "x",
			Tags:      []string{fmt.Sprintf("t%d", i)},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	lists, err := repo.RecentTags(ctx, 5)
	require.NoError(t, err)
	require.Len(t, lists, 5)
	assert.Equal(t, []string{"t6"}, lists[0])
	assert.Equal(t, []string{"t2"}, lists[4])
}

func TestPostRepository_UpdateAndDelete(t *testing.T) {
	repo, author := newTestRepos(t)
	ctx := context.Background()

	post, err := repo.Create(ctx, &posts.Post{UserID: author.ID, Title: "t", Text: "x", ImageURL: "/uploads/a.jpg"})
	require.NoError(t, err)

	image := "/uploads/b.jpg"
	previous, err := repo.Update(ctx, post.ID, posts.PostUpdate{ImageURL: &image})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a.jpg", previous)

	deleted, err := repo.Delete(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, image, deleted.ImageURL)

	_, err = repo.Update(ctx, post.ID, posts.PostUpdate{ImageURL: &image})
	assert.ErrorIs(t, err, posts.ErrNotFound)
	_, err = repo.Delete(ctx, post.ID)
	assert.ErrorIs(t, err, posts.ErrNotFound)
}

func TestUserRepository_UniqueEmail(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, &users.User{ID: "1", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &users.User{ID: "2", Email: "a@example.com"})
	assert.ErrorIs(t, err, users.ErrEmailTaken)

	got, err := repo.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)

	_, err = repo.GetByEmail(ctx, "b@example.com")
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestPostRepository_ListPastTheEnd(t *testing.T) {
	repo, author := newTestRepos(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &posts.Post{UserID: author.ID, Title: "only", Text: "x"})
	require.NoError(t, err)

	for _, page := range []int{2, math.MaxInt/5 + 2, math.MaxInt} {
		items, total, err := repo.List(ctx, posts.ListQuery{Page: page, Size: 5, Sort: posts.SortNew})
		require.NoError(t, err, "page %d", page)
		assert.Empty(t, items, "page %d", page)
		assert.Equal(t, 1, total)
	}
}

func TestPostRepository_WritesAfterDeleteAreNotFound(t *testing.T) {
	repo, author := newTestRepos(t)
	ctx := context.Background()

	post, err := repo.Create(ctx, &posts.Post{UserID: author.ID, Title: "t", Text: "x"})
	require.NoError(t, err)

	// A writer that resolved the entry before the delete must not succeed afterwards
	stale, err := repo.entry(post.ID)
	require.NoError(t, err)

	_, err = repo.Delete(ctx, post.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, stale.lock(), posts.ErrNotFound)
	assert.True(t, stale.mu.TryLock(), "a rejected writer does not keep the lock")
	stale.mu.Unlock()
}

func TestPostRepository_ConcurrentLikesAndDelete(t *testing.T) {
	repo, author := newTestRepos(t)
	ctx := context.Background()

	post, err := repo.Create(ctx, &posts.Post{UserID: author.ID, Title: "t", Text: "x"})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		deleted *posts.Post
		liked   = make(map[string]bool)
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		userID := fmt.Sprintf("user-%02d", i)
		go func() {
			defer wg.Done()
			if _, err := repo.Like(ctx, post.ID, userID); err == nil {
				mu.Lock()
				liked[userID] = true
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, posts.ErrNotFound)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		d, err := repo.Delete(ctx, post.ID)
		assert.NoError(t, err)
		mu.Lock()
		deleted = d
		mu.Unlock()
	}()
	wg.Wait()

	// Every like reported as successful is part of the state the delete returned
	require.NotNil(t, deleted)
	assert.Len(t, deleted.Likes, len(liked))
	for _, like := range deleted.Likes {
		assert.True(t, liked[like.UserID], like.UserID)
	}
}
