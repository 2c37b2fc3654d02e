package posts_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Inkwell/internal/core/assets"
	"Inkwell/internal/core/postcommit"
	"Inkwell/internal/core/posts"
	"Inkwell/internal/core/users"
	"Inkwell/internal/db/memory"
)

type failingRemover struct {
	calls int
	mu    sync.Mutex
}

func (f *failingRemover) Delete(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("permission denied")
}

type lifecycle struct {
	svc    posts.Service
	store  *assets.DiskStore
	runner *postcommit.Runner
	author string
}

func newLifecycle(t *testing.T, remover posts.AssetRemover) *lifecycle {
	t.Helper()

	userRepo := memory.NewUserRepository()
	author, err := userRepo.Create(context.Background(), &users.User{
		ID: "author", Email: "author@example.com", FullName: "Author", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	store, err := assets.NewDiskStore(filepath.Join(t.TempDir(), "uploads"), assets.Rendition{})
	require.NoError(t, err)
	if remover == nil {
		remover = store
	}

	runner := postcommit.NewRunner(5 * time.Second)
	t.Cleanup(runner.Wait)

	return &lifecycle{
		svc:    posts.NewPostService(memory.NewPostRepository(userRepo), remover, runner, nil),
		store:  store,
		runner: runner,
		author: author.ID,
	}
}

func (l *lifecycle) saveImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	ref, err := l.store.Save(context.Background(), buf.Bytes(), "image/png")
	require.NoError(t, err)
	return ref
}

func (l *lifecycle) assetExists(t *testing.T, ref string) bool {
	t.Helper()
	path, err := l.store.Path(ref)
	require.NoError(t, err)
	_, err = os.Stat(path)
	return err == nil
}

func TestLifecycle_CreateThenGet(t *testing.T) {
	l := newLifecycle(t, nil)
	ctx := context.Background()
	image := l.saveImage(t)

	created, err := l.svc.CreatePost(ctx, posts.CreatePostRequest{
		AuthorID: l.author,
		Title:    "Title",
		Text:     "Some text",
		Tags:     "go,http,go",
		ImageURL: image,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, created.ViewsCount)

	got, err := l.svc.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Title", got.Title)
	assert.Equal(t, "Some text", got.Text)
	assert.Equal(t, []string{"go", "http", "go"}, got.Tags)
	assert.Equal(t, image, got.ImageURL)
	assert.Equal(t, 1, got.ViewsCount)
	assert.Equal(t, l.author, got.User.ID)

	got, err = l.svc.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewsCount)
}

func TestLifecycle_ConcurrentViews(t *testing.T) {
	l := newLifecycle(t, nil)
	ctx := context.Background()

	created, err := l.svc.CreatePost(ctx, posts.CreatePostRequest{AuthorID: l.author, Title: "t", Text: "x"})
	require.NoError(t, err)

	const viewers = 64
	var wg sync.WaitGroup
	for i := 0; i < viewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.svc.GetPost(ctx, created.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	page, err := l.svc.ListPosts(ctx, posts.ListQuery{Page: 1, Size: 1})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, viewers, page.Data[0].ViewsCount)
}

func TestLifecycle_LikeTwice(t *testing.T) {
	l := newLifecycle(t, nil)
	ctx := context.Background()

	created, err := l.svc.CreatePost(ctx, posts.CreatePostRequest{AuthorID: l.author, Title: "t", Text: "x"})
	require.NoError(t, err)

	_, err = l.svc.UnlikePost(ctx, created.ID, "u")
	assert.ErrorIs(t, err, posts.ErrNotLiked)

	likes, err := l.svc.LikePost(ctx, created.ID, "u")
	require.NoError(t, err)
	assert.Len(t, likes, 1)

	_, err = l.svc.LikePost(ctx, created.ID, "u")
	assert.ErrorIs(t, err, posts.ErrAlreadyLiked)

	got, err := l.svc.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Likes, 1)
}

func TestLifecycle_ConcurrentLikesFromDistinctUsers(t *testing.T) {
	l := newLifecycle(t, nil)
	ctx := context.Background()

	created, err := l.svc.CreatePost(ctx, posts.CreatePostRequest{AuthorID: l.author, Title: "t", Text: "x"})
	require.NoError(t, err)

	const likers = 50
	var wg sync.WaitGroup
	for i := 0; i < likers; i++ {
		wg.Add(1)
		userID := fmt.Sprintf("user-%02d", i)
		go func() {
			defer wg.Done()
			_, err := l.svc.LikePost(ctx, created.ID, userID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := l.svc.GetPost(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Likes, likers)

	seen := make(map[string]bool)
	for _, like := range got.Likes {
		assert.False(t, seen[like.UserID], "duplicate like from %s", like.UserID)
		seen[like.UserID] = true
	}
}

func TestLifecycle_PaginationCoversEveryPostOnce(t *testing.T) {
	l := newLifecycle(t, nil)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := l.svc.CreatePost(ctx, posts.CreatePostRequest{
			AuthorID: l.author,
			Title:    fmt.Sprintf("post %d", i),
			Text:     "x",
		})
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	for page := 1; page <= 3; page++ {
		result, err := l.svc.ListPosts(ctx, posts.ListQuery{Page: page, Size: 5})
		require.NoError(t, err)
		assert.Equal(t, 3, result.NumberOfPages)
		assert.Equal(t, page, result.CurrentPage)
		for _, p := range result.Data {
			assert.False(t, seen[p.ID], "post %s on two pages", p.ID)
			seen[p.ID] = true
		}
	}
	assert.Len(t, seen, 12)
}

func TestLifecycle_PageFarPastTheEnd(t *testing.T) {
	l := newLifecycle(t, nil)
	ctx := context.Background()

	_, err := l.svc.CreatePost(ctx, posts.CreatePostRequest{AuthorID: l.author, Title: "t", Text: "x"})
	require.NoError(t, err)

	for _, page := range []int{2, math.MaxInt/5 + 2, math.MaxInt} {
		result, err := l.svc.ListPosts(ctx, posts.ListQuery{Page: page, Size: 5})
		require.NoError(t, err, "page %d", page)
		assert.Empty(t, result.Data)
		assert.Equal(t, 1, result.NumberOfPages)
	}
}

func TestLifecycle_DeleteThenGet(t *testing.T) {
	l := newLifecycle(t, nil)
	ctx := context.Background()
	image := l.saveImage(t)

	created, err := l.svc.CreatePost(ctx, posts.CreatePostRequest{AuthorID: l.author, Title: "t", Text: "x", ImageURL: image})
	require.NoError(t, err)

	require.NoError(t, l.svc.DeletePost(ctx, created.ID, l.author))
	l.runner.Wait()

	_, err = l.svc.GetPost(ctx, created.ID)
	assert.ErrorIs(t, err, posts.ErrNotFound)
	assert.False(t, l.assetExists(t, image), "asset of a deleted post is removed")

	assert.ErrorIs(t, l.svc.DeletePost(ctx, created.ID, l.author), posts.ErrNotFound)
}

func TestLifecycle_ImageReplacement(t *testing.T) {
	l := newLifecycle(t, nil)
	ctx := context.Background()
	imageA := l.saveImage(t)
	imageB := l.saveImage(t)

	created, err := l.svc.CreatePost(ctx, posts.CreatePostRequest{AuthorID: l.author, Title: "t", Text: "x", ImageURL: imageA})
	require.NoError(t, err)

	require.NoError(t, l.svc.UpdatePost(ctx, created.ID, l.author, posts.UpdatePostRequest{ImageURL: &imageB}))
	l.runner.Wait()

	assert.False(t, l.assetExists(t, imageA))
	assert.True(t, l.assetExists(t, imageB))

	got, err := l.svc.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, imageB, got.ImageURL)
}

func TestLifecycle_ImageReplacementSurvivesDeleteFailure(t *testing.T) {
	remover := &failingRemover{}
	l := newLifecycle(t, remover)
	ctx := context.Background()
	imageA := l.saveImage(t)
	imageB := l.saveImage(t)

	created, err := l.svc.CreatePost(ctx, posts.CreatePostRequest{AuthorID: l.author, Title: "t", Text: "x", ImageURL: imageA})
	require.NoError(t, err)

	require.NoError(t, l.svc.UpdatePost(ctx, created.ID, l.author, posts.UpdatePostRequest{ImageURL: &imageB}))
	l.runner.Wait()

	assert.Equal(t, 1, remover.calls)
	got, err := l.svc.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, imageB, got.ImageURL, "update is not rolled back")
}

func TestLifecycle_RecentTags(t *testing.T) {
	l := newLifecycle(t, nil)
	ctx := context.Background()

	tags, err := l.svc.RecentTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)

	for _, raw := range []string{"old,older", "a,b", "c", "c,d,e"} {
		_, err := l.svc.CreatePost(ctx, posts.CreatePostRequest{AuthorID: l.author, Title: "t", Text: "x", Tags: raw})
		require.NoError(t, err)
		// Distinct creation times keep newest-first order unambiguous
		time.Sleep(2 * time.Millisecond)
	}

	tags, err = l.svc.RecentTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d", "e", "c", "a"}, tags)
}
