package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"Inkwell/internal/core/posts"
	"Inkwell/internal/core/users"
)

// postEntry holds one post behind its own lock. Ledger and counter
// mutations lock only the entry, so different posts never contend.
type postEntry struct {
	post    posts.Post
	mu      sync.Mutex
	seq     uint64
	deleted bool
}

// lock acquires the entry lock. A caller that fetched the entry before a
// concurrent Delete gets ErrNotFound and does not hold the lock.
func (e *postEntry) lock() error {
	e.mu.Lock()
	if e.deleted {
		e.mu.Unlock()
		return posts.ErrNotFound
	}
	return nil
}

// snapshot copies the post under the entry lock
func (e *postEntry) snapshot() posts.Post {
	e.mu.Lock()
	defer e.mu.Unlock()
	return clonePost(e.post)
}

// PostRepository is an in-memory posts.Repository
type PostRepository struct {
	authors users.UserRepository
	entries map[string]*postEntry
	mu      sync.RWMutex
	nextSeq uint64
}

// NewPostRepository creates an empty repository. Authors are resolved through authors.
func NewPostRepository(authors users.UserRepository) *PostRepository {
	return &PostRepository{
		authors: authors,
		entries: make(map[string]*postEntry),
	}
}

// Create stores a new post
func (r *PostRepository) Create(ctx context.Context, post *posts.Post) (*posts.Post, error) {
	author, err := r.authors.GetByID(ctx, post.UserID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, posts.NewValidationError("user", "author does not exist")
		}
		return nil, fmt.Errorf("failed to resolve author: %w", err)
	}

	stored := clonePost(*post)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = stored.CreatedAt
	stored.ViewsCount = 0
	stored.Likes = []posts.Like{}
	stored.User = nil

	r.mu.Lock()
	if _, exists := r.entries[stored.ID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("post %s already exists", stored.ID)
	}
	r.nextSeq++
	r.entries[stored.ID] = &postEntry{post: stored, seq: r.nextSeq}
	r.mu.Unlock()

	out := clonePost(stored)
	out.User = authorView(author)
	return &out, nil
}

// GetByID retrieves a post without touching its view count
func (r *PostRepository) GetByID(ctx context.Context, id string) (*posts.Post, error) {
	entry, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	post := entry.snapshot()
	return r.withAuthor(ctx, &post), nil
}

// IncrementViews adds one to the counter under the post's lock
func (r *PostRepository) IncrementViews(ctx context.Context, id string) (*posts.Post, error) {
	entry, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	if err := entry.lock(); err != nil {
		return nil, err
	}
	entry.post.ViewsCount++
	post := clonePost(entry.post)
	entry.mu.Unlock()

	return r.withAuthor(ctx, &post), nil
}

// List pages over a snapshot taken under the repository read lock,
// so the page and the total agree
func (r *PostRepository) List(ctx context.Context, query posts.ListQuery) ([]*posts.Post, int, error) {
	snap := r.sortedSnapshot(query.Sort)

	matching := snap[:0]
	for _, s := range snap {
		if query.Tag == "" || containsTag(s.post.Tags, query.Tag) {
			matching = append(matching, s)
		}
	}

	total := len(matching)
	start := query.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := start + query.Size
	if end > total {
		end = total
	}

	page := make([]*posts.Post, 0, end-start)
	for _, s := range matching[start:end] {
		post := s.post
		page = append(page, r.withAuthor(ctx, &post))
	}
	return page, total, nil
}

// Update replaces the set fields under the post's lock and returns the previous image
func (r *PostRepository) Update(ctx context.Context, id string, update posts.PostUpdate) (string, error) {
	entry, err := r.entry(id)
	if err != nil {
		return "", err
	}

	if err := entry.lock(); err != nil {
		return "", err
	}
	defer entry.mu.Unlock()

	previous := entry.post.ImageURL
	if update.Title != nil {
		entry.post.Title = *update.Title
	}
	if update.Text != nil {
		entry.post.Text = *update.Text
	}
	if update.ImageURL != nil {
		entry.post.ImageURL = *update.ImageURL
	}
	if update.SetTags {
		entry.post.Tags = append([]string{}, update.Tags...)
	}
	entry.post.UpdatedAt = time.Now().UTC()

	return previous, nil
}

// Delete removes the post and returns it as it was
func (r *PostRepository) Delete(ctx context.Context, id string) (*posts.Post, error) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil, posts.ErrNotFound
	}

	// Writers that looked the entry up before removal see the mark
	entry.mu.Lock()
	entry.deleted = true
	post := clonePost(entry.post)
	entry.mu.Unlock()

	return r.withAuthor(ctx, &post), nil
}

// Like prepends userID unless present. Check and write share one lock scope.
func (r *PostRepository) Like(ctx context.Context, id, userID string) ([]string, error) {
	entry, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	if err := entry.lock(); err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	if entry.post.HasLike(userID) {
		return nil, posts.ErrAlreadyLiked
	}
	entry.post.Likes = append([]posts.Like{{UserID: userID}}, entry.post.Likes...)
	entry.post.UpdatedAt = time.Now().UTC()

	return likeIDs(entry.post.Likes), nil
}

// Unlike removes userID if present. Check and write share one lock scope.
func (r *PostRepository) Unlike(ctx context.Context, id, userID string) ([]string, error) {
	entry, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	if err := entry.lock(); err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	for i, like := range entry.post.Likes {
		if like.UserID == userID {
			likes := make([]posts.Like, 0, len(entry.post.Likes)-1)
			likes = append(likes, entry.post.Likes[:i]...)
			likes = append(likes, entry.post.Likes[i+1:]...)
			entry.post.Likes = likes
			entry.post.UpdatedAt = time.Now().UTC()
			return likeIDs(likes), nil
		}
	}
	return nil, posts.ErrNotLiked
}

// RecentTags returns the tag lists of the newest posts
func (r *PostRepository) RecentTags(ctx context.Context, postLimit int) ([][]string, error) {
	snap := r.sortedSnapshot(posts.SortNew)
	if len(snap) > postLimit {
		snap = snap[:postLimit]
	}

	lists := make([][]string, 0, len(snap))
	for _, s := range snap {
		lists = append(lists, s.post.Tags)
	}
	return lists, nil
}

func (r *PostRepository) entry(id string) (*postEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, posts.ErrNotFound
	}
	return entry, nil
}

type snapshotRow struct {
	post posts.Post
	seq  uint64
}

// sortedSnapshot copies every post and orders them like the Postgres backend.
// seq stands in for id as the tie breaker so equal timestamps keep insertion order.
func (r *PostRepository) sortedSnapshot(sortKey string) []snapshotRow {
	r.mu.RLock()
	snap := make([]snapshotRow, 0, len(r.entries))
	for _, entry := range r.entries {
		snap = append(snap, snapshotRow{post: entry.snapshot(), seq: entry.seq})
	}
	r.mu.RUnlock()

	sort.Slice(snap, func(i, j int) bool {
		a, b := snap[i], snap[j]
		if sortKey == posts.SortPopular && a.post.ViewsCount != b.post.ViewsCount {
			return a.post.ViewsCount > b.post.ViewsCount
		}
		if !a.post.CreatedAt.Equal(b.post.CreatedAt) {
			return a.post.CreatedAt.After(b.post.CreatedAt)
		}
		return a.seq > b.seq
	})
	return snap
}

// withAuthor fills the author view. A missing author leaves a bare id.
func (r *PostRepository) withAuthor(ctx context.Context, post *posts.Post) *posts.Post {
	author, err := r.authors.GetByID(ctx, post.UserID)
	if err != nil {
		post.User = &posts.AuthorView{ID: post.UserID}
		return post
	}
	post.User = authorView(author)
	return post
}

func authorView(u *users.User) *posts.AuthorView {
	return &posts.AuthorView{ID: u.ID, FullName: u.FullName, AvatarURL: u.AvatarURL}
}

func clonePost(p posts.Post) posts.Post {
	p.Tags = append([]string{}, p.Tags...)
	p.Likes = append([]posts.Like{}, p.Likes...)
	if p.User != nil {
		author := *p.User
		p.User = &author
	}
	return p
}

func likeIDs(likes []posts.Like) []string {
	ids := make([]string, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.UserID)
	}
	return ids
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
