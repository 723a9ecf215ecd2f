package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests and local development. Same
// uniqueness semantics as the postgres adapter, behind one mutex.
type Memory struct {
	mu sync.Mutex

	watermarks map[string]Watermark
	profiles   map[string]Profile // keyed by authority
	follows    map[string]FollowEdge
	posts      map[string]Post
	tips       map[string]Tip
	likes      map[string]Like
	comments   map[string]Comment
	topics     map[string]TopicTag

	// appliedRecords tracks source record ids already seen per additive
	// entity, mirroring the partial unique indexes.
	appliedRecords map[string]struct{}

	// FailWrites makes every write return an error, for pass-abort tests.
	FailWrites error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		watermarks:     make(map[string]Watermark),
		profiles:       make(map[string]Profile),
		follows:        make(map[string]FollowEdge),
		posts:          make(map[string]Post),
		tips:           make(map[string]Tip),
		likes:          make(map[string]Like),
		comments:       make(map[string]Comment),
		topics:         make(map[string]TopicTag),
		appliedRecords: make(map[string]struct{}),
	}
}

func key(parts ...string) string { return strings.Join(parts, "\x00") }

func i64s(n int64) string { return strconv.FormatInt(n, 10) }

func (m *Memory) GetWatermark(ctx context.Context, streamKey string) (*Watermark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.watermarks[streamKey]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (m *Memory) SetWatermark(ctx context.Context, streamKey string, slot int64, signature string) (*Watermark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return nil, m.FailWrites
	}
	w := Watermark{StreamKey: streamKey, Slot: slot, Signature: signature, UpdatedAt: time.Now().UTC()}
	m.watermarks[streamKey] = w
	return &w, nil
}

func (m *Memory) UpsertProfiles(ctx context.Context, profiles []Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	for _, p := range profiles {
		if existing, ok := m.profiles[p.Authority]; ok && existing.SourceRecordID == p.SourceRecordID && p.SourceRecordID != "" {
			continue
		}
		m.profiles[p.Authority] = p
	}
	return nil
}

func (m *Memory) UpsertPosts(ctx context.Context, posts []Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	for _, p := range posts {
		k := key("post", p.Author, i64s(p.PostID))
		if m.additiveExists(k, "post", p.SourceRecordID) {
			continue
		}
		m.posts[k] = p
	}
	return nil
}

func (m *Memory) UpsertTips(ctx context.Context, tips []Tip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	for _, t := range tips {
		k := key("tip", t.From, i64s(t.TipID))
		if m.additiveExists(k, "tip", t.SourceRecordID) {
			continue
		}
		m.tips[k] = t
	}
	return nil
}

func (m *Memory) UpsertComments(ctx context.Context, comments []Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	for _, c := range comments {
		k := key("comment", c.Author, c.PostAuthor, i64s(c.PostID), i64s(c.CommentID))
		if m.additiveExists(k, "comment", c.SourceRecordID) {
			continue
		}
		m.comments[k] = c
	}
	return nil
}

func (m *Memory) UpsertTopicTags(ctx context.Context, tags []TopicTag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	for _, t := range tags {
		k := key("topic", t.Topic, t.Author, i64s(t.PostID))
		if m.additiveExists(k, "topic", t.SourceRecordID) {
			continue
		}
		m.topics[k] = t
	}
	return nil
}

// additiveExists reports whether the natural key or the source record id
// has already been applied, and marks the record id as seen.
func (m *Memory) additiveExists(naturalKey, entity, recordID string) bool {
	switch entity {
	case "post":
		if _, ok := m.posts[naturalKey]; ok {
			return true
		}
	case "tip":
		if _, ok := m.tips[naturalKey]; ok {
			return true
		}
	case "comment":
		if _, ok := m.comments[naturalKey]; ok {
			return true
		}
	case "topic":
		if _, ok := m.topics[naturalKey]; ok {
			return true
		}
	}
	if recordID == "" {
		return false
	}
	recKey := key("rec", entity, recordID)
	if _, ok := m.appliedRecords[recKey]; ok {
		return true
	}
	m.appliedRecords[recKey] = struct{}{}
	return false
}

func (m *Memory) UpsertFollow(ctx context.Context, edge FollowEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	k := key("follow", edge.Follower, edge.Following)
	if _, ok := m.follows[k]; ok {
		return nil
	}
	m.follows[k] = edge
	return nil
}

func (m *Memory) DeleteFollow(ctx context.Context, follower, following string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	delete(m.follows, key("follow", follower, following))
	return nil
}

func (m *Memory) UpsertLike(ctx context.Context, like Like) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	k := key("like", like.Liker, like.PostAuthor, i64s(like.PostID))
	if _, ok := m.likes[k]; ok {
		return nil
	}
	m.likes[k] = like
	return nil
}

func (m *Memory) DeleteLike(ctx context.Context, liker, postAuthor string, postID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	delete(m.likes, key("like", liker, postAuthor, i64s(postID)))
	return nil
}

func (m *Memory) GetProfileByAuthority(ctx context.Context, authority string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[authority]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) GetProfileByUsername(ctx context.Context, username string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Username == username {
			out := p
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListPostsByAuthor(ctx context.Context, author string, limit, offset int) ([]Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var posts []Post
	for _, p := range m.posts {
		if p.Author == author {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].PostID > posts[j].PostID })
	return paginate(posts, limit, offset), nil
}

func (m *Memory) ListPostsByTopic(ctx context.Context, topic string, limit, offset int) ([]TopicTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tags []TopicTag
	for _, t := range m.topics {
		if t.Topic == topic {
			tags = append(tags, t)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].PostID > tags[j].PostID })
	return paginate(tags, limit, offset), nil
}

func (m *Memory) ListCommentsForPost(ctx context.Context, postAuthor string, postID int64, limit, offset int) ([]Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var comments []Comment
	for _, c := range m.comments {
		if c.PostAuthor == postAuthor && c.PostID == postID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CommentID < comments[j].CommentID })
	return paginate(comments, limit, offset), nil
}

func (m *Memory) ListTipsReceived(ctx context.Context, to string, limit, offset int) ([]Tip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tips []Tip
	for _, t := range m.tips {
		if t.To == to {
			tips = append(tips, t)
		}
	}
	sort.Slice(tips, func(i, j int) bool { return tips[i].TipID > tips[j].TipID })
	return paginate(tips, limit, offset), nil
}

func (m *Memory) CountFollowers(ctx context.Context, authority string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, f := range m.follows {
		if f.Following == authority {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CountFollowing(ctx context.Context, authority string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, f := range m.follows {
		if f.Follower == authority {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CountLikes(ctx context.Context, postAuthor string, postID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, l := range m.likes {
		if l.PostAuthor == postAuthor && l.PostID == postID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CountComments(ctx context.Context, postAuthor string, postID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.comments {
		if c.PostAuthor == postAuthor && c.PostID == postID {
			n++
		}
	}
	return n, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
