// Package store defines the mirror store port: the single writer surface
// the apply engine commits to and the read surface the query layer serves
// from. Adapters: postgres (durable) and memory (tests).
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by point reads when no row matches.
var ErrNotFound = errors.New("not found")

// Watermark is the per-stream synchronization cursor: the ledger position
// up to which the mirror has consumed the chain.
type Watermark struct {
	StreamKey string    `json:"stream_key"`
	Slot      int64     `json:"slot"`
	Signature string    `json:"signature"`
	UpdatedAt time.Time `json:"observed_at"`
}

type Profile struct {
	Authority      string `json:"authority"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	BioCID         string `json:"bio_cid"`
	AvatarCID      string `json:"avatar_cid"`
	SourceRecordID string `json:"source_record_id,omitempty"`
}

type FollowEdge struct {
	Follower       string `json:"follower"`
	Following      string `json:"following"`
	SourceRecordID string `json:"source_record_id,omitempty"`
}

type Post struct {
	Author         string `json:"author"`
	PostID         int64  `json:"post_id"`
	ContentCID     string `json:"content_cid"`
	Visibility     int64  `json:"visibility"`
	SourceRecordID string `json:"source_record_id,omitempty"`
}

type Tip struct {
	From           string `json:"from"`
	To             string `json:"to"`
	TipID          int64  `json:"tip_id"`
	AmountLamports int64  `json:"amount_lamports"`
	SourceRecordID string `json:"source_record_id,omitempty"`
}

type Like struct {
	Liker          string `json:"liker"`
	PostAuthor     string `json:"post_author"`
	PostID         int64  `json:"post_id"`
	SourceRecordID string `json:"source_record_id,omitempty"`
}

type Comment struct {
	Author         string `json:"author"`
	PostAuthor     string `json:"post_author"`
	PostID         int64  `json:"post_id"`
	CommentID      int64  `json:"comment_id"`
	ContentCID     string `json:"content_cid"`
	SourceRecordID string `json:"source_record_id,omitempty"`
}

type TopicTag struct {
	Topic          string `json:"topic"`
	Author         string `json:"author"`
	PostID         int64  `json:"post_id"`
	SourceRecordID string `json:"source_record_id,omitempty"`
}

// CursorStore persists the synchronization watermark, one row per logical
// stream. Writes overwrite unconditionally; callers serialize through the
// worker's single-flight gate.
type CursorStore interface {
	// GetWatermark returns ErrNotFound when the stream has never advanced.
	GetWatermark(ctx context.Context, streamKey string) (*Watermark, error)
	SetWatermark(ctx context.Context, streamKey string, slot int64, signature string) (*Watermark, error)
}

// MirrorWriter is the apply engine's write surface.
//
// Additive entities (profiles, posts, tips, comments, topics) take batch
// upserts deduplicated on the source record id; replaying the same batch
// is a no-op. Presence facts (follows, likes) take one call per event so
// an add and its matching remove apply in produced order, never reordered
// across a batch boundary.
type MirrorWriter interface {
	UpsertProfiles(ctx context.Context, profiles []Profile) error
	UpsertPosts(ctx context.Context, posts []Post) error
	UpsertTips(ctx context.Context, tips []Tip) error
	UpsertComments(ctx context.Context, comments []Comment) error
	UpsertTopicTags(ctx context.Context, tags []TopicTag) error

	UpsertFollow(ctx context.Context, edge FollowEdge) error
	DeleteFollow(ctx context.Context, follower, following string) error
	UpsertLike(ctx context.Context, like Like) error
	DeleteLike(ctx context.Context, liker, postAuthor string, postID int64) error
}

// MirrorReader is the query layer's read surface. Reads need no
// coordination with the writer; stale-by-one-tick is acceptable.
type MirrorReader interface {
	GetProfileByAuthority(ctx context.Context, authority string) (*Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*Profile, error)
	ListPostsByAuthor(ctx context.Context, author string, limit, offset int) ([]Post, error)
	ListPostsByTopic(ctx context.Context, topic string, limit, offset int) ([]TopicTag, error)
	ListCommentsForPost(ctx context.Context, postAuthor string, postID int64, limit, offset int) ([]Comment, error)
	ListTipsReceived(ctx context.Context, to string, limit, offset int) ([]Tip, error)
	CountFollowers(ctx context.Context, authority string) (int64, error)
	CountFollowing(ctx context.Context, authority string) (int64, error)
	CountLikes(ctx context.Context, postAuthor string, postID int64) (int64, error)
	CountComments(ctx context.Context, postAuthor string, postID int64) (int64, error)
}

// Store is the full mirror store port.
type Store interface {
	CursorStore
	MirrorWriter
	MirrorReader
}
