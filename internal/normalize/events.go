// Package normalize folds decoder output into one canonical shape per
// event kind. It is pure: no I/O, no chain types, just field mapping.
package normalize

import "fmt"

// Kind tags a canonical event variant.
type Kind string

const (
	KindProfileUpsert  Kind = "profile_upsert"
	KindFollow         Kind = "follow"
	KindUnfollow       Kind = "unfollow"
	KindPostCreated    Kind = "post_created"
	KindTip            Kind = "tip"
	KindLike           Kind = "like"
	KindUnlike         Kind = "unlike"
	KindCommentCreated Kind = "comment_created"
	KindTopicTagged    Kind = "topic_tagged"
)

// Event is one canonical decoded event. Ephemeral: constructed per decode
// pass and handed to the apply engine, never persisted directly.
type Event interface {
	EventKind() Kind

	// RecordID is the deterministic idempotency key derived from
	// (transaction signature, index within transaction).
	RecordID() string
}

// recordRef carries the RecordID shared by every variant.
type recordRef struct {
	ID string
}

func (r recordRef) RecordID() string { return r.ID }

// NewRecordID builds the deterministic per-record identifier.
func NewRecordID(signature string, index int) string {
	return fmt.Sprintf("%s:%d", signature, index)
}

type ProfileUpsert struct {
	recordRef
	Authority   string
	Username    string
	DisplayName string
	BioCID      string
	AvatarCID   string
}

func (ProfileUpsert) EventKind() Kind { return KindProfileUpsert }

type Follow struct {
	recordRef
	Follower  string
	Following string
}

func (Follow) EventKind() Kind { return KindFollow }

type Unfollow struct {
	recordRef
	Follower  string
	Following string
}

func (Unfollow) EventKind() Kind { return KindUnfollow }

type PostCreated struct {
	recordRef
	Author     string
	PostID     int64
	ContentCID string
	Visibility int64
}

func (PostCreated) EventKind() Kind { return KindPostCreated }

type Tip struct {
	recordRef
	From           string
	To             string
	TipID          int64
	AmountLamports int64
}

func (Tip) EventKind() Kind { return KindTip }

type Like struct {
	recordRef
	Liker      string
	PostAuthor string
	PostID     int64
}

func (Like) EventKind() Kind { return KindLike }

type Unlike struct {
	recordRef
	Liker      string
	PostAuthor string
	PostID     int64
}

func (Unlike) EventKind() Kind { return KindUnlike }

type CommentCreated struct {
	recordRef
	Author     string
	PostAuthor string
	PostID     int64
	CommentID  int64
	ContentCID string
}

func (CommentCreated) EventKind() Kind { return KindCommentCreated }

type TopicTagged struct {
	recordRef
	Topic  string
	Author string
	PostID int64
}

func (TopicTagged) EventKind() Kind { return KindTopicTagged }
