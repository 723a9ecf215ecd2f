package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heliograph-labs/heliograph/internal/normalize"
	"github.com/heliograph-labs/heliograph/internal/store"
)

// Applier commits one transaction's canonical events to the mirror.
//
// Additive kinds (profile, post, tip, comment, topic) batch per kind and
// dedupe on the source record id, so a replay is a no-op. Presence kinds
// (follow/unfollow, like/unlike) go through an ordered lane, one statement
// per event in produced order: an add and its matching remove must never
// be reordered across a batch boundary. This asymmetry is deliberate; do
// not collapse the two lanes into one batching strategy.
type Applier struct {
	writer store.MirrorWriter
}

func NewApplier(writer store.MirrorWriter) *Applier {
	return &Applier{writer: writer}
}

// presenceOp is one ordered-lane operation.
type presenceOp struct {
	apply func(ctx context.Context) error
}

// Apply groups and commits events. On error the mirror may hold a prefix
// of the transaction's events; the caller must not advance the cursor, so
// the next pass replays the transaction and the dedupe keys absorb the
// prefix.
func (a *Applier) Apply(ctx context.Context, events []normalize.Event) error {
	if len(events) == 0 {
		return nil
	}

	var (
		profiles []store.Profile
		posts    []store.Post
		tips     []store.Tip
		comments []store.Comment
		topics   []store.TopicTag
		ordered  []presenceOp
	)

	for _, evt := range events {
		switch e := evt.(type) {
		case normalize.ProfileUpsert:
			profiles = append(profiles, store.Profile{
				Authority:      e.Authority,
				Username:       e.Username,
				DisplayName:    e.DisplayName,
				BioCID:         e.BioCID,
				AvatarCID:      e.AvatarCID,
				SourceRecordID: e.RecordID(),
			})

		case normalize.PostCreated:
			posts = append(posts, store.Post{
				Author:         e.Author,
				PostID:         e.PostID,
				ContentCID:     e.ContentCID,
				Visibility:     e.Visibility,
				SourceRecordID: e.RecordID(),
			})

		case normalize.Tip:
			tips = append(tips, store.Tip{
				From:           e.From,
				To:             e.To,
				TipID:          e.TipID,
				AmountLamports: e.AmountLamports,
				SourceRecordID: e.RecordID(),
			})

		case normalize.CommentCreated:
			comments = append(comments, store.Comment{
				Author:         e.Author,
				PostAuthor:     e.PostAuthor,
				PostID:         e.PostID,
				CommentID:      e.CommentID,
				ContentCID:     e.ContentCID,
				SourceRecordID: e.RecordID(),
			})

		case normalize.TopicTagged:
			topics = append(topics, store.TopicTag{
				Topic:          e.Topic,
				Author:         e.Author,
				PostID:         e.PostID,
				SourceRecordID: e.RecordID(),
			})

		case normalize.Follow:
			if e.Follower == e.Following {
				// Self-follows never reach the store.
				continue
			}
			edge := store.FollowEdge{
				Follower:       e.Follower,
				Following:      e.Following,
				SourceRecordID: e.RecordID(),
			}
			ordered = append(ordered, presenceOp{apply: func(ctx context.Context) error {
				return a.writer.UpsertFollow(ctx, edge)
			}})

		case normalize.Unfollow:
			follower, following := e.Follower, e.Following
			ordered = append(ordered, presenceOp{apply: func(ctx context.Context) error {
				return a.writer.DeleteFollow(ctx, follower, following)
			}})

		case normalize.Like:
			like := store.Like{
				Liker:          e.Liker,
				PostAuthor:     e.PostAuthor,
				PostID:         e.PostID,
				SourceRecordID: e.RecordID(),
			}
			ordered = append(ordered, presenceOp{apply: func(ctx context.Context) error {
				return a.writer.UpsertLike(ctx, like)
			}})

		case normalize.Unlike:
			liker, postAuthor, postID := e.Liker, e.PostAuthor, e.PostID
			ordered = append(ordered, presenceOp{apply: func(ctx context.Context) error {
				return a.writer.DeleteLike(ctx, liker, postAuthor, postID)
			}})

		default:
			slog.Warn("[Apply] Skipping event of unknown kind", "kind", evt.EventKind())
		}
	}

	if err := a.writer.UpsertProfiles(ctx, profiles); err != nil {
		return fmt.Errorf("apply profiles: %w", err)
	}
	if err := a.writer.UpsertPosts(ctx, posts); err != nil {
		return fmt.Errorf("apply posts: %w", err)
	}
	if err := a.writer.UpsertTips(ctx, tips); err != nil {
		return fmt.Errorf("apply tips: %w", err)
	}
	if err := a.writer.UpsertComments(ctx, comments); err != nil {
		return fmt.Errorf("apply comments: %w", err)
	}
	if err := a.writer.UpsertTopicTags(ctx, topics); err != nil {
		return fmt.Errorf("apply topics: %w", err)
	}

	for _, op := range ordered {
		if err := op.apply(ctx); err != nil {
			return fmt.Errorf("apply presence event: %w", err)
		}
	}

	return nil
}
