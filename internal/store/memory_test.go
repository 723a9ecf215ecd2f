package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_WatermarkRoundTrip(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	_, err := mem.GetWatermark(ctx, "main")
	require.ErrorIs(t, err, ErrNotFound)

	w, err := mem.SetWatermark(ctx, "main", 42, "sig-a")
	require.NoError(t, err)
	require.Equal(t, int64(42), w.Slot)
	require.False(t, w.UpdatedAt.IsZero())

	got, err := mem.GetWatermark(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, "sig-a", got.Signature)

	// Streams are independent.
	_, err = mem.GetWatermark(ctx, "other")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_PostNaturalKeyWins(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	first := Post{Author: "alice", PostID: 1, ContentCID: "cid-1", SourceRecordID: "sig-a:0"}
	dupe := Post{Author: "alice", PostID: 1, ContentCID: "cid-other", SourceRecordID: "sig-b:0"}

	require.NoError(t, mem.UpsertPosts(ctx, []Post{first}))
	require.NoError(t, mem.UpsertPosts(ctx, []Post{dupe}))

	posts, err := mem.ListPostsByAuthor(ctx, "alice", 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "cid-1", posts[0].ContentCID)
}

func TestMemory_SourceRecordDedupeAcrossEntities(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	tip := Tip{From: "bob", To: "alice", TipID: 1, AmountLamports: 100, SourceRecordID: "sig-a:1"}
	require.NoError(t, mem.UpsertTips(ctx, []Tip{tip, tip}))

	tips, err := mem.ListTipsReceived(ctx, "alice", 10, 0)
	require.NoError(t, err)
	require.Len(t, tips, 1)
}

func TestMemory_FollowPresence(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	edge := FollowEdge{Follower: "bob", Following: "alice"}
	require.NoError(t, mem.UpsertFollow(ctx, edge))
	require.NoError(t, mem.UpsertFollow(ctx, edge))

	followers, err := mem.CountFollowers(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(1), followers)

	following, err := mem.CountFollowing(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, int64(1), following)

	require.NoError(t, mem.DeleteFollow(ctx, "bob", "alice"))
	followers, err = mem.CountFollowers(ctx, "alice")
	require.NoError(t, err)
	require.Zero(t, followers)

	// Deleting again stays silent.
	require.NoError(t, mem.DeleteFollow(ctx, "bob", "alice"))
}

func TestMemory_ProfileLookup(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.UpsertProfiles(ctx, []Profile{
		{Authority: "alice", Username: "alice_1"},
	}))

	byAuth, err := mem.GetProfileByAuthority(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice_1", byAuth.Username)

	byName, err := mem.GetProfileByUsername(ctx, "alice_1")
	require.NoError(t, err)
	require.Equal(t, "alice", byName.Authority)

	_, err = mem.GetProfileByUsername(ctx, "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ListOrderingAndPagination(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, mem.UpsertPosts(ctx, []Post{
			{Author: "alice", PostID: i, ContentCID: "cid"},
		}))
		require.NoError(t, mem.UpsertComments(ctx, []Comment{
			{Author: "bob", PostAuthor: "alice", PostID: 1, CommentID: i},
		}))
	}

	// Posts newest first.
	posts, err := mem.ListPostsByAuthor(ctx, "alice", 2, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, int64(5), posts[0].PostID)
	require.Equal(t, int64(4), posts[1].PostID)

	posts, err = mem.ListPostsByAuthor(ctx, "alice", 2, 4)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, int64(1), posts[0].PostID)

	posts, err = mem.ListPostsByAuthor(ctx, "alice", 2, 50)
	require.NoError(t, err)
	require.Empty(t, posts)

	// Comments oldest first.
	comments, err := mem.ListCommentsForPost(ctx, "alice", 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, comments, 5)
	require.Equal(t, int64(1), comments[0].CommentID)
}

func TestMemory_LikeCounts(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.UpsertLike(ctx, Like{Liker: "bob", PostAuthor: "alice", PostID: 1}))
	require.NoError(t, mem.UpsertLike(ctx, Like{Liker: "carol", PostAuthor: "alice", PostID: 1}))
	require.NoError(t, mem.UpsertLike(ctx, Like{Liker: "bob", PostAuthor: "alice", PostID: 1}))

	n, err := mem.CountLikes(ctx, "alice", 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	require.NoError(t, mem.DeleteLike(ctx, "bob", "alice", 1))
	n, err = mem.CountLikes(ctx, "alice", 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
