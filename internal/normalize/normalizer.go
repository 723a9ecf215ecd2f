package normalize

import (
	"github.com/heliograph-labs/heliograph/internal/decode"
)

// Normalize maps decoded records into canonical events, attaching the
// per-record EventRecordID. Records with unrecognized names or missing
// required fields are counted in dropped and otherwise ignored; they never
// fail the transaction.
//
// A schema may name the same logical field either way (postId / post_id);
// this is the one place that ambiguity is resolved.
func Normalize(signature string, records []decode.Record) (events []Event, dropped int) {
	for i, rec := range records {
		ref := recordRef{ID: NewRecordID(signature, i)}

		var evt Event
		switch rec.Name {
		case "ProfileCreated", "ProfileUpdated":
			evt = normalizeProfile(ref, rec)
		case "Followed":
			evt = normalizeFollow(ref, rec)
		case "Unfollowed":
			evt = normalizeUnfollow(ref, rec)
		case "PostIndexed":
			evt = normalizePost(ref, rec)
		case "Tipped":
			evt = normalizeTip(ref, rec)
		case "PostLiked":
			evt = normalizeLike(ref, rec)
		case "PostUnliked":
			evt = normalizeUnlike(ref, rec)
		case "CommentCreated":
			evt = normalizeComment(ref, rec)
		case "TopicIndexed":
			evt = normalizeTopic(ref, rec)

		// Instruction-tier records: actors come from the account list in
		// the instruction's declared order, not from arguments.
		case "create_post_index", "createPostIndex":
			evt = normalizePostInstruction(ref, rec)
		case "follow":
			evt = normalizeFollowInstruction(ref, rec)
		case "unfollow":
			evt = normalizeUnfollowInstruction(ref, rec)
		case "tip":
			evt = normalizeTipInstruction(ref, rec)
		case "like_post", "likePost":
			evt = normalizeLikeInstruction(ref, rec)
		case "unlike_post", "unlikePost":
			evt = normalizeUnlikeInstruction(ref, rec)
		case "create_comment", "createComment":
			evt = normalizeCommentInstruction(ref, rec)
		case "index_topic", "indexTopic":
			evt = normalizeTopicInstruction(ref, rec)
		}

		if evt == nil {
			dropped++
			continue
		}
		events = append(events, evt)
	}

	return events, dropped
}

func normalizeProfile(ref recordRef, rec decode.Record) Event {
	authority, ok1 := str(rec.Fields, "authority")
	username, ok2 := str(rec.Fields, "username")
	if !ok1 || !ok2 {
		return nil
	}
	display, _ := str(rec.Fields, "displayName", "display_name")
	bio, _ := str(rec.Fields, "bioCid", "bio_cid")
	avatar, _ := str(rec.Fields, "avatarCid", "avatar_cid")
	return ProfileUpsert{
		recordRef:   ref,
		Authority:   authority,
		Username:    username,
		DisplayName: display,
		BioCID:      bio,
		AvatarCID:   avatar,
	}
}

func normalizeFollow(ref recordRef, rec decode.Record) Event {
	follower, ok1 := str(rec.Fields, "follower")
	following, ok2 := str(rec.Fields, "following")
	if !ok1 || !ok2 || follower == following {
		return nil
	}
	return Follow{recordRef: ref, Follower: follower, Following: following}
}

func normalizeUnfollow(ref recordRef, rec decode.Record) Event {
	follower, ok1 := str(rec.Fields, "follower")
	following, ok2 := str(rec.Fields, "following")
	if !ok1 || !ok2 {
		return nil
	}
	return Unfollow{recordRef: ref, Follower: follower, Following: following}
}

func normalizePost(ref recordRef, rec decode.Record) Event {
	author, ok1 := str(rec.Fields, "author")
	postID, ok2 := i64(rec.Fields, "postId", "post_id")
	cid, ok3 := str(rec.Fields, "contentCid", "content_cid")
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	visibility, _ := i64(rec.Fields, "visibility")
	return PostCreated{
		recordRef:  ref,
		Author:     author,
		PostID:     postID,
		ContentCID: cid,
		Visibility: visibility,
	}
}

func normalizeTip(ref recordRef, rec decode.Record) Event {
	from, ok1 := str(rec.Fields, "from")
	to, ok2 := str(rec.Fields, "to")
	tipID, ok3 := i64(rec.Fields, "tipId", "tip_id")
	amount, ok4 := i64(rec.Fields, "amountLamports", "amount_lamports")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}
	return Tip{recordRef: ref, From: from, To: to, TipID: tipID, AmountLamports: amount}
}

func normalizeLike(ref recordRef, rec decode.Record) Event {
	liker, ok1 := str(rec.Fields, "liker")
	postAuthor, ok2 := str(rec.Fields, "postAuthor", "post_author")
	postID, ok3 := i64(rec.Fields, "postId", "post_id")
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	return Like{recordRef: ref, Liker: liker, PostAuthor: postAuthor, PostID: postID}
}

func normalizeUnlike(ref recordRef, rec decode.Record) Event {
	liker, ok1 := str(rec.Fields, "liker")
	postAuthor, ok2 := str(rec.Fields, "postAuthor", "post_author")
	postID, ok3 := i64(rec.Fields, "postId", "post_id")
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	return Unlike{recordRef: ref, Liker: liker, PostAuthor: postAuthor, PostID: postID}
}

func normalizeComment(ref recordRef, rec decode.Record) Event {
	author, ok1 := str(rec.Fields, "author")
	postAuthor, ok2 := str(rec.Fields, "postAuthor", "post_author")
	postID, ok3 := i64(rec.Fields, "postId", "post_id")
	commentID, ok4 := i64(rec.Fields, "commentId", "comment_id")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}
	cid, _ := str(rec.Fields, "contentCid", "content_cid")
	return CommentCreated{
		recordRef:  ref,
		Author:     author,
		PostAuthor: postAuthor,
		PostID:     postID,
		CommentID:  commentID,
		ContentCID: cid,
	}
}

func normalizeTopic(ref recordRef, rec decode.Record) Event {
	topic, ok1 := str(rec.Fields, "topic")
	author, ok2 := str(rec.Fields, "author")
	postID, ok3 := i64(rec.Fields, "postId", "post_id")
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	return TopicTagged{recordRef: ref, Topic: topic, Author: author, PostID: postID}
}

func normalizePostInstruction(ref recordRef, rec decode.Record) Event {
	author, ok := account(rec, 0)
	if !ok {
		return nil
	}
	postID, ok2 := i64(rec.Fields, "postId", "post_id")
	cid, ok3 := str(rec.Fields, "contentCid", "content_cid")
	if !ok2 || !ok3 {
		return nil
	}
	visibility, _ := i64(rec.Fields, "visibility")
	return PostCreated{
		recordRef:  ref,
		Author:     author,
		PostID:     postID,
		ContentCID: cid,
		Visibility: visibility,
	}
}

func normalizeFollowInstruction(ref recordRef, rec decode.Record) Event {
	follower, ok1 := account(rec, 0)
	following, ok2 := account(rec, 1)
	if !ok1 || !ok2 || follower == following {
		return nil
	}
	return Follow{recordRef: ref, Follower: follower, Following: following}
}

func normalizeUnfollowInstruction(ref recordRef, rec decode.Record) Event {
	follower, ok1 := account(rec, 0)
	following, ok2 := account(rec, 1)
	if !ok1 || !ok2 || follower == following {
		return nil
	}
	return Unfollow{recordRef: ref, Follower: follower, Following: following}
}

func normalizeTipInstruction(ref recordRef, rec decode.Record) Event {
	from, ok1 := account(rec, 0)
	to, ok2 := account(rec, 1)
	tipID, ok3 := i64(rec.Fields, "tipId", "tip_id")
	amount, ok4 := i64(rec.Fields, "amountLamports", "amount_lamports")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}
	return Tip{recordRef: ref, From: from, To: to, TipID: tipID, AmountLamports: amount}
}

func normalizeLikeInstruction(ref recordRef, rec decode.Record) Event {
	liker, ok1 := account(rec, 0)
	postAuthor, ok2 := account(rec, 1)
	postID, ok3 := i64(rec.Fields, "postId", "post_id")
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	return Like{recordRef: ref, Liker: liker, PostAuthor: postAuthor, PostID: postID}
}

func normalizeUnlikeInstruction(ref recordRef, rec decode.Record) Event {
	liker, ok1 := account(rec, 0)
	postAuthor, ok2 := account(rec, 1)
	postID, ok3 := i64(rec.Fields, "postId", "post_id")
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	return Unlike{recordRef: ref, Liker: liker, PostAuthor: postAuthor, PostID: postID}
}

func normalizeCommentInstruction(ref recordRef, rec decode.Record) Event {
	author, ok1 := account(rec, 0)
	postAuthor, ok2 := account(rec, 1)
	postID, ok3 := i64(rec.Fields, "postId", "post_id")
	commentID, ok4 := i64(rec.Fields, "commentId", "comment_id")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}
	cid, _ := str(rec.Fields, "contentCid", "content_cid")
	return CommentCreated{
		recordRef:  ref,
		Author:     author,
		PostAuthor: postAuthor,
		PostID:     postID,
		CommentID:  commentID,
		ContentCID: cid,
	}
}

func normalizeTopicInstruction(ref recordRef, rec decode.Record) Event {
	author, ok1 := account(rec, 0)
	topic, ok2 := str(rec.Fields, "topic")
	postID, ok3 := i64(rec.Fields, "postId", "post_id")
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	return TopicTagged{recordRef: ref, Topic: topic, Author: author, PostID: postID}
}

// str returns the first present non-empty string field among the given
// name candidates.
func str(fields map[string]interface{}, names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := fields[name]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// i64 returns the first present integer field among the given name
// candidates.
func i64(fields map[string]interface{}, names ...string) (int64, bool) {
	for _, name := range names {
		if v, ok := fields[name]; ok {
			if n, ok := v.(int64); ok {
				return n, true
			}
		}
	}
	return 0, false
}

func account(rec decode.Record, index int) (string, bool) {
	if index >= len(rec.Accounts) || rec.Accounts[index] == "" {
		return "", false
	}
	return rec.Accounts[index], true
}
