package postgres

// SQL statements for the mirror tables.
//
// Additive inserts rely on ON CONFLICT DO NOTHING: both the natural-key
// constraint and the partial unique index on source_record_id resolve
// replays to "already applied". The profile upsert is the exception - it
// tracks current state keyed by authority, with the source_record_id
// equality guard making same-record replays a no-op.

const (
	queryUpsertProfile = `
		INSERT INTO profiles (authority, username, display_name, bio_cid, avatar_cid, source_record_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (authority) DO UPDATE SET
			username         = EXCLUDED.username,
			display_name     = EXCLUDED.display_name,
			bio_cid          = EXCLUDED.bio_cid,
			avatar_cid       = EXCLUDED.avatar_cid,
			source_record_id = EXCLUDED.source_record_id,
			updated_at       = now()
		WHERE profiles.source_record_id IS DISTINCT FROM EXCLUDED.source_record_id
	`

	queryUpsertPost = `
		INSERT INTO posts (author, post_id, content_cid, visibility, source_record_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`

	queryUpsertTip = `
		INSERT INTO tips (tip_from, tip_to, tip_id, amount_lamports, source_record_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`

	queryUpsertComment = `
		INSERT INTO comments (author, post_author, post_id, comment_id, content_cid, source_record_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
	`

	queryUpsertTopicTag = `
		INSERT INTO topics (topic, author, post_id, source_record_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`

	queryUpsertFollow = `
		INSERT INTO follows (follower, following, source_record_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`

	queryDeleteFollow = `
		DELETE FROM follows WHERE follower = $1 AND following = $2
	`

	queryUpsertLike = `
		INSERT INTO likes (liker, post_author, post_id, source_record_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`

	queryDeleteLike = `
		DELETE FROM likes WHERE liker = $1 AND post_author = $2 AND post_id = $3
	`

	queryGetWatermark = `
		SELECT stream_key, last_slot, last_signature, updated_at
		FROM indexer_state
		WHERE stream_key = $1
	`

	querySetWatermark = `
		INSERT INTO indexer_state (stream_key, last_slot, last_signature, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (stream_key) DO UPDATE SET
			last_slot      = EXCLUDED.last_slot,
			last_signature = EXCLUDED.last_signature,
			updated_at     = now()
		RETURNING stream_key, last_slot, last_signature, updated_at
	`

	queryGetProfileByAuthority = `
		SELECT authority, username, display_name, bio_cid, avatar_cid, COALESCE(source_record_id, '')
		FROM profiles
		WHERE authority = $1
	`

	queryGetProfileByUsername = `
		SELECT authority, username, display_name, bio_cid, avatar_cid, COALESCE(source_record_id, '')
		FROM profiles
		WHERE username = $1
	`

	queryListPostsByAuthor = `
		SELECT author, post_id, content_cid, visibility, COALESCE(source_record_id, '')
		FROM posts
		WHERE author = $1
		ORDER BY post_id DESC
		LIMIT $2 OFFSET $3
	`

	queryListPostsByTopic = `
		SELECT topic, author, post_id, COALESCE(source_record_id, '')
		FROM topics
		WHERE topic = $1
		ORDER BY post_id DESC
		LIMIT $2 OFFSET $3
	`

	queryListCommentsForPost = `
		SELECT author, post_author, post_id, comment_id, content_cid, COALESCE(source_record_id, '')
		FROM comments
		WHERE post_author = $1 AND post_id = $2
		ORDER BY comment_id ASC
		LIMIT $3 OFFSET $4
	`

	queryListTipsReceived = `
		SELECT tip_from, tip_to, tip_id, amount_lamports, COALESCE(source_record_id, '')
		FROM tips
		WHERE tip_to = $1
		ORDER BY tip_id DESC
		LIMIT $2 OFFSET $3
	`

	queryCountFollowers = `SELECT COUNT(*) FROM follows WHERE following = $1`
	queryCountFollowing = `SELECT COUNT(*) FROM follows WHERE follower = $1`
	queryCountLikes     = `SELECT COUNT(*) FROM likes WHERE post_author = $1 AND post_id = $2`
	queryCountComments  = `SELECT COUNT(*) FROM comments WHERE post_author = $1 AND post_id = $2`
)
