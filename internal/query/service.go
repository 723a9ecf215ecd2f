// Package query serves read-only aggregate views over the mirror. It is
// the mirror's only legitimate reader and never talks to the ledger.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/heliograph-labs/heliograph/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	lamportsPerSol = 1_000_000_000
)

// ErrInvalidQuery marks request validation errors that map to HTTP 400.
var ErrInvalidQuery = errors.New("invalid query")

// Service implements the mirror's read surface.
type Service struct {
	reader store.MirrorReader
}

func NewService(reader store.MirrorReader) *Service {
	return &Service{reader: reader}
}

// ProfileSummary is a profile plus its social aggregates.
type ProfileSummary struct {
	Profile   store.Profile `json:"profile"`
	Followers int64         `json:"followers"`
	Following int64         `json:"following"`
}

// FeedPost is one post annotated with its engagement counts.
type FeedPost struct {
	Post     store.Post `json:"post"`
	Likes    int64      `json:"likes"`
	Comments int64      `json:"comments"`
}

// TipView is a tip with its amount rendered in SOL as well as lamports.
type TipView struct {
	Tip       store.Tip       `json:"tip"`
	AmountSol decimal.Decimal `json:"amount_sol"`
}

// ProfileByAuthority resolves a profile summary by wallet address.
func (s *Service) ProfileByAuthority(ctx context.Context, authority string) (*ProfileSummary, error) {
	profile, err := s.reader.GetProfileByAuthority(ctx, authority)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, profile)
}

// ProfileByUsername resolves a profile summary by username.
func (s *Service) ProfileByUsername(ctx context.Context, username string) (*ProfileSummary, error) {
	profile, err := s.reader.GetProfileByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, profile)
}

func (s *Service) summarize(ctx context.Context, profile *store.Profile) (*ProfileSummary, error) {
	followers, err := s.reader.CountFollowers(ctx, profile.Authority)
	if err != nil {
		return nil, fmt.Errorf("count followers: %w", err)
	}
	following, err := s.reader.CountFollowing(ctx, profile.Authority)
	if err != nil {
		return nil, fmt.Errorf("count following: %w", err)
	}
	return &ProfileSummary{
		Profile:   *profile,
		Followers: followers,
		Following: following,
	}, nil
}

// Feed returns an author's posts, newest first, with engagement counts.
func (s *Service) Feed(ctx context.Context, author string, limit, offset int) ([]FeedPost, error) {
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return nil, err
	}

	posts, err := s.reader.ListPostsByAuthor(ctx, author, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	feed := make([]FeedPost, 0, len(posts))
	for _, p := range posts {
		likes, err := s.reader.CountLikes(ctx, p.Author, p.PostID)
		if err != nil {
			return nil, fmt.Errorf("count likes: %w", err)
		}
		comments, err := s.reader.CountComments(ctx, p.Author, p.PostID)
		if err != nil {
			return nil, fmt.Errorf("count comments: %w", err)
		}
		feed = append(feed, FeedPost{Post: p, Likes: likes, Comments: comments})
	}
	return feed, nil
}

// Comments lists a post's comments, oldest first.
func (s *Service) Comments(ctx context.Context, postAuthor string, postID int64, limit, offset int) ([]store.Comment, error) {
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.reader.ListCommentsForPost(ctx, postAuthor, postID, limit, offset)
}

// TipsReceived lists tips sent to an address, newest first.
func (s *Service) TipsReceived(ctx context.Context, to string, limit, offset int) ([]TipView, error) {
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return nil, err
	}

	tips, err := s.reader.ListTipsReceived(ctx, to, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tips: %w", err)
	}

	views := make([]TipView, 0, len(tips))
	for _, t := range tips {
		views = append(views, TipView{
			Tip:       t,
			AmountSol: decimal.New(t.AmountLamports, 0).Div(decimal.New(lamportsPerSol, 0)),
		})
	}
	return views, nil
}

// PostsByTopic lists topic tags, newest post first.
func (s *Service) PostsByTopic(ctx context.Context, topic string, limit, offset int) ([]store.TopicTag, error) {
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.reader.ListPostsByTopic(ctx, topic, limit, offset)
}

func normalizePage(limit, offset int) (int, int, error) {
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit < 0 || limit > maxPageSize {
		return 0, 0, fmt.Errorf("%w: limit must be 1-%d", ErrInvalidQuery, maxPageSize)
	}
	if offset < 0 {
		return 0, 0, fmt.Errorf("%w: offset must be >= 0", ErrInvalidQuery)
	}
	return limit, offset, nil
}
