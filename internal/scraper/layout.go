package scraper

import (
	"context"
	"time"
)

// DiscoveryLayout names the selector signature for one variant of the
// discovery grid page. The platform ships several markup variants across
// experiments, so candidates are probed in priority order.
type DiscoveryLayout struct {
	Name string
	// VideoCardSelector matches a single video card on the grid.
	VideoCardSelector string
}

// CommentLayout names the selector signature for one variant of the
// comment section.
type CommentLayout struct {
	Name                 string
	CommentListContainer string
	CommentObjectWrapper string
	CommentItemWrapper   string
	CommentAuthor        string
	CommentText          string
	ReplyText            string
	CommentLikes         string
	ViewRepliesButton    string
	ReplyContainer       string
	CreatorBadge         string
}

// DiscoveryLayouts lists known discovery-grid signatures, first match wins.
var DiscoveryLayouts = []DiscoveryLayout{
	{
		Name:              "SearchE2E",
		VideoCardSelector: `div[data-e2e="search-video-list"] div[class*="DivItemContainer"]`,
	},
	{
		Name:              "ChallengeE2E",
		VideoCardSelector: `div[data-e2e="challenge-item-list"] div[class*="DivItemContainerV2"]`,
	},
}

// CommentLayouts lists known comment-section signatures.
var CommentLayouts = []CommentLayout{
	{
		Name:                 "DataE2E",
		CommentListContainer: `[data-e2e="comment-list"]`,
		CommentObjectWrapper: `[data-e2e="comment-item-container"]`,
		CommentItemWrapper:   `[data-e2e="comment-item"]`,
		CommentAuthor:        `[data-e2e="comment-author-name"]`,
		CommentText:          `[data-e2e="comment-level-1"]`,
		ReplyText:            `[data-e2e="comment-level-2"]`,
		CommentLikes:         `[data-e2e="like-count"]`,
		ViewRepliesButton:    `[data-e2e="view-more-replies"]`,
		ReplyContainer:       `[data-e2e="reply-list"]`,
		CreatorBadge:         `[data-e2e="comment-creator-2"]`,
	},
	{
		Name:                 "DynamicCSS",
		CommentListContainer: `div[class*="-DivCommentListContainer"]`,
		CommentObjectWrapper: `div[class*="-DivCommentObjectWrapper"]`,
		CommentItemWrapper:   `div[class*="-DivCommentItemWrapper"]`,
		CommentAuthor:        `[data-e2e*="comment-username"] a`,
		CommentText:          `span[data-e2e="comment-level-1"]`,
		ReplyText:            `span[data-e2e="comment-level-2"]`,
		CommentLikes:         `div[class*="-DivLikeContainer"] > span`,
		ViewRepliesButton:    `div[class*="-DivViewMoreReplies"]`,
		ReplyContainer:       `div[class*="-DivReplyContainer"]`,
		CreatorBadge:         `[data-e2e="comment-creator-2"]`,
	},
}

const layoutProbeTimeout = 2 * time.Second

// DetectDiscoveryLayout probes each candidate's landmark selector with a
// short timeout and returns the first that is present on the page.
func DetectDiscoveryLayout(ctx context.Context, page Page, candidates []DiscoveryLayout) (DiscoveryLayout, error) {
	for _, layout := range candidates {
		if err := page.WaitAttached(ctx, layout.VideoCardSelector, layoutProbeTimeout); err == nil {
			return layout, nil
		}
	}
	return DiscoveryLayout{}, ErrLayoutNotFound
}

// DetectCommentLayout probes comment-section candidates the same way.
func DetectCommentLayout(ctx context.Context, page Page, candidates []CommentLayout) (CommentLayout, error) {
	for _, layout := range candidates {
		if err := page.WaitAttached(ctx, layout.CommentListContainer, layoutProbeTimeout); err == nil {
			return layout, nil
		}
	}
	return CommentLayout{}, ErrLayoutNotFound
}
