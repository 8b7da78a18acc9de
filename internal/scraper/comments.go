package scraper

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	commentScrollBudget   = 15
	commentScrollDeltaPx  = 500
	commentFirstWait      = 5 * time.Second
	commentScrollWait     = 1 * time.Second
	commentRepliesSettled = 1500 * time.Millisecond
)

// ExtractComments scrapes the comment section of the currently loaded video
// page, up to maxComments entries. Partial extraction is acceptable: a
// missing comment layout yields an empty slice, and any single container
// that fails to parse is skipped without aborting the loop.
func (e *Extractor) ExtractComments(ctx context.Context, page Page, maxComments int) []CommentRecord {
	layout, err := DetectCommentLayout(ctx, page, e.layouts)
	if err != nil {
		e.logger.Warn("no known comment layout matched, skipping comments")
		return nil
	}
	if err := page.WaitAttached(ctx, layout.CommentObjectWrapper, commentFirstWait); err != nil {
		e.logger.Warn("no comments found or they did not load in time")
		return nil
	}

	var comments []CommentRecord
	processed := make(map[string]struct{})

	for i := 0; i < commentScrollBudget && len(comments) < maxComments; i++ {
		// Expand nested replies before reading the pass so they are rendered.
		if clicked, err := page.ClickAll(ctx, layout.ViewRepliesButton); err == nil && clicked > 0 {
			e.delayer.Jitter(ctx, commentRepliesSettled, commentRepliesSettled)
		}

		containers, err := page.Comments(ctx, layout)
		if err != nil {
			e.logger.Warn("comment pass failed", zap.Error(err))
		} else {
			comments = appendComments(comments, containers, processed, maxComments)
		}

		if len(comments) >= maxComments {
			break
		}
		if err := page.ScrollBy(ctx, commentScrollDeltaPx); err != nil {
			e.logger.Warn("comment scroll failed", zap.Error(err))
		}
		e.delayer.Jitter(ctx, commentScrollWait, commentScrollWait)
	}
	return comments
}

func appendComments(
	comments []CommentRecord,
	containers []DOMComment,
	processed map[string]struct{},
	maxComments int,
) []CommentRecord {
	for _, container := range containers {
		if len(comments) >= maxComments {
			break
		}
		parent, ok := toCommentRecord(container, "")
		if seen(processed, container.DOMID, parent.CommentID) {
			continue
		}
		if ok {
			comments = append(comments, parent)
		}
		for _, reply := range container.Replies {
			if len(comments) >= maxComments {
				break
			}
			record, ok := toCommentRecord(reply, parent.CommentID)
			if seen(processed, reply.DOMID, record.CommentID) || !ok {
				continue
			}
			comments = append(comments, record)
		}
	}
	return comments
}

// seen marks the container's DOM id as processed, falling back to the
// freshly generated comment id when the DOM carries none.
func seen(processed map[string]struct{}, domID, fallback string) bool {
	key := domID
	if key == "" {
		key = fallback
	}
	if _, ok := processed[key]; ok {
		return true
	}
	processed[key] = struct{}{}
	return false
}

func toCommentRecord(dom DOMComment, parentID string) (CommentRecord, bool) {
	record := CommentRecord{
		CommentID:       uuid.NewString(),
		ParentCommentID: parentID,
		Author:          strings.TrimSpace(dom.Author),
		Text:            strings.TrimSpace(dom.Text),
		LikesCount:      ParseLikes(dom.Likes),
		IsCreator:       dom.IsCreator,
	}
	if record.Author == "" && record.Text == "" {
		return record, false
	}
	return record, true
}

// ParseLikes converts the platform's abbreviated like counts ("1.2K",
// "3M") into integers. Unparseable text counts as zero.
func ParseLikes(text string) int {
	clean := strings.ToLower(strings.TrimSpace(text))
	if clean == "" {
		return 0
	}
	multiplier := 1.0
	switch {
	case strings.HasSuffix(clean, "k"):
		multiplier = 1_000
		clean = strings.TrimSuffix(clean, "k")
	case strings.HasSuffix(clean, "m"):
		multiplier = 1_000_000
		clean = strings.TrimSuffix(clean, "m")
	}
	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return int(value*multiplier + 0.5)
}
