package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

const platformBaseURL = "https://www.tiktok.com"

// TargetURL builds the navigation URL for a discovery mission.
func TargetURL(mission DiscoveryMission) string {
	switch mission.Source {
	case SourceSearch:
		return fmt.Sprintf("%s/search?q=%s", platformBaseURL, url.QueryEscape(mission.Identifier))
	case SourceVideoID:
		return fmt.Sprintf("%s/@placeholder/video/%s", platformBaseURL, mission.Identifier)
	default:
		return fmt.Sprintf("%s/tag/%s", platformBaseURL, url.PathEscape(mission.Identifier))
	}
}

// IsVideoURL reports whether an href points at a video detail page.
func IsVideoURL(href string) bool {
	parsed, err := url.Parse(href)
	if err != nil {
		return false
	}
	for _, segment := range strings.Split(parsed.Path, "/") {
		if segment == "video" {
			return true
		}
	}
	return false
}

// VideoIDFromURL derives the item id from the last path segment.
func VideoIDFromURL(raw string) string {
	trimmed := strings.TrimRight(raw, "/")
	if parsed, err := url.Parse(trimmed); err == nil && parsed.Path != "" {
		trimmed = parsed.Path
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
