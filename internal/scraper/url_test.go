package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mission DiscoveryMission
		want    string
	}{
		{
			name:    "hashtag",
			mission: DiscoveryMission{Source: SourceHashtag, Identifier: "cooking"},
			want:    "https://www.tiktok.com/tag/cooking",
		},
		{
			name:    "search escapes the query",
			mission: DiscoveryMission{Source: SourceSearch, Identifier: "street food"},
			want:    "https://www.tiktok.com/search?q=street+food",
		},
		{
			name:    "video id",
			mission: DiscoveryMission{Source: SourceVideoID, Identifier: "7234567890123456789"},
			want:    "https://www.tiktok.com/@placeholder/video/7234567890123456789",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TargetURL(tt.mission))
		})
	}
}

func TestIsVideoURL(t *testing.T) {
	t.Parallel()

	assert.True(t, IsVideoURL("https://www.tiktok.com/@user/video/123"))
	assert.True(t, IsVideoURL("https://www.tiktok.com/@user/video/123?lang=en"))
	assert.False(t, IsVideoURL("https://www.tiktok.com/@user"))
	assert.False(t, IsVideoURL("https://www.tiktok.com/tag/videos"))
	assert.False(t, IsVideoURL("://bad url"))
}

func TestVideoIDFromURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "123", VideoIDFromURL("https://www.tiktok.com/@user/video/123"))
	assert.Equal(t, "123", VideoIDFromURL("https://www.tiktok.com/@user/video/123/"))
	assert.Equal(t, "456", VideoIDFromURL("/video/456"))
	assert.Equal(t, "789", VideoIDFromURL("789"))
}
