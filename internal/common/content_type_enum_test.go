package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttachmentKind_IsValid(t *testing.T) {
	assert.True(t, AttachmentKindImage.IsValid())
	assert.True(t, AttachmentKindDocument.IsValid())
	assert.False(t, AttachmentKind("spreadsheet").IsValid())
}

func TestDetectAttachmentKind(t *testing.T) {
	tests := []struct {
		mimeType string
		expected AttachmentKind
	}{
		{"image/png", AttachmentKindImage},
		{"IMAGE/JPEG", AttachmentKindImage},
		{"video/mp4", AttachmentKindVideo},
		{"audio/mpeg", AttachmentKindAudio},
		{"application/pdf", AttachmentKindDocument},
		{"text/plain; charset=utf-8", AttachmentKindDocument},
		{"application/zip", AttachmentKindOther},
		{"", AttachmentKindOther},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectAttachmentKind(tt.mimeType))
		})
	}
}
