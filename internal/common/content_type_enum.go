package common

import "strings"

// AttachmentKind classifies a message attachment by its MIME type.
type AttachmentKind string

const (
	AttachmentKindImage    AttachmentKind = "image"
	AttachmentKindVideo    AttachmentKind = "video"
	AttachmentKindAudio    AttachmentKind = "audio"
	AttachmentKindDocument AttachmentKind = "document"
	AttachmentKindOther    AttachmentKind = "other"
)

func (k AttachmentKind) String() string {
	return string(k)
}

func (k AttachmentKind) IsValid() bool {
	switch k {
	case AttachmentKindImage, AttachmentKindVideo, AttachmentKindAudio, AttachmentKindDocument, AttachmentKindOther:
		return true
	}
	return false
}

var documentMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.ms-excel":                                                  true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain": true,
	"text/csv":   true,
}

func DetectAttachmentKind(mimeType string) AttachmentKind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case strings.HasPrefix(mt, "image/"):
		return AttachmentKindImage
	case strings.HasPrefix(mt, "video/"):
		return AttachmentKindVideo
	case strings.HasPrefix(mt, "audio/"):
		return AttachmentKindAudio
	case documentMimeTypes[mt]:
		return AttachmentKindDocument
	}
	return AttachmentKindOther
}
