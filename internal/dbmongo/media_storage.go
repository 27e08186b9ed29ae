package dbmongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"startupconnect/internal/common"
)

// StoredFile describes an attachment blob. ID is the reference stored in
// message_attachments.file_id.
type StoredFile struct {
	ID         string                `json:"id"`
	Filename   string                `json:"filename"`
	Size       int64                 `json:"size"`
	MimeType   string                `json:"mime_type"`
	Kind       common.AttachmentKind `json:"kind"`
	UploadedBy uint64                `json:"uploaded_by"`
	UploadedAt time.Time             `json:"uploaded_at"`
}

type AttachmentStorage struct {
	gridFS *gridfs.Bucket
}

func NewAttachmentStorage(mongoClient *MongoClient) *AttachmentStorage {
	return &AttachmentStorage{gridFS: mongoClient.GridFS}
}

func (s *AttachmentStorage) Upload(ctx context.Context, filename, mimeType string, uploaderID uint64, content io.Reader) (*StoredFile, error) {
	now := time.Now().UTC()
	kind := common.DetectAttachmentKind(mimeType)

	metadata := bson.M{
		"kind":        kind.String(),
		"mime_type":   mimeType,
		"uploaded_by": strconv.FormatUint(uploaderID, 10),
		"uploaded_at": now,
	}

	stream, err := s.gridFS.OpenUploadStream(filename, options.GridFSUpload().SetMetadata(metadata))
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	if d, ok := ctx.Deadline(); ok {
		_ = stream.SetWriteDeadline(d)
	}

	size, err := io.Copy(stream, content)
	if err != nil {
		_ = stream.Abort()
		return nil, fmt.Errorf("file copy failed: %w", err)
	}
	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("finalize upload: %w", err)
	}

	oid, _ := stream.FileID.(primitive.ObjectID)
	return &StoredFile{
		ID:         oid.Hex(),
		Filename:   filename,
		Size:       size,
		MimeType:   mimeType,
		Kind:       kind,
		UploadedBy: uploaderID,
		UploadedAt: now,
	}, nil
}

// Open streams a stored blob. The caller closes the reader.
func (s *AttachmentStorage) Open(ctx context.Context, fileID string) (io.ReadCloser, *StoredFile, error) {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid file ID %q: %w", fileID, common.ErrNotFound)
	}

	stream, err := s.gridFS.OpenDownloadStream(objectID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, nil, fmt.Errorf("file %s: %w", fileID, common.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("download failed: %w", err)
	}
	if d, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(d)
	}

	return stream, storedFileFrom(fileID, stream.GetFile()), nil
}

func (s *AttachmentStorage) Delete(ctx context.Context, fileID string) error {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return fmt.Errorf("invalid file ID %q: %w", fileID, common.ErrNotFound)
	}
	return s.gridFS.DeleteContext(ctx, objectID)
}

func storedFileFrom(fileID string, f *gridfs.File) *StoredFile {
	var metadata bson.M
	if f.Metadata != nil {
		_ = bson.Unmarshal(f.Metadata, &metadata)
	}

	uploader, _ := strconv.ParseUint(stringFromMap(metadata, "uploaded_by"), 10, 64)
	mimeType := stringFromMap(metadata, "mime_type")

	return &StoredFile{
		ID:         fileID,
		Filename:   f.Name,
		Size:       f.Length,
		MimeType:   mimeType,
		Kind:       common.DetectAttachmentKind(mimeType),
		UploadedBy: uploader,
		UploadedAt: f.UploadDate,
	}
}

func stringFromMap(m bson.M, key string) string {
	if m == nil {
		return ""
	}
	if str, ok := m[key].(string); ok {
		return str
	}
	return ""
}
