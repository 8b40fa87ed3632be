// Package publish uploads artifacts to Google Drive and returns shareable
// links. Authentication lives in auth.go; everything here assumes an
// already-authorized client.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ErrUpload indicates an artifact could not be published.
type ErrUpload struct {
	Path string
	Err  error
}

func (e ErrUpload) Error() string {
	return fmt.Errorf("upload %s: %w", e.Path, e.Err).Error()
}

func (e ErrUpload) Unwrap() error {
	return e.Err
}

// IsUploadError reports whether err is an upload failure.
func IsUploadError(err error) bool {
	var upload ErrUpload
	return errors.As(err, &upload)
}

// DrivePublisher publishes local files into one Drive folder.
type DrivePublisher struct {
	svc *drive.Service
}

// NewDrivePublisher builds a publisher from client options, typically
// option.WithHTTPClient(authorized client).
func NewDrivePublisher(ctx context.Context, opts ...option.ClientOption) (*DrivePublisher, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &DrivePublisher{svc: svc}, nil
}

// Upload sends localPath into folderID, grants anyone-with-the-link read
// access, and returns the web view link. A file that uploaded but could
// not be made readable is reported as a failure: a link the reviewer
// cannot open is not evidence.
func (p *DrivePublisher) Upload(ctx context.Context, localPath, folderID string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", ErrUpload{Path: localPath, Err: err}
	}
	defer f.Close()

	meta := &drive.File{
		Name:    filepath.Base(localPath),
		Parents: []string{folderID},
	}
	created, err := p.svc.Files.Create(meta).
		Media(f).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", ErrUpload{Path: localPath, Err: err}
	}

	_, err = p.svc.Permissions.Create(created.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do()
	if err != nil {
		return "", ErrUpload{Path: localPath, Err: fmt.Errorf("grant public read: %w", err)}
	}

	return created.WebViewLink, nil
}
