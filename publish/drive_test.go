package publish

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

func newMockedPublisher(t *testing.T) (*DrivePublisher, *http.Client) {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	p, err := NewDrivePublisher(context.Background(), option.WithHTTPClient(client))
	if err != nil {
		t.Fatalf("create publisher: %v", err)
	}
	return p, client
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "SN001_20260315_103045.png")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestUpload(t *testing.T) {
	p, _ := newMockedPublisher(t)
	path := writeArtifact(t)

	httpmock.RegisterResponder(http.MethodPost, `=~^https://www\.googleapis\.com/upload/drive/v3/files`,
		httpmock.NewStringResponder(http.StatusOK,
			`{"id":"f1","webViewLink":"https://drive.google.com/file/d/f1/view"}`))
	httpmock.RegisterResponder(http.MethodPost, `=~^https://www\.googleapis\.com/drive/v3/files/f1/permissions`,
		httpmock.NewStringResponder(http.StatusOK, `{"id":"perm1"}`))

	link, err := p.Upload(context.Background(), path, "folder123")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if link != "https://drive.google.com/file/d/f1/view" {
		t.Fatalf("link = %q", link)
	}
	if info := httpmock.GetCallCountInfo(); len(info) != 2 {
		t.Fatalf("expected create + permission calls, got %v", info)
	}
}

func TestUploadCreateFails(t *testing.T) {
	p, _ := newMockedPublisher(t)
	path := writeArtifact(t)

	httpmock.RegisterResponder(http.MethodPost, `=~^https://www\.googleapis\.com/upload/drive/v3/files`,
		httpmock.NewStringResponder(http.StatusForbidden, `{"error":{"code":403}}`))

	_, err := p.Upload(context.Background(), path, "folder123")
	if !IsUploadError(err) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
}

func TestUploadPermissionFails(t *testing.T) {
	p, _ := newMockedPublisher(t)
	path := writeArtifact(t)

	httpmock.RegisterResponder(http.MethodPost, `=~^https://www\.googleapis\.com/upload/drive/v3/files`,
		httpmock.NewStringResponder(http.StatusOK,
			`{"id":"f1","webViewLink":"https://drive.google.com/file/d/f1/view"}`))
	httpmock.RegisterResponder(http.MethodPost, `=~^https://www\.googleapis\.com/drive/v3/files/f1/permissions`,
		httpmock.NewStringResponder(http.StatusInternalServerError, `{}`))

	// An unreadable link is not evidence; the order must count as failed.
	if _, err := p.Upload(context.Background(), path, "folder123"); !IsUploadError(err) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
}

func TestUploadMissingFile(t *testing.T) {
	p, _ := newMockedPublisher(t)

	_, err := p.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.png"), "folder123")
	if !IsUploadError(err) {
		t.Fatalf("expected ErrUpload for missing file, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := saveToken(path, tok); err != nil {
		t.Fatalf("save token: %v", err)
	}
	loaded, err := tokenFromFile(path)
	if err != nil {
		t.Fatalf("load token: %v", err)
	}
	if loaded.AccessToken != tok.AccessToken || loaded.RefreshToken != tok.RefreshToken {
		t.Fatalf("token round trip mismatch: %+v", loaded)
	}
}

func TestTokenFromFileMissing(t *testing.T) {
	if _, err := tokenFromFile(filepath.Join(t.TempDir(), "token.json")); err == nil {
		t.Fatalf("expected error for missing token file")
	}
}
