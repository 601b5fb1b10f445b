package model

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var ErrNotRegularFile = errors.New("not a regular file")

// File is a document picked for upload. Type is a MIME type.
type File struct {
	Name    string
	Type    string
	Size    int64
	Path    string
	Content []byte
}

// OpenUpload reads path into memory and determines its MIME type.
func OpenUpload(path string) (File, error) {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return File{}, fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return File{
		Name:    filepath.Base(path),
		Type:    DetectType(filepath.Base(path), content),
		Size:    info.Size(),
		Path:    path,
		Content: content,
	}, nil
}

// DetectType picks the MIME type from the file extension and falls back to
// sniffing the first bytes of content.
func DetectType(name string, content []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType
		}
		return t
	}
	if len(content) == 0 {
		return "application/octet-stream"
	}
	sniffed := http.DetectContentType(content)
	if mediaType, _, err := mime.ParseMediaType(sniffed); err == nil {
		return mediaType
	}
	return sniffed
}

// ReadUpload is OpenUpload for callers holding a reader rather than a path.
func ReadUpload(name string, r io.Reader) (File, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return File{
		Name:    name,
		Type:    DetectType(name, content),
		Size:    int64(len(content)),
		Content: content,
	}, nil
}

// Verdict is the outcome of CheckUpload. Reason is user-facing.
type Verdict struct {
	Accepted bool
	Reason   string
}

const uploadNotSupported = "File upload not supported for this agent."

// CheckUpload decides whether file may be sent under policy. Rules apply in
// order and the first failing one wins.
func CheckUpload(policy UploadPolicy, file File) Verdict {
	if !policy.Enabled {
		return Verdict{Reason: uploadNotSupported}
	}
	if len(policy.AcceptedTypes) > 0 && !slices.Contains(policy.AcceptedTypes, file.Type) {
		return Verdict{Reason: "Please upload a valid file type: " + strings.Join(policy.AcceptedTypes, ", ")}
	}
	if policy.SizeLimit > 0 && file.Size > policy.SizeLimit {
		return Verdict{Reason: fmt.Sprintf("File exceeds the %s upload limit.", formatSize(policy.SizeLimit))}
	}
	return Verdict{Accepted: true}
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
