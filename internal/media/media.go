package media

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

type Category string

const (
	CategoryImage Category = "image"
	CategoryVideo Category = "video"
)

// File is a user-selected file as handed over by a shell.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

var extensionTypes = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// DeclaredType returns the MIME type without parameters, falling back to the
// extension when the file carries no useful type.
func (f File) DeclaredType() string {
	ct := strings.TrimSpace(f.ContentType)
	if ct != "" {
		if parsed, _, err := mime.ParseMediaType(ct); err == nil {
			ct = parsed
		}
	}
	if ct == "" || ct == "application/octet-stream" {
		if byExt := typeByExtension(f.Name); byExt != "" {
			return byExt
		}
	}
	return strings.ToLower(ct)
}

// Category reports the media category of f, if it has one.
func (f File) Category() (Category, bool) {
	ct := f.DeclaredType()
	switch {
	case strings.HasPrefix(ct, "image/"):
		return CategoryImage, true
	case strings.HasPrefix(ct, "video/"):
		return CategoryVideo, true
	default:
		return "", false
	}
}

// Len is the effective size, never less than the bytes actually held.
func (f File) Len() int64 {
	if n := int64(len(f.Data)); n > f.Size {
		return n
	}
	return f.Size
}

func (f File) Extension() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

func typeByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if ct, ok := extensionTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		if parsed, _, err := mime.ParseMediaType(ct); err == nil {
			return parsed
		}
		return ct
	}
	return ""
}

// ReadFile loads a local file for intake.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read media file: %w", err)
	}

	ct := typeByExtension(path)
	if ct == "" {
		ct = http.DetectContentType(data)
	}

	return File{
		Name:        filepath.Base(path),
		ContentType: ct,
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

func FormatFileSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.2f GB", float64(size)/float64(GB))
	case size >= MB:
		return fmt.Sprintf("%.2f MB", float64(size)/float64(MB))
	case size >= KB:
		return fmt.Sprintf("%.2f KB", float64(size)/float64(KB))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
