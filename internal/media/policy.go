package media

import (
	"fmt"
	"strings"

	"github.com/kdimtricp/deepguard/internal/apperrors"
)

const DefaultMaxSize = 50 * 1024 * 1024

var webExtensions = []string{".jpeg", ".jpg", ".png", ".mp4", ".webm", ".mov"}

// Policy constrains which files intake accepts. A zero MaxSize means no cap
// and an empty Extensions list accepts any image or video.
type Policy struct {
	MaxSize    int64
	Extensions []string
}

// WebPolicy matches the detection page: 50 MB and a fixed extension list.
func WebPolicy() Policy {
	return Policy{
		MaxSize:    DefaultMaxSize,
		Extensions: append([]string(nil), webExtensions...),
	}
}

// PopupPolicy matches the popup, which only relies on the picker's
// image/* and video/* filter.
func PopupPolicy() Policy {
	return Policy{}
}

// NormalizeExtensions lowercases entries and adds a leading dot.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func (p Policy) allowsExtension(ext string) bool {
	if len(p.Extensions) == 0 {
		return true
	}
	for _, e := range p.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// Describe renders the accepted formats for an upload hint.
func (p Policy) Describe() string {
	var b strings.Builder
	if len(p.Extensions) == 0 {
		b.WriteString("Supported formats: any image or video")
	} else {
		seen := make(map[string]bool)
		names := make([]string, 0, len(p.Extensions))
		for _, e := range p.Extensions {
			name := strings.ToUpper(strings.TrimPrefix(e, "."))
			if name == "JPEG" {
				name = "JPG"
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
		b.WriteString("Supported formats: ")
		b.WriteString(strings.Join(names, ", "))
	}
	if p.MaxSize > 0 {
		fmt.Fprintf(&b, " (Max %s)", compactSize(p.MaxSize))
	}
	return b.String()
}

// Validate checks f against the policy and returns its category.
func (p Policy) Validate(f File) (Category, error) {
	if strings.TrimSpace(f.Name) == "" && len(f.Data) == 0 {
		return "", apperrors.Validation("Please upload a file first")
	}
	if len(f.Data) == 0 {
		return "", apperrors.Validation("The selected file is empty")
	}

	cat, ok := f.Category()
	if !ok {
		return "", apperrors.Validation("Only image or video files can be analyzed")
	}
	if !p.allowsExtension(f.Extension()) {
		return "", apperrors.Validation("Unsupported file format. " + p.Describe())
	}
	if p.MaxSize > 0 && f.Len() > p.MaxSize {
		return "", apperrors.Validation(fmt.Sprintf("File is too large (%s). Maximum size is %s",
			FormatFileSize(f.Len()), compactSize(p.MaxSize)))
	}
	return cat, nil
}

// SizeLimit renders MaxSize the way upload hints show it, or "" when the
// policy has no cap.
func (p Policy) SizeLimit() string {
	if p.MaxSize <= 0 {
		return ""
	}
	return compactSize(p.MaxSize)
}

func compactSize(n int64) string {
	const MB = 1024 * 1024
	if n >= MB && n%MB == 0 {
		return fmt.Sprintf("%dMB", n/MB)
	}
	return FormatFileSize(n)
}
