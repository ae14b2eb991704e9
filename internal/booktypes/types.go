package booktypes

import "strings"

// FileType represents the kind of a library file.
type FileType string

const (
	// FileTypeBook represents a supported book container.
	FileTypeBook FileType = "book"
	// FileTypeImage represents a cover image.
	FileTypeImage FileType = "image"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// BookExtensions maps file extensions to whether they are supported book formats.
var BookExtensions = map[string]bool{
	".epub": true,
}

// ImageExtensions maps cover image extensions to whether they are recognized.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".epub": "application/epub+zip",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// GetFileType returns the FileType for a lowercase extension with its
// leading dot (e.g. ".epub").
func GetFileType(ext string) FileType {
	if BookExtensions[ext] {
		return FileTypeBook
	}
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for an extension, or
// "application/octet-stream" when it is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsBook returns true if the extension is a supported book format.
func IsBook(ext string) bool {
	return GetFileType(ext) == FileTypeBook
}

// ExtensionSet normalizes a configured extension list ("epub", ".EPUB")
// into a lookup set of lowercase dotted extensions. An empty list yields
// BookExtensions.
func ExtensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	if len(set) == 0 {
		for ext := range BookExtensions {
			set[ext] = true
		}
	}
	return set
}
