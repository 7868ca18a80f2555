package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// maxDedupAttempts bounds CreateUniqueFile when a directory is full of collisions
const maxDedupAttempts = 1000

// SanitizeFilename removes or replaces problematic characters from filenames
func SanitizeFilename(filename string) string {
	// Remove path separators
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))

	// Replace problematic characters
	replacer := strings.NewReplacer(
		"<", "_",
		">", "_",
		":", "_",
		"\"", "_",
		"|", "_",
		"?", "_",
		"*", "_",
	)
	filename = replacer.Replace(filename)

	if filename == "" || filename == "." || filename == "/" || filename == ".." {
		return "upload"
	}
	return filename
}

// CreateUniqueFile creates dir/filename exclusively, falling back to
// macOS-style "name 2.ext", "name 3.ext", ... when the name is taken.
// The existence check and creation are a single O_EXCL open, so concurrent
// uploads with the same name never overwrite each other.
func CreateUniqueFile(dir, filename string) (*os.File, error) {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	candidate := filename
	for attempt := 2; attempt <= maxDedupAttempts+1; attempt++ {
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		candidate = base + " " + strconv.Itoa(attempt) + ext
	}
	return nil, fmt.Errorf("no free filename for %q in %s", filename, dir)
}

// DetectMimeType detects an audio MIME type based on file extension
func DetectMimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))

	mimeTypes := map[string]string{
		".mp3":  "audio/mpeg",
		".wav":  "audio/wav",
		".flac": "audio/flac",
		".aac":  "audio/aac",
		".ogg":  "audio/ogg",
		".oga":  "audio/ogg",
		".opus": "audio/opus",
		".m4a":  "audio/mp4",
		".webm": "audio/webm",
		".amr":  "audio/amr",
		".pcm":  "audio/L16",
	}

	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
