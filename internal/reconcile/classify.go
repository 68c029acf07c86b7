package reconcile

import "strings"

// DefaultContentType is returned for names without a known suffix.
const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"pdf":  "application/pdf",
	"txt":  "text/plain",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"zip":  "application/zip",
	"mp4":  "video/mp4",
	"mp3":  "audio/mpeg",
}

// Classify maps a file name to a content type by its last suffix, ignoring
// case. It is defined for every string.
func Classify(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return DefaultContentType
	}
	if t, ok := contentTypes[strings.ToLower(name[i+1:])]; ok {
		return t
	}
	return DefaultContentType
}

const bytesPerMB = 1024 * 1024

// BytesToMB converts a byte count to fractional megabytes.
func BytesToMB(n float64) float64 {
	return n / bytesPerMB
}
