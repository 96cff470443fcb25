package graph

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// rootSegment addresses the drive root directly.
const rootSegment = "/root"

// ResolvePath maps a logical folder path to the drive's path-addressing
// segment. Empty, "/" (and by extension all-slash) paths address the root;
// anything else becomes "/root:/{encoded}:" with each path component
// percent-encoded independently and the "/" separators preserved.
//
// Names are NFC-normalized first: macOS and some browsers produce
// decomposed Unicode, and the two forms address different items on
// SharePoint.
func ResolvePath(path string) string {
	if path == "" || strings.Trim(path, "/") == "" {
		return rootSegment
	}

	clean := norm.NFC.String(strings.Trim(path, "/"))

	return "/root:/" + encodePathSegments(clean) + ":"
}

// ResolveFilePath addresses a file by folder path and file name.
// An empty folder addresses a file directly under the root.
func ResolveFilePath(folderPath, fileName string) string {
	folder := strings.Trim(folderPath, "/")

	full := fileName
	if folder != "" {
		full = folder + "/" + fileName
	}

	return ResolvePath(full)
}

// encodePathSegments URL-encodes each segment of a slash-separated path.
// Characters like #, ?, %, and spaces are encoded per-segment so the
// resulting path is safe for interpolation into Graph API URLs.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}
