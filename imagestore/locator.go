package imagestore

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Scheme is the fixed locator prefix.
const Scheme = "jupyter://sessions"

// TemplateURI is the RFC 6570 template matching every locator.
const TemplateURI = Scheme + "/{session_id}/images/{image_file}"

const (
	imagesSegment    = "images"
	defaultExtension = "png"
)

var extensions = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/svg+xml": "svg",
	"image/gif":     "gif",
}

var locatorPattern = regexp.MustCompile(`^jupyter://sessions/([^/]+)/images/([^./]+)\.([^./]+)$`)

// Locator is the parsed form of a locator string.
type Locator struct {
	Session    string
	ArtifactID string
	// Extension is informational only; it is never used to find an artifact.
	Extension string
}

// String re-encodes the locator with its recorded extension.
func (l Locator) String() string {
	return fmt.Sprintf("%s/%s/%s/%s.%s", Scheme, l.Session, imagesSegment, l.ArtifactID, l.Extension)
}

// ExtensionFor maps a MIME type to the locator file extension. Unknown types
// get the PNG extension.
func ExtensionFor(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	return defaultExtension
}

// Encode builds the locator for an artifact. It fails only when session or
// id cannot be embedded in the scheme; the MIME type never causes an error.
func Encode(session, artifactID, mimeType string) (string, error) {
	if err := checkSegment("session", session); err != nil {
		return "", err
	}
	if err := checkSegment("artifact id", artifactID); err != nil {
		return "", err
	}
	if strings.Contains(artifactID, ".") {
		return "", fmt.Errorf("%w: artifact id %q contains '.'", ErrInvalidLocator, artifactID)
	}
	l := Locator{Session: session, ArtifactID: artifactID, Extension: ExtensionFor(mimeType)}
	return l.String(), nil
}

// Decode parses a locator string. It is total: any input that does not have
// the exact locator shape yields ok == false.
func Decode(uri string) (Locator, bool) {
	m := locatorPattern.FindStringSubmatch(uri)
	if m == nil {
		return Locator{}, false
	}
	return Locator{Session: m[1], ArtifactID: m[2], Extension: m[3]}, true
}

// SessionPrefix returns the locator prefix shared by every image of a session.
func SessionPrefix(session string) string {
	return Scheme + "/" + session + "/" + imagesSegment + "/"
}

// checkSegment accepts only values that survive as a single URL path
// segment without escaping. Anything url.PathEscape would rewrite ('/',
// '%', '?', '#', spaces, non-ASCII) is rejected.
func checkSegment(name, v string) error {
	if v == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidLocator, name)
	}
	if url.PathEscape(v) != v {
		return fmt.Errorf("%w: %s %q is not a plain path segment", ErrInvalidLocator, name, v)
	}
	return nil
}
