// Package multipart implements a tolerant multipart/form-data body
// parser. Malformed parts are skipped rather than failing the whole
// body; the only hard failure is a missing boundary token.
package multipart

import (
	"bytes"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/wyrexdev/velox/internal/util"
)

// DefaultFilename replaces file part names that sanitize to nothing.
const DefaultFilename = "upload"

// defaultContentType is assumed for file parts without their own
// Content-Type header.
const defaultContentType = "application/octet-stream"

var (
	crlf       = []byte("\r\n")
	doubleCRLF = []byte("\r\n\r\n")
	dashDash   = []byte("--")
)

// Form is the parsed result of a multipart body.
type Form struct {
	// Fields maps field names to their text values. A repeated field
	// name keeps the last value.
	Fields map[string]string

	// Files maps field names to their file parts. As with Fields, a
	// repeated field name keeps the last part.
	Files map[string]FilePart
}

// FilePart is a single uploaded file.
type FilePart struct {
	// FieldName is the form field the file was posted under.
	FieldName string

	// Filename is the sanitized client-provided file name.
	Filename string

	// ContentType is the part's declared content type, or
	// "application/octet-stream" when the part declared none.
	ContentType string

	// Content is the raw file bytes with the trailing delimiter CRLF
	// removed. Interior CR/LF bytes are preserved.
	Content []byte

	// Size is len(Content) in bytes.
	Size int64
}

// BoundaryFromContentType extracts the boundary token from a
// Content-Type header value. The token may be quoted; quotes are
// stripped. A missing or empty token returns InvalidBoundaryError.
func BoundaryFromContentType(contentType string) (string, error) {
	lower := strings.ToLower(contentType)
	idx := strings.Index(lower, "boundary=")
	if idx < 0 {
		return "", util.NewInvalidBoundaryError(contentType)
	}

	token := contentType[idx+len("boundary="):]
	if semi := strings.IndexByte(token, ';'); semi >= 0 {
		token = token[:semi]
	}
	token = strings.TrimSpace(token)
	token = strings.Trim(token, `"`)

	if token == "" {
		return "", util.NewInvalidBoundaryError(contentType)
	}
	return token, nil
}

// ParseRequest extracts the boundary from the Content-Type header value
// and parses the body with it.
func ParseRequest(body []byte, contentType string) (*Form, error) {
	boundary, err := BoundaryFromContentType(contentType)
	if err != nil {
		return nil, err
	}
	return Parse(body, boundary)
}

// Parse splits body into parts on the "--" + boundary delimiter and
// collects fields and files.
//
// Each fragment is handled independently: a part without a double-CRLF
// header separator, or without a Content-Disposition name, is skipped.
// A fragment starting with "--" is the terminal marker and ends the
// scan. Field values and file contents have exactly one trailing CRLF
// (the delimiter's) removed.
func Parse(body []byte, boundary string) (*Form, error) {
	if boundary == "" {
		return nil, util.NewInvalidBoundaryError("")
	}

	form := &Form{
		Fields: make(map[string]string),
		Files:  make(map[string]FilePart),
	}

	delimiter := []byte("--" + boundary)
	fragments := bytes.Split(body, delimiter)

	for _, fragment := range fragments {
		if len(fragment) == 0 {
			continue
		}
		if bytes.HasPrefix(fragment, dashDash) {
			// Terminal "--boundary--" marker; ignore any epilogue.
			break
		}

		fragment = bytes.TrimPrefix(fragment, crlf)
		parsePart(form, fragment)
	}

	return form, nil
}

// parsePart parses a single delimiter-bounded fragment into form.
// Malformed fragments are dropped without error.
func parsePart(form *Form, fragment []byte) {
	headersEnd := bytes.Index(fragment, doubleCRLF)
	if headersEnd < 0 {
		return
	}

	headers := parseHeaders(fragment[:headersEnd])
	content := fragment[headersEnd+len(doubleCRLF):]

	params := dispositionParams(headers["content-disposition"])
	name := params["name"]
	if name == "" {
		return
	}

	content = bytes.TrimSuffix(content, crlf)

	filename, isFile := params["filename"]
	if !isFile {
		form.Fields[name] = string(content)
		return
	}

	sanitized := SanitizeFilename(filename)
	if sanitized == "" {
		sanitized = DefaultFilename
	}

	contentType := headers["content-type"]
	if contentType == "" {
		contentType = defaultContentType
	}

	form.Files[name] = FilePart{
		FieldName:   name,
		Filename:    sanitized,
		ContentType: contentType,
		Content:     content,
		Size:        int64(len(content)),
	}
}

// parseHeaders parses a CRLF-separated block of "Name: value" lines.
// Keys are lower-cased; lines without a colon are ignored.
func parseHeaders(block []byte) map[string]string {
	headers := make(map[string]string)

	for _, line := range bytes.Split(block, crlf) {
		if len(line) == 0 {
			continue
		}
		key, value, found := bytes.Cut(line, []byte(":"))
		if !found {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(string(key)))
		if name == "" {
			continue
		}
		headers[name] = strings.TrimSpace(string(value))
	}

	return headers
}

// dispositionParams parses the parameters of a Content-Disposition
// value such as `form-data; name="file"; filename="a.txt"`. Values may
// be quoted; quotes are stripped. The presence of a parameter is
// significant even when its value is empty, so callers can distinguish
// `filename=""` from no filename at all. The leading type token
// carries no "=" and falls out naturally.
func dispositionParams(value string) map[string]string {
	params := make(map[string]string)
	if value == "" {
		return params
	}

	for _, segment := range strings.Split(value, ";") {
		key, val, found := strings.Cut(segment, "=")
		if !found {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(key))
		if name == "" {
			continue
		}
		params[name] = strings.Trim(strings.TrimSpace(val), `"`)
	}

	return params
}

// SanitizeFilename normalizes a client-provided file name to NFC and
// strips path traversal material: separators, "..", and NUL bytes.
// The caller substitutes a default for an empty result.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)

	replacer := strings.NewReplacer(
		"..", "",
		"/", "",
		"\\", "",
		"\x00", "",
	)
	// Replacement can bring new ".." sequences together ("...." or
	// ".&/&."-style inputs), so run until stable.
	for {
		cleaned := replacer.Replace(name)
		if cleaned == name {
			break
		}
		name = cleaned
	}

	return strings.TrimSpace(name)
}
