// Package keys derives object-storage keys for uploaded files.
package keys

import (
	"strings"

	"github.com/google/uuid"
)

// Extension returns the file extension implied by a MIME content type: the
// text after the first "/". An empty subtype yields "bin".
func Extension(contentType string) string {
	_, subtype, found := strings.Cut(contentType, "/")
	if !found || subtype == "" {
		return "bin"
	}
	return subtype
}

// Generate derives a blob key of the form
//
//	{ownerID}/{containerPath.../}{random}.{ext}
//
// where containerPath is the resolved container hierarchy, root first, and
// the random token is a v4 UUID. Ownership of the container must already be
// verified by the caller; Generate is pure given its inputs.
func Generate(ownerID string, containerPath []string, contentType string) string {
	parts := make([]string, 0, len(containerPath)+2)
	parts = append(parts, ownerID)
	parts = append(parts, containerPath...)
	parts = append(parts, uuid.NewString()+"."+Extension(contentType))
	return strings.Join(parts, "/")
}

// Prefix returns the blob-key prefix covering every file placed under the
// given container path, including files of nested containers.
func Prefix(ownerID string, containerPath []string) string {
	parts := make([]string, 0, len(containerPath)+1)
	parts = append(parts, ownerID)
	parts = append(parts, containerPath...)
	return strings.Join(parts, "/") + "/"
}
