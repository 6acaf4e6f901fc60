package storage

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var ErrUnrecognizedURL = errors.New("not a cloudinary asset url")

// Asset identifies a stored file for deletion.
type Asset struct {
	ResourceType string // image, video or raw
	PublicID     string
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// ParseAssetURL derives the resource type and public id from a delivery URL
// of the form https://res.cloudinary.com/<cloud>/<type>/upload/[...]/v<version>/<public_id>[.<ext>].
func ParseAssetURL(raw string) (Asset, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Path == "" {
		return Asset{}, fmt.Errorf("%w: %q", ErrUnrecognizedURL, raw)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	upload := -1
	for i, p := range parts {
		if p == "upload" && i >= 1 {
			upload = i
			break
		}
	}
	if upload < 1 || upload == len(parts)-1 {
		return Asset{}, fmt.Errorf("%w: %q", ErrUnrecognizedURL, raw)
	}

	resourceType := parts[upload-1]
	rest := parts[upload+1:]

	// The public id follows the version segment. Upload responses always
	// carry one; without it the whole remainder is taken as the id.
	for i, p := range rest {
		if versionSegment.MatchString(p) {
			rest = rest[i+1:]
			break
		}
	}
	if len(rest) == 0 {
		return Asset{}, fmt.Errorf("%w: %q", ErrUnrecognizedURL, raw)
	}

	publicID := strings.Join(rest, "/")
	if resourceType != "raw" {
		publicID = strings.TrimSuffix(publicID, path.Ext(publicID))
	}
	if publicID == "" {
		return Asset{}, fmt.Errorf("%w: %q", ErrUnrecognizedURL, raw)
	}
	return Asset{ResourceType: resourceType, PublicID: publicID}, nil
}
