// Package endpoints normalizes a user-supplied collection service address
// into the canonical base URL and its well-known leaves.
package endpoints

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidEndpoint reports an address that cannot be normalized into an
// absolute http(s) base URL.
var ErrInvalidEndpoint = errors.New("invalid endpoint URL")

// Leaf path segments understood by the collection service.
const (
	KeysLeaf         = "keys"
	ObservationsLeaf = "observations"
	ForgetMeLeaf     = "forget-me-now"
)

// Endpoints carries the canonical base plus the derived leaf URLs.
type Endpoints struct {
	Base         string
	Keys         string
	Observations string
	ForgetMe     string
}

// Derive accepts either a base URL or a full endpoint URL and produces the
// canonical endpoint set. Query, fragment, and a trailing known leaf
// segment are stripped before deriving.
func Derive(raw string) (Endpoints, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Endpoints{}, ErrInvalidEndpoint
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return Endpoints{}, ErrInvalidEndpoint
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Endpoints{}, ErrInvalidEndpoint
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.Path = stripKnownLeaf(u.Path)
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	base := *u
	return Endpoints{
		Base:         base.String(),
		Keys:         base.JoinPath(KeysLeaf).String(),
		Observations: base.JoinPath(ObservationsLeaf).String(),
		ForgetMe:     base.JoinPath(ForgetMeLeaf).String(),
	}, nil
}

func stripKnownLeaf(path string) string {
	trimmed := strings.TrimSuffix(path, "/")
	for _, leaf := range []string{KeysLeaf, ObservationsLeaf, ForgetMeLeaf} {
		if strings.HasSuffix(trimmed, "/"+leaf) {
			return strings.TrimSuffix(trimmed, "/"+leaf)
		}
	}
	return path
}
