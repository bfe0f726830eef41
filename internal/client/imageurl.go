package client

import (
	"net/url"
	"strings"
)

// PlaceholderImage is shown for items without a stored image.
const PlaceholderImage = "/static/placeholder.svg"

// ImageURL resolves a stored image path against the backend origin. Images
// are served next to the API, so the first "api" path segment of baseURL
// is dropped. An empty path yields PlaceholderImage.
func ImageURL(baseURL, path string) string {
	if path == "" {
		return PlaceholderImage
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	origin := strings.TrimSuffix(baseURL, "/")
	if u, err := url.Parse(baseURL); err == nil {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i, s := range segments {
			if s == "api" {
				segments = append(segments[:i], segments[i+1:]...)
				break
			}
		}
		u.Path = strings.Join(segments, "/")
		if u.Path != "" {
			u.Path = "/" + u.Path
		}
		u.RawPath = ""
		origin = strings.TrimSuffix(u.String(), "/")
	}

	return origin + "/" + strings.TrimPrefix(path, "/")
}

// ImageURL resolves path against this client's base URL.
func (c *Client) ImageURL(path string) string {
	return ImageURL(c.baseURL, path)
}
