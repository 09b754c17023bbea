package sharesync

import (
	"net/url"
	"strings"
)

// shareParam is the query parameter that carries share context into a trip page.
const shareParam = "share"

// BuildShareLink returns <base>/trip/<tripID>?share=<shareID>.
func BuildShareLink(base, tripID, shareID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	u = u.JoinPath("trip", tripID)
	q := u.Query()
	q.Set(shareParam, shareID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseShareLink extracts the trip id and share id from a trip page URL.
// ok is false when the URL names no trip or carries no share id, which means
// private, local-only viewing.
func ParseShareLink(raw string) (tripID, shareID string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(segs); i++ {
		if segs[i] == "trip" && segs[i+1] != "" {
			tripID = segs[i+1]
			break
		}
	}
	shareID = strings.TrimSpace(u.Query().Get(shareParam))
	return tripID, shareID, tripID != "" && shareID != ""
}
