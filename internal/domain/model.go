package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Listing is a named ordering of posts offered by a subreddit.
type Listing string

const (
	ListingHot           Listing = "Hot"
	ListingNew           Listing = "New"
	ListingRising        Listing = "Rising"
	ListingControversial Listing = "Controversial"
	ListingTop           Listing = "Top"
)

// Listings returns every supported listing in display order.
func Listings() []Listing {
	return []Listing{ListingHot, ListingNew, ListingRising, ListingControversial, ListingTop}
}

// ParseListing resolves a listing name case-insensitively.
func ParseListing(s string) (Listing, error) {
	for _, l := range Listings() {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown listing %q", s)
}

// Path returns the lower-case form used in Reddit URLs.
func (l Listing) Path() string {
	return strings.ToLower(string(l))
}

// UnmarshalJSON accepts any casing and stores the canonical name.
func (l *Listing) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseListing(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// WatchSpec is a user-defined (keyword, subreddit, listing) triple.
// Two specs are the same watch when all three fields are equal as entered.
type WatchSpec struct {
	Keyword   string  `json:"keyword" validate:"required"`
	Subreddit string  `json:"subreddit" validate:"required"`
	Listing   Listing `json:"listing" validate:"required,oneof=Hot New Rising Controversial Top"`
}

// Key renders the identity triple as a persistence key.
func (w WatchSpec) Key() string {
	return w.Keyword + "|" + w.Subreddit + "|" + string(w.Listing)
}

func (w WatchSpec) String() string {
	return fmt.Sprintf("Keyword: %s | Subreddit: %s | Listing: %s", w.Keyword, w.Subreddit, w.Listing)
}

// Item is a single post returned by a listing fetch.
type Item struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Permalink string `json:"permalink"`
}
