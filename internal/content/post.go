package content

import (
	"strings"
	"time"
	"unicode"
)

// DateLayout is the storage format of Post.Date.
const DateLayout = "2006-01-02 15:04:05"

// Post statuses.
const (
	StatusNew       = "new"
	StatusAutoDraft = "auto-draft"
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusPrivate   = "private"
	StatusFuture    = "future"
	StatusPublish   = "publish"
	StatusTrash     = "trash"
)

// Post types.
const (
	TypePost = "post"
	TypePage = "page"
)

// Taxonomies.
const (
	TaxonomyTag      = "post_tag"
	TaxonomyCategory = "category"
)

var validStatuses = map[string]bool{
	StatusAutoDraft: true,
	StatusDraft:     true,
	StatusPending:   true,
	StatusPrivate:   true,
	StatusFuture:    true,
	StatusPublish:   true,
	StatusTrash:     true,
}

// IsValidStatus reports whether s can be stored on a post. "new" is only
// ever an old status for a post that did not exist yet.
func IsValidStatus(s string) bool {
	return validStatuses[s]
}

// IsValidType reports whether t is a supported post type.
func IsValidType(t string) bool {
	return t == TypePost || t == TypePage
}

type Post struct {
	ID         int64   `json:"id"`
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	Title      string  `json:"title"`
	Slug       string  `json:"slug"`
	Content    string  `json:"content"`
	Excerpt    string  `json:"excerpt"`
	AuthorID   string  `json:"author_id,omitempty"`
	Date       string  `json:"date"`
	Tags       []Term  `json:"tags"`
	Categories []Term  `json:"categories"`
	Author     *Author `json:"author,omitempty"`
}

// Time parses the storage-format date. A malformed date yields the zero time.
func (p *Post) Time() time.Time {
	t, err := time.ParseInLocation(DateLayout, p.Date, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

type Term struct {
	ID       int64  `json:"id"`
	Taxonomy string `json:"taxonomy"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
}

// TermNames returns the names of terms in their stored order.
func TermNames(terms []Term) []string {
	names := make([]string, 0, len(terms))
	for _, t := range terms {
		names = append(names, t.Name)
	}
	return names
}

type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Nicename    string `json:"nicename"`
}

// Slugify lowercases s and collapses every run of characters that are not
// letters, digits or marks into a single dash. Non-ASCII letters are kept.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r) {
			dash = true
			continue
		}
		if dash && b.Len() > 0 {
			b.WriteByte('-')
		}
		dash = false
		b.WriteRune(r)
	}
	return b.String()
}
