package webhook

import (
	"bytes"
	"encoding/json"

	"post-webhook/internal/content"
)

// Payload is the JSON body sent to the webhook endpoint when a post is published.
type Payload struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Content    string   `json:"content"`
	Excerpt    string   `json:"excerpt"`
	Tags       []string `json:"tags"`
	Categories []string `json:"categories"`
	Author     Author   `json:"author"`
	Date       Date     `json:"date"`
}

type Author struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Date struct {
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}

// BuildPayload describes post as the site presents it. The result depends only
// on the post and site, so building twice yields identical JSON.
func BuildPayload(post *content.Post, site *content.Site) *Payload {
	p := &Payload{
		ID:         post.ID,
		Title:      post.Title,
		URL:        site.Permalink(post),
		Content:    content.RenderContent(post.Content),
		Excerpt:    content.Excerpt(post),
		Tags:       content.TermNames(post.Tags),
		Categories: content.TermNames(post.Categories),
		Date: Date{
			Raw:       post.Date,
			Formatted: site.FormatDate(post),
		},
	}
	if post.Author != nil {
		p.Author = Author{Name: post.Author.DisplayName, URL: site.AuthorURL(post.Author)}
	}
	return p
}

// Marshal encodes the payload without escaping HTML so rendered content
// reaches the receiver as written.
func (p *Payload) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// asMap exposes the payload to condition expressions under its JSON names.
func (p *Payload) asMap() map[string]any {
	b, err := p.Marshal()
	if err != nil {
		return map[string]any{}
	}
	m := map[string]any{}
	_ = json.Unmarshal(b, &m)
	return m
}
