package content

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"post-webhook/internal/config"
)

// Site renders the public-facing view of posts: links, dates, HTML and excerpts.
type Site struct {
	baseURL    string
	dateFormat string
	pretty     bool
}

func NewSite(cfg config.SiteConfig) *Site {
	format := cfg.DateFormat
	if format == "" {
		format = "F j, Y"
	}
	return &Site{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		dateFormat: format,
		pretty:     cfg.PermalinkStructure == "pretty",
	}
}

// Permalink returns the canonical URL of p. Unpublished posts always get the
// plain query-string form since their pretty path is not reserved yet.
func (s *Site) Permalink(p *Post) string {
	published := p.Status == StatusPublish || p.Status == StatusPrivate
	if s.pretty && published && p.Slug != "" {
		if p.Type == TypePage {
			return fmt.Sprintf("%s/%s/", s.baseURL, p.Slug)
		}
		t := p.Time()
		return fmt.Sprintf("%s/%04d/%02d/%02d/%s/", s.baseURL, t.Year(), int(t.Month()), t.Day(), p.Slug)
	}
	if p.Type == TypePage {
		return fmt.Sprintf("%s/?page_id=%d", s.baseURL, p.ID)
	}
	return fmt.Sprintf("%s/?p=%d", s.baseURL, p.ID)
}

// AuthorURL returns the author archive link, or "" for a post without an author.
func (s *Site) AuthorURL(a *Author) string {
	if a == nil {
		return ""
	}
	if s.pretty && a.Nicename != "" {
		return fmt.Sprintf("%s/author/%s/", s.baseURL, a.Nicename)
	}
	return fmt.Sprintf("%s/?author=%s", s.baseURL, a.ID)
}

// FormatDate renders the post date with the site's display format.
func (s *Site) FormatDate(p *Post) string {
	t := p.Time()
	if t.IsZero() {
		return ""
	}
	return FormatPHPDate(t, s.dateFormat)
}

// FormatPHPDate formats t using PHP date() format characters. Unknown
// characters are copied through; a backslash escapes the next character.
func FormatPHPDate(t time.Time, format string) string {
	var b strings.Builder
	runes := []rune(format)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '\\':
			if i+1 < len(runes) {
				i++
				b.WriteRune(runes[i])
			}
		case 'd':
			b.WriteString(t.Format("02"))
		case 'D':
			b.WriteString(t.Format("Mon"))
		case 'j':
			b.WriteString(strconv.Itoa(t.Day()))
		case 'l':
			b.WriteString(t.Format("Monday"))
		case 'N':
			wd := int(t.Weekday())
			if wd == 0 {
				wd = 7
			}
			b.WriteString(strconv.Itoa(wd))
		case 'S':
			b.WriteString(ordinalSuffix(t.Day()))
		case 'w':
			b.WriteString(strconv.Itoa(int(t.Weekday())))
		case 'z':
			b.WriteString(strconv.Itoa(t.YearDay() - 1))
		case 'F':
			b.WriteString(t.Format("January"))
		case 'M':
			b.WriteString(t.Format("Jan"))
		case 'm':
			b.WriteString(t.Format("01"))
		case 'n':
			b.WriteString(strconv.Itoa(int(t.Month())))
		case 'Y':
			b.WriteString(strconv.Itoa(t.Year()))
		case 'y':
			b.WriteString(t.Format("06"))
		case 'a':
			b.WriteString(t.Format("pm"))
		case 'A':
			b.WriteString(t.Format("PM"))
		case 'g':
			b.WriteString(t.Format("3"))
		case 'G':
			b.WriteString(strconv.Itoa(t.Hour()))
		case 'h':
			b.WriteString(t.Format("03"))
		case 'H':
			b.WriteString(t.Format("15"))
		case 'i':
			b.WriteString(t.Format("04"))
		case 's':
			b.WriteString(t.Format("05"))
		case 'T':
			b.WriteString(t.Format("MST"))
		case 'O':
			b.WriteString(t.Format("-0700"))
		case 'P':
			b.WriteString(t.Format("-07:00"))
		case 'c':
			b.WriteString(t.Format(time.RFC3339))
		case 'r':
			b.WriteString(t.Format(time.RFC1123Z))
		case 'U':
			b.WriteString(strconv.FormatInt(t.Unix(), 10))
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
