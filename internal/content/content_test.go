package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"post-webhook/internal/config"
	"post-webhook/internal/store"
)

func testRepo(t *testing.T) (*Repository, string) {
	t.Helper()
	ctx := context.Background()
	s, err := store.New(ctx, config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir(), Name: "content"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	var adminID string
	if err := s.DB.QueryRowContext(ctx, "SELECT id FROM _users LIMIT 1").Scan(&adminID); err != nil {
		t.Fatalf("load admin: %v", err)
	}
	return NewRepository(s), adminID
}

func strPtr(s string) *string { return &s }

func TestRepository_CreateLoadsTermsAndAuthor(t *testing.T) {
	repo, adminID := testRepo(t)
	ctx := context.Background()

	p, err := repo.Create(ctx, PostInput{
		Title:      strPtr("Hello World"),
		Content:    strPtr("First paragraph."),
		AuthorID:   strPtr(adminID),
		Date:       strPtr("2024-03-05 10:30:00"),
		Tags:       []string{"B", "A", "b"},
		Categories: []string{"News"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected generated id")
	}
	if p.Status != StatusDraft || p.Type != TypePost {
		t.Fatalf("expected draft post defaults, got %s/%s", p.Status, p.Type)
	}
	if p.Slug != "hello-world" {
		t.Fatalf("expected slug hello-world, got %q", p.Slug)
	}
	if got := TermNames(p.Tags); len(got) != 2 || got[0] != "B" || got[1] != "A" {
		t.Fatalf("expected tags [B A] in assignment order, got %v", got)
	}
	if got := TermNames(p.Categories); len(got) != 1 || got[0] != "News" {
		t.Fatalf("expected categories [News], got %v", got)
	}
	if p.Author == nil || p.Author.DisplayName != "Administrator" {
		t.Fatalf("expected admin author, got %+v", p.Author)
	}
	if p.Date != "2024-03-05 10:30:00" {
		t.Fatalf("unexpected date %q", p.Date)
	}
}

func TestRepository_KeepsNonASCIIAndCollidingTermNames(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	p, err := repo.Create(ctx, PostInput{
		Title:      strPtr("Terms"),
		Tags:       []string{"日本", "Go", "++"},
		Categories: []string{"C", "C++", "C#"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := TermNames(p.Tags); len(got) != 3 || got[0] != "日本" || got[1] != "Go" || got[2] != "++" {
		t.Fatalf("expected every tag name kept, got %v", got)
	}
	if got := TermNames(p.Categories); len(got) != 3 || got[0] != "C" || got[1] != "C++" || got[2] != "C#" {
		t.Fatalf("expected every category name kept, got %v", got)
	}
	slugs := map[string]bool{}
	for _, c := range p.Categories {
		if slugs[c.Slug] {
			t.Fatalf("duplicate category slug %q", c.Slug)
		}
		slugs[c.Slug] = true
	}
	if p.Tags[0].Slug != "日本" || p.Tags[2].Slug != "term" {
		t.Fatalf("unexpected tag slugs %q %q", p.Tags[0].Slug, p.Tags[2].Slug)
	}

	// A second post reuses the existing terms instead of minting new slugs.
	q, err := repo.Create(ctx, PostInput{Title: strPtr("Again"), Categories: []string{"c++"}})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if len(q.Categories) != 1 || q.Categories[0].ID != p.Categories[1].ID {
		t.Fatalf("expected existing C++ term, got %+v", q.Categories)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World":    "hello-world",
		"  --Go!-- ":     "go",
		"日本 語":           "日本-語",
		"Ünïcode Straße": "ünïcode-straße",
		"C++":            "c",
		"!!!":            "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRepository_UpdateReturnsOldStatusAndReplacesTerms(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	p, err := repo.Create(ctx, PostInput{Title: strPtr("Draft"), Tags: []string{"old"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	oldStatus, updated, err := repo.Update(ctx, p.ID, PostInput{
		Status: strPtr(StatusPublish),
		Tags:   []string{"new"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if oldStatus != StatusDraft {
		t.Fatalf("expected old status draft, got %s", oldStatus)
	}
	if updated.Status != StatusPublish {
		t.Fatalf("expected publish, got %s", updated.Status)
	}
	if got := TermNames(updated.Tags); len(got) != 1 || got[0] != "new" {
		t.Fatalf("expected tags [new], got %v", got)
	}
	if updated.Title != "Draft" {
		t.Fatalf("title should be untouched, got %q", updated.Title)
	}

	// Nil term lists keep the current assignment.
	_, again, err := repo.Update(ctx, p.ID, PostInput{Title: strPtr("Renamed")})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if got := TermNames(again.Tags); len(got) != 1 || got[0] != "new" {
		t.Fatalf("expected tags to survive, got %v", got)
	}
}

func TestRepository_UpdateMissingPost(t *testing.T) {
	repo, _ := testRepo(t)
	_, _, err := repo.Update(context.Background(), 999, PostInput{Title: strPtr("x")})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepository_Latest(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	if _, err := repo.Latest(ctx, TypePost); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	mk := func(title, status, typ, date string) {
		t.Helper()
		if _, err := repo.Create(ctx, PostInput{Title: strPtr(title), Status: strPtr(status), Type: strPtr(typ), Date: strPtr(date)}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}
	mk("older", StatusPublish, TypePost, "2024-01-01 00:00:00")
	mk("newest", StatusPublish, TypePost, "2024-06-01 00:00:00")
	mk("draft", StatusDraft, TypePost, "2025-01-01 00:00:00")
	mk("page", StatusPublish, TypePage, "2025-01-01 00:00:00")

	p, err := repo.Latest(ctx, TypePost)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if p.Title != "newest" {
		t.Fatalf("expected newest published post, got %q", p.Title)
	}

	posts, err := repo.List(ctx, ListFilter{Type: TypePost})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
}

func TestService_FiresTransitions(t *testing.T) {
	repo, _ := testRepo(t)
	hooks := NewHooks()
	svc := NewService(repo, hooks)
	ctx := context.Background()

	type call struct{ newStatus, oldStatus string }
	var calls []call
	hooks.OnTransition(func(_ context.Context, newStatus, oldStatus string, p *Post) {
		calls = append(calls, call{newStatus, oldStatus})
	})

	p, err := svc.Create(ctx, PostInput{Title: strPtr("t")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Update(ctx, p.ID, PostInput{Status: strPtr(StatusPublish)}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := svc.Update(ctx, p.ID, PostInput{Title: strPtr("t2")}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	if _, err := svc.Trash(ctx, p.ID); err != nil {
		t.Fatalf("trash: %v", err)
	}

	want := []call{
		{StatusDraft, StatusNew},
		{StatusPublish, StatusDraft},
		{StatusPublish, StatusPublish},
		{StatusTrash, StatusPublish},
	}
	if len(calls) != len(want) {
		t.Fatalf("expected %d transitions, got %d: %v", len(want), len(calls), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("transition %d: want %v, got %v", i, want[i], calls[i])
		}
	}
}

func TestSite_Links(t *testing.T) {
	plain := NewSite(config.SiteConfig{URL: "https://blog.example.com/", DateFormat: "F j, Y"})
	pretty := NewSite(config.SiteConfig{URL: "https://blog.example.com", PermalinkStructure: "pretty"})

	p := &Post{ID: 42, Type: TypePost, Status: StatusPublish, Slug: "hello", Date: "2024-03-05 10:30:00"}
	if got := plain.Permalink(p); got != "https://blog.example.com/?p=42" {
		t.Fatalf("plain permalink = %s", got)
	}
	if got := pretty.Permalink(p); got != "https://blog.example.com/2024/03/05/hello/" {
		t.Fatalf("pretty permalink = %s", got)
	}
	draft := *p
	draft.Status = StatusDraft
	if got := pretty.Permalink(&draft); got != "https://blog.example.com/?p=42" {
		t.Fatalf("draft permalink = %s", got)
	}

	a := &Author{ID: "u1", DisplayName: "Jane", Nicename: "jane"}
	if got := pretty.AuthorURL(a); got != "https://blog.example.com/author/jane/" {
		t.Fatalf("pretty author url = %s", got)
	}
	if got := plain.AuthorURL(a); got != "https://blog.example.com/?author=u1" {
		t.Fatalf("plain author url = %s", got)
	}
	if got := plain.AuthorURL(nil); got != "" {
		t.Fatalf("expected empty author url, got %s", got)
	}
	if got := plain.FormatDate(p); got != "March 5, 2024" {
		t.Fatalf("formatted date = %s", got)
	}
}

func TestFormatPHPDate(t *testing.T) {
	ts := time.Date(2024, time.March, 1, 14, 7, 9, 0, time.UTC)
	cases := map[string]string{
		"F j, Y":    "March 1, 2024",
		"Y-m-d":     "2024-03-01",
		"d/m/y":     "01/03/24",
		"jS M Y":    "1st Mar 2024",
		"g:i a":     "2:07 pm",
		"H:i:s":     "14:07:09",
		`\Y\e\s: Y`: "Yes: 2024",
		"l, D":      "Friday, Fri",
	}
	for format, want := range cases {
		if got := FormatPHPDate(ts, format); got != want {
			t.Errorf("format %q: want %q, got %q", format, want, got)
		}
	}
}

func TestRenderContent(t *testing.T) {
	got := RenderContent("Line one\nline two\n\nSecond para\r\n\r\n<h2>Heading</h2>")
	want := "<p>Line one<br />\nline two</p>\n<p>Second para</p>\n<h2>Heading</h2>\n"
	if got != want {
		t.Fatalf("render mismatch:\nwant %q\n got %q", want, got)
	}
	if RenderContent("  \n ") != "" {
		t.Fatal("blank content should render empty")
	}
}

func TestExcerpt(t *testing.T) {
	manual := &Post{Excerpt: "Hand written", Content: "ignored"}
	if got := Excerpt(manual); got != "Hand written" {
		t.Fatalf("manual excerpt = %q", got)
	}

	short := &Post{Content: "<strong>Bold</strong> words here"}
	if got := Excerpt(short); got != "Bold words here" {
		t.Fatalf("short excerpt = %q", got)
	}

	long := ""
	for i := 0; i < 60; i++ {
		long += "word "
	}
	got := Excerpt(&Post{Content: long})
	want := TrimWords(long, 55, "") + " [&hellip;]"
	if got != want {
		t.Fatalf("long excerpt = %q", got)
	}
}

func TestUserContext_Can(t *testing.T) {
	admin := &UserContext{Roles: []string{"admin"}}
	author := &UserContext{Roles: []string{"author"}}
	var nobody *UserContext

	if !admin.Can(CapManageOptions) {
		t.Fatal("admin should manage options")
	}
	if author.Can(CapManageOptions) {
		t.Fatal("author must not manage options")
	}
	if !author.Can(CapPublishPosts) {
		t.Fatal("author should publish posts")
	}
	if nobody.Can(CapEditPosts) {
		t.Fatal("nil user must not edit posts")
	}
}
