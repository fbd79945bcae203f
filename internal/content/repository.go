package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"post-webhook/internal/store"
)

// PostInput carries the writable fields of a post. Nil fields are left
// unchanged on update; nil term lists keep the current assignment.
type PostInput struct {
	Type       *string
	Status     *string
	Title      *string
	Slug       *string
	Content    *string
	Excerpt    *string
	Date       *string
	AuthorID   *string
	Tags       []string
	Categories []string
}

// ListFilter narrows List results. Empty fields match everything.
type ListFilter struct {
	Type   string
	Status string
	Limit  int
	Offset int
}

// Repository persists posts, their terms and reads authors.
type Repository struct {
	store *store.Store
}

func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

const postColumns = "id, post_type, status, title, slug, content, excerpt, author_id, post_date"

func scanPost(row interface{ Scan(...any) error }) (*Post, error) {
	var p Post
	var authorID sql.NullString
	if err := row.Scan(&p.ID, &p.Type, &p.Status, &p.Title, &p.Slug, &p.Content, &p.Excerpt, &authorID, &p.Date); err != nil {
		return nil, err
	}
	p.AuthorID = authorID.String
	return &p, nil
}

// Get loads a post with its terms and author as they are right now.
func (r *Repository) Get(ctx context.Context, id int64) (*Post, error) {
	pb := r.store.Dialect.NewParamBuilder()
	row := r.store.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM posts WHERE id = %s", postColumns, pb.Add(id)), pb.Params()...)
	p, err := scanPost(row)
	if err != nil {
		return nil, store.MapError(r.store.Dialect, err)
	}
	if err := r.hydrate(ctx, r.store.DB, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Latest returns the most recent published post of the given type,
// newest post_date first, highest id breaking ties.
func (r *Repository) Latest(ctx context.Context, postType string) (*Post, error) {
	pb := r.store.Dialect.NewParamBuilder()
	row := r.store.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM posts WHERE post_type = %s AND status = %s ORDER BY post_date DESC, id DESC LIMIT 1",
			postColumns, pb.Add(postType), pb.Add(StatusPublish)),
		pb.Params()...)
	p, err := scanPost(row)
	if err != nil {
		return nil, store.MapError(r.store.Dialect, err)
	}
	if err := r.hydrate(ctx, r.store.DB, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ClampLimit returns the page size List uses for limit: 25 when it is out of range.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 25
	}
	return limit
}

// List returns posts without terms or authors, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]*Post, error) {
	pb := r.store.Dialect.NewParamBuilder()
	var conditions []string
	if f.Type != "" {
		conditions = append(conditions, "post_type = "+pb.Add(f.Type))
	}
	if f.Status != "" {
		conditions = append(conditions, "status = "+pb.Add(f.Status))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := ClampLimit(f.Limit)
	query := fmt.Sprintf("SELECT %s FROM posts%s ORDER BY post_date DESC, id DESC LIMIT %s OFFSET %s",
		postColumns, where, pb.Add(limit), pb.Add(max(f.Offset, 0)))

	rows, err := r.store.DB.QueryContext(ctx, query, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []*Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Create inserts a post and its terms in one transaction.
func (r *Repository) Create(ctx context.Context, in PostInput) (*Post, error) {
	p := &Post{
		Type:   TypePost,
		Status: StatusDraft,
		Date:   time.Now().Format(DateLayout),
	}
	applyInput(p, in)
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}

	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	pb := r.store.Dialect.NewParamBuilder()
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO posts (post_type, status, title, slug, content, excerpt, author_id, post_date)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s) RETURNING id`,
			pb.Add(p.Type), pb.Add(p.Status), pb.Add(p.Title), pb.Add(p.Slug), pb.Add(p.Content),
			pb.Add(p.Excerpt), pb.Add(nullable(p.AuthorID)), pb.Add(p.Date)),
		pb.Params()...).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", store.MapError(r.store.Dialect, err))
	}

	if err := r.setTerms(ctx, tx, p.ID, TaxonomyTag, in.Tags); err != nil {
		return nil, err
	}
	if err := r.setTerms(ctx, tx, p.ID, TaxonomyCategory, in.Categories); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return r.Get(ctx, p.ID)
}

// Update applies in to an existing post and returns the status it had before.
func (r *Repository) Update(ctx context.Context, id int64, in PostInput) (string, *Post, error) {
	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	pb := r.store.Dialect.NewParamBuilder()
	p, err := scanPost(tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM posts WHERE id = %s", postColumns, pb.Add(id)), pb.Params()...))
	if err != nil {
		return "", nil, store.MapError(r.store.Dialect, err)
	}
	oldStatus := p.Status
	applyInput(p, in)

	pb = r.store.Dialect.NewParamBuilder()
	_, err = store.Exec(ctx, tx,
		fmt.Sprintf(`UPDATE posts SET post_type = %s, status = %s, title = %s, slug = %s, content = %s,
		 excerpt = %s, author_id = %s, post_date = %s, updated_at = %s WHERE id = %s`,
			pb.Add(p.Type), pb.Add(p.Status), pb.Add(p.Title), pb.Add(p.Slug), pb.Add(p.Content),
			pb.Add(p.Excerpt), pb.Add(nullable(p.AuthorID)), pb.Add(p.Date), r.store.Dialect.NowExpr(), pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return "", nil, fmt.Errorf("update post: %w", store.MapError(r.store.Dialect, err))
	}

	if in.Tags != nil {
		if err := r.setTerms(ctx, tx, id, TaxonomyTag, in.Tags); err != nil {
			return "", nil, err
		}
	}
	if in.Categories != nil {
		if err := r.setTerms(ctx, tx, id, TaxonomyCategory, in.Categories); err != nil {
			return "", nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("commit: %w", err)
	}

	updated, err := r.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return oldStatus, updated, nil
}

// setTerms replaces the post's terms in taxonomy with names, creating missing
// terms. Order of names is preserved; names repeated case-insensitively are
// assigned once.
func (r *Repository) setTerms(ctx context.Context, q store.Querier, postID int64, taxonomy string, names []string) error {
	d := r.store.Dialect

	pb := d.NewParamBuilder()
	_, err := store.Exec(ctx, q,
		fmt.Sprintf("DELETE FROM post_terms WHERE post_id = %s AND term_id IN (SELECT id FROM terms WHERE taxonomy = %s)",
			pb.Add(postID), pb.Add(taxonomy)),
		pb.Params()...)
	if err != nil {
		return fmt.Errorf("clear %s terms: %w", taxonomy, err)
	}

	seen := map[string]bool{}
	order := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true

		termID, err := r.ensureTerm(ctx, q, taxonomy, name)
		if err != nil {
			return err
		}

		pb = d.NewParamBuilder()
		_, err = store.Exec(ctx, q,
			fmt.Sprintf("INSERT INTO post_terms (post_id, term_id, term_order) VALUES (%s, %s, %s)",
				pb.Add(postID), pb.Add(termID), pb.Add(order)),
			pb.Params()...)
		if err != nil {
			return fmt.Errorf("assign term %q: %w", name, err)
		}
		order++
	}
	return nil
}

// ensureTerm returns the id of the term named name, creating it when missing.
// A new term whose slug is taken by another name gets a numbered slug.
func (r *Repository) ensureTerm(ctx context.Context, q store.Querier, taxonomy, name string) (int64, error) {
	d := r.store.Dialect

	var id int64
	pb := d.NewParamBuilder()
	err := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id FROM terms WHERE taxonomy = %s AND LOWER(name) = LOWER(%s) ORDER BY id LIMIT 1",
			pb.Add(taxonomy), pb.Add(name)),
		pb.Params()...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup term %q: %w", name, err)
	}

	slug, err := r.uniqueTermSlug(ctx, q, taxonomy, Slugify(name))
	if err != nil {
		return 0, err
	}
	pb = d.NewParamBuilder()
	err = q.QueryRowContext(ctx,
		fmt.Sprintf("INSERT INTO terms (taxonomy, name, slug) VALUES (%s, %s, %s) RETURNING id",
			pb.Add(taxonomy), pb.Add(name), pb.Add(slug)),
		pb.Params()...).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert term %q: %w", name, store.MapError(d, err))
	}
	return id, nil
}

func (r *Repository) uniqueTermSlug(ctx context.Context, q store.Querier, taxonomy, base string) (string, error) {
	if base == "" {
		base = "term"
	}
	slug := base
	for n := 2; ; n++ {
		var count int
		pb := r.store.Dialect.NewParamBuilder()
		err := q.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM terms WHERE taxonomy = %s AND slug = %s", pb.Add(taxonomy), pb.Add(slug)),
			pb.Params()...).Scan(&count)
		if err != nil {
			return "", fmt.Errorf("check term slug %q: %w", slug, err)
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

// hydrate loads terms and author for p.
func (r *Repository) hydrate(ctx context.Context, q store.Querier, p *Post) error {
	pb := r.store.Dialect.NewParamBuilder()
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf(`SELECT t.id, t.taxonomy, t.name, t.slug FROM post_terms pt
		 JOIN terms t ON t.id = pt.term_id
		 WHERE pt.post_id = %s ORDER BY pt.term_order, t.id`, pb.Add(p.ID)),
		pb.Params()...)
	if err != nil {
		return fmt.Errorf("load terms: %w", err)
	}
	defer rows.Close()

	p.Tags = []Term{}
	p.Categories = []Term{}
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.ID, &t.Taxonomy, &t.Name, &t.Slug); err != nil {
			return fmt.Errorf("scan term: %w", err)
		}
		switch t.Taxonomy {
		case TaxonomyTag:
			p.Tags = append(p.Tags, t)
		case TaxonomyCategory:
			p.Categories = append(p.Categories, t)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("terms iteration: %w", err)
	}

	if p.AuthorID == "" {
		return nil
	}
	author, err := r.author(ctx, q, p.AuthorID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	p.Author = author
	return nil
}

// Author loads the user a post can be attributed to.
func (r *Repository) Author(ctx context.Context, id string) (*Author, error) {
	return r.author(ctx, r.store.DB, id)
}

func (r *Repository) author(ctx context.Context, q store.Querier, id string) (*Author, error) {
	pb := r.store.Dialect.NewParamBuilder()
	var a Author
	err := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, display_name, nicename FROM _users WHERE id = %s", pb.Add(id)),
		pb.Params()...).Scan(&a.ID, &a.DisplayName, &a.Nicename)
	if err != nil {
		return nil, store.MapError(r.store.Dialect, err)
	}
	return &a, nil
}

func applyInput(p *Post, in PostInput) {
	if in.Type != nil {
		p.Type = *in.Type
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Slug != nil {
		p.Slug = Slugify(*in.Slug)
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if in.Excerpt != nil {
		p.Excerpt = *in.Excerpt
	}
	if in.Date != nil && *in.Date != "" {
		p.Date = *in.Date
	}
	if in.AuthorID != nil {
		p.AuthorID = *in.AuthorID
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
