package api

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"post-webhook/internal/content"
	"post-webhook/internal/store"
	"post-webhook/internal/webhook"
)

type PostHandler struct {
	service *content.Service
	site    *content.Site
}

func NewPostHandler(svc *content.Service, site *content.Site) *PostHandler {
	return &PostHandler{service: svc, site: site}
}

type postBody struct {
	Type       *string  `json:"type" validate:"omitempty,oneof=post page"`
	Status     *string  `json:"status" validate:"omitempty,oneof=auto-draft draft pending private future publish trash"`
	Title      *string  `json:"title" validate:"omitempty,max=255"`
	Slug       *string  `json:"slug" validate:"omitempty,max=200"`
	Content    *string  `json:"content"`
	Excerpt    *string  `json:"excerpt"`
	Date       *string  `json:"date" validate:"omitempty,datetime=2006-01-02 15:04:05"`
	AuthorID   *string  `json:"author_id" validate:"omitempty,max=64"`
	Tags       []string `json:"tags" validate:"omitempty,dive,required,max=200"`
	Categories []string `json:"categories" validate:"omitempty,dive,required,max=200"`
}

func (b *postBody) input() content.PostInput {
	return content.PostInput{
		Type:       b.Type,
		Status:     b.Status,
		Title:      b.Title,
		Slug:       b.Slug,
		Content:    b.Content,
		Excerpt:    b.Excerpt,
		Date:       b.Date,
		AuthorID:   b.AuthorID,
		Tags:       b.Tags,
		Categories: b.Categories,
	}
}

// List handles GET /api/posts
func (h *PostHandler) List(c *fiber.Ctx) error {
	if err := requireCapability(c, content.CapEditPosts); err != nil {
		return err
	}

	f := content.ListFilter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Limit:  content.ClampLimit(c.QueryInt("per_page", 25)),
	}
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	f.Offset = (page - 1) * f.Limit

	posts, err := h.service.Repository().List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": posts,
		"meta": fiber.Map{"page": page, "per_page": f.Limit},
	})
}

// Get handles GET /api/posts/:id
func (h *PostHandler) Get(c *fiber.Ctx) error {
	if err := requireCapability(c, content.CapEditPosts); err != nil {
		return err
	}
	post, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": post})
}

// Create handles POST /api/posts
func (h *PostHandler) Create(c *fiber.Ctx) error {
	user := getUser(c)
	if err := requireCapability(c, content.CapEditPosts); err != nil {
		return err
	}

	var body postBody
	if err := BindJSON(c, &body); err != nil {
		return err
	}
	if err := checkPublishRights(user, body.Status); err != nil {
		return err
	}
	if body.AuthorID == nil {
		body.AuthorID = &user.ID
	}
	if err := h.checkAuthor(c, user, body.AuthorID, "create"); err != nil {
		return err
	}

	post, err := h.service.Create(c.UserContext(), body.input())
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return c.Status(201).JSON(fiber.Map{"data": post})
}

// Update handles PUT /api/posts/:id
func (h *PostHandler) Update(c *fiber.Ctx) error {
	user := getUser(c)
	if err := requireCapability(c, content.CapEditPosts); err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var body postBody
	if err := BindJSON(c, &body); err != nil {
		return err
	}
	if err := checkPublishRights(user, body.Status); err != nil {
		return err
	}
	if err := h.checkAuthor(c, user, body.AuthorID, "edit"); err != nil {
		return err
	}

	post, err := h.service.Update(c.UserContext(), id, body.input())
	if err != nil {
		return notFoundOr(err, c.Params("id"))
	}
	return c.JSON(fiber.Map{"data": post})
}

// Delete handles DELETE /api/posts/:id by moving the post to the trash.
func (h *PostHandler) Delete(c *fiber.Ctx) error {
	if err := requireCapability(c, content.CapEditPosts); err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	post, err := h.service.Trash(c.UserContext(), id)
	if err != nil {
		return notFoundOr(err, c.Params("id"))
	}
	return c.JSON(fiber.Map{"data": post})
}

// Payload handles GET /api/posts/:id/payload, showing what the webhook would send.
func (h *PostHandler) Payload(c *fiber.Ctx) error {
	if err := requireCapability(c, content.CapEditPosts); err != nil {
		return err
	}
	post, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": webhook.BuildPayload(post, h.site)})
}

func (h *PostHandler) load(c *fiber.Ctx) (*content.Post, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	post, err := h.service.Repository().Get(c.UserContext(), id)
	if err != nil {
		return nil, notFoundOr(err, c.Params("id"))
	}
	return post, nil
}

func parseID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, NotFoundError("post", raw)
	}
	return id, nil
}

func notFoundOr(err error, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return NotFoundError("post", id)
	}
	return err
}

// Publishing, scheduling and private visibility need publish_posts; others may
// only save drafts or submit for review.
func checkPublishRights(user *content.UserContext, status *string) error {
	if status == nil {
		return nil
	}
	switch *status {
	case content.StatusPublish, content.StatusFuture, content.StatusPrivate:
		if !user.Can(content.CapPublishPosts) {
			return ForbiddenError("Sorry, you are not allowed to publish posts")
		}
	}
	return nil
}

// checkAuthor lets only publishers attribute a post to someone else and
// rejects authors that do not exist.
func (h *PostHandler) checkAuthor(c *fiber.Ctx, user *content.UserContext, authorID *string, action string) error {
	if authorID == nil || *authorID == user.ID {
		return nil
	}
	if !user.Can(content.CapPublishPosts) {
		return ForbiddenError(fmt.Sprintf("Sorry, you are not allowed to %s posts as this user.", action))
	}
	if *authorID == "" {
		return nil
	}
	if _, err := h.service.Repository().Author(c.UserContext(), *authorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ValidationError([]ErrorDetail{{Field: "author_id", Rule: "exists", Message: "Invalid author ID."}})
		}
		return fmt.Errorf("load author: %w", err)
	}
	return nil
}

func getUser(c *fiber.Ctx) *content.UserContext {
	user, _ := c.Locals("user").(*content.UserContext)
	return user
}

func requireCapability(c *fiber.Ctx, capability string) error {
	user := getUser(c)
	if user == nil {
		return UnauthorizedError("Authentication required")
	}
	if !user.Can(capability) {
		return ForbiddenError(fmt.Sprintf("Missing capability %s", capability))
	}
	return nil
}
