package admin

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"post-webhook/internal/api"
	"post-webhook/internal/auth"
	"post-webhook/internal/content"
	"post-webhook/internal/settings"
	"post-webhook/internal/webhook"
)

type Handler struct {
	options    *settings.Options
	tester     *webhook.TestSender
	deliveries *webhook.DeliveryLog
}

func NewHandler(opts *settings.Options, tester *webhook.TestSender, deliveries *webhook.DeliveryLog) *Handler {
	return &Handler{options: opts, tester: tester, deliveries: deliveries}
}

// RegisterAdminRoutes mounts the admin surface behind authMW. The test send
// checks its own permission so unauthorized users receive its denial message.
func RegisterAdminRoutes(app *fiber.App, h *Handler, authMW fiber.Handler) {
	admin := app.Group("/api/_admin", authMW)
	manage := auth.RequireCapability(content.CapManageOptions)

	admin.Get("/settings", manage, h.GetSettings)
	admin.Put("/settings", manage, h.UpdateSettings)
	admin.Post("/webhook/test", h.TestWebhook)
	admin.Get("/webhook/deliveries", manage, h.ListDeliveries)
}

type settingsBody struct {
	WebhookURL string `json:"new_post_webhook" validate:"max=2048"`
}

func (h *Handler) GetSettings(c *fiber.Ctx) error {
	url, err := h.options.WebhookURL(c.UserContext())
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{settings.WebhookURLOption: url}})
}

// UpdateSettings stores the sanitized webhook URL. An empty or unusable value
// is stored empty, which disables sending.
func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	var body settingsBody
	if err := api.BindJSON(c, &body); err != nil {
		return err
	}
	url, err := h.options.SetWebhookURL(c.UserContext(), body.WebhookURL)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{settings.WebhookURLOption: url}})
}

func (h *Handler) TestWebhook(c *fiber.Ctx) error {
	res, err := h.tester.SendTest(c.UserContext(), auth.GetUser(c))
	if err != nil {
		return err
	}
	switch res.Code {
	case webhook.TestSent:
		return c.JSON(fiber.Map{"data": res})
	case webhook.TestDenied:
		return api.NewAppError(res.Code, 403, res.Message)
	case webhook.TestNoURL:
		return api.NewAppError(res.Code, 422, res.Message)
	default:
		return api.NewAppError(res.Code, 404, res.Message)
	}
}

func (h *Handler) ListDeliveries(c *fiber.Ctx) error {
	perPage := webhook.DeliveryPageSize(c.QueryInt("per_page", 50))
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	rows, err := h.deliveries.List(c.UserContext(), perPage, (page-1)*perPage)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": rows,
		"meta": fiber.Map{"page": page, "per_page": perPage},
	})
}
