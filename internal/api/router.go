package api

import "github.com/gofiber/fiber/v2"

func RegisterPostRoutes(app *fiber.App, h *PostHandler, middleware ...fiber.Handler) {
	posts := app.Group("/api/posts", middleware...)

	posts.Get("/", h.List)
	posts.Post("/", h.Create)
	posts.Get("/:id", h.Get)
	posts.Put("/:id", h.Update)
	posts.Delete("/:id", h.Delete)
	posts.Get("/:id/payload", h.Payload)
}
