package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Header carries the ray id on responses and may carry a caller-provided one
// on requests.
const Header = "X-Ray-Id"

// New returns a middleware that assigns every request a ray id. An incoming
// X-Ray-Id header is honored so ids propagate across services; otherwise a
// fresh uuid is generated. The id is stored in c.Locals("ray_id") where
// logger.WithRayID picks it up.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(Header)
		if rid == "" {
			rid = uuid.New().String()
		}
		c.Locals("ray_id", rid)
		c.Set(Header, rid)
		return c.Next()
	}
}
