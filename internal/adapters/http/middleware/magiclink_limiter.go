package middleware

import (
	"fmt"
	"log"
	"strings"
	"time"

	"assotessera/internal/config"
	"assotessera/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// MagicLinkLimiter rate limits magic-link requests with a fixed window in
// redis, so the limit holds across replicas and restarts. Both the requested
// email and the client IP are counted; either bucket filling up blocks the
// request.
func MagicLinkLimiter(rdb *redis.Client, cfg *config.Config) fiber.Handler {
	window := time.Duration(cfg.MagicLink.WindowSeconds) * time.Second
	max := int64(cfg.MagicLink.MaxPerWindow)

	return func(c *fiber.Ctx) error {
		var body struct {
			Email string `json:"email"`
		}
		// body parse failures fall through to the handler's own validation
		_ = c.BodyParser(&body)

		keys := []string{"magiclink:ip:" + c.IP()}
		if email := strings.ToLower(strings.TrimSpace(body.Email)); email != "" {
			keys = append(keys, "magiclink:email:"+email)
		}

		for _, key := range keys {
			count, err := bumpWindow(c, rdb, key, window)
			if err != nil {
				// redis being down must not lock everyone out
				log.Printf("⚠️ Rate limiter unavailable (%s): %v", key, err)
				continue
			}
			if count > max {
				return response.TooManyRequests(c, "Troppe richieste di accesso, riprova più tardi")
			}
		}

		return c.Next()
	}
}

// bumpWindow increments the fixed-window counter, stamping the TTL when the
// key is created by this increment.
func bumpWindow(c *fiber.Ctx, rdb *redis.Client, key string, window time.Duration) (int64, error) {
	ctx := c.Context()

	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if count == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return count, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return count, nil
}
