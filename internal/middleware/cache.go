package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/club-table-reservation/internal/config"
)

// captureWriter tees the response body into buf, up to limit bytes, while
// forwarding everything to the client.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.truncated {
		if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
			cw.truncated = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// cachedResponse is the value stored in Redis.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// CatalogCache caches GET responses of the table catalog in Redis and
// drops every entry when a table is written.
type CatalogCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

// NewCatalogCache returns a cache; a nil client or a disabled config turns
// both middlewares into pass-throughs.
func NewCatalogCache(cfg config.CacheConfig, rdb *redis.Client) *CatalogCache {
	return &CatalogCache{cfg: cfg, rdb: rdb}
}

func (cc *CatalogCache) enabled() bool { return cc != nil && cc.cfg.Enabled && cc.rdb != nil }

func (cc *CatalogCache) namespace() string { return cc.cfg.Prefix + ":tables:" }

// key hashes the route pattern, its parameters and, when configured, the
// query string.
func (cc *CatalogCache) key(c echo.Context) string {
	h := sha1.New()
	fmt.Fprint(h, c.Path())
	for i, name := range c.ParamNames() {
		fmt.Fprintf(h, "|%s=%s", name, c.ParamValues()[i])
	}
	if cc.cfg.VaryByQuery {
		fmt.Fprintf(h, "?%s", c.QueryString())
	}
	return fmt.Sprintf("%s%x", cc.namespace(), h.Sum(nil))
}

// Read serves GET requests from the cache and stores 200 responses.
func (cc *CatalogCache) Read() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !cc.enabled() {
			return next
		}
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cc.key(c)

			if raw, err := cc.rdb.Get(ctx, key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(raw, &hit) == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(hit.Status, hit.ContentType, hit.Body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cc.cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated {
				return nil
			}
			payload, err := json.Marshal(cachedResponse{
				Status:      cw.status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        cw.buf.Bytes(),
			})
			if err != nil {
				return nil
			}
			if err := cc.rdb.Set(context.Background(), key, payload, cc.cfg.TTL).Err(); err != nil {
				log.Printf("cache: store %s failed: %v", key, err)
			}
			return nil
		}
	}
}

// Purge drops cached catalog entries after a successful write.
func (cc *CatalogCache) Purge() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !cc.enabled() {
			return next
		}
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if c.Response().Status < 300 {
				cc.purge()
			}
			return nil
		}
	}
}

func (cc *CatalogCache) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	iter := cc.rdb.Scan(ctx, 0, cc.namespace()+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("cache: scan failed: %v", err)
		return
	}
	if len(keys) > 0 {
		if err := cc.rdb.Del(ctx, keys...).Err(); err != nil {
			log.Printf("cache: purge failed: %v", err)
		}
	}
}
