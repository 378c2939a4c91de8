package rediskey

import "fmt"

// Key namespaces shared across processes. Both binaries talk to the same
// Redis, so key construction lives here rather than inline at call sites.
const (
	RateLimitPrefix = "ratelimit"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildRateLimitKey returns "ratelimit:{name}".
func BuildRateLimitKey(name string) string {
	return NamespaceKey(RateLimitPrefix, name)
}
