package ratelimit

// MatchEndpoint returns the configuration registered for a route pattern,
// or nil when the route uses the default limit.
func MatchEndpoint(pattern string, configs []EndpointConfig) *EndpointConfig {
	for i := range configs {
		if configs[i].Pattern == pattern {
			return &configs[i]
		}
	}
	return nil
}
