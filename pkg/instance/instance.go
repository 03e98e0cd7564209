package instance

import "github.com/janiele376/projeto-pet-shop-fullstack/pkg/env"

// ID names the running process for log correlation. INSTANCE_ID wins over the
// container hostname; outside a container it falls back to "<service>-local".
func ID(service string) string {
	if id := env.Get("INSTANCE_ID", ""); id != "" {
		return id
	}
	if host := env.Get("HOSTNAME", ""); host != "" {
		return host
	}
	return service + "-local"
}
