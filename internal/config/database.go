// internal/config/database.go
package config

import (
	"fmt"
	"net"
)

// DSN returns DATABASE_URL when set, otherwise a keyword/value connection
// string built from the discrete settings.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

func (d DatabaseConfig) InMemory() bool {
	return d.Driver == "memory"
}

func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}
