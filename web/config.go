package web

import (
	"fmt"
	"time"
)

// Config holds the HTTP listener settings, loaded with the SERVER prefix.
type Config struct {
	Host         string        `default:"0.0.0.0"`
	Port         int           `default:"8080"`
	ReadTimeout  time.Duration `split_words:"true" default:"30s"`
	WriteTimeout time.Duration `split_words:"true" default:"60s"`
	IdleTimeout  time.Duration `split_words:"true" default:"120s"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
