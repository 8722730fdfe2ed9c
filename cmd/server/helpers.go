package main

import (
	"strings"
	"time"
)

const shutdownTimeout = 5 * time.Second

// listenAddr turns a port (or host:port) into a listen address, defaulting to :8080.
func listenAddr(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ":8080"
	}
	if strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}
