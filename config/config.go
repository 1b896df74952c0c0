// Package config holds the build-time settings of the file server.
// Nothing here is read from files, flags or the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
)

const (
	// Port is the TCP port the file server listens on, on all interfaces.
	Port = 8080

	// MetricsAddr is where the Prometheus handler is exposed. Loopback only.
	MetricsAddr = "127.0.0.1:9180"
)

// ErrInvalid is returned by Validate when the configuration can't be used
// to start a server.
var ErrInvalid = errors.New("invalid configuration")

var validate = validator.New()

// Header is a response header that is set on every response.
type Header struct {
	Name  string `validate:"required"`
	Value string `validate:"required"`
}

// Config contains everything the server needs to start.
type Config struct {
	// Host is empty for all interfaces.
	Host string

	Port int `validate:"min=1,max=65535"`

	// Root is the absolute path of the directory being served.
	Root string `validate:"required,dir"`

	MetricsAddr string `validate:"required,hostname_port"`

	Headers []Header `validate:"required,min=1,dive"`
}

func fixedHeaders() []Header {
	return []Header{
		{Name: "Access-Control-Allow-Origin", Value: "*"},
		{Name: "Access-Control-Allow-Methods", Value: "GET, POST, OPTIONS"},
		{Name: "Access-Control-Allow-Headers", Value: "Content-Type"},
		{Name: "Cache-Control", Value: "no-cache, no-store, must-revalidate"},
	}
}

// Default returns the configuration serving root.
func Default(root string) *Config {
	return &Config{
		Port:        Port,
		Root:        root,
		MetricsAddr: MetricsAddr,
		Headers:     fixedHeaders(),
	}
}

// New returns the default configuration rooted at the directory of the
// running executable.
func New() (*Config, error) {
	root, err := ExecutableDir()
	if err != nil {
		return nil, err
	}
	return Default(root), nil
}

// ExecutableDir returns the directory containing the running binary with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve executable %q: %w", exe, err)
	}
	return filepath.Dir(exe), nil
}

// Validate checks c before anything is bound.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !filepath.IsAbs(c.Root) {
		return fmt.Errorf("%w: root %q is not an absolute path", ErrInvalid, c.Root)
	}
	return nil
}

// Addr is the listen address of the file server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// URL is the address printed for humans on startup.
func (c *Config) URL() string {
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

// HeaderMap returns the fixed headers in canonical form.
func (c *Config) HeaderMap() http.Header {
	h := make(http.Header, len(c.Headers))
	for _, header := range c.Headers {
		h.Set(header.Name, header.Value)
	}
	return h
}
