// Package internal provides utility functionality shared by the taskmcp servers.
package internal

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode"
)

const (
	apiKeyLength    = 32
	minAPIKeyLength = 8

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// GenerateAPIKey generates a 256-bit secure random API key for the adapter's HTTP surfaces.
func GenerateAPIKey() (string, error) {
	b := make([]byte, apiKeyLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b), nil
}

// ValidateAPIKey checks if a user-provided API key is acceptable.
// It doesn't impose many conditions to allow flexibility.
func ValidateAPIKey(key string) error {
	if len(key) < minAPIKeyLength {
		return fmt.Errorf("api key should be at least %d characters in length", minAPIKeyLength)
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return errors.New("api key should not contain whitespace characters")
	}
	return nil
}

// APIKeyMatches compares a presented key with the configured one in constant time.
func APIKeyMatches(presented, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

// ServeHTTP serves h on ln until ctx is cancelled, then shuts the server down gracefully.
// onShutdown, if set, runs after the HTTP server stopped accepting requests.
func ServeHTTP(ctx context.Context, ln net.Listener, h http.Handler, onShutdown func()) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: readHeaderTimeout}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if onShutdown != nil {
			onShutdown()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to run the server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if onShutdown != nil {
			onShutdown()
		}
		if err != nil {
			return fmt.Errorf("failed to shut down the server: %w", err)
		}
		return nil
	}
}
