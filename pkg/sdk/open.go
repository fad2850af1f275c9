package sdk

import (
	"log/slog"
	"os"

	"github.com/celerix-dev/celerix-keystore/internal/config"
	"github.com/celerix-dev/celerix-keystore/internal/engine"
)

// Open returns the keystore for this process. It returns the interface, so
// callers don't care whether it is local or remote.
//
// When KEYSTORE_ADDR is set the daemon at that address is used, with
// KEYSTORE_TOKEN as its bearer token. Otherwise, or when the daemon cannot be
// reached, the file named by path (or KEYSTORE_PATH, or ./.keystore.json) is
// opened with password (or KEYSTORE_PASSWORD).
func Open(path, password string) (Keystore, error) {
	if addr := os.Getenv(config.EnvAddr); addr != "" {
		client, err := Connect(addr, os.Getenv(config.EnvToken))
		if err == nil {
			return client, nil
		}
		slog.Warn("keystored unreachable, using local keystore", "addr", addr, "error", err)
	}

	return engine.NewFileStore(
		config.ResolvePath(path),
		config.ResolvePassword(password),
		engine.WithLogger(slog.Default()),
	), nil
}
