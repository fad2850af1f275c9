// Package sdk provides the client-side library for the keystore. It opens
// a local keystore file or, when a daemon address is configured, a remote
// keystore served by keystored.
package sdk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	pkgengine "github.com/celerix-dev/celerix-keystore/pkg/engine"
)

const maxAttempts = 3

// RemoteError is an error reported by the daemon. It unwraps to the
// pkg/engine sentinel for its kind, so errors.Is works across the wire.
type RemoteError struct {
	Status  int
	Kind    pkgengine.Kind
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("keystored: %s (HTTP %d)", e.Message, e.Status)
}

func (e *RemoteError) Unwrap() error {
	return pkgengine.ErrorOf(e.Kind)
}

// Client is a Keystore backed by a keystored daemon. Like the file store it
// keeps a local copy: Set and Delete change the copy and Write uploads the
// whole map.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger

	mu     sync.Mutex // Protects data and loaded
	data   map[string]string
	loaded bool
}

// Connect returns a client for the daemon at baseURL after checking that it
// answers its health endpoint. token may be empty when the daemon does not
// require one.
func Connect(baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid keystored address %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
		data:    make(map[string]string),
	}
	if err := c.do(http.MethodGet, "/api/health", nil, nil); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.baseURL, err)
	}
	return c, nil
}

// do sends one request, retrying transport failures with backoff. Errors
// reported by the daemon are returned as *RemoteError and never retried.
func (c *Client) do(method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return err
		}
	}

	var err error
	for i := 0; i < maxAttempts; i++ {
		var resp *http.Response
		resp, err = c.send(method, path, body)
		if err == nil {
			return decodeResponse(resp, out)
		}
		c.logger.Warn("keystored request failed", "attempt", i+1, "method", method, "path", path, "error", err)
		time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
	}
	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, err)
}

func (c *Client) send(method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		kind := pkgengine.Kind(apiErr.Kind)
		if kind == pkgengine.KindNone {
			kind = pkgengine.KindUnknown
		}
		return &RemoteError{Status: resp.StatusCode, Kind: kind, Message: apiErr.Error}
	}

	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding keystored response: %w", err)
	}
	return nil
}

// Path returns the daemon address.
func (c *Client) Path() string { return c.baseURL }

// Read fetches every credential from the daemon, replacing the local copy.
func (c *Client) Read() (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, err
	}
	return copyMap(c.data), nil
}

func (c *Client) load() error {
	c.data = make(map[string]string)
	c.loaded = false

	var data map[string]string
	if err := c.do(http.MethodGet, "/api/credentials", nil, &data); err != nil {
		return err
	}
	if data != nil {
		c.data = data
	}
	c.loaded = true
	return nil
}

func (c *Client) ensureLoaded() error {
	if c.loaded {
		return nil
	}
	return c.load()
}

func (c *Client) Get(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return "", err
	}
	val, ok := c.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return val, nil
}

func (c *Client) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.data[key] = value
	return nil
}

func (c *Client) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	if _, ok := c.data[key]; !ok {
		return ErrKeyNotFound
	}
	delete(c.data, key)
	return nil
}

func (c *Client) Keys() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *Client) GetAll() (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	return copyMap(c.data), nil
}

// Write uploads the local copy, replacing the daemon's keystore.
func (c *Client) Write() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	return c.do(http.MethodPut, "/api/credentials", c.data, nil)
}

// IsRemote reports whether err was returned by the daemon rather than the
// transport.
func IsRemote(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote)
}

func copyMap(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// --- Generics Support ---

// GetJSON decodes a credential that holds a JSON document, such as a
// service account file, into T.
func GetJSON[T any](r CredentialReader, key string) (T, error) {
	var target T
	val, err := r.Get(key)
	if err != nil {
		return target, err
	}
	if err := json.Unmarshal([]byte(val), &target); err != nil {
		return target, fmt.Errorf("decoding credential %q: %w", key, err)
	}
	return target, nil
}

// SetJSON stores val as a JSON document under key.
func SetJSON[T any](w CredentialWriter, key string, val T) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encoding credential %q: %w", key, err)
	}
	return w.Set(key, string(data))
}
