// Package api exposes a keystore over HTTP with gin.
package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/celerix-dev/celerix-keystore/pkg/engine"
	"github.com/celerix-dev/celerix-keystore/pkg/sdk"
	"github.com/gin-gonic/gin"
)

// Kinds reported for request problems that never reach the store.
const (
	KindBadRequest   engine.Kind = "BadRequest"
	KindUnauthorized engine.Kind = "Unauthorized"
)

// Handler serves one keystore. Every mutation is persisted before the
// response is sent.
type Handler struct {
	Store sdk.Keystore
	// Token, when set, must be presented as "Authorization: Bearer <token>".
	Token string
	// Logger receives failures that do not reach the client. Defaults to
	// slog.Default().
	Logger *slog.Logger

	mu sync.Mutex // Serializes access to Store
}

// Register mounts the API under /api.
func (h *Handler) Register(r gin.IRouter) {
	apiGroup := r.Group("/api")
	apiGroup.GET("/health", h.Health)

	creds := apiGroup.Group("/credentials", h.RequireToken)
	{
		creds.GET("", h.GetAll)
		creds.PUT("", h.ReplaceAll)
		creds.GET("/keys", h.Keys)
		creds.GET("/:key", h.Get)
		creds.PUT("/:key", h.Set)
		creds.DELETE("/:key", h.Delete)
	}
	apiGroup.POST("/reload", h.RequireToken, h.Reload)
}

// StatusFor maps an error kind to the HTTP status returned for it.
func StatusFor(kind engine.Kind) int {
	switch kind {
	case engine.KindNotFound:
		return http.StatusNotFound
	case engine.KindMissingPassword, engine.KindAuthentication, engine.KindConflict:
		return http.StatusConflict
	case engine.KindDecode, engine.KindValidation:
		return http.StatusUnprocessableEntity
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func abortWithKind(c *gin.Context, kind engine.Kind, msg string) {
	c.AbortWithStatusJSON(StatusFor(kind), gin.H{"error": msg, "kind": kind})
}

func abortWithError(c *gin.Context, err error) {
	abortWithKind(c, engine.KindOf(err), err.Error())
}

// RequireToken rejects requests without the configured bearer token.
func (h *Handler) RequireToken(c *gin.Context) {
	if h.Token == "" {
		c.Next()
		return
	}
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.Token)) != 1 {
		abortWithKind(c, KindUnauthorized, "missing or invalid bearer token")
		return
	}
	c.Next()
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "path": h.Store.Path()})
}

func (h *Handler) GetAll(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := h.Store.GetAll()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) Keys(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	keys, err := h.Store.Keys()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, keys)
}

func (h *Handler) Get(c *gin.Context) {
	key := c.Param("key")

	h.mu.Lock()
	defer h.mu.Unlock()

	val, err := h.Store.Get(key)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": val})
}

func (h *Handler) Set(c *gin.Context) {
	key := c.Param("key")

	var input struct {
		Value *string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithKind(c, KindBadRequest, err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Set(key, *input.Value); err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.persist(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) Delete(c *gin.Context) {
	key := c.Param("key")

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Delete(key); err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.persist(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// ReplaceAll makes the keystore hold exactly the posted map.
func (h *Handler) ReplaceAll(c *gin.Context) {
	var data map[string]string
	if err := c.ShouldBindJSON(&data); err != nil {
		abortWithKind(c, KindBadRequest, err.Error())
		return
	}
	if data == nil {
		abortWithKind(c, KindBadRequest, "request body must be a JSON object of credentials")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	keys, err := h.Store.Keys()
	if err != nil {
		abortWithError(c, err)
		return
	}
	for _, k := range keys {
		if _, keep := data[k]; keep {
			continue
		}
		if err := h.Store.Delete(k); err != nil {
			abortWithError(c, err)
			return
		}
	}
	for k, v := range data {
		if err := h.Store.Set(k, v); err != nil {
			abortWithError(c, err)
			return
		}
	}
	if err := h.persist(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "entries": len(data)})
}

// Reload rereads the keystore from its backing store, picking up changes
// made by other processes.
func (h *Handler) Reload(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := h.Store.Read()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "entries": len(data)})
}

// persist writes the store. On failure the in-memory changes are dropped by
// rereading, so memory never runs ahead of the file.
func (h *Handler) persist() error {
	err := h.Store.Write()
	if err == nil {
		return nil
	}
	if _, readErr := h.Store.Read(); readErr != nil {
		h.logger().Error("keystore left unloaded after failed write",
			"path", h.Store.Path(),
			"write_error", err,
			"reload_error", readErr,
		)
	}
	return err
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
