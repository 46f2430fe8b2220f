package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tilemirror/tilemirror/internal/provider"
	"github.com/tilemirror/tilemirror/internal/resolver"
)

type Handlers struct {
	Registry *provider.Registry
	Resolver *resolver.Resolver
}

type sourceInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxZoom     int    `json:"maxZoom"`
}

func (h *Handlers) Tile(c *gin.Context) {
	res, err := h.Resolver.Resolve(c.Request.Context(), resolver.Request{
		Source: c.Query("source"),
		Z:      c.Query("z"),
		X:      c.Query("x"),
		Y:      c.Query("y"),
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, resolver.ErrBadRequest):
			status = http.StatusBadRequest
		case errors.Is(err, resolver.ErrNotFound):
			status = http.StatusNotFound
		}
		c.String(status, err.Error())
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Header("Content-Disposition", "inline")
	c.Header("X-Cache", res.CacheStatus)
	c.Data(http.StatusOK, res.Format.ContentType(), res.Body)
}

func (h *Handlers) Sources(c *gin.Context) {
	providers := h.Registry.List()
	out := make(map[string]sourceInfo, len(providers))
	for _, p := range providers {
		out[p.ID] = sourceInfo{
			Name:        p.Name,
			Description: p.Description,
			MaxZoom:     p.MaxZoom,
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"sources": h.Registry.IDs(),
	})
}
