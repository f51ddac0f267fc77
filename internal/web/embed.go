// Package web serves the embedded upload page so the binary is
// self-contained.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/*
var staticFiles embed.FS

// RegisterRoutes serves the upload page at / and the remaining assets under
// /static. API routes should be registered first.
func RegisterRoutes(router *gin.Engine) error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return err
	}

	index, err := fs.ReadFile(staticFS, "index.html")
	if err != nil {
		return err
	}

	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	})
	router.StaticFS("/static", http.FS(staticFS))

	return nil
}
