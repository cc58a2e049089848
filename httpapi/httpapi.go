// Package httpapi serves content listings over HTTP with gin.
//
// Every successful response is a JSON object with a "result" member
// ({"status": "success"}) next to the payload; failures carry
// {"status": "danger", "message": ...} and an HTTP status derived from the
// error kind.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	contentfs "github.com/jackfish212/contentfs"
	"github.com/jackfish212/contentfs/acl"
	"github.com/jackfish212/contentfs/lister"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderUserID    = "X-User-ID"
)

// Server wires a ContentLister and its disk table to HTTP routes.
type Server struct {
	lister *lister.ContentLister
	disks  *contentfs.DiskTable
	engine *gin.Engine
}

// New builds the router. gin runs in release mode; access lines go to slog.
func New(l *lister.ContentLister, disks *contentfs.DiskTable) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{lister: l, disks: disks, engine: gin.New()}
	s.engine.Use(gin.Recovery(), requestID(), accessLog(), userContext())

	s.engine.GET("/health", s.health)
	s.engine.GET("/disks", s.listDisks)
	s.engine.GET("/content", s.content)
	s.engine.GET("/directories", s.directories)
	s.engine.GET("/files", s.files)
	s.engine.GET("/tree", s.tree)
	props := s.engine.Group("/properties")
	props.GET("/file", s.fileProperties)
	props.GET("/directory", s.directoryProperties)
	return s
}

// Handler returns the http.Handler serving all routes.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	slog.Info("http: listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("http: stopped")
	return nil
}

// ─── Middleware ───

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"id", c.GetString(HeaderRequestID),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// userContext copies the caller's user id into the request context, where
// ACL rules look it up.
func userContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := c.GetHeader(HeaderUserID); user != "" {
			c.Request = c.Request.WithContext(acl.WithUser(c.Request.Context(), user))
		}
		c.Next()
	}
}

// ─── Handlers ───

type listQuery struct {
	Disk   string `form:"disk" binding:"required"`
	Path   string `form:"path"`
	Search string `form:"search"`
}

func bindQuery(c *gin.Context) (listQuery, bool) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, failure("disk is required"))
		return q, false
	}
	q.Path = contentfs.CleanPath(q.Path)
	return q, true
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, success(gin.H{"version": contentfs.GetVersionInfo()}))
}

func (s *Server) listDisks(c *gin.Context) {
	c.JSON(http.StatusOK, success(gin.H{
		"disks": s.disks.AllInfo(),
		"acl":   s.lister.ACLEnabled(),
	}))
}

func (s *Server) content(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	listing, err := s.lister.Content(c.Request.Context(), q.Disk, q.Path, q.Search)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, success(gin.H{
		"directories": listing.Directories,
		"files":       listing.Files,
	}))
}

func (s *Server) directories(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	dirs, err := s.lister.DirectoriesWithProperties(c.Request.Context(), q.Disk, q.Path, q.Search)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, success(gin.H{"directories": dirs}))
}

func (s *Server) files(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	files, err := s.lister.FilesWithProperties(c.Request.Context(), q.Disk, q.Path)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, success(gin.H{"files": files}))
}

func (s *Server) tree(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	dirs, err := s.lister.DirectoryTree(c.Request.Context(), q.Disk, q.Path, q.Search)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, success(gin.H{"directories": dirs}))
}

func (s *Server) fileProperties(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	e, err := s.lister.FileProperties(c.Request.Context(), q.Disk, q.Path)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, success(gin.H{"properties": e}))
}

func (s *Server) directoryProperties(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	e, err := s.lister.DirectoryProperties(c.Request.Context(), q.Disk, q.Path)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, success(gin.H{"properties": e}))
}

// ─── Responses ───

func success(body gin.H) gin.H {
	body["result"] = gin.H{"status": "success"}
	return body
}

func failure(msg string) gin.H {
	return gin.H{"result": gin.H{"status": "danger", "message": msg}}
}

// StatusFor maps an error from the lister to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, contentfs.ErrUnknownDisk):
		return http.StatusBadRequest
	case errors.Is(err, contentfs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contentfs.ErrNotDir):
		return http.StatusBadRequest
	case errors.Is(err, contentfs.ErrAccessDenied):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func abort(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("http: backend failure", "id", c.GetString(HeaderRequestID), "error", err)
	}
	c.AbortWithStatusJSON(status, failure(err.Error()))
}
