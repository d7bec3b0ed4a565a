package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/instrctl/internal/catalog"
	"github.com/danmuck/instrctl/internal/protocol"
	"github.com/danmuck/instrctl/internal/protocol/hexcodec"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type contentRequest struct {
	Content *string `json:"content"`
}

type patchRequest struct {
	Content *string `json:"content"`
	Remark  *string `json:"remark"`
}

type frameResponse struct {
	Index          int    `json:"index"`
	CommandCode    string `json:"commandCode"`
	Hex            string `json:"hex"`
	Spaced         string `json:"spaced"`
	Bytes          int    `json:"bytes"`
	LengthMismatch bool   `json:"lengthMismatch"`
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/records", s.handleRecords)

	s.router.GET("/commands", s.handleListCommands)
	s.router.GET("/commands/:index/frame", s.handlePreview)

	ops := s.router.Group("", s.requireOperator)
	ops.PUT("/commands", s.handleReplaceCommands)
	ops.PATCH("/commands/:index", s.handlePatchCommand)
	ops.POST("/commands/:index/send", s.handleSend)
	ops.POST("/catalog/save", s.handleSave)
	ops.POST("/catalog/reset", s.handleReset)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(s.started).String(),
		"service":  s.opts.Node,
		"commands": s.opts.Catalog.Len(),
		"board":    s.opts.Pipeline.Board(),
	})
}

func (s *Server) handleRecords(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"records": s.opts.Journal.Snapshot(),
		"dropped": s.opts.Journal.Dropped(),
	})
}

func (s *Server) handleListCommands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"commands": s.opts.Catalog.List()})
}

func (s *Server) handleReplaceCommands(c *gin.Context) {
	var defs []catalog.Definition
	if err := c.ShouldBindJSON(&defs); err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	if len(defs) == 0 {
		s.abort(c, http.StatusBadRequest, fmt.Errorf("catalog must not be empty"))
		return
	}
	if err := s.opts.Catalog.Replace(defs); err != nil {
		s.abort(c, statusFor(err), err)
		return
	}
	s.respondSaved(c, http.StatusOK)
}

func (s *Server) handlePatchCommand(c *gin.Context) {
	index, ok := s.indexParam(c)
	if !ok {
		return
	}
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	var (
		def catalog.Definition
		err error
	)
	if req.Content != nil {
		if def, err = s.opts.Catalog.SetContent(index, *req.Content); err != nil {
			s.abort(c, statusFor(err), err)
			return
		}
	}
	if req.Remark != nil {
		remark := *req.Remark
		if def, err = s.opts.Catalog.Update(index, func(d *catalog.Definition) { d.Remark = remark }); err != nil {
			s.abort(c, statusFor(err), err)
			return
		}
	}
	if req.Content == nil && req.Remark == nil {
		if def, ok = s.lookup(c, index); ok {
			c.JSON(http.StatusOK, gin.H{"command": def})
		}
		return
	}
	body := gin.H{"command": def}
	s.saveInto(body)
	c.JSON(http.StatusOK, body)
}

func (s *Server) handlePreview(c *gin.Context) {
	def, ok := s.definitionWithOverride(c, queryContent(c))
	if !ok {
		return
	}
	f, err := s.opts.Pipeline.Build(def)
	if err != nil {
		s.abort(c, statusFor(err), err)
		return
	}
	out, err := f.MarshalBinary()
	if err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, newFrameResponse(def, out, len(f.Payload) != int(def.Length)))
}

func (s *Server) handleSend(c *gin.Context) {
	var req contentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	def, ok := s.definitionWithOverride(c, req.Content)
	if !ok {
		return
	}
	res, err := s.opts.Pipeline.Send(c.Request.Context(), def)
	if err != nil {
		s.abort(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, newFrameResponse(def, res.Frame, res.LengthMismatch))
}

func (s *Server) handleSave(c *gin.Context) {
	s.respondSaved(c, http.StatusOK)
}

func (s *Server) handleReset(c *gin.Context) {
	defaults := catalog.Defaults(s.opts.Markers.Head, s.opts.Markers.Tail)
	if err := s.opts.Catalog.Replace(defaults); err != nil {
		s.abort(c, http.StatusInternalServerError, err)
		return
	}
	s.respondSaved(c, http.StatusOK)
}

// respondSaved persists the catalog. A failed save still answers with the
// in-memory catalog, which stays authoritative.
func (s *Server) respondSaved(c *gin.Context, status int) {
	body := gin.H{"commands": s.opts.Catalog.List()}
	s.saveInto(body)
	c.JSON(status, body)
}

// saveInto writes the catalog and records the outcome in body.
func (s *Server) saveInto(body gin.H) {
	saved := true
	if err := catalog.Save(s.opts.Store, s.opts.Catalog, s.opts.Logger); err != nil {
		saved = false
		body["saveError"] = err.Error()
		s.opts.Journal.Report(err.Error())
	}
	body["saved"] = saved
}

func (s *Server) definitionWithOverride(c *gin.Context, content *string) (catalog.Definition, bool) {
	index, ok := s.indexParam(c)
	if !ok {
		return catalog.Definition{}, false
	}
	def, ok := s.lookup(c, index)
	if !ok {
		return catalog.Definition{}, false
	}
	if content != nil {
		override := strings.TrimSpace(*content)
		if override != "" && !def.ContentEditable {
			s.abort(c, http.StatusBadRequest, fmt.Errorf("%w: %s", catalog.ErrContentDisabled, def.CommandCode))
			return catalog.Definition{}, false
		}
		def.Content = override
	}
	return def, true
}

func (s *Server) lookup(c *gin.Context, index int) (catalog.Definition, bool) {
	def, ok := s.opts.Catalog.Get(index)
	if !ok {
		s.abort(c, http.StatusNotFound, fmt.Errorf("%w: %d", catalog.ErrUnknownIndex, index))
		return catalog.Definition{}, false
	}
	return def, true
}

func (s *Server) indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		s.abort(c, http.StatusBadRequest, fmt.Errorf("invalid index %q", c.Param("index")))
		return 0, false
	}
	return index, true
}

func (s *Server) abort(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// bindOptionalJSON decodes the body when one is present. An empty body,
// whatever its declared length, leaves obj untouched.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func queryContent(c *gin.Context) *string {
	v, ok := c.GetQuery("content")
	if !ok {
		return nil
	}
	return &v
}

func newFrameResponse(def catalog.Definition, out []byte, mismatch bool) frameResponse {
	return frameResponse{
		Index:          def.Index,
		CommandCode:    def.CommandCode,
		Hex:            hexcodec.Encode(out),
		Spaced:         hexcodec.Spaced(out),
		Bytes:          len(out),
		LengthMismatch: mismatch,
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrUnknownIndex):
		return http.StatusNotFound
	case catalog.IsInvalid(err),
		errors.Is(err, protocol.ErrFormat),
		errors.Is(err, protocol.ErrLengthMismatch):
		return http.StatusBadRequest
	case errors.Is(err, protocol.ErrResolution):
		return http.StatusServiceUnavailable
	case errors.Is(err, protocol.ErrPersistence):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
