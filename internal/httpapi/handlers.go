package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/adreel/internal/encoder"
	"github.com/mark3labs/adreel/internal/export"
	"github.com/mark3labs/adreel/internal/hooks"
	"github.com/mark3labs/adreel/internal/workflow"
)

const sessionKey = "session"

// loadSession resolves :id or aborts with 404.
func (s *Server) loadSession(c *gin.Context) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found or expired"})
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

func current(c *gin.Context) *session {
	return c.MustGet(sessionKey).(*session)
}

func (s *Server) respondState(c *gin.Context, status int, sess *session) {
	c.JSON(status, newStateResponse(sess.id, sess.machine.Snapshot()))
}

func (s *Server) createSession(c *gin.Context) {
	sess := s.sessions.Create()
	s.respondState(c, http.StatusCreated, sess)
}

func (s *Server) getState(c *gin.Context) {
	s.respondState(c, http.StatusOK, current(c))
}

func (s *Server) deleteSession(c *gin.Context) {
	s.sessions.Delete(current(c).id)
	c.Status(http.StatusNoContent)
}

// readUpload reads the "image" form file into an in-memory source.
func (s *Server) readUpload(c *gin.Context) (encoder.Source, bool) {
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'image' is required"})
		return nil, false
	}
	if header.Size > s.opts.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("image exceeds %d bytes", s.opts.MaxUploadBytes)})
		return nil, false
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.opts.MaxUploadBytes+1))
	switch {
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return nil, false
	case len(data) == 0:
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is empty"})
		return nil, false
	case int64(len(data)) > s.opts.MaxUploadBytes:
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("image exceeds %d bytes", s.opts.MaxUploadBytes)})
		return nil, false
	}
	return encoder.NewBytesSource(header.Filename, data), true
}

func (s *Server) setProduct(c *gin.Context) {
	sess := current(c)
	src, ok := s.readUpload(c)
	if !ok {
		return
	}
	if err := sess.machine.SetProductImage(src); err != nil {
		s.transitionError(c, sess, err)
		return
	}
	s.respondState(c, http.StatusOK, sess)
}

func (s *Server) clearProduct(c *gin.Context) {
	sess := current(c)
	if err := sess.machine.SetProductImage(nil); err != nil {
		s.transitionError(c, sess, err)
		return
	}
	s.respondState(c, http.StatusOK, sess)
}

func (s *Server) generateScript(c *gin.Context) {
	sess := current(c)
	if err := sess.machine.GenerateScriptAndAdvance(c.Request.Context()); err != nil {
		s.transitionError(c, sess, err)
		return
	}
	s.respondState(c, http.StatusOK, sess)
}

func (s *Server) generatePrompts(c *gin.Context) {
	sess := current(c)
	if err := sess.machine.GenerateAnimationPromptsAndAdvance(c.Request.Context()); err != nil {
		s.transitionError(c, sess, err)
		return
	}
	s.respondState(c, http.StatusOK, sess)
}

// moveResponse reports whether a navigation changed the step.
type moveResponse struct {
	Moved bool          `json:"moved"`
	State stateResponse `json:"state"`
}

func (s *Server) respondMove(c *gin.Context, sess *session, moved bool) {
	c.JSON(http.StatusOK, moveResponse{Moved: moved, State: newStateResponse(sess.id, sess.machine.Snapshot())})
}

func (s *Server) forward(c *gin.Context) {
	sess := current(c)
	s.respondMove(c, sess, sess.machine.Forward())
}

func (s *Server) back(c *gin.Context) {
	sess := current(c)
	s.respondMove(c, sess, sess.machine.Back())
}

type navigateRequest struct {
	Step int `json:"step" binding:"required,min=1,max=4"`
}

func (s *Server) navigate(c *gin.Context) {
	sess := current(c)
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "step must be between 1 and 4"})
		return
	}
	s.respondMove(c, sess, sess.machine.NavigateTo(workflow.Step(req.Step)))
}

func shotIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shot index must be an integer"})
		return 0, false
	}
	return index, true
}

func (s *Server) setShotImage(c *gin.Context) {
	sess := current(c)
	index, ok := shotIndex(c)
	if !ok {
		return
	}
	src, ok := s.readUpload(c)
	if !ok {
		return
	}
	if err := sess.machine.SetUserImage(index, src); err != nil {
		s.transitionError(c, sess, err)
		return
	}
	s.respondState(c, http.StatusOK, sess)
}

func (s *Server) clearShotImage(c *gin.Context) {
	sess := current(c)
	index, ok := shotIndex(c)
	if !ok {
		return
	}
	if err := sess.machine.SetUserImage(index, nil); err != nil {
		s.transitionError(c, sess, err)
		return
	}
	s.respondState(c, http.StatusOK, sess)
}

func (s *Server) reset(c *gin.Context) {
	sess := current(c)
	sess.machine.ResetAll()
	s.respondState(c, http.StatusOK, sess)
}

type exportRequest struct {
	Title  string `json:"title"`
	Format string `json:"format"`
}

type exportResponse struct {
	Path       string `json:"path"`
	Title      string `json:"title"`
	Format     string `json:"format"`
	HookOutput string `json:"hook_output,omitempty"`
}

func (s *Server) exportConcept(c *gin.Context) {
	sess := current(c)

	var req exportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid export request"})
			return
		}
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	concept, err := export.FromSnapshot(req.Title, sess.machine.Snapshot(), s.opts.Now())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	path, err := export.Save(s.opts.ExportDir, concept, format)
	if err != nil {
		s.log.Error("saving concept for session %s: %v", sess.id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save concept"})
		return
	}

	out, err := hooks.RunPostExport(context.WithoutCancel(c.Request.Context()), s.opts.WorkDir, hooks.Variables{
		File:    path,
		Format:  string(format),
		Session: sess.id,
	})
	if err != nil {
		s.log.Warn("post-export hook for session %s: %v", sess.id, err)
	}

	c.JSON(http.StatusCreated, exportResponse{Path: path, Title: concept.Title, Format: string(format), HookOutput: out})
}

// transitionError maps Machine errors to HTTP statuses. The body always
// carries the current state so clients can render the error banner.
func (s *Server) transitionError(c *gin.Context, sess *session, err error) {
	state := newStateResponse(sess.id, sess.machine.Snapshot())

	var validation *workflow.ValidationError
	var index *workflow.IndexError
	status := http.StatusBadGateway
	message := state.Error
	switch {
	case errors.As(err, &validation):
		status, message = http.StatusUnprocessableEntity, validation.Message
	case errors.As(err, &index):
		status, message = http.StatusNotFound, index.Error()
	case errors.Is(err, workflow.ErrBusy), errors.Is(err, workflow.ErrWrongStep):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, workflow.ErrStale):
		status, message = http.StatusConflict, "the session was reset while generating"
	case errors.Is(err, context.Canceled):
		status, message = http.StatusServiceUnavailable, "request cancelled"
	}
	if message == "" {
		message = err.Error()
	}

	c.JSON(status, gin.H{"error": message, "state": state})
}
