package stub

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"cardchat/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// Server is the stub backend HTTP server
type Server struct {
	h      *server.Hertz
	addr   string
	script *Script
}

// NewServer creates a stub server on addr. A nil script always answers with
// the canned consultation.
func NewServer(addr string, script *Script) *Server {
	h := server.New(
		server.WithHostPorts(addr),
		server.WithExitWaitTime(time.Second),
	)
	s := &Server{h: h, addr: addr, script: script}
	s.register()
	return s
}

func (s *Server) register() {
	s.h.Use(recovery(), requestLogger())
	s.h.GET("/ping", s.ping)
	s.h.POST("/process_input", s.processInput)
}

// Run blocks serving requests until Shutdown
func (s *Server) Run() error {
	logger.Info("stub backend listening", "addr", s.addr, "scripted", s.script != nil)
	return s.h.Run()
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.h.Shutdown(ctx)
}

func (s *Server) ping(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"message": "pong"})
}

func (s *Server) processInput(ctx context.Context, c *app.RequestContext) {
	var req ProcessRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{
			"error": fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	resp := s.script.Respond(req.Input)
	logger.Debug("stub replied",
		"request_id", requestID(c),
		"difficulty", resp.State.DifficultyLevel,
		"items", len(resp.Messages),
	)
	c.JSON(consts.StatusOK, resp)
}

// requestID returns the id set by requestLogger
func requestID(c *app.RequestContext) string {
	return string(c.Response.Header.Peek(requestIDHeader))
}

// requestLogger echoes or assigns X-Request-ID and logs every request
func requestLogger() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()

		id := string(c.Request.Header.Peek(requestIDHeader))
		if id == "" {
			id = uuid.New().String()
		}
		c.Response.Header.Set(requestIDHeader, id)

		c.Next(ctx)

		status := c.Response.StatusCode()
		args := []any{
			"request_id", id,
			"method", string(c.Method()),
			"path", string(c.Path()),
			"status", status,
			"latency", time.Since(start).String(),
		}
		switch {
		case status >= 500:
			logger.Error("request completed with server error", args...)
		case status >= 400:
			logger.Warn("request completed with client error", args...)
		default:
			logger.Info("request completed", args...)
		}
	}
}

func recovery() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					"request_id", requestID(c),
					"panic", fmt.Sprintf("%v", err),
					"stack", string(debug.Stack()),
				)
				c.JSON(consts.StatusInternalServerError, utils.H{"error": "internal server error"})
				c.Abort()
			}
		}()
		c.Next(ctx)
	}
}
