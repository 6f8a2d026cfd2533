// Package server exposes Logseq operations as MCP tools over stdio. Every
// tool call passes through a middleware that reports it to the logging
// pipeline exactly once.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/auditmos/logseq-mcp/logging"
	"github.com/auditmos/logseq-mcp/logseq"
	"github.com/auditmos/logseq-mcp/pipeline"
	"github.com/auditmos/logseq-mcp/privacy"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/oklog/ulid/v2"
)

const Name = "logseq-mcp-server"

// LogseqAPI is the part of the Logseq client the tools use.
type LogseqAPI interface {
	CreateBlock(ctx context.Context, in logseq.BlockInput) (map[string]any, error)
	UpdateBlock(ctx context.Context, uuid, content string, properties map[string]any) (map[string]any, error)
	DeleteBlock(ctx context.Context, uuid string) error
	GetBlock(ctx context.Context, uuid string, includeChildren bool) (map[string]any, error)
	CreatePage(ctx context.Context, name, content string, properties map[string]any) (map[string]any, error)
	GetPage(ctx context.Context, name string) (map[string]any, error)
	GetPageBlocks(ctx context.Context, name string) ([]any, error)
	GetAllPages(ctx context.Context) ([]any, error)
	SearchPages(ctx context.Context, query string, limit int) ([]any, error)
	ExecuteQuery(ctx context.Context, query string, inputs []string) ([]any, error)
}

// ToolLogger receives one Invocation per finished tool call.
type ToolLogger interface {
	LogToolCall(inv pipeline.Invocation)
}

type Options struct {
	Version string
	Diag    logging.Logger
	Now     func() time.Time
}

type Server struct {
	api      LogseqAPI
	logger   ToolLogger
	diag     logging.Logger
	now      func() time.Time
	mcp      *server.MCPServer
	handlers map[string]server.ToolHandlerFunc
}

// toolFunc is a tool body: parsed arguments in, structured result out.
type toolFunc func(ctx context.Context, args arguments) (any, error)

type tool struct {
	def   mcp.Tool
	fn    toolFunc
	hints privacy.Hints
}

func New(api LogseqAPI, logger ToolLogger, opts Options) *Server {
	s := &Server{
		api:      api,
		logger:   logger,
		diag:     opts.Diag,
		now:      opts.Now,
		handlers: make(map[string]server.ToolHandlerFunc),
	}
	if s.diag == nil {
		s.diag = logging.NopLogger{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s.mcp = server.NewMCPServer(Name, version, server.WithToolCapabilities(true))
	for _, t := range s.tools() {
		h := s.withLogging(t.hints, s.adapt(t.fn))
		s.handlers[t.def.Name] = h
		s.mcp.AddTool(t.def, h)
	}
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ToolNames lists the registered tools in name order.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.handlers))
	for n := range s.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CallTool runs a tool through the same handler chain the protocol uses.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	h, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return h(ctx, req)
}

// ServeStdio speaks MCP on in/out until ctx is cancelled or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.diag.WithFields(logging.Fields{"tools": len(s.handlers)}).Info("server", "start", "Serving MCP over stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

type callRecord struct {
	result any
	err    error
	set    bool
}

type recordKey struct{}

// adapt turns a toolFunc into an MCP handler. Tool failures become error
// results rather than protocol errors, and the structured outcome is left in
// the call record for withLogging.
func (s *Server) adapt(fn toolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := fn(ctx, arguments(req.GetArguments()))
		if rec, ok := ctx.Value(recordKey{}).(*callRecord); ok {
			rec.result, rec.err, rec.set = result, err, true
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// withLogging measures the call and hands it to the ToolLogger after the
// handler returns, including when it fails or panics.
func (s *Server) withLogging(hints privacy.Hints, next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
		rec := &callRecord{}
		ctx = context.WithValue(ctx, recordKey{}, rec)
		start := s.now()
		traceID := ulid.Make().String()

		defer func() {
			inv := pipeline.Invocation{
				ToolName:  req.Params.Name,
				Arguments: req.GetArguments(),
				Duration:  s.now().Sub(start),
				Hints:     hints,
			}

			if r := recover(); r != nil {
				perr := &logging.PanicError{Value: r}
				s.diag.WithTraceID(traceID).WithError(perr).Error("server", "call", "Tool handler panicked")
				res, err = mcp.NewToolResultError("internal error"), nil
				inv.Err = perr
			} else {
				switch {
				case err != nil:
					inv.Err = err
				case rec.set:
					inv.Result, inv.Err = rec.result, rec.err
				case res != nil && res.IsError:
					inv.Err = fmt.Errorf("%s", resultText(res))
				}
			}

			if s.logger != nil {
				s.logger.LogToolCall(inv)
			}
			s.diag.WithTraceID(traceID).WithFields(logging.Fields{
				"tool":        inv.ToolName,
				"duration_ms": inv.Duration.Milliseconds(),
				"failed":      inv.Err != nil,
			}).Debug("server", "call", "Tool call finished")
		}()

		return next(ctx, req)
	}
}

func resultText(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if t, ok := c.(mcp.TextContent); ok {
			return t.Text
		}
	}
	return ""
}
