// Package server exposes the ephemeris engine as MCP tools over a
// stdio JSON-RPC transport, so any MCP-compatible client can query
// spacecraft positions without an LLM in the loop.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/huangzesen/heliospice/internal/ephem"
	"github.com/huangzesen/heliospice/internal/kernel"
	"github.com/huangzesen/heliospice/internal/version"
)

const serverName = "spice-ephemeris"

const serverInstructions = "SPICE ephemeris server for spacecraft position and trajectory queries. " +
	"Supports heliophysics missions (PSP, Solar Orbiter, STEREO-A/B, Helios 1/2, Ulysses, THEMIS A-E) " +
	"and planetary/deep-space missions (Cassini, Juno, Voyager 1/2, MAVEN, New Horizons, Galileo, " +
	"Pioneer 10/11, MESSENGER, Dawn, Lucy, Europa Clipper, Psyche, JUICE, BepiColombo, MRO, Mars 2020). " +
	"ACE, Wind, and DSCOVR have NAIF IDs but no SPK kernels. Kernels are auto-downloaded from NAIF on " +
	"first use. Use list_coordinate_frames to see available coordinate frames before querying — frame " +
	"is a required parameter. Use get_spacecraft_ephemeris for position/velocity at a single time or as " +
	"a timeseries, compute_distance for distances between bodies, and transform_coordinates for frame " +
	"transforms."

// maxLineBytes bounds a single JSON-RPC message. Trajectory requests
// are small; this is generous headroom for batched arguments.
const maxLineBytes = 16 * 1024 * 1024

// Server is an MCP server bound to one reader/writer pair.
type Server struct {
	svc *ephem.Service
	km  *kernel.Manager
	log *zap.SugaredLogger

	in  io.Reader
	out io.Writer

	mu sync.Mutex // serializes writes to out
}

// New creates an MCP server. Pass os.Stdin and os.Stdout for the
// standard stdio transport.
func New(svc *ephem.Service, km *kernel.Manager, log *zap.SugaredLogger, in io.Reader, out io.Writer) *Server {
	return &Server{svc: svc, km: km, log: log, in: in, out: out}
}

// Run reads newline-delimited JSON-RPC requests until EOF or context
// cancellation. Tool calls run sequentially; the kernel manager's lock
// already serializes toolkit access, so concurrency buys nothing here.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeError(nil, codeParseError, fmt.Sprintf("parse request: %v", err))
			continue
		}
		s.dispatch(ctx, &req)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read transport: %w", err)
	}
	return nil
}

func (s *Server) dispatch(ctx context.Context, req *request) {
	s.log.Debugf("request: %s", req.Method)

	switch req.Method {
	case "initialize":
		s.writeResult(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    capabilities{Tools: toolCapabilities{ListChanged: false}},
			ServerInfo:      serverInfo{Name: serverName, Version: version.Version},
			Instructions:    serverInstructions,
		})

	case "notifications/initialized", "notifications/cancelled":
		// Notifications need no reply.

	case "ping":
		s.writeResult(req.ID, struct{}{})

	case "tools/list":
		s.writeResult(req.ID, listToolsResult{Tools: s.toolDefs()})

	case "tools/call":
		var params callToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.writeError(req.ID, codeInvalidParams, fmt.Sprintf("parse tool call: %v", err))
			return
		}
		s.writeResult(req.ID, s.callTool(ctx, &params))

	default:
		if req.isNotification() {
			return
		}
		s.writeError(req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method))
	}
}

// callTool routes to a tool handler. Handler errors become structured
// {"status": "error"} payloads rather than JSON-RPC errors, so clients
// always get a tool result they can show.
func (s *Server) callTool(ctx context.Context, params *callToolParams) callToolResult {
	handler, ok := s.toolHandlers()[params.Name]
	if !ok {
		return errorResult(fmt.Sprintf("unknown tool %q", params.Name))
	}

	payload := handler(ctx, params.Arguments)
	return toolResult(payload)
}

// toolResult marshals a structured payload into a text content block.
func toolResult(payload map[string]any) callToolResult {
	data, err := json.Marshal(payload)
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err))
	}
	isErr := payload["status"] == "error"
	return callToolResult{
		Content: []contentBlock{{Type: "text", Text: string(data)}},
		IsError: isErr,
	}
}

func errorResult(msg string) callToolResult {
	data, _ := json.Marshal(map[string]any{"status": "error", "message": msg})
	return callToolResult{
		Content: []contentBlock{{Type: "text", Text: string(data)}},
		IsError: true,
	}
}

func (s *Server) writeResult(id json.RawMessage, result any) {
	s.write(response{JSONRPC: jsonrpcVersion, ID: id, Result: result})
}

func (s *Server) writeError(id json.RawMessage, code int, msg string) {
	s.write(response{JSONRPC: jsonrpcVersion, ID: id, Error: &rpcError{Code: code, Message: msg}})
}

func (s *Server) write(resp response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Errorf("encode response: %v", err)
		return
	}
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.log.Errorf("write response: %v", err)
	}
}
