package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LeJamon/goProgIndex/internal/rpc/rpc_handlers"
	"github.com/LeJamon/goProgIndex/internal/rpc/rpc_types"
)

// Type aliases keep call sites short inside this package.
type (
	RpcContext     = rpc_types.RpcContext
	RpcError       = rpc_types.RpcError
	MethodRegistry = rpc_types.MethodRegistry
)

const maxBodySize = 1 << 20

// Config configures a Server
type Config struct {
	Timeout         time.Duration
	Admin           []string // client IPs granted RoleAdmin
	DefaultPageSize int
	MaxPageSize     int
	WebSocket       bool
}

// Server handles HTTP JSON-RPC requests in the command request format
type Server struct {
	registry *MethodRegistry
	sessions *SessionCache
	limits   rpc_handlers.Limits
	timeout  time.Duration
	admin    []string
	ws       *WebSocketServer
	logger   *zap.Logger
}

// NewServer creates a new RPC server serving the given sessions
func NewServer(cfg Config, sessions *SessionCache, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &Server{
		registry: rpc_types.NewMethodRegistry(),
		sessions: sessions,
		limits: rpc_handlers.Limits{
			DefaultPageSize: cfg.DefaultPageSize,
			MaxPageSize:     cfg.MaxPageSize,
		},
		timeout: cfg.Timeout,
		admin:   cfg.Admin,
		logger:  logger,
	}

	// Register all RPC methods
	server.registerAllMethods()

	if cfg.WebSocket {
		server.ws = newWebSocketServer(server)
	}
	return server
}

// Close drops open WebSocket connections. HTTP requests are drained by the
// http.Server shutdown.
func (s *Server) Close() {
	if s.ws != nil {
		s.ws.CloseAll()
	}
}

// Methods lists the registered RPC methods.
func (s *Server) Methods() []string {
	return s.registry.List()
}

// Handler returns the HTTP routes: JSON-RPC on /, WebSocket on /ws when
// enabled, and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", s)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if s.ws != nil {
		mux.Handle("/ws", s.ws)
	}
	return mux
}

// CommandRequest represents a JSON-RPC request in command form
// Format: {"method": "method_name", "params": [{...}]}
type CommandRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	// Handle preflight requests
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetRequest(w, r)
	case http.MethodPost:
		s.handlePostRequest(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetRequest processes GET requests: ?command=fetch_page&page=2&search=ann
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	method := query.Get("command")
	if method == "" {
		method = "ping"
	}

	fields := make(map[string]string)
	for key, values := range query {
		if key != "command" && len(values) > 0 {
			fields[key] = values[0]
		}
	}
	var params json.RawMessage
	if len(fields) > 0 {
		params, _ = json.Marshal(fields)
	}

	ctx := s.newContext(r, nil)
	result, rpcErr := s.executeMethod(r.Context(), method, params, ctx)
	s.writeResponse(w, method, requestEcho(method, params), result, rpcErr)
}

// handlePostRequest processes POST requests with a JSON-RPC payload
func (s *Server) handlePostRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.writeResponse(w, "", nil, nil, rpc_types.RpcErrorInternal("Failed to read request body"))
		return
	}
	defer r.Body.Close()

	var request CommandRequest
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeResponse(w, "", nil, nil, rpc_types.RpcErrorInvalidParams("Invalid JSON: "+err.Error()))
		return
	}
	if request.Method == "" {
		s.writeResponse(w, "", nil, nil, rpc_types.RpcErrorMissingCommand())
		return
	}

	// params is an array with one object
	var params json.RawMessage
	if len(request.Params) > 0 {
		params = request.Params[0]
	}

	ctx := s.newContext(r, params)
	result, rpcErr := s.executeMethod(r.Context(), request.Method, params, ctx)
	s.writeResponse(w, request.Method, requestEcho(request.Method, params), result, rpcErr)
}

// newContext builds the RPC context for a request, reading api_version from
// params when present.
func (s *Server) newContext(r *http.Request, params json.RawMessage) *RpcContext {
	ctx := &RpcContext{
		Role:       rpc_types.RoleGuest,
		ApiVersion: rpc_types.DefaultApiVersion,
		ClientIP:   getClientIP(r),
	}
	s.applyRole(ctx, r.RemoteAddr)

	if params != nil {
		var versioned struct {
			ApiVersion *int `json:"api_version"`
		}
		if err := json.Unmarshal(params, &versioned); err == nil && versioned.ApiVersion != nil {
			ctx.ApiVersion = *versioned.ApiVersion
		}
	}
	return ctx
}

// applyRole grants RoleAdmin when the socket peer, not a forwarded header,
// is listed in the admin addresses.
func (s *Server) applyRole(ctx *RpcContext, remoteAddr string) {
	peer := remoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		peer = host
	}
	if slices.Contains(s.admin, peer) {
		ctx.Role = rpc_types.RoleAdmin
		ctx.IsAdmin = true
	}
}

// executeMethod executes an RPC method with the given parameters
func (s *Server) executeMethod(parent context.Context, method string, params json.RawMessage, ctx *RpcContext) (interface{}, *RpcError) {
	handler, exists := s.registry.Get(method)
	if !exists {
		return nil, rpc_types.RpcErrorMethodNotFound(method)
	}

	if ctx.Role < handler.RequiredRole() {
		return nil, rpc_types.RpcErrorUntrusted(method)
	}

	if supported := handler.SupportedApiVersions(); len(supported) > 0 && !slices.Contains(supported, ctx.ApiVersion) {
		return nil, rpc_types.RpcErrorInvalidApiVersion(strconv.Itoa(ctx.ApiVersion))
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		parent, cancel = context.WithTimeout(parent, s.timeout)
		defer cancel()
	}
	ctx.Context = parent

	started := time.Now()
	result, rpcErr := handler.Handle(ctx, params)
	if rpcErr != nil {
		s.logger.Debug("rpc call failed",
			zap.String("method", method),
			zap.String("client", ctx.ClientIP),
			zap.String("error", rpcErr.ErrorString),
			zap.String("message", rpcErr.Message))
	} else {
		s.logger.Debug("rpc call",
			zap.String("method", method),
			zap.String("client", ctx.ClientIP),
			zap.Duration("took", time.Since(started)))
	}
	return result, rpcErr
}

// requestEcho is the "request" object echoed back in error responses
func requestEcho(method string, params json.RawMessage) interface{} {
	reqMap := map[string]interface{}{}
	if params != nil {
		if err := json.Unmarshal(params, &reqMap); err != nil {
			reqMap = map[string]interface{}{}
		}
	}
	reqMap["command"] = method
	return reqMap
}

// writeResponse writes a JSON-RPC response
// - result.status = "success" or "error"
func (s *Server) writeResponse(w http.ResponseWriter, method string, request interface{}, result interface{}, rpcErr *RpcError) {
	response := make(map[string]interface{})

	if rpcErr != nil {
		resultObj := map[string]interface{}{
			"status":        "error",
			"error":         rpcErr.ErrorString,
			"error_code":    rpcErr.Code,
			"error_message": rpcErr.Message,
		}
		if request != nil {
			resultObj["request"] = request
		}
		response["result"] = resultObj
	} else if resultMap, ok := result.(map[string]interface{}); ok {
		resultMap["status"] = "success"
		response["result"] = resultMap
	} else {
		response["result"] = map[string]interface{}{
			"status": "success",
			"data":   result,
		}
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("failed to marshal response", zap.String("method", method), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(responseData)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
