package rpc_handlers

import (
	"encoding/json"
	"errors"

	"github.com/LeJamon/goProgIndex/internal/index"
	"github.com/LeJamon/goProgIndex/internal/pager"
	"github.com/LeJamon/goProgIndex/internal/rpc/rpc_types"
)

// Sessions hands out the page fetcher owned by a session id.
type Sessions interface {
	Get(id string) *pager.Fetcher
	Stats() rpc_types.SessionStats
}

// Limits bound the page sizes accepted from clients.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

var allVersions = []int{rpc_types.ApiVersion1, rpc_types.ApiVersion2}

// sessionParams is embedded in every index method's params.
type sessionParams struct {
	Session string `json:"session,omitempty"`
}

// sessionID falls back to the client address so callers that never name a
// session still get a stable cache.
func (p sessionParams) sessionID(ctx *rpc_types.RpcContext) string {
	if p.Session != "" {
		return p.Session
	}
	return ctx.ClientIP
}

func parseParams(params json.RawMessage, dst interface{}) *rpc_types.RpcError {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return rpc_types.RpcErrorInvalidParams("Invalid parameters: " + err.Error())
	}
	return nil
}

func indexError(err error) *rpc_types.RpcError {
	switch {
	case errors.Is(err, pager.ErrInvalidPage):
		return rpc_types.RpcErrorInvalidParams(err.Error())
	case errors.Is(err, index.ErrIndexUnavailable):
		return rpc_types.RpcErrorNoNetwork(err.Error())
	default:
		return rpc_types.RpcErrorInternal(err.Error())
	}
}
