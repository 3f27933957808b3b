package rpc_handlers

import (
	"encoding/json"

	"github.com/LeJamon/goProgIndex/internal/rpc/rpc_types"
)

// IndexStatsMethod handles the admin-only index_stats RPC method
type IndexStatsMethod struct {
	Sessions Sessions
}

func (m *IndexStatsMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var request sessionParams
	if rpcErr := parseParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	fetcher := m.Sessions.Get(request.sessionID(ctx))
	ix := fetcher.Index()
	return map[string]interface{}{
		"program":  ix.Program().String(),
		"index":    ix.Stats(),
		"sessions": m.Sessions.Stats(),
	}, nil
}

func (m *IndexStatsMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleAdmin
}

func (m *IndexStatsMethod) SupportedApiVersions() []int {
	return allVersions
}
