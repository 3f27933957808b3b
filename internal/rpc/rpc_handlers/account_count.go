package rpc_handlers

import (
	"encoding/json"
	"time"

	"github.com/LeJamon/goProgIndex/internal/rpc/rpc_types"
)

// AccountCountMethod reports the size of a session's cached ordering
// without contacting the ledger.
type AccountCountMethod struct {
	Sessions Sessions
}

func (m *AccountCountMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var request sessionParams
	if rpcErr := parseParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	fetcher := m.Sessions.Get(request.sessionID(ctx))
	response := map[string]interface{}{
		"account_count": fetcher.CachedAccountCount(),
	}
	if snap := fetcher.Index().Snapshot(); snap != nil {
		response["search"] = snap.Term
		response["built_at"] = snap.BuiltAt.UTC().Format(time.RFC3339)
	}
	return response, nil
}

func (m *AccountCountMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleGuest
}

func (m *AccountCountMethod) SupportedApiVersions() []int {
	return allVersions
}
