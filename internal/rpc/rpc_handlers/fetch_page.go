package rpc_handlers

import (
	"encoding/json"
	"fmt"

	"github.com/LeJamon/goProgIndex/internal/rpc/rpc_types"
)

// FetchPageMethod handles the fetch_page RPC method
type FetchPageMethod struct {
	Sessions Sessions
	Limits   Limits
}

type fetchPageParams struct {
	sessionParams
	Page     *rpc_types.FlexInt  `json:"page,omitempty"`
	PageSize *rpc_types.FlexInt  `json:"page_size,omitempty"`
	Search   string              `json:"search,omitempty"`
	Reload   *rpc_types.FlexBool `json:"reload,omitempty"`
}

func (m *FetchPageMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var request fetchPageParams
	if rpcErr := parseParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	page := 1
	if request.Page != nil {
		page = int(*request.Page)
	}
	if page < 1 {
		return nil, rpc_types.RpcErrorInvalidField("page")
	}

	pageSize := m.Limits.DefaultPageSize
	if request.PageSize != nil {
		pageSize = int(*request.PageSize)
	}
	if pageSize < 1 || pageSize > m.Limits.MaxPageSize {
		return nil, rpc_types.RpcErrorInvalidParams(
			fmt.Sprintf("Invalid field 'page_size': must be between 1 and %d.", m.Limits.MaxPageSize))
	}

	reload := request.Reload != nil && bool(*request.Reload)

	fetcher := m.Sessions.Get(request.sessionID(ctx))
	result, err := fetcher.FetchPageInfo(ctx.Context, page, pageSize, request.Search, reload)
	if err != nil {
		return nil, indexError(err)
	}

	return map[string]interface{}{
		"records":       result.Records,
		"page":          result.Page,
		"page_size":     result.PageSize,
		"search":        result.Search,
		"account_count": result.AccountCount,
		"has_next":      result.HasNext,
	}, nil
}

func (m *FetchPageMethod) RequiredRole() rpc_types.Role {
	return rpc_types.RoleGuest
}

func (m *FetchPageMethod) SupportedApiVersions() []int {
	return allVersions
}
