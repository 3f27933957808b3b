package rpc

import (
	"github.com/LeJamon/goProgIndex/internal/rpc/rpc_handlers"
)

// registerAllMethods registers every RPC method on the server's registry
func (s *Server) registerAllMethods() {
	s.registry.Register("ping", &rpc_handlers.PingMethod{})

	// Index methods
	s.registry.Register("fetch_page", &rpc_handlers.FetchPageMethod{Sessions: s.sessions, Limits: s.limits})
	s.registry.Register("account_count", &rpc_handlers.AccountCountMethod{Sessions: s.sessions})

	// Admin Methods (require admin role)
	s.registry.Register("index_stats", &rpc_handlers.IndexStatsMethod{Sessions: s.sessions})
}
