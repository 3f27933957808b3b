package ledger

//go:generate mockgen -destination=mock/mock_client.go -package=mock github.com/LeJamon/goProgIndex/internal/ledger Client
