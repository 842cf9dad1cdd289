package ledger

import (
	"errors"
	"fmt"

	"ballotd/internal/domain"
	walletpkg "ballotd/internal/infra/identity"

	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
)

// ConnectionFactory builds per-user gateway sessions over the shared
// grpc connection. Users whose private key lives in the wallet sign
// locally; users enrolled with certificate only have their signatures
// produced by a remote device.
type ConnectionFactory struct {
	Conn   *grpc.ClientConn
	Wallet *walletpkg.Wallet
	Cfg    ConnectionConfig

	// RemoteSign yields a signer that forwards digests to the user's
	// connected device. Required for certificate-only users.
	RemoteSign func(userID string) func(digest []byte) ([]byte, error)
}

// RepositoryForUser opens a gateway session authenticated as the user
// and wraps it in a repository. The release func closes the session;
// the shared grpc connection stays open.
func (f *ConnectionFactory) RepositoryForUser(userID string) (*Repository, func(), error) {
	id, err := f.Wallet.Identity(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load identity for %s: %w", userID, err)
	}

	sign, err := f.Wallet.LocalSign(userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("load key for %s: %w", userID, err)
		}
		if f.RemoteSign == nil {
			return nil, nil, fmt.Errorf("no local key and no remote signer for %s", userID)
		}
		sign = identity.Sign(f.RemoteSign(userID))
	}

	gw, err := Connect(f.Conn, id, sign, false)
	if err != nil {
		return nil, nil, fmt.Errorf("connect gateway for %s: %w", userID, err)
	}
	contract := ContractFor(gw, f.Cfg)
	return NewRepository(&GatewayContract{Contract: contract}), func() { gw.Close() }, nil
}
