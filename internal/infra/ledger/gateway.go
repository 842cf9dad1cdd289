package ledger

import (
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/hash"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Per-call deadlines for voter-facing gateway connections. Admin
// connections double them: admin operations (tally recomputation,
// clearing state) endorse more reads and are rarer.
const (
	evaluateTimeout     = 5 * time.Second
	endorseTimeout      = 15 * time.Second
	submitTimeout       = 5 * time.Second
	commitStatusTimeout = time.Minute
)

// ConnectionConfig describes the peer a gateway dials.
type ConnectionConfig struct {
	PeerEndpoint  string
	PeerHostAlias string
	TLSCertPath   string
	MSPID         string
	ChannelName   string
	ChaincodeName string
}

// NewGrpcConnection dials the peer once; all gateway sessions share
// the connection.
func NewGrpcConnection(cfg ConnectionConfig) (*grpc.ClientConn, error) {
	certificatePEM, err := os.ReadFile(cfg.TLSCertPath)
	if err != nil {
		return nil, fmt.Errorf("read peer tls cert: %w", err)
	}
	certificate, err := identity.CertificateFromPEM(certificatePEM)
	if err != nil {
		return nil, fmt.Errorf("parse peer tls cert: %w", err)
	}

	certPool := x509.NewCertPool()
	certPool.AddCert(certificate)
	transportCredentials := credentials.NewClientTLSFromCert(certPool, cfg.PeerHostAlias)

	conn, err := grpc.NewClient(cfg.PeerEndpoint, grpc.WithTransportCredentials(transportCredentials))
	if err != nil {
		return nil, fmt.Errorf("dial peer %s: %w", cfg.PeerEndpoint, err)
	}
	return conn, nil
}

// Connect opens a gateway session for the given identity. The sign
// function may delegate to a remote device; it blocks until the device
// answers, so endorse deadlines bound the wait.
func Connect(conn *grpc.ClientConn, id identity.Identity, sign identity.Sign, admin bool) (*client.Gateway, error) {
	scale := time.Duration(1)
	if admin {
		scale = 2
	}
	return client.Connect(
		id,
		client.WithSign(sign),
		client.WithHash(hash.SHA256),
		client.WithClientConnection(conn),
		client.WithEvaluateTimeout(scale*evaluateTimeout),
		client.WithEndorseTimeout(scale*endorseTimeout),
		client.WithSubmitTimeout(scale*submitTimeout),
		client.WithCommitStatusTimeout(scale*commitStatusTimeout),
	)
}

// ContractFor resolves the voting contract on an open gateway session.
func ContractFor(gw *client.Gateway, cfg ConnectionConfig) *client.Contract {
	return gw.GetNetwork(cfg.ChannelName).GetContract(cfg.ChaincodeName)
}
