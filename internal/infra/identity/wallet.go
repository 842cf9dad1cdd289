package identity

import (
	"fmt"
	"os"
	"path/filepath"

	gwidentity "github.com/hyperledger/fabric-gateway/pkg/identity"

	"ballotd/internal/domain"
)

const adminUser = "admin"

// Wallet is a filesystem credential store. Each enrolled user owns a
// directory holding cert.pem and, for locally held keys, key.pem.
// Users whose keys live on a remote device have only the certificate;
// their signing goes through the device channel instead.
//
//	<dir>/admin/cert.pem
//	<dir>/admin/key.pem
//	<dir>/users/<user-id>/cert.pem
//	<dir>/users/<user-id>/key.pem   (optional)
type Wallet struct {
	Dir   string
	MSPID string
}

func NewWallet(dir, mspID string) *Wallet {
	return &Wallet{Dir: dir, MSPID: mspID}
}

// Identity loads the X.509 identity for a user.
func (w *Wallet) Identity(userID string) (*gwidentity.X509Identity, error) {
	certPEM, err := os.ReadFile(w.certPath(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no certificate for user %s", domain.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("read certificate for %s: %w", userID, err)
	}
	certificate, err := gwidentity.CertificateFromPEM(certPEM)
	if err != nil {
		return nil, fmt.Errorf("parse certificate for %s: %w", userID, err)
	}
	return gwidentity.NewX509Identity(w.MSPID, certificate)
}

// LocalSign builds a signer from a locally stored private key. Returns
// ErrNotFound when the user's key is not on disk, which is the normal
// case for remote-device users.
func (w *Wallet) LocalSign(userID string) (gwidentity.Sign, error) {
	keyPEM, err := os.ReadFile(w.keyPath(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no local key for user %s", domain.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("read key for %s: %w", userID, err)
	}
	privateKey, err := gwidentity.PrivateKeyFromPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse key for %s: %w", userID, err)
	}
	return gwidentity.NewPrivateKeySign(privateKey)
}

// AdminIdentity loads the administrative identity used by the
// scheduler and audit paths.
func (w *Wallet) AdminIdentity() (*gwidentity.X509Identity, error) {
	return w.Identity(adminUser)
}

func (w *Wallet) AdminSign() (gwidentity.Sign, error) {
	return w.LocalSign(adminUser)
}

// HasCertificate reports whether a user is enrolled at all.
func (w *Wallet) HasCertificate(userID string) bool {
	_, err := os.Stat(w.certPath(userID))
	return err == nil
}

func (w *Wallet) userDir(userID string) string {
	if userID == adminUser {
		return filepath.Join(w.Dir, adminUser)
	}
	return filepath.Join(w.Dir, "users", userID)
}

func (w *Wallet) certPath(userID string) string {
	return filepath.Join(w.userDir(userID), "cert.pem")
}

func (w *Wallet) keyPath(userID string) string {
	return filepath.Join(w.userDir(userID), "key.pem")
}
