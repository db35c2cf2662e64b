package main

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/blockrelay/relayer/shared/fileutil"
)

// loadSigningKey reads a PEM-encoded RSA private key from path. If
// bcryptHash is non-empty, passphrase must match it before the key block is
// decrypted — an operator-facing confirmation step layered in front of the
// PEM decryption itself, independent of whatever encrypts the block.
func loadSigningKey(path, passphrase, bcryptHash string) (*rsa.PrivateKey, error) {
	if bcryptHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(bcryptHash), []byte(passphrase)); err != nil {
			return nil, errors.Wrap(err, "cmd/relayer: rsa key passphrase does not match configured hash")
		}
	}

	raw, err := fileutil.ReadFileAsBytes(path)
	if err != nil {
		return nil, errors.Wrap(err, "cmd/relayer: could not read rsa key file")
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("cmd/relayer: no PEM block found in rsa key file")
	}

	der := block.Bytes
	//nolint staticcheck: x509.IsEncryptedPEMBlock/DecryptPEMBlock are the
	// only stdlib path for a passphrase-protected PKCS#1 PEM block.
	if x509.IsEncryptedPEMBlock(block) {
		der, err = x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, errors.Wrap(err, "cmd/relayer: could not decrypt rsa key block")
		}
	}

	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "cmd/relayer: could not parse rsa private key")
	}
	return key, nil
}
