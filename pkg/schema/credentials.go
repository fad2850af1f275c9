// Package schema defines the credential names shared by keystore users.
package schema

import (
	"errors"

	"github.com/celerix-dev/celerix-keystore/pkg/sdk"
)

// Credential keys read by exchange and wallet providers.
const (
	PrivateKey     = "privateKey"
	APIKey         = "apiKey"
	SecretKey      = "secretKey"
	RPCURL         = "rpcUrl"
	Address        = "address"
	PrivyAppID     = "privyAppId"
	PrivyAppSecret = "privyAppSecret"
	WalletID       = "walletId"
)

// PrivyKeys are the credentials of a Privy-managed wallet, which signs
// remotely and holds no private key.
var PrivyKeys = []string{PrivyAppID, PrivyAppSecret, WalletID}

// Account is the credential set of one trading account. Which fields are
// mandatory depends on how it was loaded.
type Account struct {
	PrivateKey     string `json:"privateKey,omitempty"`
	APIKey         string `json:"apiKey,omitempty"`
	SecretKey      string `json:"secretKey,omitempty"`
	RPCURL         string `json:"rpcUrl,omitempty"`
	Address        string `json:"address,omitempty"`
	PrivyAppID     string `json:"privyAppId,omitempty"`
	PrivyAppSecret string `json:"privyAppSecret,omitempty"`
	WalletID       string `json:"walletId,omitempty"`
}

// LoadAccount reads an Account from r. Every key in required must be
// present; with none given only PrivateKey is. Other fields are read when
// the keystore holds them.
func LoadAccount(r sdk.CredentialReader, required ...string) (Account, error) {
	if len(required) == 0 {
		required = []string{PrivateKey}
	}
	if _, err := sdk.Require(r, required...); err != nil {
		return Account{}, err
	}

	var a Account
	fields := []struct {
		key string
		dst *string
	}{
		{PrivateKey, &a.PrivateKey},
		{APIKey, &a.APIKey},
		{SecretKey, &a.SecretKey},
		{RPCURL, &a.RPCURL},
		{Address, &a.Address},
		{PrivyAppID, &a.PrivyAppID},
		{PrivyAppSecret, &a.PrivyAppSecret},
		{WalletID, &a.WalletID},
	}
	for _, f := range fields {
		val, err := r.Get(f.key)
		if errors.Is(err, sdk.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return Account{}, err
		}
		*f.dst = val
	}
	return a, nil
}

// LoadPrivyAccount reads an Account backed by a Privy wallet. The wallet ID
// doubles as the address when no address is stored.
func LoadPrivyAccount(r sdk.CredentialReader) (Account, error) {
	a, err := LoadAccount(r, PrivyKeys...)
	if err != nil {
		return Account{}, err
	}
	if a.Address == "" {
		a.Address = a.WalletID
	}
	return a, nil
}

// Store writes every non-empty field of a into w.
func (a Account) Store(w sdk.CredentialWriter) error {
	fields := map[string]string{
		PrivateKey:     a.PrivateKey,
		APIKey:         a.APIKey,
		SecretKey:      a.SecretKey,
		RPCURL:         a.RPCURL,
		Address:        a.Address,
		PrivyAppID:     a.PrivyAppID,
		PrivyAppSecret: a.PrivyAppSecret,
		WalletID:       a.WalletID,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}
