package chain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultCredential é a referência usada quando o pedido não informa uma.
const DefaultCredential = "default"

var ErrUnknownCredential = errors.New("unknown credential")

// KeyRing resolve uma referência de credencial para a chave que assina o pagamento.
// Não valida nada além da existência da referência.
type KeyRing struct {
	mu   sync.RWMutex
	keys map[string]*ecdsa.PrivateKey
}

func NewKeyRing() *KeyRing {
	return &KeyRing{keys: make(map[string]*ecdsa.PrivateKey)}
}

// ParseKeyRing lê PAYOUT_SIGNER_KEY. Aceita uma chave hex solta (vira "default")
// ou uma lista "ref=hex,ref2=hex".
func ParseKeyRing(raw string) (*KeyRing, error) {
	kr := NewKeyRing()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return kr, nil
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ref, hexKey, ok := strings.Cut(part, "=")
		if !ok {
			ref, hexKey = DefaultCredential, part
		}
		if err := kr.Add(strings.TrimSpace(ref), hexKey); err != nil {
			return nil, err
		}
	}
	return kr, nil
}

func (k *KeyRing) Add(ref, hexKey string) error {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return fmt.Errorf("credential %q: invalid key: %w", ref, err)
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[ref] = key
	return nil
}

func (k *KeyRing) Resolve(ref string) (*ecdsa.PrivateKey, error) {
	if ref == "" {
		ref = DefaultCredential
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCredential, ref)
	}
	return key, nil
}

// Address devolve o endereço da carteira quente de uma credencial.
func (k *KeyRing) Address(ref string) (common.Address, error) {
	key, err := k.Resolve(ref)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}
