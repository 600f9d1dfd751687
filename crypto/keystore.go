package crypto

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// SaveKey writes the private key to path as a hex string. The file is
// created owner-readable only.
func SaveKey(key *PrivateKey, path string) error {
	if key == nil {
		return fmt.Errorf("nil private key")
	}
	encoded := hex.EncodeToString(key.Bytes())
	return os.WriteFile(path, []byte(encoded+"\n"), 0o600)
}

// LoadKey reads a hex-encoded private key from path.
func LoadKey(path string) (*PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("invalid key file %s: %w", path, err)
	}
	return PrivateKeyFromBytes(decoded)
}
