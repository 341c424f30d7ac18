package solana

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"runner-scout/internal/domain"
)

// MetaplexProgramID is the Metaplex Token Metadata program.
const MetaplexProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

// ErrInvalidAddress is returned for keys that are not 32-byte base58.
var ErrInvalidAddress = errors.New("invalid solana address")

// FetchMetadata reads decimals and supply from the SPL mint account and
// name/symbol from the Metaplex metadata account.
// Returns nil if the mint does not exist.
func FetchMetadata(ctx context.Context, rpc RPCClient, mint string) (*domain.TokenMetadata, error) {
	meta := &domain.TokenMetadata{Address: mint}

	mintInfo, err := rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get mint account info: %w", err)
	}
	if mintInfo == nil {
		return nil, nil
	}

	if decimals, supply, err := DecodeMint(mintInfo.Data); err == nil {
		meta.Decimals = decimals
		meta.Supply = &supply
	}

	pda, err := MetadataPDA(mint)
	if err != nil {
		return meta, nil
	}
	metaInfo, err := rpc.GetAccountInfo(ctx, pda)
	if err == nil && metaInfo != nil {
		if name, symbol, err := DecodeMetaplex(metaInfo.Data); err == nil {
			if name != "" {
				meta.Name = &name
			}
			if symbol != "" {
				meta.Symbol = &symbol
			}
		}
	}

	return meta, nil
}

// DecodeMint parses SPL Token Mint account data.
// SPL Token Mint layout (82 bytes):
// - mintAuthority: Option<Pubkey> (36 bytes: 4 + 32)
// - supply: u64 (8 bytes)
// - decimals: u8 (1 byte)
// - isInitialized: bool (1 byte)
// - freezeAuthority: Option<Pubkey> (36 bytes: 4 + 32)
func DecodeMint(data string) (int, float64, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return 0, 0, fmt.Errorf("decode mint data: %w", err)
	}
	if len(decoded) < 82 {
		return 0, 0, fmt.Errorf("mint data too short: %d", len(decoded))
	}

	supply := binary.LittleEndian.Uint64(decoded[36:44])
	decimals := int(decoded[44])

	return decimals, float64(supply) / math.Pow(10, float64(decimals)), nil
}

// MetadataPDA derives the Metaplex metadata account for a mint.
// Seeds: ["metadata", metaplex_program_id, mint]
func MetadataPDA(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil || len(mintBytes) != 32 {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, mint)
	}
	programBytes, err := base58.Decode(MetaplexProgramID)
	if err != nil || len(programBytes) != 32 {
		return "", fmt.Errorf("%w: program id", ErrInvalidAddress)
	}

	pda := derivePDA([][]byte{[]byte("metadata"), programBytes, mintBytes}, programBytes)
	if pda == "" {
		return "", errors.New("no viable bump seed")
	}
	return pda, nil
}

// DecodeMetaplex parses name and symbol from Metaplex metadata account data.
// Layout: key u8 (4 = MetadataV1), updateAuthority (32), mint (32),
// then borsh strings name, symbol, uri.
func DecodeMetaplex(data string) (string, string, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", "", fmt.Errorf("decode metadata: %w", err)
	}
	if len(decoded) < 100 {
		return "", "", fmt.Errorf("metadata too short: %d", len(decoded))
	}
	if decoded[0] != 4 {
		return "", "", fmt.Errorf("unexpected metadata key %d", decoded[0])
	}

	offset := 65
	name, offset, err := readBorshString(decoded, offset, 100)
	if err != nil {
		return "", "", fmt.Errorf("name: %w", err)
	}
	symbol, _, err := readBorshString(decoded, offset, 20)
	if err != nil {
		return name, "", fmt.Errorf("symbol: %w", err)
	}

	return name, symbol, nil
}

func readBorshString(b []byte, offset, maxLen int) (string, int, error) {
	if offset+4 > len(b) {
		return "", offset, errors.New("truncated length")
	}
	n := int(binary.LittleEndian.Uint32(b[offset:]))
	offset += 4
	if n > maxLen || offset+n > len(b) {
		return "", offset, fmt.Errorf("bad length %d", n)
	}
	s := strings.TrimSpace(strings.TrimRight(string(b[offset:offset+n]), "\x00"))
	return s, offset + n, nil
}

// derivePDA finds the first bump (from 255 down) whose hash is off the
// ed25519 curve.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}
	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
