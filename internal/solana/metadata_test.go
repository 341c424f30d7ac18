package solana_test

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"runner-scout/internal/solana"
	"runner-scout/internal/solana/stub"
)

const wrappedSOL = "So11111111111111111111111111111111111111112"

func borshString(s string, size int) []byte {
	b := make([]byte, 4+size)
	binary.LittleEndian.PutUint32(b, uint32(size))
	copy(b[4:], s)
	return b
}

func metaplexAccount(name, symbol string) string {
	data := []byte{4}
	data = append(data, make([]byte, 64)...)
	data = append(data, borshString(name, 32)...)
	data = append(data, borshString(symbol, 10)...)
	data = append(data, borshString("", 0)...)
	return base64.StdEncoding.EncodeToString(data)
}

func mintAccount(supply uint64, decimals byte) string {
	data := make([]byte, 82)
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1
	return base64.StdEncoding.EncodeToString(data)
}

func TestMetadataPDA(t *testing.T) {
	pda, err := solana.MetadataPDA(wrappedSOL)
	if err != nil {
		t.Fatalf("MetadataPDA: %v", err)
	}

	again, _ := solana.MetadataPDA(wrappedSOL)
	if pda != again {
		t.Errorf("derivation not deterministic: %s vs %s", pda, again)
	}

	raw, err := base58.Decode(pda)
	if err != nil || len(raw) != 32 {
		t.Fatalf("expected 32-byte base58 address, got %q (%v)", pda, err)
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err == nil {
		t.Error("PDA must be off the ed25519 curve")
	}
}

func TestMetadataPDA_InvalidMint(t *testing.T) {
	_, err := solana.MetadataPDA("not-base58-0OIl")
	if !errors.Is(err, solana.ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestDecodeMetaplex(t *testing.T) {
	name, symbol, err := solana.DecodeMetaplex(metaplexAccount("Runner Cat", "RCAT"))
	if err != nil {
		t.Fatalf("DecodeMetaplex: %v", err)
	}
	if name != "Runner Cat" {
		t.Errorf("expected name Runner Cat, got %q", name)
	}
	if symbol != "RCAT" {
		t.Errorf("expected symbol RCAT, got %q", symbol)
	}

	if _, _, err := solana.DecodeMetaplex(base64.StdEncoding.EncodeToString([]byte{4, 1, 2})); err == nil {
		t.Error("expected error for short data")
	}
}

func TestDecodeMint(t *testing.T) {
	decimals, supply, err := solana.DecodeMint(mintAccount(1_000_000_000_000, 6))
	if err != nil {
		t.Fatalf("DecodeMint: %v", err)
	}
	if decimals != 6 {
		t.Errorf("expected 6 decimals, got %d", decimals)
	}
	if supply != 1_000_000 {
		t.Errorf("expected supply 1000000, got %f", supply)
	}
}

func TestFetchMetadata(t *testing.T) {
	rpc := stub.NewRPCClient()
	pda, err := solana.MetadataPDA(wrappedSOL)
	if err != nil {
		t.Fatalf("MetadataPDA: %v", err)
	}
	rpc.AddAccount(wrappedSOL, &solana.AccountInfo{Data: mintAccount(5_000_000_000, 9)})
	rpc.AddAccount(pda, &solana.AccountInfo{Data: metaplexAccount("Wrapped SOL", "SOL")})

	meta, err := solana.FetchMetadata(context.Background(), rpc, wrappedSOL)
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	if meta == nil || meta.Name == nil || meta.Symbol == nil {
		t.Fatalf("expected name and symbol, got %+v", meta)
	}
	if *meta.Name != "Wrapped SOL" || *meta.Symbol != "SOL" {
		t.Errorf("unexpected metadata %q/%q", *meta.Name, *meta.Symbol)
	}
	if meta.Decimals != 9 || meta.Supply == nil || *meta.Supply != 5 {
		t.Errorf("unexpected mint data: decimals=%d supply=%v", meta.Decimals, meta.Supply)
	}
}

func TestFetchMetadata_MintNotFound(t *testing.T) {
	rpc := stub.NewRPCClient()

	meta, err := solana.FetchMetadata(context.Background(), rpc, wrappedSOL)
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	if meta != nil {
		t.Errorf("expected nil metadata, got %+v", meta)
	}
}
