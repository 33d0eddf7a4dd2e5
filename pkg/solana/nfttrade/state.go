package nft_trade

import (
	"bytes"
	"crypto/ed25519"
	"strconv"

	"github.com/mr-tron/base58/base58"
)

// EscrowAccount is the persisted record of one in-flight trade. It is
// written exactly once by initialize and never mutated afterwards; the
// account's existence is the escrow's liveness: present means active,
// reclaimed means closed.
type EscrowAccount struct {
	// The seller who opened the escrow.
	Seller ed25519.PublicKey
	// The mint of the asset under escrow.
	Mint ed25519.PublicKey
	// The vault custody account holding the asset.
	Vault ed25519.PublicKey
	// Bump seed reconstructing the vault authority's signing proof.
	VaultAuthorityBump uint8
	// Price the buyer must pay, in lamports.
	Price uint64
	// Portion of the price diverted to the fee recipient, in
	// parts-per-thousand.
	FeeRate uint16
}

const EscrowAccountSize = (8 + // discriminator
	32 + // seller
	32 + // mint
	32 + // vault
	1 + // vault_authority_bump
	8 + // price
	2) // fee_rate

var escrowAccountDiscriminator = []byte{36, 69, 48, 18, 128, 225, 125, 135}

func (obj *EscrowAccount) Marshal() []byte {
	data := make([]byte, EscrowAccountSize)

	var offset int
	putDiscriminator(data, escrowAccountDiscriminator, &offset)
	putKey(data, obj.Seller, &offset)
	putKey(data, obj.Mint, &offset)
	putKey(data, obj.Vault, &offset)
	putUint8(data, obj.VaultAuthorityBump, &offset)
	putUint64(data, obj.Price, &offset)
	putUint16(data, obj.FeeRate, &offset)

	return data
}

func (obj *EscrowAccount) Unmarshal(data []byte) error {
	if len(data) != EscrowAccountSize {
		return ErrInvalidAccountData
	}

	var offset int
	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, escrowAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Seller, &offset)
	getKey(data, &obj.Mint, &offset)
	getKey(data, &obj.Vault, &offset)
	getUint8(data, &obj.VaultAuthorityBump, &offset)
	getUint64(data, &obj.Price, &offset)
	getUint16(data, &obj.FeeRate, &offset)

	return nil
}

func (obj *EscrowAccount) String() string {
	var seller, mint, vault string
	if obj.Seller != nil {
		seller = base58.Encode(obj.Seller)
	}
	if obj.Mint != nil {
		mint = base58.Encode(obj.Mint)
	}
	if obj.Vault != nil {
		vault = base58.Encode(obj.Vault)
	}

	return "EscrowAccount{" +
		"seller='" + seller + "'" +
		", mint='" + mint + "'" +
		", vault='" + vault + "'" +
		", vault_authority_bump=" + strconv.Itoa(int(obj.VaultAuthorityBump)) +
		", price=" + strconv.FormatUint(obj.Price, 10) +
		", fee_rate=" + strconv.Itoa(int(obj.FeeRate)) +
		"}"
}
