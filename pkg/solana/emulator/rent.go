package emulator

// Rent parameters matching the mainnet defaults: two years of byte-rent,
// with a 128 byte per-account storage overhead.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/rent.rs
const (
	accountStorageOverhead  = 128
	lamportsPerByteTwoYears = 6960
)

// MinimumBalanceForRentExemption returns the lamport balance an account of
// the given data size must carry to be exempt from rent collection. New
// accounts must be funded to at least this balance.
func MinimumBalanceForRentExemption(dataSize uint64) uint64 {
	return (dataSize + accountStorageOverhead) * lamportsPerByteTwoYears
}
