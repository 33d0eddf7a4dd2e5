package token

import (
	"crypto/ed25519"
	"encoding/binary"
)

func putKey32(dst []byte, src []byte, offset *int) {
	copy(dst[*offset:], src)
	*offset += ed25519.PublicKeySize
}

func getKey32(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src[*offset:])
	*offset += ed25519.PublicKeySize
}

func putOptionalKey32(dst []byte, src []byte, offset *int) {
	if len(src) > 0 {
		dst[*offset] = 1
		copy(dst[*offset+optionSize:], src)
	}
	*offset += optionSize + ed25519.PublicKeySize
}

func getOptionalKey32(src []byte, dst *ed25519.PublicKey, offset *int) {
	if src[*offset] == 1 {
		*dst = make([]byte, ed25519.PublicKeySize)
		copy(*dst, src[*offset+optionSize:])
	}
	*offset += optionSize + ed25519.PublicKeySize
}

func putUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst[*offset:], v)
	*offset += 8
}

func getUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src[*offset:])
	*offset += 8
}

func putOptionalUint64(dst []byte, v *uint64, offset *int) {
	if v != nil {
		dst[*offset] = 1
		binary.LittleEndian.PutUint64(dst[*offset+optionSize:], *v)
	}
	*offset += optionSize + 8
}

func getOptionalUint64(src []byte, dst **uint64, offset *int) {
	if src[*offset] == 1 {
		val := binary.LittleEndian.Uint64(src[*offset+optionSize:])
		*dst = &val
	}
	*offset += optionSize + 8
}
