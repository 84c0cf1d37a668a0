// Package identity derives stable surrogate keys from entity content.
package identity

import (
	"crypto/md5"
	"encoding/binary"
)

// CompanyKey maps a company name to a stable surrogate id.
//
// The key is the first 8 bytes of the MD5 digest of the name, read
// big-endian and masked to 63 bits so it is always non-negative and fits a
// signed BIGINT column. Equal names yield equal keys in every process and
// every batch; no lookup table is consulted. Truncation collisions are
// possible and not mitigated.
func CompanyKey(name string) int64 {
	sum := md5.Sum([]byte(name))
	return int64(binary.BigEndian.Uint64(sum[:8]) & 0x7fffffffffffffff)
}
