package fusion

import "strings"

// minPairAddressLen covers base58 Solana addresses; EVM addresses are 42
const minPairAddressLen = 32

// parsePairRef recognises a DexScreener pair reference such as
// "https://dexscreener.com/ethereum/0xa43f..." or "solana/8sLb...".
// Plain names, symbols and bare token addresses are not pair references.
func parsePairRef(query string) (chain, pair string, ok bool) {
	ref := strings.TrimSpace(query)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.TrimPrefix(ref, "https://")
	ref = strings.TrimPrefix(ref, "http://")
	ref = strings.TrimPrefix(ref, "www.")
	ref = strings.TrimPrefix(ref, "dexscreener.com/")
	ref = strings.TrimSuffix(ref, "/")

	parts := strings.Split(ref, "/")
	if len(parts) != 2 {
		return "", "", false
	}
	chain, pair = strings.ToLower(parts[0]), parts[1]

	if !validChainID(chain) || len(pair) < minPairAddressLen || !isAlphanumeric(pair) {
		return "", "", false
	}
	return chain, pair, true
}

func validChainID(s string) bool {
	if len(s) < 2 || len(s) > 20 || s[0] < 'a' || s[0] > 'z' {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
