package cache

import "strconv"

// Key prefixes. Every Redis key the service touches is built here.
const (
	PrefixPurchaseIdemResult = "purchase:idem:result:"
	PrefixPurchaseIdemLock   = "purchase:idem:lock:"
	PrefixDrawResults        = "draw:results:"
	PrefixTokenBlacklist     = "token:blacklist:"
)

// IdemResultKey is the cached response of a finished purchase for one user and key.
func IdemResultKey(userID int64, key string) string {
	return PrefixPurchaseIdemResult + strconv.FormatInt(userID, 10) + ":" + key
}

// IdemLockKey marks a purchase with that key as in flight.
func IdemLockKey(userID int64, key string) string {
	return PrefixPurchaseIdemLock + strconv.FormatInt(userID, 10) + ":" + key
}

// DrawResultsKey holds the published results of a draw.
func DrawResultsKey(drawID int64) string {
	return PrefixDrawResults + strconv.FormatInt(drawID, 10)
}

// TokenBlacklistKey marks a signed-out session token.
func TokenBlacklistKey(token string) string {
	return PrefixTokenBlacklist + token
}
