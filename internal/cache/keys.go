package cache

import "net/url"

// Key builds the cache key for a named read. Query values are encoded with
// sorted keys so that logically identical requests share a key.
//
//	Key("market-status", nil)                         -> "market-status"
//	Key("history", url.Values{"limit": {"10"}})        -> "history-limit=10"
func Key(name string, params url.Values) string {
	if len(params) == 0 {
		return name
	}
	return name + "-" + params.Encode()
}

// QueryKey is like Key but always keeps the separator, so a read without
// parameters is keyed "history-" rather than "history"
func QueryKey(name string, params url.Values) string {
	return name + "-" + params.Encode()
}
