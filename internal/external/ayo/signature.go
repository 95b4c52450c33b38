package ayo

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	apperrors "courtsync/internal/errors"
)

const signatureKey = "signature"

// Sign computes the request signature AYO expects: HMAC-SHA512 of the
// canonical query string of payload, hex encoded. Any "signature" entry in
// payload is ignored.
func Sign(payload map[string]any, secret string) (string, error) {
	if secret == "" {
		return "", &apperrors.SignatureError{Err: apperrors.ErrMissingSecret}
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(CanonicalQuery(payload)))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// CanonicalQuery serializes payload the way the signature is computed over:
// top-level keys sorted by byte order, form-encoded, slices expanded as
// key[0]=a&key[1]=b in their original order.
func CanonicalQuery(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		if k == signatureKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = appendPairs(parts, k, payload[k])
	}
	return strings.Join(parts, "&")
}

func appendPairs(parts []string, key string, value any) []string {
	switch v := value.(type) {
	case nil:
		return parts
	case []any:
		for i, item := range v {
			parts = appendPairs(parts, indexKey(key, strconv.Itoa(i)), item)
		}
		return parts
	case []string:
		for i, item := range v {
			parts = appendPairs(parts, indexKey(key, strconv.Itoa(i)), item)
		}
		return parts
	case map[string]any:
		// Go maps carry no insertion order; nested keys are emitted sorted.
		for _, k := range sortedKeys(v) {
			parts = appendPairs(parts, indexKey(key, k), v[k])
		}
		return parts
	case map[string]string:
		nested := make(map[string]any, len(v))
		for k, s := range v {
			nested[k] = s
		}
		return appendPairs(parts, key, nested)
	default:
		return append(parts, encode(key)+"="+encode(scalar(v)))
	}
}

func indexKey(key, index string) string {
	return key + "[" + index + "]"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// encode is form encoding with '~' escaped as well, matching AYO's server side.
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "~", "%7E")
}
