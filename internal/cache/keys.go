package cache

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Key-naming algebra. All keys live under one process-wide prefix:
//
//	value key      {prefix}:{entity_type}:{id}
//	list key       {prefix}:{entity_type}:list:{hash}
//	tag set        {prefix}:tag:{tag_name}
//	key side-set   {prefix}:keytags:{key}
//	tag version    {prefix}:ver:{tag_name}
//	user view      {prefix}:user_view:{user_id}:{view_type}[:{view_id}]
//	versioned      {prefix}:v:{hash}

func (c *Cache) entityKey(entityType, id string) string {
	return c.prefix + ":" + entityType + ":" + id
}

func (c *Cache) listKey(entityType, hash string) string {
	return c.prefix + ":" + entityType + ":list:" + hash
}

func (c *Cache) tagKey(tag string) string {
	return c.prefix + ":tag:" + tag
}

func (c *Cache) keyTagsKey(key string) string {
	return c.prefix + ":keytags:" + key
}

func (c *Cache) versionKey(tag string) string {
	return c.prefix + ":ver:" + tag
}

func (c *Cache) userViewKey(userID, viewType, viewID string) string {
	key := c.prefix + ":user_view:" + userID + ":" + viewType
	if viewID != "" {
		key += ":" + viewID
	}
	return key
}

// HashComposite derives a stable scalar id for a composite key: SHA-1 of
// the sorted-key JSON encoding, first 16 hex digits.
func HashComposite(parts map[string]string) string {
	data, _ := json.Marshal(sortedMap(parts))
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])[:16]
}

// HashParams derives the cache-key suffix for a parameterized query:
// SHA-256 of the canonical sorted-key JSON with unset values excluded,
// truncated to 16 hex chars. Identical semantic filters share one entry.
func HashParams(params map[string]any) string {
	filtered := make(map[string]any, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		filtered[k] = v
	}
	data, _ := json.Marshal(sortedAnyMap(filtered))
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// sortedMap renders a map as a JSON object with deterministic key order.
type sortedMap map[string]string

func (m sortedMap) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(m[k])
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

type sortedAnyMap map[string]any

func (m sortedAnyMap) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, err := json.Marshal(m[k])
		if err != nil {
			vb = []byte(fmt.Sprintf("%q", fmt.Sprintf("%v", m[k])))
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}
