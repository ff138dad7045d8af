package cacheinfra

import "time"

// Permanent is the max-age that disables expiry.
const Permanent time.Duration = -1

// Encoded is a payload that left the process (persistent stores) and still has to
// be decoded into the caller's type.
type Encoded []byte

// Entry is one cached payload together with its expiry and invalidation tags.
type Entry struct {
	Key     string
	Payload any
	Tags    []string
	Created time.Time
	// Expires is zero for permanent entries.
	Expires time.Time
}

// Expired reports whether the entry is past its max-age at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.Expires.IsZero() && !now.Before(e.Expires)
}

func expiresAt(now time.Time, maxAge time.Duration) time.Time {
	if maxAge < 0 {
		return time.Time{}
	}
	return now.Add(maxAge)
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
