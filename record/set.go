package record

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// Set is an ordered mapping from id value to Record. Insertion order is kept;
// putting an existing key replaces the record in place.
type Set struct {
	keys  []string
	items map[string]Record
}

// NewSet returns an empty set with room for n records.
func NewSet(n int) *Set {
	return &Set{
		keys:  make([]string, 0, n),
		items: make(map[string]Record, n),
	}
}

// FromRecords keys the given records by field. Records lacking the field take
// the next integer key above every integer key in the batch, so they never
// replace a keyed record.
func FromRecords(records []Record, field string) *Set {
	s := NewSet(len(records))
	next := 0
	if field != "" {
		for _, r := range records {
			if !r.Has(field) {
				continue
			}
			if n, err := strconv.Atoi(KeyOf(r[field])); err == nil && n >= next {
				next = n + 1
			}
		}
	}

	for _, r := range records {
		if field != "" && r.Has(field) {
			s.Put(KeyOf(r[field]), r)
			continue
		}
		s.Put(strconv.Itoa(next), r)
		next++
	}
	return s
}

func (s *Set) init() {
	if s.items == nil {
		s.items = map[string]Record{}
	}
}

// Put stores r under key.
func (s *Set) Put(key string, r Record) {
	s.init()
	if _, ok := s.items[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.items[key] = r
}

// Get returns the record stored under key.
func (s *Set) Get(key string) (Record, bool) {
	if s == nil || s.items == nil {
		return nil, false
	}
	r, ok := s.items[key]
	return r, ok
}

// Len returns the number of records.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the keys in order.
func (s *Set) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Records returns the records in order.
func (s *Set) Records() []Record {
	if s == nil {
		return nil
	}
	out := make([]Record, len(s.keys))
	for i, k := range s.keys {
		out[i] = s.items[k]
	}
	return out
}

// First returns the first record in order.
func (s *Set) First() (Record, bool) {
	if s.Len() == 0 {
		return nil, false
	}
	return s.items[s.keys[0]], true
}

// Each calls fn for every record in order until fn returns false.
func (s *Set) Each(fn func(key string, r Record) bool) {
	if s == nil {
		return
	}
	for _, k := range s.keys {
		if !fn(k, s.items[k]) {
			return
		}
	}
}

// Union adds the records of other whose keys are not yet present. Existing keys
// keep their record and position.
func (s *Set) Union(other *Set) {
	other.Each(func(k string, r Record) bool {
		if _, ok := s.Get(k); !ok {
			s.Put(k, r)
		}
		return true
	})
}

// Rekey returns a new set with the same records keyed by field. When two records
// share a value the later one wins the slot of the earlier one.
func (s *Set) Rekey(field string) *Set {
	return FromRecords(s.Records(), field)
}

// Filter returns a new set with the records for which keep returns true.
func (s *Set) Filter(keep func(r Record) bool) *Set {
	out := NewSet(s.Len())
	s.Each(func(k string, r Record) bool {
		if keep(r) {
			out.Put(k, r)
		}
		return true
	})
	return out
}

// SortStable returns a new set ordered by cmp; records that compare equal keep
// their relative order.
func (s *Set) SortStable(cmp func(a, b Record) int) *Set {
	keys := s.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		return cmp(s.items[keys[i]], s.items[keys[j]]) < 0
	})
	out := NewSet(len(keys))
	for _, k := range keys {
		out.Put(k, s.items[k])
	}
	return out
}

// Slice returns up to limit records starting at offset, keys preserved. A negative
// limit means "to the end".
func (s *Set) Slice(offset, limit int) *Set {
	if s == nil {
		return NewSet(0)
	}
	n := s.Len()
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit >= 0 && offset+limit < n {
		end = offset + limit
	}
	out := NewSet(end - offset)
	for _, k := range s.keys[offset:end] {
		out.Put(k, s.items[k])
	}
	return out
}

// Clone returns a copy of the set; records are shared.
func (s *Set) Clone() *Set {
	return s.Slice(0, -1)
}

type pair struct {
	Key    string `json:"key" msgpack:"k"`
	Record Record `json:"record" msgpack:"r"`
}

var _ msgpack.CustomEncoder = (*Set)(nil)
var _ msgpack.CustomDecoder = (*Set)(nil)

// EncodeMsgpack writes the set as an array of key/record pairs so order survives.
func (s *Set) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(s.Len()); err != nil {
		return err
	}
	for _, k := range s.keys {
		if err := enc.Encode(pair{Key: k, Record: s.items[k]}); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack reads the layout written by EncodeMsgpack.
func (s *Set) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n < 0 {
		n = 0
	}
	s.keys = make([]string, 0, n)
	s.items = make(map[string]Record, n)
	for i := 0; i < n; i++ {
		var p pair
		if err := dec.Decode(&p); err != nil {
			return err
		}
		s.Put(p.Key, p.Record)
	}
	return nil
}

// MarshalJSON writes the set as a JSON object whose members follow set order.
func (s *Set) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(s.items[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
