package address

import (
	"fmt"
	"math"
	"strconv"

	"github.com/zeebo/xxh3"
)

// Fingerprint is an order-independent digest of a record multiset. Two runs
// over the same archive produce the same Fingerprint no matter how entries
// and workers interleaved.
type Fingerprint struct {
	Count int    `json:"count"`
	Sum   uint64 `json:"sum"`
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("%d:%016x", f.Count, f.Sum)
}

// Add folds one record into f. Hashes are summed (mod 2^64) rather than
// XORed so duplicate records do not cancel out.
func (f *Fingerprint) Add(r *Record, buf []byte) []byte {
	buf = r.AppendCanonical(buf[:0])
	f.Sum += xxh3.Hash(buf)
	f.Count++
	return buf
}

// Merge folds another fingerprint into f.
func (f *Fingerprint) Merge(o Fingerprint) {
	f.Sum += o.Sum
	f.Count += o.Count
}

// FingerprintOf digests recs.
func FingerprintOf(recs []Record) Fingerprint {
	var (
		f   Fingerprint
		buf = make([]byte, 0, 256)
	)
	for i := range recs {
		buf = f.Add(&recs[i], buf)
	}
	return f
}

const (
	sepField = 0x1f
	absent   = 0x00
	present  = 0x01
)

// AppendCanonical appends a stable binary form of r to dst, used for hashing.
func (r *Record) AppendCanonical(dst []byte) []byte {
	dst = strconv.AppendUint(dst, uint64(r.ADMCode), 10)
	dst = append(dst, sepField)
	dst = strconv.AppendUint(dst, uint64(r.TownCode), 10)
	dst = append(dst, sepField)
	dst = append(dst, r.Town...)
	dst = append(dst, sepField)
	dst = appendOptUint(dst, r.CityPartCode)
	dst = appendOptString(dst, r.CityPart)
	dst = appendOptUint(dst, r.PraguePartCode)
	dst = appendOptString(dst, r.PraguePart)
	dst = strconv.AppendUint(dst, uint64(r.TownPartCode), 10)
	dst = append(dst, sepField)
	dst = append(dst, r.TownPart...)
	dst = append(dst, sepField)
	dst = appendOptUint32(dst, r.StreetCode)
	dst = appendOptString(dst, r.Street)
	dst = append(dst, r.ObjectType...)
	dst = append(dst, sepField)
	dst = strconv.AppendUint(dst, uint64(r.Number), 10)
	dst = append(dst, sepField)
	dst = appendOptUint32(dst, r.OrientationNumber)
	dst = appendOptString(dst, r.OrientationNumberSign)
	dst = strconv.AppendUint(dst, uint64(r.ZipCode), 10)
	dst = append(dst, sepField)
	dst = appendOptFloat(dst, r.LocationX)
	dst = appendOptFloat(dst, r.LocationY)
	dst = strconv.AppendInt(dst, r.ValidSince.Unix(), 10)
	return dst
}

func appendOptUint(dst []byte, v *uint64) []byte {
	if v == nil {
		return append(dst, absent, sepField)
	}
	dst = append(dst, present)
	return append(strconv.AppendUint(dst, *v, 10), sepField)
}

func appendOptUint32(dst []byte, v *uint32) []byte {
	if v == nil {
		return append(dst, absent, sepField)
	}
	dst = append(dst, present)
	return append(strconv.AppendUint(dst, uint64(*v), 10), sepField)
}

func appendOptString(dst []byte, v *string) []byte {
	if v == nil {
		return append(dst, absent, sepField)
	}
	dst = append(dst, present)
	return append(append(dst, *v...), sepField)
}

func appendOptFloat(dst []byte, v *float32) []byte {
	if v == nil {
		return append(dst, absent, sepField)
	}
	dst = append(dst, present)
	return append(strconv.AppendUint(dst, uint64(math.Float32bits(*v)), 16), sepField)
}
