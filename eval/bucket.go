package eval

import (
	"crypto/sha1" //nolint:gosec // not used for anything security-sensitive, only stable hashing
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/flagkit/flagkit-go/ldmodel"
	"github.com/flagkit/flagkit-go/lduser"
)

// longScale is 2^60 - 1, expressed as the first 15 hex digits of a SHA1 sum would be if they were
// all 'f'. Dividing the integer parsed from those 15 digits by this constant yields a float in
// [0, 1).
const longScale = float64(0xFFFFFFFFFFFFFFF)

// bucketValue computes the deterministic [0,1) bucket for a user under a given flag/segment key
// and salt, per spec.md 4.1's Bucketing algorithm.
func bucketValue(user lduser.User, bucketBy string, key string, salt string) float64 {
	idHash, ok := bucketableStringValue(user, bucketBy)
	if !ok {
		return 0
	}
	if user.Secondary != "" {
		idHash = idHash + "." + user.Secondary
	}

	h := sha1.New() //nolint:gosec
	_, _ = fmt.Fprintf(h, "%s.%s.%s", key, salt, idHash)
	hash := hex.EncodeToString(h.Sum(nil))[:15]

	intVal, err := strconv.ParseInt(hash, 16, 64)
	if err != nil {
		return 0
	}
	return float64(intVal) / longScale
}

// bucketableStringValue extracts the bucketing attribute as a string. Only strings and integers
// are bucketable; any other type (or a missing attribute) buckets to 0, matching "a missing
// bucketBy attribute buckets to 0" in spec.md 4.1.
func bucketableStringValue(user lduser.User, attr string) (string, bool) {
	if attr == "" || attr == "key" {
		return user.Key, user.Key != ""
	}
	v, ok := user.GetAttribute(attr)
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10), true
		}
		return "", false
	default:
		return "", false
	}
}

// variationIndexForBucket walks a rollout's weighted variations, accumulating weight/100000
// until the cumulative sum exceeds the bucket. The last variation absorbs any rounding shortfall,
// per spec.md 3's "the last bucket absorbs rounding" invariant.
func variationIndexForBucket(rollout ldmodel.Rollout, bucket float64) (int, bool) {
	if len(rollout.Variations) == 0 {
		return 0, false
	}
	var sum float64
	for _, wv := range rollout.Variations {
		sum += float64(wv.Weight) / 100000.0
		if bucket < sum {
			return wv.Variation, true
		}
	}
	// Rounding shortfall (weights summing to < 100000): the overflow routes to the last
	// weighted variation.
	return rollout.Variations[len(rollout.Variations)-1].Variation, true
}

// variationOrRolloutIndex resolves a VariationOrRollout to a concrete variation index for user.
func variationOrRolloutIndex(
	vr ldmodel.VariationOrRollout,
	user lduser.User,
	flagKey string,
	salt string,
) (int, bool) {
	if vr.HasVariation {
		return vr.Variation, true
	}
	bucketBy := vr.Rollout.BucketBy
	bucket := bucketValue(user, bucketBy, flagKey, salt)
	return variationIndexForBucket(vr.Rollout, bucket)
}
