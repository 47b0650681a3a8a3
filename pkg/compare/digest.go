package compare

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the hex SHA-256 of data
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestComparator compares images by content digest only.
// Any byte difference counts as one difference.
type DigestComparator struct{}

// NewDigestComparator creates a digest-only image comparator
func NewDigestComparator() *DigestComparator {
	return &DigestComparator{}
}

// Compare compares two images by SHA-256 digest.
// The artifact embeds the reproduced image so the diff document stays self-contained.
func (c *DigestComparator) Compare(ctx context.Context, original, reproduced ImageInput) (*ImageCompareResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := digestResult(Digest(original.Data) == Digest(reproduced.Data))
	res.Artifact = dataURI(reproduced.Data)
	return res, nil
}

// Name returns the comparator name
func (c *DigestComparator) Name() string {
	return MethodDigest
}

func digestResult(equal bool) *ImageCompareResult {
	res := &ImageCompareResult{}
	res.Stats.Method = MethodDigest
	res.Stats.DimensionsMatch = equal
	if !equal {
		res.Stats.Differences = 1
		res.Stats.DiffPercentage = 100
	}
	return res
}
