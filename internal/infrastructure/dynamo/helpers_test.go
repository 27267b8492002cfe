package dynamo

import (
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"username": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": "username"}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"avatar_key": "avatars/u1/me.png",
		"email":      "a@b.com",
		"username":   "alice",
	}
	// Call twice to verify determinism.
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)

	// Keys must be sorted: avatar_key < email < username
	assert.Equal(t, "avatar_key", ue1.Names["#f0"])
	assert.Equal(t, "email", ue1.Names["#f1"])
	assert.Equal(t, "username", ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"is_read": true})
	require.NoError(t, err)
	av, ok := ue.Values[":v0"]
	require.True(t, ok)
	boolVal, isBool := av.(*types.AttributeValueMemberBOOL)
	require.True(t, isBool)
	assert.True(t, boolVal.Value)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestFormatTS_FixedWidth(t *testing.T) {
	whole := time.Date(2026, 8, 1, 12, 0, 5, 0, time.UTC)
	frac := time.Date(2026, 8, 1, 12, 0, 5, 100, time.UTC)

	assert.Len(t, formatTS(whole), len(tsLayout))
	assert.Len(t, formatTS(frac), len(tsLayout))
	assert.Equal(t, "2026-08-01T12:00:05.000000000Z", formatTS(whole))
}

// The created_at range conditions on the user_id-created_at GSI only work if
// lexicographic order on the stored string equals chronological order.
func TestFormatTS_LexicographicOrderIsChronological(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 5, 0, time.UTC)
	times := []time.Time{
		base.Add(time.Nanosecond),
		base,
		base.Add(-time.Second),
		base.Add(500 * time.Millisecond),
		base.Add(time.Minute),
	}

	formatted := make([]string, len(times))
	for i, tm := range times {
		formatted[i] = formatTS(tm)
	}
	sort.Strings(formatted)

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	for i, tm := range times {
		assert.Equal(t, formatTS(tm), formatted[i])
	}
}

func TestParseTS_RoundTrip(t *testing.T) {
	orig := time.Date(2026, 8, 1, 12, 0, 5, 123456789, time.UTC)
	got, err := parseTS(formatTS(orig))
	require.NoError(t, err)
	assert.True(t, got.Equal(orig))
}

func TestFormatTS_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2026, 8, 1, 14, 0, 0, 0, loc)
	assert.Equal(t, "2026-08-01T12:00:00.000000000Z", formatTS(local))
}
