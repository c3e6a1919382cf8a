package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "complyhub/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseDomainID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseControlID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseStandardID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		parsed, err := ParseRequirementID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, RequirementID(validUUID), parsed)
		assert.Equal(t, validUUID.String(), parsed.String())
	})
}

func TestNilDetection(t *testing.T) {
	assert.True(t, DomainID{}.IsNil())
	assert.False(t, NewDomainID().IsNil())
	assert.True(t, ActorID(uuid.Nil).IsNil())
}

func TestTextEncoding(t *testing.T) {
	type record struct {
		Control ControlID `json:"control"`
		Owner   ActorID   `json:"owner"`
	}

	c := NewControlID()
	raw, err := json.Marshal(record{Control: c})
	require.NoError(t, err)
	assert.JSONEq(t, `{"control":"`+c.String()+`","owner":""}`, string(raw))

	var back record
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, c, back.Control)
	assert.True(t, back.Owner.IsNil())

	assert.Error(t, json.Unmarshal([]byte(`{"control":"nope"}`), &back))
}
