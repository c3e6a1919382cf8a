package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

func TestCertificationRequest(t *testing.T) {
	valid := func() CreateCertificationRequest {
		return CreateCertificationRequest{
			StandardID: id.NewStandardID(),
			Name:       " Ensure /tmp is a separate partition ",
			Title:      "Separate /tmp",
		}
	}

	t.Run("normalize defaults the state", func(t *testing.T) {
		r := valid()
		r.Normalize()
		require.NoError(t, r.Validate())
		assert.Equal(t, "Ensure /tmp is a separate partition", r.Name)
		assert.Equal(t, CertificationDraft, r.State)
	})

	cases := map[string]func(r *CreateCertificationRequest){
		"missing standard":   func(r *CreateCertificationRequest) { r.StandardID = id.StandardID{} },
		"missing title":      func(r *CreateCertificationRequest) { r.Title = "  " },
		"unknown level":      func(r *CreateCertificationRequest) { r.Level = "3" },
		"unknown assessment": func(r *CreateCertificationRequest) { r.AssessmentStatus = "scripted" },
		"unknown state":      func(r *CreateCertificationRequest) { r.State = "pending" },
		"negative percent":   func(r *CreateCertificationRequest) { r.CompliancePercentage = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := valid()
			mutate(&r)
			r.Normalize()
			assert.True(t, dErrors.HasCode(r.Validate(), dErrors.CodeValidation))
		})
	}
}

func TestCertificationDisplayName(t *testing.T) {
	c := &Certification{Name: "Ensure auditd is installed"}
	assert.Equal(t, "Ensure auditd is installed", c.DisplayName())
	c.RecommendationNumber = "4.1.1.1"
	assert.Equal(t, "4.1.1.1 - Ensure auditd is installed", c.DisplayName())
}

func TestArchiveIsIdempotent(t *testing.T) {
	later := now.Add(time.Hour)
	d, err := NewDomain(id.NewDomainID(), id.NewStandardID(), "Annex A", "", now)
	require.NoError(t, err)

	assert.True(t, d.Archive(later))
	assert.False(t, d.Active)
	assert.Equal(t, later, d.UpdatedAt)
	assert.False(t, d.Archive(later.Add(time.Hour)))
	assert.Equal(t, later, d.UpdatedAt)
}
