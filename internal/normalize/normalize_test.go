package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ternarybob/atsforge/internal/models"
)

func TestApply_RoleAndSeniority(t *testing.T) {
	n := New(14 * 24 * time.Hour)
	j := &models.Job{Title: "Senior Backend Engineer", Description: "Go, Postgres, Kubernetes"}

	n.Apply(j, "Austin, TX", "", "", time.Now())

	require.Equal(t, models.RoleFamilyEngineering, j.RoleFamily)
	require.Equal(t, "backend", j.RoleSpecialization)
	require.Equal(t, models.SenioritySenior, j.Seniority)
	require.Contains(t, j.Skills, "go")
	require.Contains(t, j.Skills, "postgres")
	require.Contains(t, j.Skills, "kubernetes")
}

func TestApply_RemoteAndHybrid(t *testing.T) {
	n := New(0)

	remote := &models.Job{Title: "Product Manager"}
	n.Apply(remote, "Remote (US)", "", "", time.Now())
	require.Equal(t, models.LocationTypeRemote, remote.LocationType)

	hybrid := &models.Job{Title: "Product Manager"}
	n.Apply(hybrid, "Remote, hybrid 2 days/week in SF", "", "", time.Now())
	require.Equal(t, models.LocationTypeHybrid, hybrid.LocationType)
}

func TestApply_Salary(t *testing.T) {
	n := New(0)
	j := &models.Job{Title: "Data Scientist"}

	n.Apply(j, "", "$120k - $150k", "", time.Now())

	require.NotNil(t, j.MinSalary)
	require.NotNil(t, j.MaxSalary)
	require.Equal(t, 120000, *j.MinSalary)
	require.Equal(t, 150000, *j.MaxSalary)
}

func TestApply_FreshnessScore(t *testing.T) {
	n := New(14 * 24 * time.Hour)
	j := &models.Job{Title: "Engineer"}
	now := time.Now()
	posted := now.AddDate(0, 0, -14)

	n.Apply(j, "", "", posted.Format(time.RFC3339), now)

	require.NotNil(t, j.PostedAt)
	require.NotNil(t, j.FreshnessScore)
	require.InDelta(t, 0.5, *j.FreshnessScore, 0.05)
}

func TestApply_UnknownRoleFallsBackToOther(t *testing.T) {
	n := New(0)
	j := &models.Job{Title: "Office Plant Waterer"}
	n.Apply(j, "", "", "", time.Now())
	require.Equal(t, models.RoleFamilyOther, j.RoleFamily)
}
