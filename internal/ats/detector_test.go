package ats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetector_URLShapeMatchGreenhouse(t *testing.T) {
	reg := NewRegistry()
	det := NewDetector(reg, nil, nil)

	res, err := det.Detect(context.Background(), "https://boards.greenhouse.io/acme", nil)
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.Equal(t, "greenhouse", res.Family)
	require.Equal(t, "acme", res.Identifier)
}

func TestDetector_HTMLKeywordMatchLever(t *testing.T) {
	reg := NewRegistry()
	det := NewDetector(reg, nil, nil)

	html := []byte(`<html><body>Powered by <a href="https://jobs.lever.co/acme">Lever</a></body></html>`)
	res, err := det.Detect(context.Background(), "https://acme.com/careers", html)
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.Equal(t, "lever", res.Family)
	require.Equal(t, "acme", res.Identifier)
}

func TestDetector_DataAttributeIdentifierExtraction(t *testing.T) {
	reg := NewRegistry()
	det := NewDetector(reg, nil, nil)

	html := []byte(`<div data-board-token="acme-eng"></div><p>greenhouse.io embed</p>`)
	res, err := det.Detect(context.Background(), "https://acme.com/careers", html)
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.Equal(t, "greenhouse", res.Family)
	require.Equal(t, "acme-eng", res.Identifier)
}

func TestDetector_NoMatch(t *testing.T) {
	reg := NewRegistry()
	det := NewDetector(reg, nil, nil)

	res, err := det.Detect(context.Background(), "https://acme.com/careers", []byte("<html>nothing here</html>"))
	require.NoError(t, err)
	require.False(t, res.Matched)
}

func TestIsValidIdentifier_RejectsBlocklist(t *testing.T) {
	require.False(t, IsValidIdentifier("embed"))
	require.False(t, IsValidIdentifier("undefined"))
	require.False(t, IsValidIdentifier("${boardToken}"))
	require.False(t, IsValidIdentifier("<script>alert(1)</script>"))
	require.False(t, IsValidIdentifier("ab"))
	require.True(t, IsValidIdentifier("acme-eng"))
}

func TestIsValidCareersURLForDomain(t *testing.T) {
	require.True(t, IsValidCareersURLForDomain("https://boards.greenhouse.io/acme", "Acme Inc", "acme.com"))
	require.True(t, IsValidCareersURLForDomain("https://acme.com/careers", "Acme Inc", "acme.com"))
	require.True(t, IsValidCareersURLForDomain("https://careers.acme.com/jobs", "Acme Inc", "acme.com"))
	require.False(t, IsValidCareersURLForDomain("https://othercompany.example/careers", "Some Unrelated Name", "unrelated-domain.com"))
}
