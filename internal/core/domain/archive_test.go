package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/remap/internal/core/domain"
)

func TestParsePlatform(t *testing.T) {
	p, err := domain.ParsePlatform("fabric")
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformFabric, p)

	p, err = domain.ParsePlatform("Forge")
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformForge, p)

	_, err = domain.ParsePlatform("quilt")
	assert.ErrorIs(t, err, domain.ErrUnknownPlatform)
}

func TestPlatform_NestedConventions(t *testing.T) {
	assert.Equal(t, "META-INF/jars/", domain.PlatformFabric.NestedDir())
	assert.Equal(t, "META-INF/jarjar/", domain.PlatformForge.NestedDir())
	assert.True(t, domain.PlatformFabric.RequiresListing())
	assert.False(t, domain.PlatformForge.RequiresListing())

	n := domain.NestedArchive{Path: "libs/dep-1.2.jar"}
	assert.Equal(t, "META-INF/jars/dep-1.2.jar", n.TargetPath(domain.PlatformFabric))
	assert.Equal(t, "META-INF/jarjar/dep-1.2.jar", n.TargetPath(domain.PlatformForge))
}

func validSpec() domain.ArchiveSpec {
	return domain.ArchiveSpec{
		Name:            "main",
		Input:           "build/dev.jar",
		Output:          "build/dist.jar",
		SourceNamespace: "named",
		TargetNamespace: "runtime",
		Platform:        domain.PlatformFabric,
	}
}

func TestArchiveSpec_Validate(t *testing.T) {
	assert.NoError(t, validSpec().Validate())

	tests := []struct {
		name   string
		mutate func(*domain.ArchiveSpec)
	}{
		{"missing input", func(s *domain.ArchiveSpec) { s.Input = "" }},
		{"missing output", func(s *domain.ArchiveSpec) { s.Output = "" }},
		{"input equals output", func(s *domain.ArchiveSpec) { s.Output = s.Input }},
		{"missing source namespace", func(s *domain.ArchiveSpec) { s.SourceNamespace = "" }},
		{"missing target namespace", func(s *domain.ArchiveSpec) { s.TargetNamespace = "" }},
		{"bad platform", func(s *domain.ArchiveSpec) { s.Platform = "quilt" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)
			assert.Error(t, spec.Validate())
		})
	}
}
