package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcabral19/json-placeholder-elt/internal/domain"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	kinds := r.Kinds()
	require.Len(t, kinds, 2)
	assert.Equal(t, domain.KindCompany, kinds[0].Kind)
	assert.True(t, kinds[0].Dedupe)
	assert.Equal(t, domain.KindUser, kinds[1].Kind)
	assert.False(t, kinds[1].Dedupe)

	spec, ok := r.Lookup(domain.KindUser)
	require.True(t, ok)
	assert.Equal(t, domain.UserFields, spec.Fields)

	_, ok = r.Lookup("address")
	assert.False(t, ok)
}

func TestKindSpec_Path(t *testing.T) {
	spec := KindSpec{Kind: domain.KindUser, Fields: domain.UserFields}
	assert.Equal(t,
		filepath.Join("/out", "user", "2009-02-13", "23", "processed_user_1234567890.csv"),
		spec.Path("/out", "2009-02-13/23", 1234567890))
}

func TestNewRegistry_Errors(t *testing.T) {
	_, err := NewRegistry(KindSpec{Fields: []string{"a"}})
	assert.Error(t, err)

	_, err = NewRegistry(KindSpec{Kind: "x"})
	assert.Error(t, err)

	_, err = NewRegistry(KindSpec{Kind: "x", Fields: []string{"a"}}, KindSpec{Kind: "x", Fields: []string{"b"}})
	assert.Error(t, err)
}

func TestRegistry_KindsIsACopy(t *testing.T) {
	r := DefaultRegistry()
	kinds := r.Kinds()
	kinds[0].Kind = "mutated"
	assert.Equal(t, domain.KindCompany, r.Kinds()[0].Kind)
}
