package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inframed/inframed/repository"
	"github.com/inframed/inframed/signal"
)

func TestDynamicRec_Versions(t *testing.T) {
	dir := t.TempDir()
	path := build(t, dir, "SIGNAL signals.txt\nDATA a.txt\nMODE 2\n", nil)
	repo, err := repository.OpenFile(context.Background(), path)
	require.NoError(t, err)
	defer repo.Close()

	base, err := repo.PidRec(context.Background(), 1)
	require.NoError(t, err)
	d := repository.NewDynamicRec(base, 3)
	assert.Equal(t, 3, d.Versions())
	assert.Equal(t, int32(1), d.Pid)

	orig := []signal.Record{{Date: 20200101, Val: 95}, {Date: 20200102, Val: 97}}
	for v := range 3 {
		got, err := d.Get(sidGLU, v)
		require.NoError(t, err)
		assert.Equal(t, orig, got.Records())
	}

	cleaned := []signal.Record{{Date: 20200101, Val: 95}}
	require.NoError(t, d.Set(sidGLU, 1, cleaned))
	assert.True(t, d.Edited(sidGLU, 1))
	assert.False(t, d.Edited(sidGLU, 0))

	v0, _ := d.Get(sidGLU, 0)
	v1, _ := d.Get(sidGLU, 1)
	assert.Equal(t, orig, v0.Records())
	assert.Equal(t, cleaned, v1.Records())

	// The base record is untouched.
	b, ok := base.Get(sidGLU)
	require.True(t, ok)
	assert.Equal(t, orig, b.Records())

	require.NoError(t, d.Point(sidGLU, 1, 2))
	v2, _ := d.Get(sidGLU, 2)
	assert.Equal(t, cleaned, v2.Records())

	require.NoError(t, d.Point(sidGLU, 0, 2))
	v2, _ = d.Get(sidGLU, 2)
	assert.Equal(t, orig, v2.Records())

	require.NoError(t, d.SetAll(sidHGB, nil))
	for v := range 3 {
		got, err := d.Get(sidHGB, v)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Len())
	}

	d.Reset(sidGLU)
	assert.False(t, d.Edited(sidGLU, 1))
	v1, _ = d.Get(sidGLU, 1)
	assert.Equal(t, orig, v1.Records())

	_, err = d.Get(sidGLU, 3)
	require.ErrorIs(t, err, repository.ErrVersion)
	require.ErrorIs(t, d.Set(999, 0, cleaned), repository.ErrUnknownSignal)
}
