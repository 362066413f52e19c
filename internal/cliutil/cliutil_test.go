package cliutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"medhe/bfv"
	"medhe/dataset"
	"medhe/keystore"
	"medhe/rlwe"
)

func TestLoadParameters(t *testing.T) {
	defaultParams, err := bfv.NewParametersFromLiteral(bfv.PN5QP16)
	require.NoError(t, err)

	params, err := LoadParameters("")
	require.NoError(t, err)
	require.True(t, params.Equal(defaultParams))

	params, err = LoadParameters(`{"n":32,"q":65536,"t":16}`)
	require.NoError(t, err)
	require.Equal(t, uint64(16), params.T())

	path := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"n":64,"q":1048576,"t":256,"sigma":2}`), 0o600))
	params, err = LoadParameters(path)
	require.NoError(t, err)
	require.Equal(t, 64, params.N())
	require.Equal(t, 2.0, params.Sigma())

	_, err = LoadParameters(`{"n":32,"q":65536,"t":65536}`)
	require.ErrorIs(t, err, bfv.ErrInvalidParameters)

	_, err = LoadParameters(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveKeyID(t *testing.T) {
	store, err := keystore.Open(keystore.Config{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	_, err = ResolveKeyID(store, "")
	require.ErrorIs(t, err, keystore.ErrNotFound)

	id, err := ResolveKeyID(store, "explicit")
	require.NoError(t, err)
	require.Equal(t, "explicit", id)

	params, err := bfv.NewParametersFromLiteral(bfv.PN5QP16)
	require.NoError(t, err)
	sampler, err := rlwe.NewKeyedSampler(params.Parameters, []byte("cliutil-test"))
	require.NoError(t, err)
	kgen := rlwe.NewKeyGenerator(params.Parameters, sampler)
	_, priv, err := keystore.GenerateAuthorityKey()
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, pk, err := kgen.GenKeyPair()
		require.NoError(t, err)
		sealed, err := keystore.SealPublicKey(priv, params, pk)
		require.NoError(t, err)
		fp, err := store.PutPublicKey(sealed)
		require.NoError(t, err)

		id, err = ResolveKeyID(store, "")
		if i == 0 {
			require.NoError(t, err)
			require.Equal(t, fp, id)
		} else {
			require.Error(t, err)
		}
	}
}

func TestHeader(t *testing.T) {
	require.Equal(t, dataset.HeartColumns[:], Header(dataset.NumFeatures))
	require.Equal(t, []string{"score"}, Header(1))
	require.Equal(t, []string{"c0", "c1"}, Header(2))
}

func TestReadModel(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"weights":[1,-2,3],"bias":4}`), 0o600))
	model, err := ReadModel(path)
	require.NoError(t, err)
	require.Equal(t, []int64{1, -2, 3}, model.Weights)
	require.Equal(t, int64(4), model.Bias)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"bias":4}`), 0o600))
	_, err = ReadModel(empty)
	require.Error(t, err)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"weights":`), 0o600))
	_, err = ReadModel(broken)
	require.Error(t, err)
}

func TestWriteNewFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mldsa_pub.bin")

	require.NoError(t, CheckNotExist(path, filepath.Join(dir, "other")))
	require.NoError(t, WriteNewFile(path, []byte("first")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.ErrorIs(t, CheckNotExist(filepath.Join(dir, "other"), path), os.ErrExist)
	require.ErrorIs(t, WriteNewFile(path, []byte("second")), os.ErrExist)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "first", string(data))
}
