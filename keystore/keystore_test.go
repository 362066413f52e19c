package keystore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/stretchr/testify/require"

	"medhe/bfv"
	"medhe/codec"
	"medhe/rlwe"
)

type testContext struct {
	params  bfv.Parameters
	sk      *rlwe.SecretKey
	pk      *rlwe.PublicKey
	sampler rlwe.Sampler
}

func genTestContext(t *testing.T) *testContext {
	params, err := bfv.NewParametersFromLiteral(bfv.PN5QP16)
	require.NoError(t, err)
	sampler, err := rlwe.NewKeyedSampler(params.Parameters, []byte("keystore-test"))
	require.NoError(t, err)
	sk, pk, err := rlwe.NewKeyGenerator(params.Parameters, sampler).GenKeyPair()
	require.NoError(t, err)
	return &testContext{params: params, sk: sk, pk: pk, sampler: sampler}
}

func createTestStore(t *testing.T) *Store {
	store, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSealPublicKey(t *testing.T) {
	tc := genTestContext(t)

	pub, priv, err := mldsa65.GenerateKey(nil)
	require.NoError(t, err)

	sealed, err := SealPublicKey(priv, tc.params, tc.pk)
	require.NoError(t, err)
	require.Len(t, sealed.Signature, mldsa65.SignatureSize)

	t.Run("Open", func(t *testing.T) {
		params, pk, err := OpenPublicKey(sealed, pub)
		require.NoError(t, err)
		require.True(t, params.Equal(tc.params))
		require.True(t, pk.Equal(tc.pk))

		fp, err := sealed.Fingerprint()
		require.NoError(t, err)
		require.Equal(t, tc.pk.Fingerprint(), fp)
	})

	t.Run("WrongAuthority", func(t *testing.T) {
		otherPub, _, err := mldsa65.GenerateKey(nil)
		require.NoError(t, err)
		_, _, err = OpenPublicKey(sealed, otherPub)
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("TamperedKey", func(t *testing.T) {
		tampered := *sealed
		tampered.Key = append([]byte(nil), sealed.Key...)
		tampered.Key[len(tampered.Key)-1] ^= 1
		_, _, err := OpenPublicKey(&tampered, pub)
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("TamperedParams", func(t *testing.T) {
		tampered := *sealed
		tampered.Params.T = 16
		_, _, err := OpenPublicKey(&tampered, pub)
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("MissingAuthority", func(t *testing.T) {
		_, err := SealPublicKey(nil, tc.params, tc.pk)
		require.Error(t, err)
		_, _, err = OpenPublicKey(sealed, nil)
		require.Error(t, err)
	})

	t.Run("AuthorityKeyEncoding", func(t *testing.T) {
		pubBytes, err := pub.MarshalBinary()
		require.NoError(t, err)
		privBytes, err := priv.MarshalBinary()
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "mldsa_pub.bin")
		require.NoError(t, os.WriteFile(path, pubBytes, 0o600))
		pubTest, err := ReadAuthorityPublicKey(path)
		require.NoError(t, err)
		require.True(t, pub.Equal(pubTest))

		privTest, err := ParseAuthorityPrivateKey(privBytes)
		require.NoError(t, err)
		require.True(t, priv.Equal(privTest))
	})
}

func TestStore(t *testing.T) {
	tc := genTestContext(t)
	store := createTestStore(t)

	_, priv, err := GenerateAuthorityKey()
	require.NoError(t, err)

	sealed, err := SealPublicKey(priv, tc.params, tc.pk)
	require.NoError(t, err)

	t.Run("PublicKey", func(t *testing.T) {
		fp, err := store.PutPublicKey(sealed)
		require.NoError(t, err)
		require.Equal(t, tc.pk.Fingerprint(), fp)

		got, err := store.GetPublicKey(fp)
		require.NoError(t, err)
		require.Equal(t, sealed, got)

		fps, err := store.ListPublicKeys()
		require.NoError(t, err)
		require.Equal(t, []string{fp}, fps)

		_, err = store.GetPublicKey("unknown")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Matrix", func(t *testing.T) {
		c := codec.NewCodec(tc.params, codec.Config{
			Encryptor: bfv.NewEncryptor(tc.params, tc.pk, tc.sampler),
			Decryptor: bfv.NewDecryptor(tc.params, tc.sk),
		})
		cm, err := codec.EncryptMatrix(context.Background(), c, [][]int{{1, 2, 3}, {4, 5, 6}})
		require.NoError(t, err)

		require.NoError(t, store.PutMatrix("heart", tc.pk.Fingerprint(), tc.params, cm))
		require.NoError(t, store.PutMatrix("another", tc.pk.Fingerprint(), tc.params, cm))

		rec, err := store.GetMatrix("heart")
		require.NoError(t, err)
		require.Equal(t, tc.pk.Fingerprint(), rec.KeyID)
		require.Equal(t, tc.params.ParametersLiteral(), rec.Params)

		got, err := c.DecryptMatrix(context.Background(), rec.Matrix)
		require.NoError(t, err)
		require.Equal(t, [][]uint64{{1, 2, 3}, {4, 5, 6}}, got)

		names, err := store.ListMatrices()
		require.NoError(t, err)
		require.Equal(t, []string{"another", "heart"}, names)

		require.NoError(t, store.DeleteMatrix("another"))
		require.ErrorIs(t, store.DeleteMatrix("another"), ErrNotFound)
		_, err = store.GetMatrix("another")
		require.ErrorIs(t, err, ErrNotFound)

		cm.Values[0][0].Value[1] = nil
		require.ErrorIs(t, store.PutMatrix("broken", "", tc.params, cm), bfv.ErrShapeMismatch)
		require.Error(t, store.PutMatrix("", "", tc.params, cm))
	})
}

// TestPersistence_AcrossRestart verifies stored keys survive a reopening of the database.
func TestPersistence_AcrossRestart(t *testing.T) {
	tc := genTestContext(t)
	cfg := Config{Dir: filepath.Join(t.TempDir(), "store"), SyncWrites: true}

	_, priv, err := GenerateAuthorityKey()
	require.NoError(t, err)
	sealed, err := SealPublicKey(priv, tc.params, tc.pk)
	require.NoError(t, err)

	store1, err := Open(cfg)
	require.NoError(t, err)
	fp, err := store1.PutPublicKey(sealed)
	require.NoError(t, err)
	require.NoError(t, store1.Close())

	store2, err := Open(cfg)
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.GetPublicKey(fp)
	require.NoError(t, err)
	require.Equal(t, sealed, got)
}

func TestSecretKeyFile(t *testing.T) {
	tc := genTestContext(t)
	path := filepath.Join(t.TempDir(), "secret.key")

	require.NoError(t, WriteSecretKey(path, tc.params, tc.sk))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	params, sk, err := ReadSecretKey(path)
	require.NoError(t, err)
	require.True(t, params.Equal(tc.params))
	require.True(t, sk.Value.Equal(tc.sk.Value))

	require.ErrorIs(t, WriteSecretKey(path, tc.params, tc.sk), os.ErrExist)

	_, _, err = ReadSecretKey(filepath.Join(t.TempDir(), "missing.key"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
