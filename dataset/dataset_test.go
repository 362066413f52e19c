package dataset

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"medhe/bfv"
	"medhe/codec"
	"medhe/rlwe"
)

const heartCSV = `age,sex,cp,trestbps,chol,fbs,restecg,thalach,exang,oldpeak,slope,ca,thal,target
63,1,3,145,233,1,0,150,0,2.3,0,0,1,1
37,1,2,130,250,0,1,187,0,3.5,0,?,2,1
41,0,1,130,204,0,0,172,0,1.4,2,,2,1
56,1,1,120,236,0,1,178,0,0.8,2,0,NA
`

func newTestCodec(t *testing.T) *codec.Codec {
	params, err := bfv.NewParametersFromLiteral(bfv.PN5QP16)
	require.NoError(t, err)
	sampler, err := rlwe.NewKeyedSampler(params.Parameters, []byte("dataset-test"))
	require.NoError(t, err)
	sk, pk, err := rlwe.NewKeyGenerator(params.Parameters, sampler).GenKeyPair()
	require.NoError(t, err)
	return codec.NewCodec(params, codec.Config{
		Encryptor: bfv.NewEncryptor(params, pk, sampler),
		Decryptor: bfv.NewDecryptor(params, sk),
		Workers:   4,
	})
}

func TestReadTable(t *testing.T) {

	t.Run("Heart", func(t *testing.T) {
		table, err := ReadTable(strings.NewReader(heartCSV))
		require.NoError(t, err)
		require.Equal(t, HeartColumns[:], table.Header)
		require.Equal(t, 3, table.Missing)

		want := [][]float64{
			{63, 1, 3, 145, 233, 1, 0, 150, 0, 2.3, 0, 0, 1},
			{37, 1, 2, 130, 250, 0, 1, 187, 0, 3.5, 0, 0, 2},
			{41, 0, 1, 130, 204, 0, 0, 172, 0, 1.4, 2, 0, 2},
			{56, 1, 1, 120, 236, 0, 1, 178, 0, 0.8, 2, 0, 0},
		}
		if diff := cmp.Diff(want, table.Rows); diff != "" {
			t.Fatalf("ReadTable mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ShortRow", func(t *testing.T) {
		table, err := ReadTable(strings.NewReader(strings.Join(HeartColumns[:], ",") + "\n1,2,3\n"))
		require.NoError(t, err)
		require.Equal(t, [][]float64{{1, 2, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}}, table.Rows)
		require.Equal(t, 10, table.Missing)
	})

	t.Run("NotANumber", func(t *testing.T) {
		in := strings.Join(HeartColumns[:], ",") + "\n" +
			"63,1,3,145,233,1,0,150,0,2.3,0,0,1\n" +
			"63,male,3,145,233,1,0,150,0,2.3,0,0,1\n"
		_, err := ReadTable(strings.NewReader(in))
		require.ErrorIs(t, err, ErrMalformedRow)
		require.Contains(t, err.Error(), "line 3")
		require.Contains(t, err.Error(), `"sex"`)
	})

	t.Run("ShortHeader", func(t *testing.T) {
		_, err := ReadTable(strings.NewReader("age,sex\n1,2\n"))
		require.ErrorIs(t, err, ErrMalformedRow)

		_, err = ReadTable(strings.NewReader(""))
		require.ErrorIs(t, err, ErrMalformedRow)
	})
}

func TestWriteFeatures(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFeatures(&buf, [][]uint64{{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}}))
	require.Equal(t,
		"age,sex,cp,trestbps,chol,fbs,restecg,thalach,exang,oldpeak,slope,ca,thal\n"+
			"1,2,3,4,5,6,7,8,9,10,11,12,13\n",
		buf.String())

	require.ErrorIs(t, WriteFeatures(&buf, [][]uint64{{1, 2}}), ErrMalformedRow)
}

func TestPrivacyPreservingTest(t *testing.T) {

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "heart.csv")
	outputPath := filepath.Join(dir, "heart_encrypted.csv")
	require.NoError(t, os.WriteFile(inputPath, []byte(heartCSV), 0o600))

	c := newTestCodec(t)

	cm, err := PrivacyPreservingTest(context.Background(), c, inputPath, outputPath)
	require.NoError(t, err)
	require.Equal(t, 4, cm.Rows)
	require.Equal(t, NumFeatures, cm.Cols)
	require.NoError(t, cm.Validate(c.Parameters()))

	// the file holds the header and the leading coefficient of every ciphertext
	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	var want bytes.Buffer
	require.NoError(t, WriteFeatures(&want, cm.LeadingCoefficients()))
	require.Equal(t, want.String(), string(data))
	require.True(t, strings.HasPrefix(string(data), "age,sex,cp,trestbps,chol,fbs,restecg,thalach,exang,oldpeak,slope,ca,thal\n"))
	require.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 5)

	// the returned matrix decrypts to the truncated inputs
	got, err := c.DecryptMatrix(context.Background(), cm)
	require.NoError(t, err)
	wantPlain := [][]uint64{
		{63, 1, 3, 145, 233, 1, 0, 150, 0, 2, 0, 0, 1},
		{37, 1, 2, 130, 250, 0, 1, 187, 0, 3, 0, 0, 2},
		{41, 0, 1, 130, 204, 0, 0, 172, 0, 1, 2, 0, 2},
		{56, 1, 1, 120, 236, 0, 1, 178, 0, 0, 2, 0, 0},
	}
	if diff := cmp.Diff(wantPlain, got); diff != "" {
		t.Fatalf("DecryptMatrix mismatch (-want +got):\n%s", diff)
	}

	_, err = PrivacyPreservingTest(context.Background(), c, filepath.Join(dir, "missing.csv"), outputPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEncryptTableProgress(t *testing.T) {

	table := &Table{Header: HeartColumns[:], Rows: make([][]float64, ProgressInterval+1)}
	for i := range table.Rows {
		table.Rows[i] = make([]float64, NumFeatures)
		table.Rows[i][0] = float64(i % 100)
	}

	var buf bytes.Buffer
	e := &Exporter{Codec: newTestCodec(t), Logger: log.New(&buf, "", 0)}

	cm, err := e.EncryptTable(context.Background(), table)
	require.NoError(t, err)
	require.Equal(t, ProgressInterval+1, cm.Rows)
	require.Len(t, cm.Values, ProgressInterval+1)
	require.Contains(t, buf.String(), "encrypted 1000/1001 rows")
	require.Contains(t, buf.String(), "encrypted 1001/1001 rows")
}

func TestWriteTableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.csv")
	require.NoError(t, WriteTableFile(path, []string{"score"}, [][]uint64{{12}, {1023}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "score\n12\n1023\n", string(data))

	require.ErrorIs(t, WriteTableFile(path, []string{"score"}, [][]uint64{{1, 2}}), ErrMalformedRow)
}
