package rlwe

import (
	"encoding/json"
	"flag"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

var flagParamString = flag.String("params", "", "specify the test cryptographic parameters as a JSON string. Overrides the default test parameters.")

// TestParams is a set of test parameters for the correctness of the rlwe package.
var TestParams = []ParametersLiteral{
	{N: 32, Q: 1 << 16},
	{N: 64, Q: 1 << 20, Sigma: 2},
}

func testString(params Parameters, opname string) string {
	return fmt.Sprintf("%slogN=%d/logQ=%.0f/sigma=%.1f",
		opname,
		params.LogN(),
		params.LogQ(),
		params.Sigma())
}

type testContext struct {
	params  Parameters
	sampler *PRNGSampler
	kgen    *KeyGenerator
	sk      *SecretKey
	pk      *PublicKey
}

func genTestContext(params Parameters) (tc *testContext, err error) {
	tc = &testContext{params: params}
	if tc.sampler, err = NewKeyedSampler(params, []byte("rlwe-test")); err != nil {
		return nil, err
	}
	tc.kgen = NewKeyGenerator(params, tc.sampler)
	if tc.sk, tc.pk, err = tc.kgen.GenKeyPair(); err != nil {
		return nil, err
	}
	return tc, nil
}

func TestRLWE(t *testing.T) {
	defaultParams := TestParams

	if *flagParamString != "" {
		var jsonParams ParametersLiteral
		if err := json.Unmarshal([]byte(*flagParamString), &jsonParams); err != nil {
			t.Fatal(err)
		}
		defaultParams = []ParametersLiteral{jsonParams}
	}

	for _, defaultParam := range defaultParams {
		params, err := NewParametersFromLiteral(defaultParam)
		require.NoError(t, err)

		tc, err := genTestContext(params)
		require.NoError(t, err)

		testRing(tc, t)
		testSampler(tc, t)
		testGenKeyPair(tc, t)
		testEncryptor(tc, t)
		testMarshaller(tc, t)
	}
}

func TestParameters(t *testing.T) {

	t.Run("Default", func(t *testing.T) {
		params, err := NewParametersFromLiteral(ParametersLiteral{N: 32, Q: 1 << 16})
		require.NoError(t, err)
		require.Equal(t, 32, params.N())
		require.Equal(t, 5, params.LogN())
		require.Equal(t, uint64(1<<16), params.Q())
		require.Equal(t, 16.0, params.LogQ())
		require.Equal(t, DefaultSigma, params.Sigma())
		require.Equal(t, []uint64{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, params.ReductionPolynomial())

		other, err := NewParametersFromLiteral(params.ParametersLiteral())
		require.NoError(t, err)
		require.True(t, params.Equal(other))
	})

	for _, pl := range []ParametersLiteral{
		{N: 0, Q: 1 << 16},
		{N: 24, Q: 1 << 16},
		{N: 1 << 16, Q: 1 << 16},
		{N: 32, Q: 1},
		{N: 32, Q: 1 << 62},
		{N: 32, Q: 1 << 16, Sigma: -1},
	} {
		t.Run(fmt.Sprintf("Invalid/N=%d/Q=%d/sigma=%v", pl.N, pl.Q, pl.Sigma), func(t *testing.T) {
			_, err := NewParametersFromLiteral(pl)
			require.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

// naiveMulMod multiplies p1 by p2 in Z_q[X] and reduces the product by long
// division by X^N+1.
func naiveMulMod(p1, p2 []uint64, q uint64) []uint64 {
	N := len(p1)
	prod := make([]int64, 2*N-1)
	for i := range p1 {
		for j := range p2 {
			prod[i+j] = int64((uint64(prod[i+j]) + p1[i]*p2[j]) % q)
		}
	}
	// Long division: the leading term c*X^d is removed by subtracting
	// c*X^(d-N)*(X^N+1).
	for d := 2*N - 2; d >= N; d-- {
		c := prod[d]
		prod[d] = 0
		prod[d-N] = int64(ModInt64(prod[d-N]-c, q))
	}
	out := make([]uint64, N)
	for i := range out {
		out[i] = uint64(prod[i])
	}
	return out
}

func testRing(tc *testContext, t *testing.T) {

	params := tc.params
	ringQ := params.RingQ()

	t.Run(testString(params, "Ring/MulPoly/"), func(t *testing.T) {
		for trial := 0; trial < 8; trial++ {
			a, err := tc.sampler.Uniform(params.N(), params.Q())
			require.NoError(t, err)
			b, err := tc.sampler.Uniform(params.N(), params.Q())
			require.NoError(t, err)

			out := ringQ.NewPoly()
			require.NoError(t, ringQ.MulPoly(&Poly{Coeffs: a}, &Poly{Coeffs: b}, out))
			require.Equal(t, naiveMulMod(a, b, params.Q()), out.Coeffs)
		}
	})

	t.Run(testString(params, "Ring/Negacyclic/"), func(t *testing.T) {
		x := ringQ.NewPoly()
		x.Coeffs[1] = 1
		xn1 := ringQ.NewPoly()
		xn1.Coeffs[params.N()-1] = 1

		out := ringQ.NewPoly()
		require.NoError(t, ringQ.MulPoly(x, xn1, out))

		minusOne := ringQ.NewPoly()
		minusOne.Coeffs[0] = params.Q() - 1
		require.True(t, out.Equal(minusOne))
	})

	t.Run(testString(params, "Ring/AddSubNeg/"), func(t *testing.T) {
		a, err := tc.sampler.Uniform(params.N(), params.Q())
		require.NoError(t, err)
		b, err := tc.sampler.Uniform(params.N(), params.Q())
		require.NoError(t, err)

		pa, pb := &Poly{Coeffs: a}, &Poly{Coeffs: b}
		sum := ringQ.NewPoly()
		require.NoError(t, ringQ.Add(pa, pb, sum))
		require.NoError(t, ringQ.Sub(sum, pb, sum))
		require.True(t, sum.Equal(pa))

		neg := ringQ.NewPoly()
		require.NoError(t, ringQ.Neg(pa, neg))
		require.NoError(t, ringQ.Add(pa, neg, neg))
		require.True(t, neg.Equal(ringQ.NewPoly()))
	})

	t.Run(testString(params, "Ring/ShapeMismatch/"), func(t *testing.T) {
		short := NewPoly(params.N() / 2)
		require.ErrorIs(t, ringQ.Add(short, ringQ.NewPoly(), ringQ.NewPoly()), ErrShapeMismatch)
		require.ErrorIs(t, ringQ.MulPoly(ringQ.NewPoly(), nil, ringQ.NewPoly()), ErrShapeMismatch)
		require.ErrorIs(t, ringQ.Reduce(make([]int64, 3), ringQ.NewPoly()), ErrShapeMismatch)
	})

	t.Run(testString(params, "Ring/ReduceCenter/"), func(t *testing.T) {
		coeffs := make([]int64, params.N())
		for i := range coeffs {
			coeffs[i] = int64(i) - int64(params.N()/2)
		}
		pol := ringQ.NewPoly()
		require.NoError(t, ringQ.Reduce(coeffs, pol))
		require.NoError(t, ringQ.CheckRange(pol))
		require.Equal(t, coeffs, ringQ.Center(pol))
	})
}

func testSampler(tc *testContext, t *testing.T) {

	params := tc.params

	t.Run(testString(params, "Sampler/Keyed/"), func(t *testing.T) {
		s0, err := NewKeyedSampler(params, []byte("same key"))
		require.NoError(t, err)
		s1, err := NewKeyedSampler(params, []byte("same key"))
		require.NoError(t, err)

		u0, err := s0.Uniform(params.N(), params.Q())
		require.NoError(t, err)
		u1, err := s1.Uniform(params.N(), params.Q())
		require.NoError(t, err)
		require.Equal(t, u0, u1)

		u2, err := s0.Uniform(params.N(), params.Q())
		require.NoError(t, err)
		require.NotEqual(t, u0, u2)
	})

	t.Run(testString(params, "Sampler/Ranges/"), func(t *testing.T) {
		u, err := tc.sampler.Uniform(4*params.N(), params.Q())
		require.NoError(t, err)
		for _, c := range u {
			require.Less(t, c, params.Q())
		}

		b, err := tc.sampler.Binary(4 * params.N())
		require.NoError(t, err)
		var ones int
		for _, c := range b {
			require.LessOrEqual(t, c, uint64(1))
			ones += int(c)
		}
		require.Greater(t, ones, 0)
		require.Less(t, ones, len(b))

		bound := int64(6*params.Sigma()) + 1
		e, err := tc.sampler.SmallError(4 * params.N())
		require.NoError(t, err)
		require.Len(t, e, 4*params.N())
		for _, c := range e {
			require.LessOrEqual(t, c, bound)
			require.GreaterOrEqual(t, c, -bound)
		}
	})

	t.Run(testString(params, "Sampler/NegativeSize/"), func(t *testing.T) {
		_, err := tc.sampler.Binary(-1)
		require.ErrorIs(t, err, ErrShapeMismatch)
	})
}

func testGenKeyPair(tc *testContext, t *testing.T) {

	params := tc.params
	ringQ := params.RingQ()

	t.Run(testString(params, "KeyGen/"), func(t *testing.T) {
		require.NoError(t, tc.sk.Validate(params))
		require.NoError(t, tc.pk.Validate(params))

		// pk[0] + pk[1]*sk = -e must be small
		tmp := ringQ.NewPoly()
		require.NoError(t, ringQ.MulPoly(tc.pk.Value[1], tc.sk.Value, tmp))
		require.NoError(t, ringQ.Add(tmp, tc.pk.Value[0], tmp))

		bound := int64(6*params.Sigma()) + 1
		for _, c := range ringQ.Center(tmp) {
			require.LessOrEqual(t, c, bound)
			require.GreaterOrEqual(t, c, -bound)
		}
	})

	t.Run(testString(params, "KeyGen/Independent/"), func(t *testing.T) {
		sk, pk, err := tc.kgen.GenKeyPair()
		require.NoError(t, err)
		require.False(t, pk.Equal(tc.pk))
		require.NotEqual(t, pk.Fingerprint(), tc.pk.Fingerprint())
		require.Len(t, sk.Value.Coeffs, params.N())
	})
}

func testEncryptor(tc *testContext, t *testing.T) {

	params := tc.params
	ringQ := params.RingQ()
	encryptor := NewEncryptor(params, tc.pk, tc.sampler)
	decryptor := NewDecryptor(params, tc.sk)

	t.Run(testString(params, "Encrypt/Phase/"), func(t *testing.T) {
		pt := NewPlaintext(params)
		coeffs, err := tc.sampler.Uniform(params.N(), params.Q())
		require.NoError(t, err)
		copy(pt.Value.Coeffs, coeffs)

		ct, err := encryptor.EncryptNew(pt)
		require.NoError(t, err)
		require.NoError(t, ct.Validate(params))
		require.Equal(t, 0, ct.Depth)

		phase, err := decryptor.DecryptNew(ct)
		require.NoError(t, err)

		noise := ringQ.NewPoly()
		require.NoError(t, ringQ.Sub(phase.Value, pt.Value, noise))

		// e*u + e1 + e2*sk with binary u and sk
		bound := int64(6*params.Sigma()) * int64(2*params.N()+1)
		for _, c := range ringQ.Center(noise) {
			require.LessOrEqual(t, c, bound)
			require.GreaterOrEqual(t, c, -bound)
		}
	})

	t.Run(testString(params, "Encrypt/Fresh/"), func(t *testing.T) {
		pt := NewPlaintext(params)
		ct0, err := encryptor.EncryptNew(pt)
		require.NoError(t, err)
		ct1, err := encryptor.EncryptNew(pt)
		require.NoError(t, err)
		require.False(t, ct0.Equal(ct1))
	})

	t.Run(testString(params, "Encrypt/Invalid/"), func(t *testing.T) {
		_, err := encryptor.EncryptNew(&Plaintext{Value: NewPoly(params.N() + 1)})
		require.ErrorIs(t, err, ErrShapeMismatch)

		_, err = NewEncryptor(params, nil, tc.sampler).EncryptNew(NewPlaintext(params))
		require.ErrorIs(t, err, ErrShapeMismatch)

		ct := NewCiphertext(params)
		ct.Value[1] = nil
		_, err = decryptor.DecryptNew(ct)
		require.ErrorIs(t, err, ErrShapeMismatch)
	})
}

func testMarshaller(tc *testContext, t *testing.T) {

	params := tc.params

	t.Run(testString(params, "Marshaller/"), func(t *testing.T) {
		ct, err := NewEncryptor(params, tc.pk, tc.sampler).EncryptNew(NewPlaintext(params))
		require.NoError(t, err)
		ct.Depth = 1

		data, err := ct.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, data, ct.GetDataLen())

		ctTest := new(Ciphertext)
		require.NoError(t, ctTest.UnmarshalBinary(data))
		require.True(t, ct.Equal(ctTest))

		require.ErrorIs(t, ctTest.UnmarshalBinary(data[:len(data)-1]), ErrShapeMismatch)

		data, err = tc.pk.MarshalBinary()
		require.NoError(t, err)
		pkTest := new(PublicKey)
		require.NoError(t, pkTest.UnmarshalBinary(data))
		require.True(t, tc.pk.Equal(pkTest))
		require.Equal(t, tc.pk.Fingerprint(), pkTest.Fingerprint())

		data, err = tc.sk.MarshalBinary()
		require.NoError(t, err)
		skTest := new(SecretKey)
		require.NoError(t, skTest.UnmarshalBinary(data))
		require.True(t, tc.sk.Value.Equal(skTest.Value))
	})
}
