// Command keygen generates a secret/public key pair, seals the public key with
// the ML-DSA authority key and registers it in the store.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/cloudflare/circl/sign/mldsa/mldsa65"

	"medhe/bfv"
	"medhe/dataset"
	"medhe/internal/cliutil"
	"medhe/keystore"
	"medhe/linear"
	"medhe/rlwe"
)

func main() {
	paramsSpec := flag.String("params", "", "parameters as inline JSON or a JSON file (default PN5QP16, or PN5QP16T4 with -scoring)")
	scoring := flag.Bool("scoring", false, "the keys will encrypt matrices scored with a linear model")
	outDir := flag.String("out-dir", "keys", "output directory for the secret key and the authority keys")
	storeDir := flag.String("store", "store", "store directory")
	authorityPath := flag.String("mldsa-priv", "", "existing ML-DSA private key; a new authority key is generated when empty")
	flag.Parse()

	var params bfv.Parameters
	var err error
	if *scoring && *paramsSpec == "" {
		params, err = bfv.NewParametersFromLiteral(bfv.PN5QP16T4)
	} else {
		params, err = cliutil.LoadParameters(*paramsSpec)
	}
	if err != nil {
		log.Fatalf("load parameters failed: %v", err)
	}

	if *scoring {
		limit := linear.MaxWeightNorm(params)
		if limit <= dataset.NumFeatures {
			log.Printf("warning: t=%d leaves room for linear models with sum |w| < %.1f only", params.T(), limit)
		} else {
			log.Printf("parameters support linear models with sum |w| < %.1f", limit)
		}
	}

	skPath := filepath.Join(*outDir, "secret_key.json")
	privPath := filepath.Join(*outDir, "mldsa_priv.bin")
	pubPath := filepath.Join(*outDir, "mldsa_pub.bin")

	// Nothing is written unless every output is new.
	outputs := []string{skPath}
	if *authorityPath == "" {
		outputs = append(outputs, privPath, pubPath)
	}
	if err := cliutil.CheckNotExist(outputs...); err != nil {
		log.Fatalf("refusing to replace key material: %v", err)
	}

	var priv *mldsa65.PrivateKey
	var pub *mldsa65.PublicKey
	if *authorityPath != "" {
		data, err := os.ReadFile(*authorityPath)
		if err != nil {
			log.Fatalf("read ML-DSA private key failed: %v", err)
		}
		if priv, err = keystore.ParseAuthorityPrivateKey(data); err != nil {
			log.Fatalf("parse ML-DSA private key failed: %v", err)
		}
	} else if pub, priv, err = keystore.GenerateAuthorityKey(); err != nil {
		log.Fatalf("ML-DSA key generation failed: %v", err)
	}

	sampler, err := rlwe.NewSampler(params.Parameters)
	if err != nil {
		log.Fatalf("sampler failed: %v", err)
	}
	sk, pk, err := rlwe.NewKeyGenerator(params.Parameters, sampler).GenKeyPair()
	if err != nil {
		log.Fatalf("key generation failed: %v", err)
	}

	sealed, err := keystore.SealPublicKey(priv, params, pk)
	if err != nil {
		log.Fatalf("seal public key failed: %v", err)
	}

	store, err := cliutil.OpenStore(*storeDir, "[keygen] ")
	if err != nil {
		log.Fatalf("open store failed: %v", err)
	}
	err = writeKeys(*outDir, skPath, privPath, pubPath, params, sk, priv, pub)
	if err != nil {
		store.Close()
		log.Fatalf("write keys failed: %v", err)
	}
	fingerprint, err := store.PutPublicKey(sealed)
	store.Close()
	if err != nil {
		log.Fatalf("store public key failed: %v", err)
	}

	log.Printf("secret key written to %s", skPath)
	fmt.Println(fingerprint)
}

// writeKeys writes the secret key and, when pub is set, the new authority key
// pair. Every file is created exclusively.
func writeKeys(outDir, skPath, privPath, pubPath string, params bfv.Parameters, sk *rlwe.SecretKey, priv *mldsa65.PrivateKey, pub *mldsa65.PublicKey) error {

	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return err
	}

	if pub != nil {
		if err := cliutil.WriteNewFile(privPath, priv.Bytes()); err != nil {
			return fmt.Errorf("ML-DSA private key: %w", err)
		}
		if err := cliutil.WriteNewFile(pubPath, pub.Bytes()); err != nil {
			return fmt.Errorf("ML-DSA public key: %w", err)
		}
	}

	return keystore.WriteSecretKey(skPath, params, sk)
}
