// Command encrypt encrypts a feature CSV under a sealed public key of the store,
// writes the privacy-preserving CSV export and stores the full ciphertext matrix.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/cloudflare/circl/sign/mldsa/mldsa65"

	"medhe/bfv"
	"medhe/codec"
	"medhe/dataset"
	"medhe/internal/cliutil"
	"medhe/keystore"
	"medhe/pkg/logger"
	"medhe/pkg/profiler"
	"medhe/rlwe"
)

func main() {
	storeDir := flag.String("store", "store", "store directory")
	keyID := flag.String("key", "", "fingerprint of the public key (default: the only key of the store)")
	authorityPath := flag.String("mldsa-pub", "keys/mldsa_pub.bin", "ML-DSA public key of the sealing authority")
	inPath := flag.String("in", "", "input feature CSV")
	outPath := flag.String("out", "", "output CSV (default: <in>_encrypted.csv)")
	name := flag.String("name", "", "name of the stored matrix (default: input file name)")
	strict := flag.Bool("strict", false, "reject values outside [0, t) instead of reducing them")
	workers := flag.Int("workers", 0, "number of encryption goroutines (default GOMAXPROCS)")
	flag.Parse()

	if *inPath == "" {
		log.Fatalf("missing -in")
	}
	if *outPath == "" {
		*outPath = strings.TrimSuffix(*inPath, filepath.Ext(*inPath)) + "_encrypted.csv"
	}
	if *name == "" {
		*name = strings.TrimSuffix(filepath.Base(*inPath), filepath.Ext(*inPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	authority, err := keystore.ReadAuthorityPublicKey(*authorityPath)
	if err != nil {
		log.Fatalf("read ML-DSA public key failed: %v", err)
	}

	l := logger.New("[encrypt] ")
	store, err := cliutil.OpenStore(*storeDir, "[encrypt] ")
	if err != nil {
		log.Fatalf("open store failed: %v", err)
	}

	err = run(ctx, l, store, authority, *keyID, *inPath, *outPath, *name, *strict, *workers)
	store.Close()
	if err != nil {
		log.Fatalf("encrypt failed: %v", err)
	}
}

func run(ctx context.Context, l *log.Logger, store *keystore.Store, authority *mldsa65.PublicKey, keyID, inPath, outPath, name string, strict bool, workers int) error {

	fingerprint, err := cliutil.ResolveKeyID(store, keyID)
	if err != nil {
		return err
	}

	sealed, err := store.GetPublicKey(fingerprint)
	if err != nil {
		return err
	}
	params, pk, err := keystore.OpenPublicKey(sealed, authority)
	if err != nil {
		return err
	}

	sampler, err := rlwe.NewSampler(params.Parameters)
	if err != nil {
		return err
	}

	cfg := codec.Config{
		Encryptor: bfv.NewEncryptor(params, pk, sampler),
		Workers:   workers,
	}
	if strict {
		cfg.Encoder = bfv.NewStrictEncoder(params)
	}

	exporter := &dataset.Exporter{Codec: codec.NewCodec(params, cfg), Logger: l}

	timer := profiler.Start()
	cm, err := exporter.PrivacyPreservingTest(ctx, inPath, outPath)
	if err != nil {
		return err
	}

	if err = store.PutMatrix(name, fingerprint, params, cm); err != nil {
		return err
	}

	l.Printf("encrypted %d values under key %s in %s", cm.Rows*cm.Cols, fingerprint, timer.Elapsed())
	return nil
}
