// Command decrypt decrypts a stored ciphertext matrix with a secret key file and
// writes the values as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"medhe/bfv"
	"medhe/codec"
	"medhe/dataset"
	"medhe/internal/cliutil"
	"medhe/internal/noiseplot"
	"medhe/keystore"
	"medhe/pkg/logger"
)

func main() {
	storeDir := flag.String("store", "store", "store directory")
	name := flag.String("name", "", "name of the stored matrix")
	skPath := flag.String("sk", "keys/secret_key.json", "secret key file")
	outPath := flag.String("out", "", "output CSV (default: stdout)")
	noise := flag.Bool("noise", false, "log the noise report of the matrix")
	noiseHTML := flag.String("noise-html", "", "write the noise histogram of the matrix to this HTML file")
	workers := flag.Int("workers", 0, "number of decryption goroutines (default GOMAXPROCS)")
	flag.Parse()

	if *name == "" {
		log.Fatalf("missing -name")
	}

	params, sk, err := keystore.ReadSecretKey(*skPath)
	if err != nil {
		log.Fatalf("read secret key failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l := logger.New("[decrypt] ")
	store, err := cliutil.OpenStore(*storeDir, "[decrypt] ")
	if err != nil {
		log.Fatalf("open store failed: %v", err)
	}
	rec, err := store.GetMatrix(*name)
	store.Close()
	if err != nil {
		log.Fatalf("load matrix failed: %v", err)
	}

	recParams, err := bfv.NewParametersFromLiteral(rec.Params)
	if err != nil {
		log.Fatalf("matrix parameters: %v", err)
	}
	if !recParams.Equal(params) {
		log.Fatalf("matrix %q was encrypted under other parameters than the secret key", *name)
	}

	decryptor := bfv.NewDecryptor(params, sk)
	c := codec.NewCodec(params, codec.Config{Decryptor: decryptor, Workers: *workers})

	values, err := c.DecryptMatrix(ctx, rec.Matrix)
	if err != nil {
		log.Fatalf("decrypt failed: %v", err)
	}

	cts := make([]*bfv.Ciphertext, 0, rec.Matrix.Rows*rec.Matrix.Cols)
	for i := 0; i < rec.Matrix.Rows; i++ {
		cts = append(cts, rec.Matrix.Row(i)...)
	}

	if *noise {
		report, err := decryptor.NoiseReport(cts)
		if err != nil {
			log.Fatalf("noise report failed: %v", err)
		}
		l.Printf("noise: %s", report)
	}

	if *noiseHTML != "" {
		f, err := os.Create(*noiseHTML)
		if err != nil {
			log.Fatalf("create html: %v", err)
		}
		err = noiseplot.Render(f, fmt.Sprintf("noise of %s", *name), decryptor, cts)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			log.Fatalf("render html: %v", err)
		}
		l.Printf("noise histogram written to %s", *noiseHTML)
	}

	header := cliutil.Header(rec.Matrix.Cols)
	if *outPath == "" {
		err = dataset.WriteTable(os.Stdout, header, values)
	} else {
		err = dataset.WriteTableFile(*outPath, header, values)
	}
	if err != nil {
		log.Fatalf("write failed: %v", err)
	}

	if *outPath != "" {
		l.Printf("wrote %dx%d values to %s", rec.Matrix.Rows, rec.Matrix.Cols, *outPath)
	}
}
