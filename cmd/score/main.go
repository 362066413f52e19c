// Command score evaluates a linear model over a stored encrypted feature matrix
// and stores the encrypted scores. It never sees a key.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"medhe/bfv"
	"medhe/internal/cliutil"
	"medhe/keystore"
	"medhe/linear"
	"medhe/pkg/logger"
	"medhe/pkg/profiler"
)

func main() {
	storeDir := flag.String("store", "store", "store directory")
	name := flag.String("name", "", "name of the stored feature matrix")
	modelPath := flag.String("model", "model.json", "linear model as JSON: {\"weights\": [...], \"bias\": b}")
	outName := flag.String("out-name", "", "name of the stored score matrix (default: <name>/score)")
	flag.Parse()

	if *name == "" {
		log.Fatalf("missing -name")
	}
	if *outName == "" {
		*outName = *name + "/score"
	}

	model, err := cliutil.ReadModel(*modelPath)
	if err != nil {
		log.Fatalf("read model failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l := logger.New("[score] ")
	store, err := cliutil.OpenStore(*storeDir, "[score] ")
	if err != nil {
		log.Fatalf("open store failed: %v", err)
	}

	err = run(ctx, l, store, model, *name, *outName)
	store.Close()
	if err != nil {
		log.Fatalf("score failed: %v", err)
	}
}

func run(ctx context.Context, l *log.Logger, store *keystore.Store, model linear.Model, name, outName string) error {

	rec, err := store.GetMatrix(name)
	if err != nil {
		return err
	}
	params, err := bfv.NewParametersFromLiteral(rec.Params)
	if err != nil {
		return err
	}

	timer := profiler.Start()
	scores, err := linear.ScoreMatrix(ctx, bfv.NewEvaluator(params), model, rec.Matrix)
	if err != nil {
		return err
	}
	l.Printf("scored %d rows in %s (%.0f rows/s)", scores.Rows, timer.Elapsed(), timer.Rate(scores.Rows))

	return store.PutMatrix(outName, rec.KeyID, params, scores)
}
