package dataset

import (
	"context"
	"fmt"
	"log"

	"medhe/codec"
	"medhe/pkg/logger"
	"medhe/pkg/profiler"
)

// ProgressInterval is the number of rows encrypted between two progress lines.
const ProgressInterval = 1000

// Exporter runs the encrypted export of feature tables.
type Exporter struct {
	Codec  *codec.Codec
	Logger *log.Logger
}

// PrivacyPreservingTest reads the feature table at inputPath, encrypts the first
// NumFeatures columns of every row and writes to outputPath the HeartColumns
// header followed, for each row, by the constant coefficient of c0 of every
// ciphertext.
//
// The written file cannot be decrypted. The full ciphertext matrix is returned
// so that the caller can keep the decryptable ciphertexts.
func (e *Exporter) PrivacyPreservingTest(ctx context.Context, inputPath, outputPath string) (*codec.CiphertextMatrix, error) {

	l := logger.OrDiscard(e.Logger)

	table, err := ReadTableFile(inputPath)
	if err != nil {
		return nil, err
	}
	l.Printf("read %d rows from %s (%d missing values filled with 0)", len(table.Rows), inputPath, table.Missing)

	cm, err := e.EncryptTable(ctx, table)
	if err != nil {
		return nil, err
	}

	if err = WriteFeaturesFile(outputPath, cm.LeadingCoefficients()); err != nil {
		return nil, err
	}
	l.Printf("wrote %d encrypted rows to %s", cm.Rows, outputPath)

	return cm, nil
}

// EncryptTable encrypts the rows of table, ProgressInterval rows at a time.
func (e *Exporter) EncryptTable(ctx context.Context, table *Table) (*codec.CiphertextMatrix, error) {

	l := logger.OrDiscard(e.Logger)
	timer := profiler.Start()

	out := codec.NewCiphertextMatrix(0, NumFeatures)

	for start := 0; start < len(table.Rows); start += ProgressInterval {
		end := start + ProgressInterval
		if end > len(table.Rows) {
			end = len(table.Rows)
		}

		chunk, err := codec.EncryptMatrix(ctx, e.Codec, table.Rows[start:end])
		if err != nil {
			return nil, fmt.Errorf("rows %d-%d: %w", start+1, end, err)
		}

		out.Values = append(out.Values, chunk.Values...)
		out.Rows += chunk.Rows
		l.Printf("encrypted %d/%d rows (%.0f values/s)", end, len(table.Rows), timer.Rate(end*NumFeatures))
	}

	return out, nil
}

// PrivacyPreservingTest runs the encrypted export of inputPath to outputPath
// with c and no logging. See Exporter.PrivacyPreservingTest.
func PrivacyPreservingTest(ctx context.Context, c *codec.Codec, inputPath, outputPath string) (*codec.CiphertextMatrix, error) {
	return (&Exporter{Codec: c}).PrivacyPreservingTest(ctx, inputPath, outputPath)
}
