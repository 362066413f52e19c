// Package cliutil holds the helpers shared by the command-line tools.
package cliutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"medhe/bfv"
	"medhe/dataset"
	"medhe/keystore"
	"medhe/linear"
	"medhe/pkg/logger"
)

// LoadParameters returns the parameters described by arg: PN5QP16 when arg is
// empty, the inline JSON literal when arg starts with '{', and the JSON file
// at path arg otherwise.
func LoadParameters(arg string) (bfv.Parameters, error) {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "":
		return bfv.NewParametersFromLiteral(bfv.PN5QP16)
	case strings.HasPrefix(arg, "{"):
		return bfv.NewParametersFromJSON([]byte(arg))
	default:
		data, err := os.ReadFile(arg)
		if err != nil {
			return bfv.Parameters{}, fmt.Errorf("cannot LoadParameters: %w", err)
		}
		return bfv.NewParametersFromJSON(data)
	}
}

// OpenStore opens the on-disk store under dir, logging with the given prefix.
func OpenStore(dir, prefix string) (*keystore.Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("cannot OpenStore: missing store directory")
	}
	return keystore.Open(keystore.Config{Dir: dir, SyncWrites: true, Logger: logger.New(prefix)})
}

// ResolveKeyID returns keyID, or the only fingerprint of the store when keyID
// is empty.
func ResolveKeyID(store *keystore.Store, keyID string) (string, error) {
	if keyID != "" {
		return keyID, nil
	}
	fps, err := store.ListPublicKeys()
	if err != nil {
		return "", err
	}
	switch len(fps) {
	case 0:
		return "", fmt.Errorf("no public key in the store: %w", keystore.ErrNotFound)
	case 1:
		return fps[0], nil
	default:
		return "", fmt.Errorf("%d public keys in the store, select one of %s", len(fps), strings.Join(fps, ", "))
	}
}

// Header returns the CSV header of a decrypted matrix with cols columns: the
// feature names for a feature table, "score" for a score column, and
// c0, c1, ... otherwise.
func Header(cols int) []string {
	switch cols {
	case dataset.NumFeatures:
		return dataset.HeartColumns[:]
	case 1:
		return []string{"score"}
	}
	header := make([]string, cols)
	for i := range header {
		header[i] = fmt.Sprintf("c%d", i)
	}
	return header
}

// ReadModel reads a linear model from a JSON file of the form
// {"weights": [...], "bias": b}.
func ReadModel(path string) (linear.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return linear.Model{}, fmt.Errorf("cannot ReadModel: %w", err)
	}
	var model linear.Model
	if err = json.Unmarshal(data, &model); err != nil {
		return linear.Model{}, fmt.Errorf("cannot ReadModel: %s: %w", path, err)
	}
	if model.Features() == 0 {
		return linear.Model{}, fmt.Errorf("cannot ReadModel: %s: model has no weights", path)
	}
	return model, nil
}

// CheckNotExist returns an error wrapping os.ErrExist if any of paths exists.
func CheckNotExist(paths ...string) error {
	for _, path := range paths {
		_, err := os.Lstat(path)
		if err == nil {
			return fmt.Errorf("cannot overwrite %s: %w", path, os.ErrExist)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// WriteNewFile writes data to a new file at path with mode 0600. It fails with
// os.ErrExist rather than truncating an existing file.
func WriteNewFile(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = f.Write(data)
	return err
}
