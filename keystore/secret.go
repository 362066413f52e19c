package keystore

import (
	"encoding/json"
	"fmt"
	"os"

	"medhe/bfv"
	"medhe/rlwe"
)

// secretKeyFile is the on-disk form of a secret key. Secret keys never enter
// the Store: they live in their own file, readable by the owner only.
type secretKeyFile struct {
	Params bfv.ParametersLiteral `json:"params"`
	Key    []byte                `json:"key"`
}

// WriteSecretKey writes the secret key and its parameters to path with mode 0600.
// It refuses to overwrite an existing file.
func WriteSecretKey(path string, params bfv.Parameters, sk *rlwe.SecretKey) (err error) {

	if err = sk.Validate(params.Parameters); err != nil {
		return fmt.Errorf("cannot WriteSecretKey: %w", err)
	}

	key, err := sk.MarshalBinary()
	if err != nil {
		return fmt.Errorf("cannot WriteSecretKey: %w", err)
	}

	data, err := json.Marshal(secretKeyFile{Params: params.ParametersLiteral(), Key: key})
	if err != nil {
		return fmt.Errorf("cannot WriteSecretKey: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("cannot WriteSecretKey: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("cannot WriteSecretKey: %w", cerr)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("cannot WriteSecretKey: %w", err)
	}
	return nil
}

// ReadSecretKey reads a secret key file written by WriteSecretKey.
func ReadSecretKey(path string) (bfv.Parameters, *rlwe.SecretKey, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		return bfv.Parameters{}, nil, fmt.Errorf("cannot ReadSecretKey: %w", err)
	}

	var file secretKeyFile
	if err = json.Unmarshal(data, &file); err != nil {
		return bfv.Parameters{}, nil, fmt.Errorf("cannot ReadSecretKey: %w", err)
	}

	params, err := bfv.NewParametersFromLiteral(file.Params)
	if err != nil {
		return bfv.Parameters{}, nil, fmt.Errorf("cannot ReadSecretKey: %w", err)
	}

	sk := new(rlwe.SecretKey)
	if err = sk.UnmarshalBinary(file.Key); err != nil {
		return bfv.Parameters{}, nil, fmt.Errorf("cannot ReadSecretKey: %w", err)
	}
	if err = sk.Validate(params.Parameters); err != nil {
		return bfv.Parameters{}, nil, fmt.Errorf("cannot ReadSecretKey: %w", err)
	}

	return params, sk, nil
}
