package markov

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/natefinch/atomic"
)

// serializedModel is the CBOR layout of a Model: the entries in ascending name
// order. The vocabulary size is the number of entries.
type serializedModel struct {
	Words []DictionaryWord `cbor:"words"`
}

// Save encodes the model as CBOR and writes it to w.
func (m *Model) Save(w io.Writer) error {
	data, err := cbor.Marshal(serializedModel{Words: m.words})
	if err != nil {
		return fmt.Errorf("could not encode model: %w", err)
	}
	if _, err = w.Write(data); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// SaveFile writes the model to path. The file is replaced atomically, so a
// failed save never leaves a truncated model behind.
func (m *Model) SaveFile(path string) error {
	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("%w: could not write %s: %w", ErrStorage, path, err)
	}
	return nil
}

// Load reads a CBOR-encoded model from r. Read failures are reported as
// ErrStorage, and input that does not decode to a valid model as ErrDecode.
func Load(r io.Reader) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	var serialized serializedModel
	if err = cbor.Unmarshal(data, &serialized); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	model, err := newModel(serialized.Words)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return model, nil
}

// LoadFile opens path and loads the model stored in it.
func LoadFile(path string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	return Load(file)
}
