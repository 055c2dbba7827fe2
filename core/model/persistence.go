package model

import (
	"encoding/gob"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

// SaveModel gob encodes m into path. A ".zst" suffix compresses the file
// with zstd. Estimators with unexported state implement gob.GobEncoder.
//
//	clf := tree.NewDecisionTreeClassifier(tree.WithMaxDepth(4))
//	// ... fit ...
//	err := model.SaveModel(clf, "churn_tree.gob.zst")
func SaveModel(m interface{}, path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()

	if !isZstd(path) {
		return SaveModelToWriter(m, file)
	}
	zw, err := zstd.NewWriter(file)
	if err != nil {
		return errors.Wrap(err, "zstd writer")
	}
	if err := SaveModelToWriter(m, zw); err != nil {
		zw.Close()
		return err
	}
	return errors.Wrap(zw.Close(), "zstd close")
}

// LoadModel decodes a file written by SaveModel into m, which must be a pointer.
func LoadModel(m interface{}, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	if !isZstd(path) {
		return LoadModelFromReader(m, file)
	}
	zr, err := zstd.NewReader(file)
	if err != nil {
		return errors.Wrapf(err, "zstd %s", path)
	}
	defer zr.Close()
	return LoadModelFromReader(m, zr)
}

// SaveModelToWriter gob encodes m to w.
func SaveModelToWriter(m interface{}, w io.Writer) error {
	return errors.Wrap(gob.NewEncoder(w).Encode(m), "encode model")
}

// LoadModelFromReader gob decodes r into m.
func LoadModelFromReader(m interface{}, r io.Reader) error {
	return errors.Wrap(gob.NewDecoder(r).Decode(m), "decode model")
}

func isZstd(path string) bool {
	return strings.HasSuffix(path, ".zst")
}
