package pipeline

import (
	"bytes"
	"encoding/hex"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hbc"
)

const (
	infoHeaderBytes = 64
	// probeBytes covers the largest header so the version can be parsed.
	probeBytes = 128
)

// Family guesses made from the first four magic bytes alone.
const (
	GuessModern  = "v74-76"
	GuessClassic = "v59-73"
	GuessUnknown = "unknown"
)

// FileInfo is a cheap probe of a bytecode file's header.
type FileInfo struct {
	Path      string `json:"path"`
	Size      int64  `json:"file_size"`
	SizeText  string `json:"file_size_text"`
	Magic     string `json:"magic"`
	HeaderHex string `json:"header_hex"`
	Guess     string `json:"guess"`

	// Version is the parsed header version, or zero if the header could
	// not be parsed; VersionError then says why.
	Version      uint32 `json:"version,omitempty"`
	VersionError string `json:"version_error,omitempty"`
}

// Info reads at most the first 128 bytes of the file at path and reports
// what they reveal.
func Info(path string) (*FileInfo, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NotFound(errors.PhaseLoad, "file", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "open input")
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "stat input")
	}
	buf := make([]byte, probeBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "read header")
	}
	buf = buf[:n]

	info := &FileInfo{
		Path:     path,
		Size:     st.Size(),
		SizeText: humanize.IBytes(uint64(st.Size())),
		Magic:    GuessUnknown,
		Guess:    guessFamily(buf),
	}
	if len(buf) >= 8 {
		info.Magic = hex.EncodeToString(buf[:8])
	}
	info.HeaderHex = hex.EncodeToString(buf[:min(len(buf), infoHeaderBytes)])

	if v, _, err := hbc.DetectVersion(buf); err != nil {
		info.VersionError = err.Error()
	} else {
		info.Version = v
	}
	Logger().Debug("probed file header")
	return info, nil
}

func guessFamily(b []byte) string {
	switch {
	case bytes.HasPrefix(b, hbc.MagicModern[:4]):
		return GuessModern
	case bytes.HasPrefix(b, hbc.MagicClassic[:4]):
		return GuessClassic
	}
	return GuessUnknown
}
