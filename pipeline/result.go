package pipeline

import (
	"encoding/hex"
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Status is the outcome of a job.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result describes a finished job. Log holds every progress line in the
// order it was produced, including the failure line of an unsuccessful job.
type Result struct {
	Status     Status   `json:"status"`
	Log        []string `json:"log"`
	Error      string   `json:"error,omitempty"`
	OutputDir  string   `json:"output_dir,omitempty"`
	OutputFile string   `json:"output_file,omitempty"`
	Version    uint32   `json:"version,omitempty"`

	// Err is the error behind Error.
	Err error `json:"-"`
}

// Progress receives each log line of a job as it is produced. It is called
// from the goroutine running the job.
type Progress func(line string)

// Options configure a single job.
type Options struct {
	// Progress, if set, observes log lines as they are written.
	Progress Progress

	// Version selects the target bytecode version of Assemble. Zero keeps
	// the version declared by the assembly.
	Version uint32

	// IgnoreHash makes Disassemble accept files whose content hash does
	// not match.
	IgnoreHash bool

	// Force lets Disassemble write into a non-empty output directory.
	// Function files left over from an earlier run are removed.
	Force bool
}

// journal accumulates the log of one job.
type journal struct {
	job      string
	lines    []string
	progress Progress
	log      *zap.Logger
}

func newJournal(job, input string, opts Options) *journal {
	return &journal{
		job:      job,
		progress: opts.Progress,
		log:      Logger().With(zap.String("job", job), zap.String("input", input)),
	}
}

func (j *journal) printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	j.lines = append(j.lines, line)
	if j.progress != nil {
		j.progress(line)
	}
	j.log.Info(line)
}

func (j *journal) success(r *Result) *Result {
	r.Status = StatusSuccess
	r.Log = j.lines
	return r
}

func (j *journal) fail(err error) *Result {
	j.printf("error: %v", err)
	j.log.Debug("job failed", zap.Error(err))
	return &Result{
		Status: StatusError,
		Log:    j.lines,
		Error:  err.Error(),
		Err:    err,
	}
}

// hashPreview returns the first 16 hex digits of a content hash.
func hashPreview(h []byte) string {
	if len(h) == 0 {
		return "none"
	}
	s := hex.EncodeToString(h)
	if len(s) > 16 {
		return s[:16] + "..."
	}
	return s
}

func size(n int) string {
	return humanize.IBytes(uint64(n))
}
