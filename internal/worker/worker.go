// Package worker executes one admitted task's filter pipeline as a
// chain of external processes and reports its outcome.
//
// Ported step-by-step from the Rust original's
// core/monitor.rs::start_pipeline_monitor: open the input and output
// files, resolve each filter to an executable in the configured
// binary directory, spawn either a single process or a piped chain
// wired stdin-to-stdout, wait for the whole chain, and stat both
// files to report bytes moved.
package worker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"sdstore/internal/task"
)

// Outcome classifies how a pipeline run ended, mirroring the Rust
// original's MonitorError variants (core/monitor.rs) that spec.md §7
// requires the server to distinguish when reporting failures.
type Outcome int

const (
	// Ok indicates the pipeline ran to completion successfully.
	Ok Outcome = iota
	// InputFileError indicates the input path could not be opened for
	// reading.
	InputFileError
	// OutputFileError indicates the output path could not be
	// created/truncated for writing.
	OutputFileError
	// NoFiltersError indicates the task carried an empty filter list.
	// Guarded against before queueing (task.Validate); reaching a worker would
	// indicate a bug upstream, same as the Rust original's
	// NoTransformationsGiven.
	NoFiltersError
	// SpawnError indicates a filter binary could not be started
	// (missing executable, permission error, etc.) once the pipeline
	// was already underway.
	SpawnError
	// PipelineFailure indicates every process started but the chain
	// exited with a non-zero or abnormal status.
	PipelineFailure
	// InputFileMetadataError indicates the pipeline ran to completion
	// but the input file could not be stat'd afterward, mirroring the
	// Rust original's MonitorError::InputFileMetadataError.
	InputFileMetadataError
	// OutputFileMetadataError indicates the pipeline ran to completion
	// but the output file could not be stat'd afterward, mirroring the
	// Rust original's MonitorError::OutputFileMetadataError.
	OutputFileMetadataError
)

// PreExecution reports whether o occurred before the pipeline was
// spawned, per spec.md §7's error taxonomy ("bad input/output
// file, empty filter list" are pre-execution and map to
// RequestInitError; spawn failures and everything after are
// RequestError).
func (o Outcome) PreExecution() bool {
	switch o {
	case InputFileError, OutputFileError, NoFiltersError:
		return true
	default:
		// SpawnError, PipelineFailure, InputFileMetadataError, and
		// OutputFileMetadataError all occur once the pipeline is
		// already underway or has already concluded.
		return false
	}
}

// Result is what a Worker reports back to the coordinator once a
// pipeline run concludes, one per task, exactly once.
type Result struct {
	Outcome  Outcome
	Err      error
	BytesIn  uint64
	BytesOut uint64
}

// Run executes t's filter pipeline, reading from t.Input and writing
// to t.Output, resolving each filter name against binDir. It blocks
// until the pipeline concludes or ctx is canceled.
func Run(ctx context.Context, t task.ClientTask, binDir string) Result {
	inputFd, err := os.Open(t.Input)
	if err != nil {
		return Result{Outcome: InputFileError, Err: fmt.Errorf("open input %q: %w", t.Input, err)}
	}
	defer inputFd.Close()

	outputFd, err := os.OpenFile(t.Output, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return Result{Outcome: OutputFileError, Err: fmt.Errorf("open output %q: %w", t.Output, err)}
	}
	defer outputFd.Close()

	// task.Validate already guarantees a non-empty filter list for any
	// task that reached admission; this is a defensive re-check of the
	// invariant the Rust original enforces with NoTransformationsGiven.
	if len(t.Filters) == 0 {
		return Result{Outcome: NoFiltersError, Err: fmt.Errorf("pipeline for client %d has no filters", t.ClientPID)}
	}

	cmds := make([]*exec.Cmd, len(t.Filters))
	for i, f := range t.Filters {
		cmds[i] = exec.CommandContext(ctx, filepath.Join(binDir, f.String()))
	}

	if err := wirePipeline(cmds, inputFd, outputFd); err != nil {
		return Result{Outcome: SpawnError, Err: err}
	}

	started, startErr := startPipeline(cmds)
	// Wait on every stage that did start, even if a later one failed to,
	// so a mid-chain spawn failure doesn't leave earlier stages running
	// unattended.
	waitErr := waitPipeline(cmds[:started])
	if startErr != nil {
		return Result{Outcome: SpawnError, Err: startErr}
	}
	if waitErr != nil {
		return Result{Outcome: PipelineFailure, Err: waitErr}
	}

	bytesIn, bytesOut, statErr := statBoth(t.Input, t.Output)
	if statErr != nil {
		if statErr.input != nil {
			return Result{Outcome: InputFileMetadataError, Err: fmt.Errorf("stat input %q: %w", t.Input, statErr.input)}
		}
		return Result{Outcome: OutputFileMetadataError, Err: fmt.Errorf("stat output %q: %w", t.Output, statErr.output)}
	}
	return Result{Outcome: Ok, BytesIn: bytesIn, BytesOut: bytesOut}
}

// wirePipeline connects cmds[0]'s stdin to in, cmds[len-1]'s stdout to
// out, and chains each intermediate command's stdout to the next
// command's stdin by handing each stage's os/exec StdoutPipe to the
// next stage as its Stdin, mirroring the
// subprocess crate's Pipeline wiring in the Rust original.
func wirePipeline(cmds []*exec.Cmd, in, out *os.File) error {
	cmds[0].Stdin = in
	cmds[len(cmds)-1].Stdout = out

	for i := 0; i < len(cmds)-1; i++ {
		pipe, err := cmds[i].StdoutPipe()
		if err != nil {
			return fmt.Errorf("wire pipeline stage %d: %w", i, err)
		}
		cmds[i+1].Stdin = pipe
	}
	return nil
}

// startPipeline starts each command in order and stops at the first
// one that fails to start. It returns how many commands were
// successfully started, so the caller can still wait on them.
func startPipeline(cmds []*exec.Cmd) (started int, err error) {
	for i, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			return i, fmt.Errorf("start filter %q (stage %d): %w", filepath.Base(cmd.Path), i, err)
		}
	}
	return len(cmds), nil
}

// waitPipeline waits for every already-started command concurrently
// via errgroup, so a slow early stage doesn't block detecting a later
// stage's non-zero exit.
func waitPipeline(cmds []*exec.Cmd) error {
	var g errgroup.Group
	for _, cmd := range cmds {
		cmd := cmd
		g.Go(func() error {
			if err := cmd.Wait(); err != nil {
				return fmt.Errorf("filter %q: %w", filepath.Base(cmd.Path), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// statError reports which of the two result files could not be
// stat'd, so the caller can tell InputFileMetadataError apart from
// OutputFileMetadataError instead of collapsing both into one generic
// failure.
type statError struct {
	input  error
	output error
}

// statBoth stats the input and output paths concurrently and returns
// their sizes in bytes. If either stat fails, the returned *statError
// names which one (or both).
func statBoth(inputPath, outputPath string) (bytesIn, bytesOut uint64, statErr *statError) {
	var g errgroup.Group
	var inErr, outErr error
	g.Go(func() error {
		info, err := os.Stat(inputPath)
		if err != nil {
			inErr = err
			return err
		}
		bytesIn = uint64(info.Size())
		return nil
	})
	g.Go(func() error {
		info, err := os.Stat(outputPath)
		if err != nil {
			outErr = err
			return err
		}
		bytesOut = uint64(info.Size())
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, 0, &statError{input: inErr, output: outErr}
	}
	return bytesIn, bytesOut, nil
}
