// Package prover runs the external proof generation pipeline. The prover is
// a black-box CLI executed in two stages: parameter generation, then proof
// generation. Every invocation gets its own working directory so concurrent
// requests never clobber each other's artifacts, and every run is bounded by
// a wall-clock timeout that kills the process on expiry.
package prover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/yonathanavila/verified-chain-bk/internal/log"
)

var (
	// ErrProcessFailed when the prover exits with a non-zero code
	ErrProcessFailed = errors.New("prover process failed")
	// ErrArtifactMissing when the prover exits cleanly but the proof file is
	// absent. Kept distinct from ErrProcessFailed: it points at a contract
	// mismatch between invoker and prover, not a prover-internal error.
	ErrArtifactMissing = errors.New("proof artifact missing")
	// ErrProofTimeout when the prover exceeds its wall-clock budget
	ErrProofTimeout = errors.New("prover timed out")
)

const (
	paramsFile = "kzg.params"
	proofFile  = "proof.pf"
	vkFile     = "proof.vk"

	stderrTailSize = 512
)

// Config parametrizes the external prover CLI.
type Config struct {
	// BinaryPath is the prover executable.
	BinaryPath string
	// SecurityParam is the circuit size parameter passed as -K.
	SecurityParam int
	// BitWidth is the fixed point bit width passed as --bits.
	BitWidth int
	// InputPath is the input data file passed to the prove stage.
	InputPath string
	// ModelPath is the computational graph file passed to the prove stage.
	ModelPath string
	// WorkDir is the parent for request-scoped working directories. Empty
	// means the system temp dir.
	WorkDir string
	// Timeout bounds the whole two-stage run.
	Timeout time.Duration
}

// Invoker executes the proof generation pipeline.
type Invoker struct {
	cfg Config
}

// New returns an Invoker for the given prover configuration.
func New(cfg Config) *Invoker {
	return &Invoker{cfg: cfg}
}

// Generate runs parameter generation followed by proof generation and
// returns the raw proof artifact bytes. The working directory is scoped to
// the request and removed before returning.
func (i *Invoker) Generate(ctx context.Context, requestID string) ([]byte, error) {
	dir, err := os.MkdirTemp(i.cfg.WorkDir, "proof-"+requestID+"-")
	if err != nil {
		return nil, fmt.Errorf("creating prover workdir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Warn(ctx, "cannot remove prover workdir", "dir", dir, "err", rmErr)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	paramsPath := filepath.Join(dir, paramsFile)
	proofPath := filepath.Join(dir, proofFile)
	vkPath := filepath.Join(dir, vkFile)

	if err := i.run(ctx, "gen-params",
		"--params-path="+paramsPath,
	); err != nil {
		return nil, err
	}

	if err := i.run(ctx, "prove",
		"-D", i.cfg.InputPath,
		"-M", i.cfg.ModelPath,
		"--proof-path="+proofPath,
		"--vk-path="+vkPath,
		"--params-path="+paramsPath,
	); err != nil {
		return nil, err
	}

	artifact, err := os.ReadFile(proofPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: prover exited cleanly but %s was not written", ErrArtifactMissing, proofFile)
		}
		return nil, fmt.Errorf("reading proof artifact: %w", err)
	}
	return artifact, nil
}

func (i *Invoker) run(ctx context.Context, stage string, args ...string) error {
	argv := []string{
		fmt.Sprintf("--bits=%d", i.cfg.BitWidth),
		fmt.Sprintf("-K=%d", i.cfg.SecurityParam),
		stage,
	}
	argv = append(argv, args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, i.cfg.BinaryPath, argv...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// don't let an orphaned child holding the output pipes keep Wait hanging
	// after the kill
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	log.Debug(ctx, "prover stage finished",
		"stage", stage,
		"d", time.Since(start),
		"stdout-bytes", stdout.Len())
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s stage exceeded %s", ErrProofTimeout, stage, i.cfg.Timeout)
	}
	return fmt.Errorf("%w: %s stage: %s", ErrProcessFailed, stage, stderrTail(&stderr))
}

// stderrTail returns the trailing portion of captured stderr for diagnosis.
func stderrTail(buf *bytes.Buffer) string {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return "no stderr output"
	}
	if len(s) > stderrTailSize {
		s = s[len(s)-stderrTailSize:]
	}
	return s
}
