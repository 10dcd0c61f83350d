package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vango-dev/squid/internal/errors"
)

// Job is one source to compile.
type Job struct {
	Source Source

	// Out is the artifact path to write.
	Out string

	Minify bool
}

// Compiler turns one source file into an ES module.
type Compiler interface {
	Compile(ctx context.Context, job Job) error
}

// CopyCompiler writes sources unchanged. It serves projects whose sources are
// already plain ES modules, and tests.
type CopyCompiler struct{}

// Compile implements Compiler.
func (CopyCompiler) Compile(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(job.Out), 0o755); err != nil {
		return err
	}
	return copyFile(job.Source.Path, job.Out)
}

// ExecCompiler runs an esbuild compatible bundler.
type ExecCompiler struct {
	// Bin is the executable name or path.
	Bin string

	// Dir is the working directory, usually the project root.
	Dir string
}

// Compile implements Compiler.
func (c ExecCompiler) Compile(ctx context.Context, job Job) error {
	if err := os.MkdirAll(filepath.Dir(job.Out), 0o755); err != nil {
		return err
	}

	args := []string{
		job.Source.Path,
		"--bundle",
		"--format=esm",
		"--platform=" + job.Source.Platform(),
		"--outfile=" + job.Out,
		"--jsx-factory=h",
		"--jsx-fragment=Fragment",
	}
	if job.Minify {
		args = append(args, "--minify")
	}

	cmd := exec.CommandContext(ctx, c.Bin, args...)
	cmd.Dir = c.Dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		out := strings.TrimSpace(stderr.String())
		return errors.New("E211").
			WithDetail(out).
			WithLocationFromOutput(out).
			Wrap(fmt.Errorf("%s: %w", job.Source.Rel, err))
	}
	return nil
}

// NewCompiler returns the compiler named in the build config: "copy" or a
// bundler executable.
func NewCompiler(name, dir string) (Compiler, error) {
	if name == "copy" {
		return CopyCompiler{}, nil
	}
	bin, err := exec.LookPath(name)
	if err != nil {
		return nil, errors.New("E211").
			WithDetail(fmt.Sprintf("bundler %q was not found in PATH", name)).
			WithSuggestion("Install esbuild (npm i -g esbuild) or set build.compiler to \"copy\".").
			Wrap(err)
	}
	return ExecCompiler{Bin: bin, Dir: dir}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
