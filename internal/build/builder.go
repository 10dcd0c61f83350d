package build

import (
	"context"
	_ "embed"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/squid/internal/config"
	"github.com/vango-dev/squid/internal/errors"
	"github.com/vango-dev/squid/pkg/artifact"
	"github.com/vango-dev/squid/pkg/assets"
	"github.com/vango-dev/squid/pkg/routetree"
)

// HydrateFile is the browser runtime written to the output root.
const HydrateFile = "hydrate.js"

//go:embed runtime/hydrate.js
var hydrateJS []byte

// Result contains the build output.
type Result struct {
	// ID identifies the build.
	ID string

	// Tree is the route tree built from the compiled pages.
	Tree *routetree.Tree

	// Records are the compiled route modules with absolute output paths.
	Records []routetree.Record

	// Manifest is the manifest written to routes.json.
	Manifest *Manifest

	// Sources are every scanned source, lambdas included.
	Sources []Source

	// Bytes is the total size of compiled route modules.
	Bytes int64

	// Duration is how long the build took.
	Duration time.Duration
}

// Options configures the builder.
type Options struct {
	// Compiler overrides the compiler named in the config.
	Compiler Compiler

	// Concurrency bounds parallel compiles per group. Zero means 4.
	Concurrency int

	Logger *slog.Logger

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder compiles a project into the output directory.
type Builder struct {
	config  *config.Config
	options Options
	logger  *slog.Logger
}

// New creates a new builder.
func New(cfg *config.Config, options Options) *Builder {
	if options.Concurrency <= 0 {
		options.Concurrency = 4
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		config:  cfg,
		options: options,
		logger:  logger.With("component", "build"),
	}
}

// Build performs a full build. Compile failures are returned as *errors.SquidError
// with code E211; route conflicts as *routetree.BuildError.
//
// Modules are compiled into a staging directory next to the output
// directory, which replaces the output only once the route tree builds. A
// failed build leaves the previous output in place, so trees published from
// it keep loading.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	compiler := b.options.Compiler
	if compiler == nil {
		c, err := NewCompiler(b.config.Build.Compiler, b.config.Dir())
		if err != nil {
			return nil, err
		}
		compiler = c
	}

	id := uuid.NewString()
	outputDir := b.config.OutputPath()
	stage := StagingDir(outputDir, id)
	defer os.RemoveAll(stage)

	b.progress("Preparing staging directory...")
	for _, dir := range []string{filepath.Join(stage, pagesOutDir), filepath.Join(stage, lambdaOutDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("prepare staging: %w", err)
		}
	}

	b.progress("Scanning sources...")
	sources, err := Scan(b.config.PagesPath(), b.config.LambdaPath())
	if err != nil {
		return nil, err
	}

	b.progress("Compiling modules...")
	if err := b.compile(ctx, compiler, sources, stage); err != nil {
		return nil, err
	}

	b.progress("Copying static assets...")
	if err := b.copyStatic(stage); err != nil {
		return nil, err
	}
	hydrate := assets.Fingerprint(HydrateFile, hydrateJS)
	for _, name := range []string{HydrateFile, hydrate} {
		if err := os.WriteFile(filepath.Join(stage, name), hydrateJS, 0o644); err != nil {
			return nil, err
		}
	}

	manifest, records, size, err := b.manifest(id, sources, stage)
	if err != nil {
		return nil, err
	}
	manifest.Assets = map[string]string{HydrateFile: hydrate}

	b.progress("Building route tree...")
	tree, err := routetree.NewBuilder(
		routetree.WithBaseDir(b.config.PagesOutputPath()),
		routetree.WithConflictMode(routetree.ParseConflictMode(b.config.Build.ConflictMode)),
		routetree.WithLogger(b.logger),
	).Add(records...).Build()
	if err != nil {
		return nil, err
	}

	b.progress("Writing manifest...")
	if err := WriteManifest(stage, manifest); err != nil {
		return nil, err
	}

	b.progress("Generating clients...")
	lambda := LambdaEndpoints(sources, b.config.Lambda.Gateway, b.config.Lambda.PackageName)
	if err := writeClients(stage, APIEndpoints(sources), lambda); err != nil {
		return nil, err
	}

	b.progress("Replacing output directory...")
	if err := replaceDir(stage, outputDir); err != nil {
		return nil, fmt.Errorf("replace output: %w", err)
	}

	result := &Result{
		ID:       manifest.BuildID,
		Tree:     tree,
		Records:  records,
		Manifest: manifest,
		Sources:  sources,
		Bytes:    size,
		Duration: time.Since(start),
	}
	b.logger.Info("build complete",
		"build", result.ID,
		"routes", tree.Len(),
		"sources", len(sources),
		"duration", result.Duration)
	return result, nil
}

const (
	pagesOutDir  = "pages"
	lambdaOutDir = "lambda"
)

// StagingDir returns the directory a build with the given ID compiles into
// before it replaces outputDir. It is a hidden sibling of outputDir so the
// final rename stays on one file system.
func StagingDir(outputDir, id string) string {
	return filepath.Join(filepath.Dir(outputDir), "."+filepath.Base(outputDir)+".staging-"+id)
}

// replaceDir moves stage to dir. An existing dir is moved aside first and
// restored when the second rename fails.
func replaceDir(stage, dir string) error {
	old := stage + ".old"
	hadOld := true
	if err := os.Rename(dir, old); err != nil {
		if !isNotExist(err) {
			return err
		}
		hadOld = false
	}
	if err := os.Rename(stage, dir); err != nil {
		if hadOld {
			_ = os.Rename(old, dir)
		}
		return err
	}
	if hadOld {
		return os.RemoveAll(old)
	}
	return nil
}

// outputFor returns the artifact path of a source under root.
func outputFor(root string, src Source) string {
	group := pagesOutDir
	if src.Group == GroupLambda {
		group = lambdaOutDir
	}
	return filepath.Join(root, group, filepath.FromSlash(OutputRel(src.Rel)))
}

// compile runs the three groups in parallel.
func (b *Builder) compile(ctx context.Context, compiler Compiler, sources []Source, root string) error {
	byGroup := make(map[Group][]Source)
	for _, s := range sources {
		byGroup[s.Group] = append(byGroup[s.Group], s)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, group := range []Group{GroupPages, GroupAPI, GroupLambda} {
		members := byGroup[group]
		if len(members) == 0 {
			continue
		}
		g.Go(func() error {
			started := time.Now()
			inner, ictx := errgroup.WithContext(gctx)
			inner.SetLimit(b.options.Concurrency)
			for _, src := range members {
				inner.Go(func() error {
					return compiler.Compile(ictx, Job{
						Source: src,
						Out:    outputFor(root, src),
						Minify: b.config.Build.Minify,
					})
				})
			}
			if err := inner.Wait(); err != nil {
				return err
			}
			b.logger.Debug("compiled group",
				"group", group.String(),
				"modules", len(members),
				"duration", time.Since(started))
			return nil
		})
	}
	return g.Wait()
}

// manifest hashes the staged route artifacts and assembles the manifest.
// Records point at where the artifacts live once the stage is in place.
func (b *Builder) manifest(id string, sources []Source, stage string) (*Manifest, []routetree.Record, int64, error) {
	outputDir := b.config.OutputPath()
	m := &Manifest{
		BuildID:      id,
		CreatedAt:    time.Now().UTC(),
		BaseDir:      "pages",
		ConflictMode: routetree.ParseConflictMode(b.config.Build.ConflictMode).String(),
	}

	var (
		records []routetree.Record
		total   int64
	)
	for _, src := range sources {
		if src.Group == GroupLambda {
			continue
		}
		out := outputFor(outputDir, src)
		size, sum, err := hashFile(outputFor(stage, src))
		if err != nil {
			return nil, nil, 0, err
		}
		key, err := artifact.KeyFor(outputDir, out)
		if err != nil {
			return nil, nil, 0, err
		}

		rec := routetree.Record{OutputPath: out, Kind: src.Kind, SourcePath: src.Path}
		records = append(records, rec)

		rec.OutputPath = key
		m.Entries = append(m.Entries, Entry{Record: rec, Hash: sum, Size: size})
		total += size
	}
	return m, records, total, nil
}

// copyStatic copies the static directory into the output root.
func (b *Builder) copyStatic(outputDir string) error {
	if b.config.Paths.Static == "" {
		return nil
	}
	srcDir := b.config.StaticPath()
	if _, err := os.Stat(srcDir); isNotExist(err) {
		return nil
	}

	return filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		dest := filepath.Join(outputDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return copyFile(p, dest)
	})
}

// Publisher uploads a build output directory.
type Publisher interface {
	Publish(ctx context.Context, dir string) (artifact.PublishResult, error)
}

// Publish uploads the output directory.
func (b *Builder) Publish(ctx context.Context, p Publisher) (artifact.PublishResult, error) {
	b.progress("Publishing artifacts...")
	res, err := p.Publish(ctx, b.config.OutputPath())
	if err != nil {
		return res, errors.New("E240").Wrap(err)
	}
	b.logger.Info("published artifacts", "files", res.Files, "bytes", res.Bytes)
	return res, nil
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

func isNotExist(err error) bool {
	return err != nil && stderrors.Is(err, fs.ErrNotExist)
}
