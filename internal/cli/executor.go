package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"shadergen/internal/core"
	"shadergen/internal/emit"
	"shadergen/internal/logx"
	"shadergen/internal/trace"
)

// Result is the outcome of one run.
type Result struct {
	ExitCode int

	// Generated lists the emitted headers in scan order, i.e. manifest order.
	Generated []emit.HeaderRef

	// Skipped lists the programs that got no header.
	Skipped []*core.ProgramError

	// SkippedDirs lists directories that could not be listed.
	SkippedDirs []*core.DirectoryError

	// Stale lists outputs that differ from disk. Only set in check mode.
	Stale []string

	ManifestPath string
}

// Generator runs scan, classify, emit and manifest over one root.
type Generator struct {
	Root     string
	Scanner  *core.Scanner
	Headers  *emit.HeaderEmitter
	Manifest *emit.ManifestEmitter

	// Jobs bounds parallel header emission. Values below 1 mean 1.
	Jobs   int
	Strict bool

	// Check is set in check mode; Headers and Manifest must write through it.
	Check *emit.CheckWriter

	Log   *slog.Logger
	Trace trace.Sink
}

// NewGenerator wires a Generator for root from cfg.
func NewGenerator(root string, cfg Config, check bool, log *slog.Logger, sink trace.Sink) (*Generator, error) {
	scanner, err := core.NewScanner(root, cfg.Exclude)
	if err != nil {
		return nil, configErrorf("%v", err)
	}
	guard, err := emit.ParseGuard(cfg.Guard)
	if err != nil {
		return nil, configErrorf("guard: %v", err)
	}
	newlines, err := core.ParseNewlineMode(cfg.Newlines)
	if err != nil {
		return nil, configErrorf("newlines: %v", err)
	}
	if sink == nil {
		sink = trace.NopSink{}
	}

	g := &Generator{
		Root:     root,
		Scanner:  scanner,
		Headers:  emit.NewHeaderEmitter(),
		Manifest: emit.NewManifestEmitter(root, cfg.ManifestName),
		Jobs:     cfg.Jobs,
		Strict:   cfg.Strict,
		Log:      log,
		Trace:    sink,
	}
	g.Headers.FileName = cfg.HeaderName
	g.Headers.Guard = guard
	g.Headers.Normalizer = newlines.Normalizer()
	g.Manifest.Guard = guard
	if check {
		g.Check = emit.NewCheckWriter()
		g.Headers.Writer = g.Check
		g.Manifest.Writer = g.Check
	}
	return g, nil
}

// Execute maps a canonical Invocation to a generation run.
//
// Responsibilities:
//   - Load the config file and apply flag overrides.
//   - Reserve the report file before generation and finalize it after,
//     even on failure.
//   - Translate outcomes to semantic exit codes.
func Execute(ctx context.Context, inv Invocation, stderr io.Writer) (res Result, execErr error) {
	log := logx.New(stderr, logx.LevelFromFlags(inv.Verbose, inv.Quiet), inv.NoColor)
	res.ExitCode = ExitInternalError

	cfg := DefaultConfig()
	if inv.ConfigPath != "" {
		var err error
		if cfg, err = LoadConfig(inv.ConfigPath); err != nil {
			log.Error(err.Error())
			res.ExitCode = ExitCode(err)
			return res, err
		}
	}
	if inv.JobsSet || cfg.Jobs < 1 {
		cfg.Jobs = inv.Jobs
	}
	cfg.Strict = cfg.Strict || inv.Strict

	rec := trace.NewRecorder()
	report, err := newReportWriter(inv.Report, cfg.Hash())
	if err != nil {
		log.Error("cannot write report", "path", inv.Report.Path, "err", err)
		res.ExitCode = ExitConfigError
		return res, err
	}
	defer func() {
		if ferr := report.Finalize(rec); ferr != nil {
			log.Error("cannot write report", "path", inv.Report.Path, "err", ferr)
			if res.ExitCode == ExitSuccess {
				res.ExitCode = ExitInternalError
				execErr = ferr
			}
		}
	}()

	g, err := NewGenerator(inv.Root, cfg, inv.Check, log, rec)
	if err != nil {
		log.Error(err.Error())
		res.ExitCode = ExitConfigError
		return res, err
	}
	return g.Run(ctx)
}

// Run performs the generation. Per-program failures are logged and
// collected; only a root scan failure, a manifest failure, cancellation or
// a panic stop the run.
func (g *Generator) Run(ctx context.Context) (res Result, runErr error) {
	res.ExitCode = ExitInternalError
	log := g.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	defer func() {
		if r := recover(); r != nil {
			res.ExitCode = ExitInternalError
			runErr = fmt.Errorf("panic: %v", r)
			log.Error("internal error", "err", runErr)
		}
	}()

	log.Info(g.Root)
	scan, err := g.Scanner.Scan(ctx)
	if err != nil {
		log.Error(err.Error())
		var se *core.ScanError
		if errors.As(err, &se) {
			res.ExitCode = ExitScanFailure
		}
		return res, err
	}

	for _, d := range scan.Skipped {
		log.Warn(d.Error())
		res.SkippedDirs = append(res.SkippedDirs, d)
		trace.SafeRecord(g.Trace, trace.Event{Kind: trace.EventDirectorySkipped, Program: g.rel(d.Path), Reason: "Unreadable"})
	}

	programs := g.plan(scan, &res, log)

	refs, skipped, err := g.emitAll(ctx, programs)
	if err != nil {
		log.Error(err.Error())
		return res, err
	}
	for i, p := range programs {
		if pe := skipped[i]; pe != nil {
			g.skip(&res, log, p.Rel, pe)
			continue
		}
		ref := refs[i]
		log.Debug("generated", "program", p.Rel, "header", ref.Include)
		res.Generated = append(res.Generated, ref)
		trace.SafeRecord(g.Trace, trace.Event{Kind: trace.EventProgramGenerated, Program: p.Rel, Digest: ref.Digest, Artifacts: []string{ref.Include}})
	}

	res.ManifestPath = g.Manifest.Path
	digest, err := g.Manifest.Emit(res.Generated)
	if err != nil {
		log.Error(err.Error())
		res.ExitCode = ExitManifestFailure
		return res, err
	}
	trace.SafeRecord(g.Trace, trace.Event{Kind: trace.EventManifestWritten, Digest: digest, Artifacts: []string{g.rel(g.Manifest.Path)}})

	res.ExitCode = ExitSuccess
	if g.Check != nil {
		for _, p := range g.Check.Stale() {
			rel := g.rel(p)
			log.Warn("out of date", "file", rel)
			res.Stale = append(res.Stale, rel)
			trace.SafeRecord(g.Trace, trace.Event{Kind: trace.EventOutputStale, Artifacts: []string{rel}})
		}
		if len(res.Stale) > 0 {
			res.ExitCode = ExitGenerationFailure
		}
	}
	if g.Strict && (len(res.Skipped) > 0 || len(res.SkippedDirs) > 0) {
		log.Error("strict mode: skipped programs or directories", "programs", len(res.Skipped), "directories", len(res.SkippedDirs))
		res.ExitCode = ExitGenerationFailure
	}

	log.Info("done",
		"generated", len(res.Generated),
		"skipped", len(res.Skipped),
		"manifest", g.rel(g.Manifest.Path),
	)
	return res, nil
}

// plan classifies every scanned directory and returns the programs to emit,
// in scan order. Rejected programs are recorded in res. Programs sharing a
// name are all returned; emitAll decides which one takes it.
func (g *Generator) plan(scan *core.ScanResult, res *Result, log *slog.Logger) []*core.ShaderProgram {
	var programs []*core.ShaderProgram

	for _, dir := range scan.Directories {
		dir.Files = g.withoutOutputs(dir.Files)
		log.Info(dir.Rel, "files", dir.Files)
		if len(dir.Files) == 0 {
			log.Debug("no files, not a program", "dir", dir.Rel)
			continue
		}

		p := core.Classify(dir)
		for _, s := range p.Ambiguous() {
			log.Warn("several files match one stage, using the last",
				"program", dir.Rel,
				"stage", s.Keyword(),
				"candidates", p.Candidates[s],
				"using", p.Files[s],
			)
			trace.SafeRecord(g.Trace, trace.Event{Kind: trace.EventStageAmbiguous, Program: dir.Rel, Reason: s.Keyword(), Artifacts: p.Candidates[s]})
		}

		if err := p.Validate(); err != nil {
			var pe *core.ProgramError
			errors.As(err, &pe)
			log.Warn("Missing shader!", "program", dir.Rel, "err", err)
			g.record(res, dir.Rel, pe)
			continue
		}
		err := core.ValidateName(p.Name)
		if err == nil {
			err = core.ValidateIncludePath(p.Name, dir.Rel)
		}
		if err != nil {
			var pe *core.ProgramError
			errors.As(err, &pe)
			g.skip(res, log, dir.Rel, pe)
			continue
		}
		programs = append(programs, p)
	}
	return programs
}

// emitAll emits every program with at most Jobs in flight. Results are
// stored by index so completion order never leaks into the manifest.
//
// A name belongs to the first program in scan order that emits
// successfully. A later program with the same name is only tried once every
// earlier one has failed; the rest are skipped as duplicates.
// Only cancellation and non-program errors abort.
func (g *Generator) emitAll(ctx context.Context, programs []*core.ShaderProgram) ([]emit.HeaderRef, []*core.ProgramError, error) {
	refs := make([]emit.HeaderRef, len(programs))
	skipped := make([]*core.ProgramError, len(programs))

	byName := make(map[string][]int)
	var pending []int
	for i, p := range programs {
		if len(byName[p.Name]) == 0 {
			pending = append(pending, i)
		}
		byName[p.Name] = append(byName[p.Name], i)
	}

	// tried[name] is the position in byName[name] of the program emitted last.
	tried := make(map[string]int)
	for len(pending) > 0 {
		if err := g.emitBatch(ctx, programs, pending, refs, skipped); err != nil {
			return nil, nil, err
		}
		var retry []int
		for _, i := range pending {
			name := programs[i].Name
			if skipped[i] == nil {
				continue
			}
			tried[name]++
			if k := tried[name]; k < len(byName[name]) {
				retry = append(retry, byName[name][k])
			}
		}
		pending = retry
	}

	for name, idx := range byName {
		winner := tried[name]
		for _, i := range idx[min(winner+1, len(idx)):] {
			skipped[i] = core.NewDuplicateNameError(name, programs[i].Rel, programs[idx[winner]].Rel)
		}
	}
	return refs, skipped, nil
}

func (g *Generator) emitBatch(ctx context.Context, programs []*core.ShaderProgram, batch []int, refs []emit.HeaderRef, skipped []*core.ProgramError) error {
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.Jobs, 1))
	for _, i := range batch {
		p := programs[i]
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic emitting %s: %v", p.Rel, r)
				}
			}()
			ref, err := g.Headers.Emit(egctx, p)
			if err != nil {
				var pe *core.ProgramError
				if errors.As(err, &pe) {
					skipped[i] = pe
					return nil
				}
				return err
			}
			refs[i] = ref
			return nil
		})
	}
	return eg.Wait()
}

func (g *Generator) skip(res *Result, log *slog.Logger, rel string, pe *core.ProgramError) {
	log.Warn(pe.Error())
	g.record(res, rel, pe)
}

func (g *Generator) record(res *Result, rel string, pe *core.ProgramError) {
	res.Skipped = append(res.Skipped, pe)
	trace.SafeRecord(g.Trace, trace.Event{Kind: trace.EventProgramSkipped, Program: rel, Reason: pe.Code})
}

// withoutOutputs drops the header file itself from a listing so a previous
// run's output is never classified as a stage.
func (g *Generator) withoutOutputs(files []string) []string {
	out := files[:0:0]
	for _, f := range files {
		if f != g.Headers.FileName {
			out = append(out, f)
		}
	}
	return out
}

// rel renders p relative to the root with forward slashes, for logs and
// traces that must not depend on where the tree lives.
func (g *Generator) rel(p string) string {
	r, err := filepath.Rel(g.Root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(r)
}

type reportWriter struct {
	enabled bool
	path    string
	config  string
	writer  emit.Writer
}

// newReportWriter reserves the report destination eagerly so that even a
// failed run leaves a valid (empty) trace behind.
func newReportWriter(rc ReportConfig, config string) (*reportWriter, error) {
	if !rc.Enabled {
		return &reportWriter{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(rc.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	w := &reportWriter{enabled: true, path: rc.Path, config: config, writer: emit.NewAtomicWriter()}
	return w, w.write(trace.GenerationTrace{Config: config})
}

func (w *reportWriter) Finalize(rec *trace.Recorder) error {
	if w == nil || !w.enabled {
		return nil
	}
	return w.write(rec.Trace(w.config))
}

func (w *reportWriter) write(t trace.GenerationTrace) error {
	b, err := t.CanonicalJSON()
	if err != nil {
		return err
	}
	return w.writer.WriteFile(w.path, append(b, '\n'))
}
