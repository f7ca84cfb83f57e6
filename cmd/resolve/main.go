// Command resolve is the only place in this module allowed to touch
// stdout/stderr, os.Args, and process exit codes. It reads a
// pyproject.toml-shaped manifest, runs the resolution engine, and
// writes a lockfile. It never installs packages, downloads artifacts,
// or manages a virtualenv.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bilusteknoloji/pvsolve/internal/lock"
	"github.com/bilusteknoloji/pvsolve/internal/manifest"
	"github.com/bilusteknoloji/pvsolve/internal/markers"
	"github.com/bilusteknoloji/pvsolve/internal/metadata"
	"github.com/bilusteknoloji/pvsolve/internal/resolveerrors"
	"github.com/bilusteknoloji/pvsolve/internal/resolver"
	"github.com/bilusteknoloji/pvsolve/internal/selector"
	"github.com/bilusteknoloji/pvsolve/internal/simpleapi"
	"github.com/bilusteknoloji/pvsolve/internal/versionmap"
)

var version = "0.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:           "resolve",
		Short:         "A universal PEP 508 dependency resolver",
		Long:          "resolve reads a pyproject.toml-shaped manifest and writes a universal, PubGrub-solved lockfile valid across every declared environment.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	lockCmd := &cobra.Command{
		Use:   "lock [manifest]",
		Short: "Resolve a manifest into a lockfile",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLock,
	}

	lockCmd.Flags().StringP("output", "o", "resolved.lock", "Lockfile output path")
	lockCmd.Flags().String("index", "https://pypi.org/simple", "Base URL of the simple index")
	lockCmd.Flags().String("cache-dir", "", "Metadata cache directory (default: no cache)")
	lockCmd.Flags().String("strategy", "highest", "Candidate selection strategy: highest, lowest, lowest-direct")
	lockCmd.Flags().Bool("prereleases", false, "Allow pre-releases globally, not just when necessary")
	lockCmd.Flags().BoolP("verbose", "v", false, "Verbose logging")
	lockCmd.Flags().Duration("timeout", 5*time.Minute, "Resolution timeout")

	rootCmd.AddCommand(lockCmd)

	return rootCmd.Execute()
}

func runLock(cmd *cobra.Command, args []string) error {
	manifestPath := "pyproject.toml"
	if len(args) == 1 {
		manifestPath = args[0]
	}

	flags, err := parseLockFlags(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(flags.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, flags.timeout)
	defer cancel()

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("reading manifest %s: %w", manifestPath, err)
	}

	man, err := manifest.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing manifest %s: %w", manifestPath, err)
	}

	strategy, err := parseStrategy(flags.strategy)
	if err != nil {
		return err
	}

	prerelease := selector.PrereleaseIfNecessary
	if flags.prereleases {
		prerelease = selector.PrereleaseAllow
	}

	provider, err := buildProvider(man, flags, logger)
	if err != nil {
		return err
	}

	environments := man.Environments
	if len(environments) == 0 {
		environments = []markers.UniversalMarker{{Pep508: markers.True(), Conflict: markers.True()}}
	}

	svc := resolver.New(provider, man.RequiresRange,
		resolver.WithStrategy(strategy),
		resolver.WithPrerelease(prerelease),
		resolver.WithEnvironments(environments),
		resolver.WithLogger(logger),
	)

	fmt.Fprintf(os.Stderr, "Resolving %d root requirement(s) ...\n", len(man.Roots))

	result, err := svc.Resolve(ctx, man.Roots)
	if err != nil {
		var noSolution *resolveerrors.NoSolutionError
		if errors.As(err, &noSolution) {
			return fmt.Errorf("no solution:\n%s", noSolution.Chain)
		}

		return fmt.Errorf("resolving %s: %w", manifestPath, err)
	}

	digest := lock.Compute(lock.DigestInputs{
		RootRequirements: rootStrings(man),
		Environments:     environmentStrings(environments),
		RequiresPython:   man.RequiresPython,
		IndexURLs:        man.IndexURLs,
	})

	lf, err := lock.Build(ctx, result.Graph, provider, lock.Options{
		RequiresPythonText:  man.RequiresPython,
		RequiresPythonRange: man.RequiresRange,
		Environments:        environments,
		Sources:             result.Sources,
		InputDigest:         digest,
	})
	if err != nil {
		return fmt.Errorf("rendering lockfile: %w", err)
	}

	rendered, err := lock.Render(lf)
	if err != nil {
		return fmt.Errorf("serialising lockfile: %w", err)
	}

	if err := os.WriteFile(flags.output, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", flags.output, err)
	}

	fmt.Fprintf(os.Stderr, "Resolved %d package(s) in %d fork(s) -> %s\n",
		len(lf.Package), len(result.Forks), flags.output)

	return nil
}

// lockFlags holds parsed CLI flags for the lock command.
type lockFlags struct {
	output      string
	indexURL    string
	cacheDir    string
	strategy    string
	prereleases bool
	verbose     bool
	timeout     time.Duration
}

func parseLockFlags(cmd *cobra.Command) (lockFlags, error) {
	output, _ := cmd.Flags().GetString("output")
	indexURL, _ := cmd.Flags().GetString("index")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	strategy, _ := cmd.Flags().GetString("strategy")
	prereleases, _ := cmd.Flags().GetBool("prereleases")
	verbose, _ := cmd.Flags().GetBool("verbose")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	return lockFlags{output, indexURL, cacheDir, strategy, prereleases, verbose, timeout}, nil
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func parseStrategy(s string) (selector.Strategy, error) {
	switch s {
	case "highest", "":
		return selector.Highest, nil
	case "lowest":
		return selector.Lowest, nil
	case "lowest-direct":
		return selector.LowestDirect, nil
	default:
		return 0, fmt.Errorf("unknown --strategy %q (want highest, lowest, or lowest-direct)", s)
	}
}

// buildProvider wires the production metadata.Provider: a simpleapi
// client against the configured index, this host's wheel compatibility
// tags, and an optional on-disk cache.
func buildProvider(man *manifest.Manifest, flags lockFlags, logger *slog.Logger) (*metadata.Provider, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	indexURL := flags.indexURL
	if len(man.IndexURLs) > 0 {
		indexURL = man.IndexURLs[0]
	}

	client := simpleapi.New(
		simpleapi.WithHTTPClient(httpClient),
		simpleapi.WithBaseURL(indexURL),
		simpleapi.WithLogger(logger),
	)

	tags := hostTags()

	opts := []metadata.Option{
		metadata.WithLogger(logger),
		metadata.WithGroups(man.Groups),
	}

	if flags.cacheDir != "" {
		dir, err := filepath.Abs(flags.cacheDir)
		if err != nil {
			return nil, fmt.Errorf("resolving cache dir %s: %w", flags.cacheDir, err)
		}

		cache, err := metadata.NewCache(dir, metadata.WithCacheLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("opening cache %s: %w", dir, err)
		}

		opts = append(opts, metadata.WithCache(cache))
	}

	return metadata.New(client, tags, man.RequiresRange, opts...), nil
}

// hostTags approximates the running interpreter's wheel compatibility
// tags: CPython 3.12 manylinux x86_64 plus the pure-Python fallbacks,
// most specific first.
func hostTags() versionmap.Tags {
	return versionmap.NewTags(
		versionmap.Tag{Python: "cp312", ABI: "cp312", Platform: "manylinux_2_17_x86_64"},
		versionmap.Tag{Python: "cp312", ABI: "abi3", Platform: "manylinux_2_17_x86_64"},
		versionmap.Tag{Python: "cp312", ABI: "none", Platform: "manylinux_2_17_x86_64"},
		versionmap.Tag{Python: "cp312", ABI: "none", Platform: "linux_x86_64"},
		versionmap.Tag{Python: "py3", ABI: "none", Platform: "linux_x86_64"},
		versionmap.Tag{Python: "cp312", ABI: "none", Platform: "any"},
		versionmap.Tag{Python: "py3", ABI: "none", Platform: "any"},
	)
}

func rootStrings(man *manifest.Manifest) []string {
	out := make([]string, 0, len(man.Roots))
	for _, r := range man.Roots {
		out = append(out, r.Name.String())
	}

	return out
}

func environmentStrings(envs []markers.UniversalMarker) []string {
	out := make([]string, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.Pep508.String())
	}

	return out
}
