package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-dframe/internal/logger"
	"github.com/askiada/go-dframe/pkg/config"
	"github.com/askiada/go-dframe/pkg/pipeline"
	"github.com/askiada/go-dframe/pkg/pipeline/drawer"
	"github.com/askiada/go-dframe/pkg/pipeline/measure"
	"github.com/askiada/go-dframe/pkg/pipeline/metrics"
	"github.com/askiada/go-dframe/pkg/pipeline/model"
)

// ErrFailedPackages is returned when some packages did not go through the whole pipeline.
var ErrFailedPackages = errors.New("some packages failed")

type runConfig struct {
	definition  string
	logLevel    string
	logFormat   string
	concurrency int
	timeout     time.Duration
	draw        string
	metrics     string
}

// NewRunCommand returns the command running a pipeline over the lines of the standard input.
func NewRunCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a pipeline over the standard input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := runConfig{
				definition:  v.GetString(configFlag),
				logLevel:    v.GetString(logLevelFlag),
				logFormat:   v.GetString(logFormatFlag),
				concurrency: v.GetInt(concurrencyFlag),
				timeout:     v.GetDuration(timeoutFlag),
				draw:        v.GetString(drawFlag),
				metrics:     v.GetString(metricsFlag),
			}

			return run(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringP(configFlag, "c", "", "the YAML pipeline definition")
	flags.String(logLevelFlag, "info", "the log level: none, debug, info, warn or error")
	flags.String(logFormatFlag, "text", "the log format: text or json")
	flags.Int(concurrencyFlag, 1, "the number of packages submitted concurrently")
	flags.Duration(timeoutFlag, 0, "terminate the pipeline after this duration, 0 waits forever")
	flags.String(drawFlag, "", "write the pipeline graph, in DOT, to this file")
	flags.String(metricsFlag, "", "write the pipeline metrics, in the Prometheus text format, to this file")

	for _, name := range []string{configFlag, logLevelFlag, logFormatFlag, concurrencyFlag, timeoutFlag, drawFlag, metricsFlag} {
		mustBindPFlag(v, name, flags.Lookup(name))
	}

	return cmd
}

func run(ctx context.Context, cfg runConfig, in io.Reader, out io.Writer) error {
	if cfg.definition == "" {
		return errors.Errorf("--%s is required", configFlag)
	}
	if cfg.concurrency < 1 {
		return errors.Errorf("--%s must be at least 1, got %d", concurrencyFlag, cfg.concurrency)
	}

	log, err := logger.New(cfg.logFormat, cfg.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	def, err := config.LoadFile(cfg.definition)
	if err != nil {
		return err
	}
	stages, err := def.Build(newRegistry())
	if err != nil {
		return errors.Wrap(err, "unable to build pipeline")
	}

	if def.Name != "" {
		log = log.With(zap.String("pipeline", def.Name))
	}

	reg := prometheus.NewRegistry()
	observers := []model.PipelineOption{metrics.New(reg, def.Name)}
	if cfg.draw != "" {
		m := measure.NewDefaultMeasure()
		observers = append(observers, measure.PipelineMeasure(m), drawer.PipelineDrawer(drawer.NewDOTDrawer(cfg.draw), m))
	}

	opts := append(def.Options(), pipeline.WithLogger(log), pipeline.WithObservers(observers...))
	p, err := pipeline.New(stages, opts...)
	if err != nil {
		return errors.Wrap(err, "unable to create pipeline")
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	ids, err := submitLines(ctx, p, cfg.concurrency, in)
	if err != nil {
		p.Terminate()

		return err
	}

	err = p.Stop(ctx, true)
	if err != nil {
		p.Terminate()

		return errors.Wrap(err, "unable to stop pipeline")
	}

	if cfg.metrics != "" {
		err = writeMetrics(reg, cfg.metrics)
		if err != nil {
			return err
		}
	}

	return printResults(p, ids, out, log)
}

// submitLines starts p and submits every line of in. It returns the package identities in input order.
func submitLines(ctx context.Context, p *pipeline.Pipeline, concurrency int, in io.Reader) ([]string, error) {
	err := p.Start(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to start pipeline")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	ids := []string{}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		pkg := pipeline.NewPackage(pipeline.NewID(), scanner.Text())
		ids = append(ids, pkg.ID())
		g.Go(func() error {
			return p.ProcessPackage(gctx, pkg)
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, errors.Wrap(err, "unable to submit package")
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read input")
	}

	return ids, nil
}

func printResults(p *pipeline.Pipeline, ids []string, out io.Writer, log *zap.Logger) error {
	wrt := bufio.NewWriter(out)
	failed := 0
	for _, id := range ids {
		pkg, ok := p.Result(id)
		if !ok {
			failed++
			log.Warn("package did not reach the end of the pipeline", zap.String("package_id", id))

			continue
		}
		output, err := pkg.Output()
		if err != nil {
			return err
		}
		fmt.Fprintln(wrt, output)
	}
	if err := wrt.Flush(); err != nil {
		return errors.Wrap(err, "unable to write results")
	}

	for _, failure := range p.Failures() {
		log.Error("stage failure", zap.Error(failure))
	}
	if failed > 0 {
		return errors.Wrapf(ErrFailedPackages, "%d of %d", failed, len(ids))
	}

	return nil
}

func writeMetrics(gatherer prometheus.Gatherer, path string) error {
	families, err := gatherer.Gather()
	if err != nil {
		return errors.Wrap(err, "unable to gather metrics")
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}
	for _, mf := range families {
		_, err = expfmt.MetricFamilyToText(file, mf)
		if err != nil {
			_ = file.Close()

			return errors.Wrap(err, "unable to write metrics")
		}
	}

	return errors.Wrapf(file.Close(), "unable to close %s", path)
}
