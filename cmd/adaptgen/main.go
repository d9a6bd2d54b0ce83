package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// job is one generation run: a package directory and the interfaces to
// generate facades for.
type job struct {
	Dir        string                                  `yaml:"dir"`
	Out        string                                  `yaml:"out"`
	Interfaces []string                                `yaml:"interfaces"`
	Accessors  bool                                    `yaml:"accessors"`
	Tags       map[string]map[string]map[string]string `yaml:"tags"`
}

type jobFile struct {
	Jobs []job `yaml:"jobs"`
}

const defaultOut = "adaptive_gen.go"

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ADAPTGEN")
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:          "adaptgen",
		Short:        "Generate typed facades for synthesized interface implementations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := zerolog.InfoLevel
			if v.GetBool("verbose") {
				level = zerolog.DebugLevel
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
				Level(level).With().Timestamp().Logger()

			jobs, err := jobsFrom(v)
			if err != nil {
				return err
			}
			for _, j := range jobs {
				if err := runJob(cmd.Context(), log, j); err != nil {
					return err
				}
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.String("dir", ".", "package directory")
	fl.String("out", defaultOut, "output file, relative to the package directory")
	fl.StringSlice("interfaces", nil, "interfaces to generate (default: every exported interface)")
	fl.Bool("accessors", false, "describe accessor method pairs as properties and events")
	fl.String("config", "", "YAML job file; overrides the other flags")
	fl.BoolP("verbose", "v", false, "debug logging")
	if err := v.BindPFlags(fl); err != nil {
		panic(err)
	}
	return cmd
}

// jobsFrom builds the job list from the config file when one is set, else
// from flags and ADAPTGEN_* environment variables.
func jobsFrom(v *viper.Viper) ([]job, error) {
	if path := v.GetString("config"); path != "" {
		return readJobs(path)
	}
	return []job{{
		Dir:        v.GetString("dir"),
		Out:        v.GetString("out"),
		Interfaces: v.GetStringSlice("interfaces"),
		Accessors:  v.GetBool("accessors"),
	}}, nil
}

// readJobs parses a job file. Relative job directories resolve against the
// file's own directory.
func readJobs(path string) ([]job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var jf jobFile
	if err := yaml.Unmarshal(b, &jf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(jf.Jobs) == 0 {
		return nil, fmt.Errorf("%s: no jobs", path)
	}
	base := filepath.Dir(path)
	for i := range jf.Jobs {
		j := &jf.Jobs[i]
		if j.Dir == "" {
			j.Dir = "."
		}
		if !filepath.IsAbs(j.Dir) {
			j.Dir = filepath.Join(base, j.Dir)
		}
		if j.Out == "" {
			j.Out = defaultOut
		}
	}
	return jf.Jobs, nil
}

func runJob(ctx context.Context, log zerolog.Logger, j job) error {
	out := j.Out
	if !filepath.IsAbs(out) {
		out = filepath.Join(j.Dir, out)
	}

	t, err := loadTarget(ctx, log, j.Dir, out, j.Interfaces)
	if err != nil {
		return err
	}
	if len(t.Interfaces) == 0 {
		return fmt.Errorf("%s: no interfaces to generate", t.Path)
	}

	src, err := generate(t, genOptions{Accessors: j.Accessors, Tags: j.Tags})
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, src, 0o644); err != nil {
		return err
	}

	log.Info().Str("pkg", t.Path).Str("out", out).Int("interfaces", len(t.Interfaces)).Msg("generated")
	return nil
}

func run(args []string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
