package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/inframed/inframed"
)

func (a *app) convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <config>",
		Short: "Build a repository from a conversion config",
		Long: `Read the dictionaries, signals and data files named by a conversion
config and write the repository into its OUTDIR.

Example:
  medconvert convert convert.cfg
  medconvert convert --max-pid 5000000 --report run.yaml convert.cfg`,
		Args: cobra.ExactArgs(1),
		RunE: a.runConvert,
	}
	cmd.Flags().Int32("max-pid", 0, "ignore patients above this id (overrides MAX_PID_TO_TAKE)")
	cmd.Flags().String("report", "", "write the run report as YAML to this file, - for stdout")
	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, args []string) error {
	log, err := a.logger()
	if err != nil {
		return err
	}
	opts := []inframed.Option{inframed.WithLogger(log)}
	if pid := a.v.GetInt32("max-pid"); pid > 0 {
		opts = append(opts, inframed.WithMaxPID(pid))
	}

	rep, runErr := inframed.Convert(cmd.Context(), args[0], opts...)
	if path := a.v.GetString("report"); path != "" && rep != nil {
		if err := writeReport(a.stdout, path, rep); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	fmt.Fprintf(a.stdout, "wrote %d of %d patients (%d rejected) in %s\n",
		rep.Written, rep.Patients, rep.Rejected, rep.Duration)
	return nil
}

func writeReport(stdout io.Writer, path string, rep *inframed.Report) error {
	if path == "-" {
		return rep.WriteYAML(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rep.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
