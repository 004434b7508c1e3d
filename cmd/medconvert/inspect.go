package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inframed/inframed"
	"github.com/inframed/inframed/repository"
	"github.com/inframed/inframed/signal"
)

func (a *app) inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <repository_config>",
		Short: "Print a patient's records or a repository summary",
		Long: `Without --pid, print the mode, signal catalog and patient count of a
repository. With --pid, print the patient's records in the raw data line
format, optionally limited to one signal.

Example:
  medconvert inspect out/rep.repository
  medconvert inspect --pid 1000001 --signal GLU out/rep.repository`,
		Args: cobra.ExactArgs(1),
		RunE: a.runInspect,
	}
	cmd.Flags().Int32("pid", 0, "patient id")
	cmd.Flags().String("signal", "", "signal name")
	return cmd
}

func (a *app) runInspect(cmd *cobra.Command, args []string) error {
	log, err := a.logger()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	repo, err := inframed.OpenRepository(ctx, args[0], inframed.WithLogger(log))
	if err != nil {
		return err
	}
	defer repo.Close()

	pid := a.v.GetInt32("pid")
	if pid == 0 {
		return a.summary(cmd, repo)
	}

	var sids []int
	if name := a.v.GetString("signal"); name != "" {
		sid, err := repo.SID(name)
		if err != nil {
			return err
		}
		sids = append(sids, sid)
	}
	rec, err := repo.PidRec(ctx, pid, sids...)
	if err != nil {
		return err
	}
	for _, sid := range rec.Signals() {
		name, _ := repo.Catalog().Name(sid)
		vals, _ := rec.Get(sid)
		for i := range vals.Len() {
			fmt.Fprintln(a.stdout, formatLine(pid, name, vals.Type, vals.At(i)))
		}
	}
	return nil
}

func (a *app) summary(cmd *cobra.Command, repo *repository.Repository) error {
	pids, err := repo.Pids(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "mode\t%d\npatients\t%d\n", repo.Mode(), pids.GetCardinality())
	if pids.GetCardinality() > 0 {
		fmt.Fprintf(a.stdout, "pids\t%d..%d\n", pids.Minimum(), pids.Maximum())
	}
	cat := repo.Catalog()
	for _, sid := range cat.SIDs() {
		name, _ := cat.Name(sid)
		typ, _ := cat.Type(sid)
		fmt.Fprintf(a.stdout, "signal\t%s\t%d\t%s\n", name, sid, typ)
	}
	return nil
}

func formatLine(pid int32, name string, typ signal.Type, r signal.Record) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(int64(pid), 10))
	b.WriteByte('\t')
	b.WriteString(name)
	for _, k := range typ.Fields() {
		b.WriteByte('\t')
		b.WriteString(k.Format(r))
	}
	return b.String()
}
