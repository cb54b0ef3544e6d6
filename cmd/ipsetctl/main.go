package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hornwind/ipset/internal/applier"
	"github.com/hornwind/ipset/internal/models/repository/bolt"
	"github.com/hornwind/ipset/pkg/config"
	"github.com/hornwind/ipset/pkg/ipset"
	"github.com/hornwind/ipset/pkg/ipset/execlib"
	_ "github.com/hornwind/ipset/pkg/log"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	utilexec "k8s.io/utils/exec"
)

const defaultConfigPath = "/var/lib/ipsetctl"

var (
	cfgPath string
	binPath string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ipsetctl",
		Short: "Typed management of netfilter sets",
		Long: `ipsetctl manages kernel sets through typed sessions: every command is
bound to a set name and a set type, and elements are validated against
the type before anything reaches the kernel.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath, "Directory with config.yaml and the state db")
	rootCmd.PersistentFlags().StringVar(&binPath, "ipset-bin", "", "Path to the ipset binary (default: from PATH)")

	rootCmd.AddCommand(
		newApplyCmd(),
		newCreateCmd(),
		newAddCmd(),
		newDelCmd(),
		newTestCmd(),
		newListCmd(),
		newFlushCmd(),
		newDestroyCmd(),
		newSaveCmd(),
		newRestoreCmd(),
		newShellCmd(),
	)
	return rootCmd
}

func newLib() ipset.Lib {
	if binPath != "" {
		return execlib.NewWithBinary(utilexec.New(), binPath)
	}
	return execlib.New(utilexec.New())
}

// openSession resolves the type name and opens a session bound to it.
// The caller closes both returned values.
func openSession(name, typeName string) (*ipset.IPSet, *ipset.Session, error) {
	typ, ok := ipset.TypeByName(typeName)
	if !ok {
		return nil, nil, errors.Errorf("unknown set type %q", typeName)
	}
	set := ipset.New(newLib())
	sess, err := set.NewSession(name, typ)
	if err != nil {
		set.Close()
		return nil, nil, err
	}
	return set, sess, nil
}

func newApplyCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile kernel sets and firewall rules with the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep reconciling on the refresh interval")
	return cmd
}

func runApply(watch bool) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := os.Mkdir(cfgPath, 0700); err != nil && !os.IsExist(err) {
		return errors.Wrapf(err, "could not access config path %s", cfgPath)
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return errors.Wrap(err, "cannot load config")
	}
	log.Debugf("%v", cfg)

	statePath := cfg.StatePath
	if statePath == "" {
		statePath = filepath.Join(cfgPath, "state.db")
	}
	storage, err := bolt.NewStorage(statePath)
	if err != nil {
		return err
	}
	defer storage.Close()

	app, err := applier.NewApplier(stop, cfg, storage)
	if err != nil {
		return err
	}

	if !watch {
		return app.ApplyOnce()
	}

	app.Run(ctx)
	<-ctx.Done()
	return nil
}
