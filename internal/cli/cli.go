// Package cli is the command line front end of the membership tracker. It works on the same
// persisted collection as the REST service.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/membership-service/internal/config"
	"gitlab.com/dirk.krummacker/membership-service/internal/logger"
	"gitlab.com/dirk.krummacker/membership-service/internal/storage"
	"gitlab.com/dirk.krummacker/membership-service/internal/store"
)

// app holds the state shared by all subcommands of one invocation.
type app struct {
	dataDir string
	key     string
	verbose bool

	opts      []store.Option
	store     *store.Store
	closeSlot func() error
}

// New returns the root command. The options are passed on to the store, tests use them to
// pin the clock.
func New(opts ...store.Option) *cobra.Command {
	a := &app{opts: opts}
	root := &cobra.Command{
		Use:   "members",
		Short: "track gym members and their fee payments",
		Long: `members keeps the roster of a gym: who is a member, which plan they are on, ` +
			`when their fee was last paid and when it is due next.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeSlot == nil {
				return nil
			}
			return a.closeSlot()
		},
	}
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory of the members file (default $DATA_DIR or .)")
	root.PersistentFlags().StringVar(&a.key, "key", "", "key under which the members are stored (default $SLOT_KEY or gym-members)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(a.listCmd())
	root.AddCommand(a.addCmd())
	root.AddCommand(a.editCmd())
	root.AddCommand(a.payCmd())
	root.AddCommand(a.remindCmd())
	root.AddCommand(a.deleteCmd())
	root.AddCommand(a.statsCmd())
	return root
}

// open loads the configuration, applies the flags on top of it, and opens the store.
func (a *app) open(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.key != "" {
		cfg.SlotKey = a.key
	}
	level := "warn"
	if a.verbose {
		level = "debug"
	}
	log := logger.New(cmd.ErrOrStderr(), level, "text")

	slot, closeSlot, err := storage.Open(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("could not open storage: %w", err)
	}
	a.closeSlot = closeSlot
	opts := append([]store.Option{
		store.WithLogger(log),
		store.WithNotifier(printNotifier{out: cmd.OutOrStdout()}),
	}, a.opts...)
	a.store = store.Open(cmd.Context(), slot, opts...)
	return nil
}

// printNotifier shows notices on the output of the command.
type printNotifier struct {
	out io.Writer
}

func (n printNotifier) Notify(message string) {
	fmt.Fprintln(n.out, message)
}

// promptConfirmer asks on the terminal and accepts y or yes.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid member id %q", arg)
	}
	return id, nil
}
