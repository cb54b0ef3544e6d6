package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/hornwind/ipset/pkg/ipset"
	"github.com/spf13/cobra"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive set management shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sh := &shell{set: ipset.New(newLib())}
			defer sh.set.Close()
			return sh.run()
		},
	}
}

type shell struct {
	rl  *readline.Instance
	set *ipset.IPSet
}

var errExit = fmt.Errorf("exit")

func (s *shell) run() error {
	var err error
	s.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "ipsetctl> ",
		HistoryFile:     "/tmp/ipsetctl_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer s.rl.Close()

	fmt.Println("Type '?' for help")
	fmt.Println()

	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := s.dispatch(line); err != nil {
			if err == errExit {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return nil
}

func (s *shell) dispatch(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "create":
		return s.withSession(parts[1:], 2, func(sess *ipset.Session, args []string) error {
			_, err := sess.Create(nil)
			return err
		})

	case "add":
		return s.dataCommand(parts[1:], func(sess *ipset.Session, data ipset.DataType) error {
			added, err := sess.Add(data)
			if err == nil && !added {
				fmt.Printf("%s is already in set %s\n", data, sess.Name())
			}
			return err
		})

	case "del":
		return s.dataCommand(parts[1:], func(sess *ipset.Session, data ipset.DataType) error {
			removed, err := sess.Del(data)
			if err == nil && !removed {
				fmt.Printf("%s is not in set %s\n", data, sess.Name())
			}
			return err
		})

	case "test":
		return s.dataCommand(parts[1:], func(sess *ipset.Session, data ipset.DataType) error {
			ok, err := sess.Test(data)
			if err != nil {
				return err
			}
			if ok {
				fmt.Printf("%s is in set %s\n", data, sess.Name())
			} else {
				fmt.Printf("%s is NOT in set %s\n", data, sess.Name())
			}
			return nil
		})

	case "list":
		return s.withSession(parts[1:], 2, func(sess *ipset.Session, args []string) error {
			ret, err := sess.List()
			if err != nil {
				return err
			}
			printSet(ret.Set)
			return nil
		})

	case "flush":
		return s.withSession(parts[1:], 2, func(sess *ipset.Session, args []string) error {
			_, err := sess.Flush()
			return err
		})

	case "destroy":
		return s.withSession(parts[1:], 2, func(sess *ipset.Session, args []string) error {
			_, err := sess.Destroy()
			return err
		})

	case "save":
		return s.withSession(parts[1:], 3, func(sess *ipset.Session, args []string) error {
			_, err := sess.Save(args[2])
			return err
		})

	case "restore":
		if len(parts) != 2 {
			return fmt.Errorf("usage: restore FILE")
		}
		return s.set.Restore(parts[1])

	case "types":
		for _, t := range ipset.Types() {
			fmt.Println(t.Name())
		}
		return nil

	case "quit", "exit":
		return errExit

	case "?", "help":
		s.showHelp()
		return nil

	default:
		return fmt.Errorf("unknown command: %s", parts[0])
	}
}

// withSession parses NAME TYPE from args, opens a session and runs fn.
func (s *shell) withSession(args []string, want int, fn func(*ipset.Session, []string) error) error {
	if len(args) < want {
		return fmt.Errorf("need at least %d arguments: NAME TYPE ...", want)
	}
	typ, ok := ipset.TypeByName(args[1])
	if !ok {
		return fmt.Errorf("unknown set type %q", args[1])
	}
	sess, err := s.set.NewSession(args[0], typ)
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(sess, args)
}

func (s *shell) dataCommand(args []string, fn func(*ipset.Session, ipset.DataType) error) error {
	return s.withSession(args, 3, func(sess *ipset.Session, args []string) error {
		data, err := sess.Type().ParseData(args[2])
		if err != nil {
			return err
		}
		return fn(sess, data)
	})
}

func (s *shell) showHelp() {
	fmt.Println("Commands:")
	fmt.Println("  create NAME TYPE        Create a set with default options")
	fmt.Println("  add NAME TYPE ENTRY     Add an entry")
	fmt.Println("  del NAME TYPE ENTRY     Delete an entry")
	fmt.Println("  test NAME TYPE ENTRY    Test an entry")
	fmt.Println("  list NAME TYPE          List a set")
	fmt.Println("  flush NAME TYPE         Remove all entries")
	fmt.Println("  destroy NAME TYPE       Destroy a set")
	fmt.Println("  save NAME TYPE FILE     Save a set to a file")
	fmt.Println("  restore FILE            Restore sets from a file")
	fmt.Println("  types                   List supported set types")
	fmt.Println("  quit                    Exit the shell")
}
