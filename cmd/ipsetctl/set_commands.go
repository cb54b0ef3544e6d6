package main

import (
	"fmt"

	"github.com/hornwind/ipset/pkg/ipset"
	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	var (
		timeout  uint32
		hashSize uint32
		maxElem  uint32
		netmask  uint8
		family   string
		counters bool
		comment  bool
		skbinfo  bool
		forceAdd bool
		exist    bool
	)
	cmd := &cobra.Command{
		Use:   "create NAME TYPE",
		Short: "Create a set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, sess, err := openSession(args[0], args[1])
			if err != nil {
				return err
			}
			defer set.Close()
			defer sess.Close()

			if exist {
				sess.SetEnv(ipset.EnvExist)
			}
			created, err := sess.Create(func(b *ipset.CreateBuilder) error {
				if timeout > 0 {
					b.WithTimeout(timeout)
				}
				if counters {
					b.WithCounters()
				}
				if comment {
					b.WithComment()
				}
				if skbinfo {
					b.WithSkbInfo()
				}
				if hashSize > 0 {
					b.WithHashSize(hashSize)
				}
				if maxElem > 0 {
					b.WithMaxElem(maxElem)
				}
				if forceAdd {
					b.WithForceAdd()
				}
				if netmask > 0 {
					b.WithNetmask(netmask)
				}
				if family == "inet6" {
					b.WithFamily(ipset.FamilyIPv6)
				}
				return b.Err()
			})
			if err != nil {
				return err
			}
			if !created {
				fmt.Printf("set %s already exists\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().Uint32Var(&timeout, "timeout", 0, "Default entry timeout in seconds")
	cmd.Flags().Uint32Var(&hashSize, "hashsize", 0, "Initial hash size (hash types only)")
	cmd.Flags().Uint32Var(&maxElem, "maxelem", 0, "Maximal number of elements (hash types only)")
	cmd.Flags().Uint8Var(&netmask, "netmask", 0, "Netmask applied to added addresses")
	cmd.Flags().StringVar(&family, "family", "", "Address family, inet or inet6 (hash types only)")
	cmd.Flags().BoolVar(&counters, "counters", false, "Enable packet and byte counters")
	cmd.Flags().BoolVar(&comment, "comment", false, "Enable per-entry comments")
	cmd.Flags().BoolVar(&skbinfo, "skbinfo", false, "Enable skbinfo extensions")
	cmd.Flags().BoolVar(&forceAdd, "forceadd", false, "Evict a random entry when the set is full (hash types only)")
	cmd.Flags().BoolVar(&exist, "exist", false, "Ignore an already existing set")
	return cmd
}

func newAddCmd() *cobra.Command {
	var (
		timeout uint32
		comment string
		nomatch bool
		exist   bool
	)
	cmd := &cobra.Command{
		Use:   "add NAME TYPE ENTRY",
		Short: "Add an entry to a set",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, sess, err := openSession(args[0], args[1])
			if err != nil {
				return err
			}
			defer set.Close()
			defer sess.Close()

			data, err := sess.Type().ParseData(args[2])
			if err != nil {
				return err
			}

			var opts []ipset.AddOption
			if timeout > 0 {
				opts = append(opts, ipset.Timeout(timeout))
			}
			if comment != "" {
				opts = append(opts, ipset.Comment(comment))
			}
			if nomatch {
				opts = append(opts, ipset.Nomatch{})
			}

			if exist {
				sess.SetEnv(ipset.EnvExist)
			}
			added, err := sess.Add(data, opts...)
			if err != nil {
				return err
			}
			if !added {
				fmt.Printf("%s is already in set %s\n", data, args[0])
			}
			return nil
		},
	}
	cmd.Flags().Uint32Var(&timeout, "timeout", 0, "Entry timeout in seconds")
	cmd.Flags().StringVar(&comment, "comment", "", "Entry comment")
	cmd.Flags().BoolVar(&nomatch, "nomatch", false, "Add the entry as a nomatch exception")
	cmd.Flags().BoolVar(&exist, "exist", false, "Ignore an already existing entry")
	return cmd
}

func newDelCmd() *cobra.Command {
	var exist bool
	cmd := &cobra.Command{
		Use:   "del NAME TYPE ENTRY",
		Short: "Delete an entry from a set",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, sess, err := openSession(args[0], args[1])
			if err != nil {
				return err
			}
			defer set.Close()
			defer sess.Close()

			data, err := sess.Type().ParseData(args[2])
			if err != nil {
				return err
			}
			if exist {
				sess.SetEnv(ipset.EnvExist)
			}
			removed, err := sess.Del(data)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Printf("%s is not in set %s\n", data, args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&exist, "exist", false, "Ignore a missing entry")
	return cmd
}

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test NAME TYPE ENTRY",
		Short: "Test whether an entry is in a set",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, sess, err := openSession(args[0], args[1])
			if err != nil {
				return err
			}
			defer set.Close()
			defer sess.Close()

			data, err := sess.Type().ParseData(args[2])
			if err != nil {
				return err
			}
			ok, err := sess.Test(data)
			if err != nil {
				return err
			}
			if ok {
				fmt.Printf("%s is in set %s\n", data, args[0])
			} else {
				fmt.Printf("%s is NOT in set %s\n", data, args[0])
			}
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var names bool
	cmd := &cobra.Command{
		Use:   "list NAME TYPE",
		Short: "List a set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, sess, err := openSession(args[0], args[1])
			if err != nil {
				return err
			}
			defer set.Close()
			defer sess.Close()

			if names {
				sess.SetEnv(ipset.EnvListSetName)
			}
			ret, err := sess.List()
			if err != nil {
				return err
			}
			if names {
				for _, n := range ret.Names {
					fmt.Println(n)
				}
				return nil
			}
			printSet(ret.Set)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&names, "name", "n", false, "List set names only")
	return cmd
}

func printSet(info *ipset.SetInfo) {
	if info == nil {
		return
	}
	fmt.Printf("Name: %s\n", info.Name)
	fmt.Printf("Type: %s\n", info.TypeName)
	fmt.Printf("Revision: %d\n", info.Revision)
	fmt.Printf("Size in memory: %d\n", info.SizeInMemory)
	fmt.Printf("References: %d\n", info.References)
	fmt.Printf("Number of entries: %d\n", info.NumEntries)
	fmt.Println("Members:")
	for _, m := range info.Members {
		line := m.Data.String()
		for _, opt := range m.Options {
			line += " " + opt.String()
		}
		fmt.Println(line)
	}
}

func newFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush NAME TYPE",
		Short: "Remove all entries from a set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, sess, err := openSession(args[0], args[1])
			if err != nil {
				return err
			}
			defer set.Close()
			defer sess.Close()

			flushed, err := sess.Flush()
			if err != nil {
				return err
			}
			if !flushed {
				fmt.Printf("set %s was not flushed\n", args[0])
			}
			return nil
		},
	}
}

func newDestroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy NAME TYPE",
		Short: "Destroy a set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, sess, err := openSession(args[0], args[1])
			if err != nil {
				return err
			}
			defer set.Close()
			defer sess.Close()

			destroyed, err := sess.Destroy()
			if err != nil {
				return err
			}
			if !destroyed {
				fmt.Printf("set %s was not destroyed\n", args[0])
			}
			return nil
		},
	}
}

func newSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save NAME TYPE FILE",
		Short: "Save a set to a file in restore format",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, sess, err := openSession(args[0], args[1])
			if err != nil {
				return err
			}
			defer set.Close()
			defer sess.Close()

			saved, err := sess.Save(args[2])
			if err != nil {
				return err
			}
			if !saved {
				fmt.Printf("set %s was not saved\n", args[0])
			}
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore FILE",
		Short: "Restore sets from a file produced by save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := ipset.New(newLib())
			defer set.Close()
			return set.Restore(args[0])
		},
	}
}
