package main

import (
	"os"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	outputPath string
	verbose    bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "attasm <file.s>",
		Short:         "AT&T-syntax x86-64 assembler producing relocatable ELF64 objects",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(args[0], outputPath)
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.Flags().StringVarP(&outputPath, "output", "o", "obj.o", "output object file")

	root.AddCommand(newDumpCmd())
	return root
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)

	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "attasm: %v\n", err)
		os.Exit(1)
	}
}
