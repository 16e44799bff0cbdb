package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/lcox74/attasm"
	"github.com/lcox74/attasm/pkg/amd64"
)

// newDumpCmd prints the parsed symbol tree without encoding anything,
// rendering each instruction in AT&T or Intel syntax.
func newDumpCmd() *cobra.Command {
	var intel bool

	cmd := &cobra.Command{
		Use:   "dump <file.s>",
		Short: "Print the parsed symbol/group/instruction tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tab, err := attasm.Parse(string(src), attasm.SyntaxATT)
			if err != nil {
				return err
			}

			render := amd64.Inst.ATTString
			if intel {
				render = amd64.Inst.IntelString
			}

			tree := treeprint.NewWithRoot(args[0])
			for _, name := range tab.Names() {
				sym, _ := tab.Get(name)
				symNode := tree.AddBranch(name)
				for _, group := range sym.Groups {
					groupNode := symNode.AddBranch(group.Label)
					for _, inst := range group.Insts {
						groupNode.AddNode(render(inst))
					}
				}
			}
			fmt.Print(tree.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&intel, "intel", false, "render instructions in Intel syntax")
	return cmd
}
