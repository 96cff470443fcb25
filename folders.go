package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spdrive/spdrive/internal/graph"
)

func newFoldersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "folders [folder]",
		Short: "List folders inside a folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := buildApp()

			parent := ""
			if len(args) == 1 {
				parent = args[0]
			}

			folders, err := app.library.ListFolders(cmd.Context(), parent)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(folders)
			}

			w := newTabWriter()
			fmt.Fprintln(w, "NAME\tITEMS\tMODIFIED")

			for _, f := range folders {
				fmt.Fprintf(w, "%s/\t%d\t%s\n", f.Name, f.ChildCount, f.Modified)
			}

			return w.Flush()
		},
	}
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <remote-path>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := buildApp()

			parent, name := splitRemote(args[0])

			folder, err := app.library.CreateFolder(cmd.Context(), parent, name)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(folder)
			}

			statusf("Created folder %s\n", args[0])

			return nil
		},
	}
}

func newRmdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rmdir <remote-path>",
		Short: "Delete an empty folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := buildApp()

			if err := app.library.DeleteFolder(cmd.Context(), strings.Trim(args[0], "/")); err != nil {
				return err
			}

			statusf("Deleted folder %s\n", args[0])

			return nil
		},
	}
}

func newTreeCmd() *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "tree [folder]",
		Short: "Show the folder hierarchy",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := buildApp()

			root := ""
			if len(args) == 1 {
				root = args[0]
			}

			nodes, err := app.library.FolderTree(cmd.Context(), root, maxDepth)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(nodes)
			}

			label := root
			if label == "" {
				label = "/"
			}

			fmt.Println(label)
			printTree(nodes, "")

			return nil
		},
	}

	cmd.Flags().IntVarP(&maxDepth, "depth", "d", 0, "maximum tree depth (0 uses the default)")

	return cmd
}

// printTree renders nodes with box-drawing connectors, one level of indent
// per depth.
func printTree(nodes []graph.FolderNode, prefix string) {
	for i, node := range nodes {
		connector := "├── "
		childPrefix := prefix + "│   "

		if i == len(nodes)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		suffix := ""

		switch node.State {
		case graph.TreeTruncated:
			if node.ChildCount > 0 {
				suffix = " [+]"
			}
		case graph.TreeFailed:
			suffix = " [unavailable]"
		case graph.TreeExpanded:
		}

		fmt.Printf("%s%s%s%s\n", prefix, connector, node.Name, suffix)
		printTree(node.Children, childPrefix)
	}
}
