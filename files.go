package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spdrive/spdrive/internal/library"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [folder]",
		Short: "List documents in a folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := buildApp()

			folder := ""
			if len(args) == 1 {
				folder = args[0]
			}

			docs, err := app.library.ListDocuments(cmd.Context(), folder)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(docs)
			}

			w := newTabWriter()
			fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")

			for _, d := range docs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, formatSize(d.Size), d.Modified)
			}

			return w.Flush()
		},
	}
}

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <remote-path>",
		Short: "Print a document's content",
		Long: "Downloads a document and prints it to stdout. Text content is\n" +
			"printed as-is; binary content is printed base64-encoded. Use 'get'\n" +
			"for binary downloads.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := buildApp()

			folder, name := splitRemote(args[0])

			doc, err := app.library.ReadDocument(cmd.Context(), folder, name)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(doc)
			}

			if doc.Encoding == library.EncodingText {
				fmt.Print(doc.Content)

				if !strings.HasSuffix(doc.Content, "\n") {
					fmt.Println()
				}

				return nil
			}

			fmt.Println(doc.Content)

			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <remote-path> [local-path]",
		Short: "Download a document to a local file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := buildApp()

			folder, name := splitRemote(args[0])

			dest := output
			if len(args) == 2 {
				dest = args[1]
			}

			if dest == "" {
				dest = name
			}

			data, _, err := app.library.DownloadDocument(cmd.Context(), folder, name)
			if err != nil {
				return err
			}

			if err := os.WriteFile(dest, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", dest, err)
			}

			statusf("Downloaded %s (%s) to %s\n", name, formatSize(int64(len(data))), dest)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "local destination path")

	return cmd
}

func newPutCmd() *cobra.Command {
	var update bool

	cmd := &cobra.Command{
		Use:   "put <local-path> <remote-path>",
		Short: "Upload a local file to the library",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := buildApp()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			folder, name := splitRemote(args[1])
			if name == "" {
				name = splitLocalBase(args[0])
			}

			var doc *library.Document
			if update {
				doc, err = app.library.UpdateDocument(cmd.Context(), folder, name, data)
			} else {
				doc, err = app.library.UploadDocument(cmd.Context(), folder, name, data)
			}

			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(doc)
			}

			statusf("Uploaded %s (%s)\n", doc.Name, formatSize(doc.Size))

			return nil
		},
	}

	cmd.Flags().BoolVar(&update, "update", false, "replace an existing document")

	return cmd
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <remote-path>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := buildApp()

			folder, name := splitRemote(args[0])

			if err := app.library.DeleteDocument(cmd.Context(), folder, name); err != nil {
				return err
			}

			statusf("Deleted %s\n", args[0])

			return nil
		},
	}
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <remote-path>",
		Short: "Show a document's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := buildApp()

			folder, name := splitRemote(args[0])

			doc, err := app.library.StatDocument(cmd.Context(), folder, name)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(doc)
			}

			w := newTabWriter()
			fmt.Fprintf(w, "Name:\t%s\n", doc.Name)
			fmt.Fprintf(w, "Size:\t%s\n", formatSize(doc.Size))
			fmt.Fprintf(w, "Type:\t%s\n", doc.MimeType)
			fmt.Fprintf(w, "Created:\t%s\n", doc.Created)
			fmt.Fprintf(w, "Modified:\t%s\n", doc.Modified)
			fmt.Fprintf(w, "URL:\t%s\n", doc.WebURL)

			return w.Flush()
		},
	}
}

func newMetaCmd() *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "meta <remote-path>",
		Short: "Show or update a document's SharePoint metadata fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := buildApp()

			folder, name := splitRemote(args[0])

			if len(sets) > 0 {
				fields, err := parseFieldArgs(sets)
				if err != nil {
					return err
				}

				if err := app.library.UpdateMetadata(cmd.Context(), folder, name, fields); err != nil {
					return err
				}

				statusf("Updated %d field(s) on %s\n", len(fields), name)

				return nil
			}

			doc, fields, err := app.library.Metadata(cmd.Context(), folder, name)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(map[string]any{"document": doc, "fields": fields})
			}

			w := newTabWriter()
			fmt.Fprintf(w, "Name:\t%s\n", doc.Name)

			for k, v := range fields {
				fmt.Fprintf(w, "%s:\t%v\n", k, v)
			}

			return w.Flush()
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "field to set, as key=value (repeatable)")

	return cmd
}

// parseFieldArgs turns repeated key=value flags into a field map.
func parseFieldArgs(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", pair)
		}

		fields[key] = value
	}

	return fields, nil
}

// splitLocalBase returns the base name of a local filesystem path.
func splitLocalBase(localPath string) string {
	_, name := splitRemote(strings.ReplaceAll(localPath, string(os.PathSeparator), "/"))

	return name
}
