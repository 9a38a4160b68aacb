package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewDocsCmd creates the admin docs command group
func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage the health assistant knowledge base (admin only)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List knowledge-base documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocsList()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document into the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocsUpload(args[0])
		},
	})

	return cmd
}

func runDocsList() error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	apiClient, err := newAuthenticatedClient(server)
	if err != nil {
		return err
	}
	if err := ensureRoute(apiClient, adminDocsRoute); err != nil {
		return err
	}

	docs, err := fetch("knowledge-base documents", apiClient.ListDocuments)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Println("No documents in the knowledge base.")
		fmt.Println("\nUpload one with: diatrack docs upload <file>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tCREATED AT")
	fmt.Fprintln(w, "──\t────\t──────\t──────────")

	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Filename, d.Status, d.CreatedAt)
	}

	w.Flush()
	return nil
}

func runDocsUpload(path string) error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	apiClient, err := newAuthenticatedClient(server)
	if err != nil {
		return err
	}
	if err := ensureRoute(apiClient, adminDocsRoute); err != nil {
		return err
	}

	doc, err := apiClient.UploadDocument(path)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Printf("✓ Document %s uploaded (%s), indexing queued\n", doc.Filename, doc.ID)
	return nil
}
