package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Strob0t/PromptForge/internal/domain/prompt"
	"github.com/Strob0t/PromptForge/internal/service"
)

// --- Personas and fragments ---

// entryCommands describes the persona or fragment command group.
type entryCommands struct {
	kind   string
	list   func(ctx context.Context, svc *service.PromptService, w io.Writer) error
	create func(ctx context.Context, svc *service.PromptService, req prompt.CreateEntryRequest) (int, error)
	remove func(*service.PromptService, context.Context, int) error
}

func newPersonaCmd(a *app) *cobra.Command {
	return newEntryCmd(a, entryCommands{
		kind: "persona",
		list: func(ctx context.Context, svc *service.PromptService, w io.Writer) error {
			listing, err := svc.Personas(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tSYSTEM\tCHARS")
			for _, group := range [][]prompt.Persona{listing.User, listing.System} {
				for i := range group {
					_, _ = fmt.Fprintf(tw, "%d\t%s\t%t\t%d\n",
						group[i].ID, group[i].Name, group[i].IsSystem, prompt.CharCount(group[i].Content))
				}
			}
			return tw.Flush()
		},
		create: func(ctx context.Context, svc *service.PromptService, req prompt.CreateEntryRequest) (int, error) {
			p, err := svc.CreatePersona(ctx, req)
			if err != nil {
				return 0, err
			}
			return p.ID, nil
		},
		remove: (*service.PromptService).DeletePersona,
	})
}

func newFragmentCmd(a *app) *cobra.Command {
	return newEntryCmd(a, entryCommands{
		kind: "fragment",
		list: func(ctx context.Context, svc *service.PromptService, w io.Writer) error {
			fragments, err := svc.Fragments(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tSYSTEM\tCHARS")
			for i := range fragments {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%t\t%d\n",
					fragments[i].ID, fragments[i].Name, fragments[i].IsSystem, prompt.CharCount(fragments[i].Content))
			}
			return tw.Flush()
		},
		create: func(ctx context.Context, svc *service.PromptService, req prompt.CreateEntryRequest) (int, error) {
			f, err := svc.CreateFragment(ctx, req)
			if err != nil {
				return 0, err
			}
			return f.ID, nil
		},
		remove: (*service.PromptService).DeleteFragment,
	})
}

func newEntryCmd(a *app, ec entryCommands) *cobra.Command {
	cmd := &cobra.Command{
		Use:   ec.kind,
		Short: "Manage " + ec.kind + "s",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List " + ec.kind + "s",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ec.list(cmd.Context(), a.prompts(), cmd.OutOrStdout())
		},
	})

	var name, content, contentFile string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a " + ec.kind,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readContent(content, contentFile)
			if err != nil {
				return err
			}
			id, err := ec.create(cmd.Context(), a.prompts(), prompt.CreateEntryRequest{Name: name, Content: text})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %d\n", ec.kind, id)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name (required)")
	create.Flags().StringVar(&content, "content", "", "instruction text")
	create.Flags().StringVar(&contentFile, "content-file", "", "read the instruction text from a file, - for stdin")
	_ = create.MarkFlagRequired("name")
	create.MarkFlagsMutuallyExclusive("content", "content-file")
	cmd.AddCommand(create)

	cmd.AddCommand(newDeleteCmd(a, ec.kind, ec.remove))
	return cmd
}

func newDeleteCmd(a *app, kind string, del func(*service.PromptService, context.Context, int) error) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + kind,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("Delete %s %d?", kind, id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
					return nil
				}
			}
			if err := del(a.prompts(), cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %d\n", kind, id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// --- Compositions ---

func newCompositionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "composition",
		Aliases: []string{"comp"},
		Short:   "Manage compositions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List compositions with their labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			views, err := a.prompts().Compositions(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tACTIVE\tPERSONA\tFRAGMENTS\tCHARS")
			for i := range views {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%t\t%s\t%s\t%d\n",
					views[i].ID, views[i].Name, views[i].IsActive, views[i].PersonaName, views[i].FragmentNames, views[i].Prompt.CharCount)
			}
			return tw.Flush()
		},
	})

	var (
		name      string
		personaID int
		toggles   []int
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a composition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel := buildSelection(cmd.ErrOrStderr(), personaID, toggles)
			c, err := a.prompts().CreateComposition(cmd.Context(), sel.Request(name))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created composition %d\n", c.ID)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "composition name (required)")
	create.Flags().IntVar(&personaID, "persona", 0, "persona id (required)")
	create.Flags().IntSliceVar(&toggles, "toggle", nil, "toggle a fragment id into the selection; repeat in prompt order")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("persona")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "activate <id>",
		Short: "Make a composition the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			act, err := a.prompts().ActivateComposition(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "activated %q (%d parts, %d characters)\n",
				act.CompositionName, act.Prompt.PartCount, act.Prompt.CharCount)
			return nil
		},
	})

	var previewPersona int
	var previewToggles []int
	preview := &cobra.Command{
		Use:   "preview",
		Short: "Print the prompt a persona and fragments would assemble to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel := buildSelection(cmd.ErrOrStderr(), previewPersona, previewToggles)
			p, err := a.prompts().Preview(cmd.Context(), sel)
			if err != nil {
				return err
			}
			if p.Placeholder != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), p.Placeholder)
				return nil
			}
			printPrompt(cmd.OutOrStdout(), p.Prompt)
			return nil
		},
	}
	preview.Flags().IntVar(&previewPersona, "persona", 0, "persona id")
	preview.Flags().IntSliceVar(&previewToggles, "toggle", nil, "toggle a fragment id into the selection; repeat in prompt order")
	cmd.AddCommand(preview)

	cmd.AddCommand(newDeleteCmd(a, "composition", (*service.PromptService).DeleteComposition))
	return cmd
}

// --- Landing and evaluation ---

func newActiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Show the active composition and the prompt in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := a.prompts().Active(cmd.Context())
			if err != nil {
				return err
			}
			if view.Composition == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No active composition.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active: %s (id %d)\n\n", view.Composition.Name, view.Composition.ID)
			printPrompt(cmd.OutOrStdout(), view.Prompt)
			return nil
		},
	}
}

func newEvaluateCmd(a *app) *cobra.Command {
	var title, article, articleFile string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Submit a test article to the evaluation agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readContent(article, articleFile)
			if err != nil {
				return err
			}
			ev, err := a.prompts().Evaluate(cmd.Context(), prompt.EvaluateRequest{Title: title, Article: text})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ev)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "article title (required)")
	cmd.Flags().StringVar(&article, "article", "", "article text")
	cmd.Flags().StringVar(&articleFile, "article-file", "", "read the article from a file, - for stdin")
	_ = cmd.MarkFlagRequired("title")
	cmd.MarkFlagsMutuallyExclusive("article", "article-file")
	return cmd
}

// --- Helpers ---

// buildSelection toggles each id in order, so naming an id a second time
// removes it again.
func buildSelection(w io.Writer, personaID int, toggles []int) prompt.Selection {
	sel := prompt.Selection{PersonaID: personaID}
	for _, id := range toggles {
		if sel.Contains(id) {
			fmt.Fprintf(w, "fragment %d deselected\n", id)
		}
		sel.Toggle(id)
	}
	return sel
}

func printPrompt(w io.Writer, p prompt.AssembledPrompt) {
	fmt.Fprintln(w, p.Text)
	fmt.Fprintf(w, "\n(%d parts, %d characters)\n", p.PartCount, p.CharCount)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// readContent returns inline when set, otherwise the contents of path
// ("-" reads stdin).
func readContent(inline, path string) (string, error) {
	switch path {
	case "":
		return inline, nil
	case "-":
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

var errNotInteractive = errors.New("stdin is not a terminal, pass --yes to confirm")

// confirm asks a yes/no question on an interactive terminal.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: fd fits in int
		return false, errNotInteractive
	}
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
