// Package cli implements the auditctl command surface: history listings,
// version comparison, exports, mask previews, and caller token generation.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/fintrail/audita/internal/codec"
	"github.com/fintrail/audita/internal/identity"
	"github.com/fintrail/audita/internal/query"
	"github.com/fintrail/audita/internal/versionstore"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type App struct {
	queries  *query.Service
	identity *identity.JWTProvider
	codec    *codec.Codec
	out      io.Writer
}

func NewApp(queries *query.Service, ident *identity.JWTProvider, out io.Writer) *App {
	return &App{queries: queries, identity: ident, codec: codec.New(), out: out}
}

const usage = `usage: auditctl <command> [flags]

commands:
  history   list a subject's version history
  compare   show field changes between two versions
  export    export a subject's history (csv or json)
  mask      preview the masked form of a value
  token     generate a caller token
`

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "history":
		return a.history(ctx, args[1:])
	case "compare":
		return a.compare(ctx, args[1:])
	case "export":
		return a.export(ctx, args[1:])
	case "mask":
		return a.mask(args[1:])
	case "token":
		return a.token(args[1:])
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *App) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	subject := fs.String("subject", "", "subject id")
	caller := fs.String("as", "", "caller id used for masking decisions")
	limit := fs.Int("limit", versionstore.DefaultListLimit, "max entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("history: -subject is required")
	}

	entries, err := a.queries.History(ctx, *subject, *caller, versionstore.Filter{Limit: *limit})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSÃO\tDATA/HORA\tOPERAÇÃO\tUSUÁRIO\tCAMPOS\tMOTIVO")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Version, codec.FormatTimestamp(e.OccurredAt), e.Operation,
			e.ActorID, changedLabel(e), e.Reason)
	}
	return w.Flush()
}

func (a *App) compare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	subject := fs.String("subject", "", "subject id")
	caller := fs.String("as", "", "caller id used for masking decisions")
	from := fs.Int64("from", 0, "first version")
	to := fs.Int64("to", 0, "second version")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" || *from == 0 || *to == 0 {
		return fmt.Errorf("compare: -subject, -from and -to are required")
	}

	changes, err := a.queries.CompareVersions(ctx, *subject, *from, *to, *caller)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Fprintln(a.out, "Nenhuma diferença.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CAMPO\tDE\tPARA")
	for _, c := range changes {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Field, c.Old.String(), c.New.String())
	}
	return w.Flush()
}

func (a *App) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	subject := fs.String("subject", "", "subject id")
	caller := fs.String("as", "", "caller id used for masking decisions")
	format := fs.String("format", "csv", "export format: csv or json")
	outFile := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("export: -subject is required")
	}

	var (
		body []byte
		err  error
	)
	switch *format {
	case "csv":
		body, err = a.queries.ExportCSV(ctx, *subject, *caller)
	case "json":
		body, err = a.queries.ExportJSON(ctx, *subject, *caller)
	default:
		return fmt.Errorf("export: unsupported format %q", *format)
	}
	if err != nil {
		return err
	}

	if *outFile != "" {
		return os.WriteFile(*outFile, body, 0o600)
	}
	_, err = a.out.Write(body)
	return err
}

func (a *App) mask(args []string) error {
	fs := flag.NewFlagSet("mask", flag.ContinueOnError)
	fieldType := fs.String("type", string(codec.FieldGeneric), "field type (cpf, cnpj, phone, email, card, cvv)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("mask: exactly one value expected")
	}

	fmt.Fprintln(a.out, a.codec.MaskString(codec.FieldType(*fieldType), fs.Arg(0)))
	return nil
}

func (a *App) token(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	user := fs.String("user", "", "caller id to embed in the token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return fmt.Errorf("token: -user is required")
	}
	if a.identity == nil {
		fmt.Fprint(a.out, "Secret key: ")
		secret, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(a.out)
		if err != nil {
			return err
		}
		a.identity = identity.NewJWTProvider(secret, time.Hour)
	}

	tok, err := a.identity.GenerateToken(*user)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, tok)
	return nil
}

func changedLabel(e *versionstore.VersionEntry) string {
	if e.Changed.All() {
		return "*"
	}
	return strings.Join(e.Changed.Names(), ", ")
}
